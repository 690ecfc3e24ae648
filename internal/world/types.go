// Package world defines the domain model shared by the store, the order
// interpreter and the resolution engine: countries, projects, diplomatic
// relations, the world clock and structured player actions.
package world

import (
	"fmt"
	"time"
)

// Attribute names a numeric country attribute.
type Attribute string

const (
	AttrPopulation Attribute = "population"
	AttrTreasury   Attribute = "treasury"
	AttrStability  Attribute = "stability"
	AttrMilitary   Attribute = "military"
	AttrTerritory  Attribute = "territory"
)

// Attributes lists every country attribute in display order.
var Attributes = []Attribute{
	AttrPopulation, AttrTreasury, AttrStability, AttrMilitary, AttrTerritory,
}

// ValidAttribute reports whether name is a known country attribute.
func ValidAttribute(name Attribute) bool {
	for _, a := range Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// Bounds caps a single attribute. Min is always >= 0.
type Bounds struct {
	Min int64
	Max int64
}

// DefaultBounds holds the domain caps for each attribute. Stability is a
// percentage; the rest are open-ended but still capped to keep runaway
// event chains from overflowing.
var DefaultBounds = map[Attribute]Bounds{
	AttrPopulation: {Min: 0, Max: 100_000_000},
	AttrTreasury:   {Min: 0, Max: 1_000_000_000},
	AttrStability:  {Min: 0, Max: 100},
	AttrMilitary:   {Min: 0, Max: 1_000_000},
	AttrTerritory:  {Min: 0, Max: 1_000_000},
}

// Clamp forces v into the bounds configured for attr.
func Clamp(attr Attribute, v int64) int64 {
	b, ok := DefaultBounds[attr]
	if !ok {
		return v
	}
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Country is a player-owned state in the simulated world. The store is the
// only writer; Revision implements optimistic concurrency: every committed
// mutation increments it, and writers must present the revision they read.
type Country struct {
	ID        int64  `db:"id" json:"id"`
	OwnerID   int64  `db:"owner_id" json:"owner_id"`
	OwnerName string `db:"owner_name" json:"owner_name"`
	Name      string `db:"name" json:"name"`

	Population int64 `db:"population" json:"population"`
	Treasury   int64 `db:"treasury" json:"treasury"`
	Stability  int64 `db:"stability" json:"stability"`
	Military   int64 `db:"military" json:"military"`
	Territory  int64 `db:"territory" json:"territory"`

	Description string   `db:"description" json:"description"`
	Problems    []string `db:"-" json:"problems"`

	Revision    int64     `db:"revision" json:"revision"`
	UpdatedYear int64     `db:"updated_year" json:"updated_year"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Attr returns the named attribute value.
func (c *Country) Attr(name Attribute) int64 {
	switch name {
	case AttrPopulation:
		return c.Population
	case AttrTreasury:
		return c.Treasury
	case AttrStability:
		return c.Stability
	case AttrMilitary:
		return c.Military
	case AttrTerritory:
		return c.Territory
	}
	return 0
}

// SetAttr assigns the named attribute, clamped to its bounds.
func (c *Country) SetAttr(name Attribute, v int64) {
	v = Clamp(name, v)
	switch name {
	case AttrPopulation:
		c.Population = v
	case AttrTreasury:
		c.Treasury = v
	case AttrStability:
		c.Stability = v
	case AttrMilitary:
		c.Military = v
	case AttrTerritory:
		c.Territory = v
	}
}

// AddAttr applies a delta to the named attribute, clamped to its bounds.
func (c *Country) AddAttr(name Attribute, delta int64) {
	c.SetAttr(name, c.Attr(name)+delta)
}

// AttributeDelta is a deferred bounded mutation, e.g. a project's
// effect-on-completion or a random event's effect.
type AttributeDelta map[Attribute]int64

// ApplyTo applies every delta to c, clamping each attribute.
func (d AttributeDelta) ApplyTo(c *Country) {
	for attr, delta := range d {
		c.AddAttr(attr, delta)
	}
}

// ProjectKind distinguishes long-running project categories.
type ProjectKind string

const (
	ProjectConstruction ProjectKind = "construction"
	ProjectResearch     ProjectKind = "research"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// Project is a long-running improvement owned by a country. Progress is
// monotone non-decreasing and never exceeds Threshold; once Status is
// completed the Effect has been applied exactly once and the record is
// terminal.
type Project struct {
	ID        string         `db:"id" json:"id"`
	CountryID int64          `db:"country_id" json:"country_id"`
	Kind      ProjectKind    `db:"kind" json:"kind"`
	Name      string         `db:"name" json:"name"`
	Cost      int64          `db:"cost" json:"cost"`
	Progress  int64          `db:"progress" json:"progress"`
	Threshold int64          `db:"threshold" json:"threshold"`
	Increment int64          `db:"increment" json:"increment"`
	Effect    AttributeDelta `db:"-" json:"effect"`
	Status    ProjectStatus  `db:"status" json:"status"`

	StartedYear   int64 `db:"started_year" json:"started_year"`
	CompletedYear int64 `db:"completed_year" json:"completed_year"`
}

// Completed reports whether the project reached its threshold.
func (p *Project) Completed() bool { return p.Status == ProjectCompleted }

// RelationKind is the diplomatic flavor of a relation.
type RelationKind string

const (
	RelationNeutral  RelationKind = "neutral"
	RelationAlliance RelationKind = "alliance"
	RelationConflict RelationKind = "conflict"
	RelationTrade    RelationKind = "trade"
)

// Symmetric reports whether the kind requires a mirrored row on
// activation. Conflict is declared by one side and stays directed.
func (k RelationKind) Symmetric() bool {
	return k == RelationAlliance || k == RelationTrade
}

// RelationStatus is the lifecycle state of a relation row.
type RelationStatus string

const (
	RelationPending  RelationStatus = "pending"
	RelationActive   RelationStatus = "active"
	RelationRejected RelationStatus = "rejected"
	RelationExpired  RelationStatus = "expired"
)

// Relation is one directed diplomatic edge. Symmetric kinds (alliance,
// trade) are stored as two mirrored rows once active; conflict is a single
// directed row. Pending proposals carry ExpiresYear: a tick that advances
// the clock to that year or beyond expires them terminally.
type Relation struct {
	FromID       int64          `db:"from_id" json:"from_id"`
	ToID         int64          `db:"to_id" json:"to_id"`
	Kind         RelationKind   `db:"kind" json:"kind"`
	Status       RelationStatus `db:"status" json:"status"`
	ProposedYear int64          `db:"proposed_year" json:"proposed_year"`
	ExpiresYear  int64          `db:"expires_year" json:"expires_year"`
	ResolvedYear int64          `db:"resolved_year" json:"resolved_year"`
}

// RelationEvent is one entry in a relation's status-change history.
type RelationEvent struct {
	ID     int64          `db:"id" json:"id"`
	FromID int64          `db:"from_id" json:"from_id"`
	ToID   int64          `db:"to_id" json:"to_id"`
	Kind   RelationKind   `db:"kind" json:"kind"`
	Status RelationStatus `db:"status" json:"status"`
	Year   int64          `db:"year" json:"year"`
}

// ActionKind tags the structured action variants an interpreted order can
// take.
type ActionKind string

const (
	ActionBuildProject   ActionKind = "build-project"
	ActionProposeRel     ActionKind = "propose-relation"
	ActionAcceptRel      ActionKind = "accept-relation"
	ActionRejectRel      ActionKind = "reject-relation"
	ActionAttack         ActionKind = "attack"
	ActionPolicyChange   ActionKind = "policy-change"
	ActionNarrativeEvent ActionKind = "narrative-event"
)

// ValidActionKind reports whether k is a known action kind.
func ValidActionKind(k ActionKind) bool {
	switch k {
	case ActionBuildProject, ActionProposeRel, ActionAcceptRel,
		ActionRejectRel, ActionAttack, ActionPolicyChange, ActionNarrativeEvent:
		return true
	}
	return false
}

// Action is a validated, structured representation of a player's order.
// It is produced once by the interpreter, consumed once by the resolution
// engine, and persisted only as an audit record.
type Action struct {
	Kind      ActionKind `json:"kind"`
	CountryID int64      `json:"country_id"`

	// build-project
	ProjectName string      `json:"project_name,omitempty"`
	ProjectKind ProjectKind `json:"project_kind,omitempty"`
	Cost        int64       `json:"cost,omitempty"`

	// propose/accept/reject-relation and attack
	TargetID     int64        `json:"target_id,omitempty"`
	RelationKind RelationKind `json:"relation_kind,omitempty"`

	// policy-change
	Attribute Attribute `json:"attribute,omitempty"`
	Delta     int64     `json:"delta,omitempty"`

	// narrative-event and attack flavor
	Text string `json:"text,omitempty"`
}

// String renders a short audit description of the action.
func (a Action) String() string {
	switch a.Kind {
	case ActionBuildProject:
		return fmt.Sprintf("%s %q (cost %d)", a.Kind, a.ProjectName, a.Cost)
	case ActionProposeRel, ActionAcceptRel, ActionRejectRel:
		return fmt.Sprintf("%s %s with country %d", a.Kind, a.RelationKind, a.TargetID)
	case ActionAttack:
		return fmt.Sprintf("%s country %d", a.Kind, a.TargetID)
	case ActionPolicyChange:
		return fmt.Sprintf("%s %s %+d", a.Kind, a.Attribute, a.Delta)
	default:
		return string(a.Kind)
	}
}

// ActionRecord is the audit-log form of a consumed action.
type ActionRecord struct {
	ID        int64     `db:"id" json:"id"`
	CountryID int64     `db:"country_id" json:"country_id"`
	Kind      string    `db:"kind" json:"kind"`
	Detail    string    `db:"detail" json:"detail"`
	Year      int64     `db:"year" json:"year"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FormatYear renders an in-game year for players. The world clock counts
// upward through the ancient era, with negative years before the common
// era.
func FormatYear(year int64) string {
	if year < 0 {
		return fmt.Sprintf("%d BCE", -year)
	}
	return fmt.Sprintf("%d CE", year)
}
