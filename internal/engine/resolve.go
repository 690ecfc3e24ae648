package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ancientworld/internal/knowledge"
	"ancientworld/internal/llm"
	"ancientworld/internal/store"
	"ancientworld/internal/world"
)

// Resolve applies one validated action to the world. It re-validates
// against freshly read state, so an action that was legal when
// interpreted can still fail here. Revision collisions are retried up to
// the configured bound, then surfaced as world.ErrConflict.
func (e *Engine) Resolve(ctx context.Context, action world.Action) (*Summary, error) {
	summary, desc, err := e.resolveGuarded(ctx, action)
	if err != nil {
		return nil, err
	}

	// Indexing and narration run after the barrier is released so a slow
	// generation call never delays a waiting tick.
	e.idx.AddBestEffort(ctx, knowledge.Event{
		ID:        actionEventID(summary.Country.ID, summary.Country.Revision),
		CountryID: summary.Country.ID,
		Year:      summary.Year,
		Kind:      string(action.Kind),
		Text:      desc,
	})
	summary.Narration = llm.Narrate(ctx, e.gen, e.countryContext(ctx, summary.Country, summary.Year), desc)
	return summary, nil
}

// resolveGuarded holds the read side of the phase barrier for the
// duration of the retry loop only.
func (e *Engine) resolveGuarded(ctx context.Context, action world.Action) (*Summary, string, error) {
	e.barrier.RLock()
	defer e.barrier.RUnlock()

	var lastErr error
	for attempt := 0; attempt < e.cfg.ResolveRetries; attempt++ {
		summary, desc, err := e.resolveOnce(ctx, action)
		if err == nil {
			return summary, desc, nil
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, "", fmt.Errorf("action %s for country %d: %v: %w",
				action.Kind, action.CountryID, err, world.ErrTransientFailure)
		}
		if !errors.Is(err, world.ErrStaleRevision) {
			return nil, "", err
		}
		lastErr = err
		slog.Debug("resolve retry", "country", action.CountryID,
			"kind", action.Kind, "attempt", attempt+1)
	}
	return nil, "", fmt.Errorf("action %s for country %d: %v: %w",
		action.Kind, action.CountryID, lastErr, world.ErrConflict)
}

func (e *Engine) resolveOnce(ctx context.Context, action world.Action) (*Summary, string, error) {
	year, err := e.store.CurrentYear(ctx)
	if err != nil {
		return nil, "", err
	}
	country, err := e.store.GetCountry(ctx, action.CountryID)
	if err != nil {
		return nil, "", err
	}

	m := store.Mutation{
		Country:          country,
		ExpectedRevision: country.Revision,
		Audit: &world.ActionRecord{
			CountryID: country.ID,
			Kind:      string(action.Kind),
			Detail:    action.String(),
			Year:      year,
		},
	}

	var desc string
	switch action.Kind {
	case world.ActionBuildProject:
		desc, err = e.resolveBuild(country, action, year, &m)
	case world.ActionProposeRel:
		desc, err = e.resolvePropose(ctx, country, action, year, &m)
	case world.ActionAcceptRel:
		desc, err = e.resolveAccept(ctx, country, action, year, &m)
	case world.ActionRejectRel:
		desc, err = e.resolveReject(ctx, country, action, year, &m)
	case world.ActionAttack:
		desc, err = e.resolveAttack(ctx, country, action, year, &m)
	case world.ActionPolicyChange:
		desc, err = e.resolvePolicy(country, action, &m)
	case world.ActionNarrativeEvent:
		desc = fmt.Sprintf("In %s, %s", country.Name, action.Text)
	default:
		return nil, "", fmt.Errorf("action kind %q: %w", action.Kind, world.ErrUnintelligibleOrder)
	}
	if err != nil {
		return nil, "", err
	}

	country.UpdatedYear = year
	if e.testHookBeforeApply != nil {
		e.testHookBeforeApply()
	}
	if err := e.store.Apply(ctx, m); err != nil {
		return nil, "", err
	}

	return &Summary{
		Action:  action,
		Year:    year,
		Country: country,
	}, desc, nil
}

// actionEventID keys a knowledge event by the revision the action
// committed, so a retried resolve cannot double-index.
func actionEventID(countryID, revision int64) string {
	return fmt.Sprintf("action-%d-r%d", countryID, revision)
}

func (e *Engine) resolveBuild(country *world.Country, action world.Action, year int64, m *store.Mutation) (string, error) {
	if country.Treasury < action.Cost {
		return "", fmt.Errorf("treasury %d cannot cover cost %d: %w",
			country.Treasury, action.Cost, world.ErrForbiddenAction)
	}
	country.Treasury -= action.Cost

	project := world.Project{
		ID:          uuid.NewString(),
		CountryID:   country.ID,
		Kind:        action.ProjectKind,
		Name:        action.ProjectName,
		Cost:        action.Cost,
		Progress:    0,
		Threshold:   e.cfg.ProjectThreshold,
		Increment:   e.cfg.ProjectIncrement,
		Effect:      projectEffect(action.ProjectKind, action.Cost),
		Status:      world.ProjectInProgress,
		StartedYear: year,
	}
	m.NewProjects = append(m.NewProjects, project)

	return fmt.Sprintf("%s begins work on %s %q, spending %d from the treasury.",
		country.Name, project.Kind, project.Name, project.Cost), nil
}

// projectEffect sizes a project's completion payoff by its cost.
// Construction strengthens the state; research enriches and steadies it.
func projectEffect(kind world.ProjectKind, cost int64) world.AttributeDelta {
	payoff := cost / 4
	if payoff < 5 {
		payoff = 5
	}
	if kind == world.ProjectResearch {
		return world.AttributeDelta{
			world.AttrTreasury:  payoff,
			world.AttrStability: payoff / 2,
		}
	}
	return world.AttributeDelta{
		world.AttrStability: payoff / 2,
		world.AttrMilitary:  payoff / 2,
		world.AttrTerritory: payoff / 4,
	}
}

func (e *Engine) resolvePropose(ctx context.Context, country *world.Country, action world.Action, year int64, m *store.Mutation) (string, error) {
	target, err := e.store.GetCountry(ctx, action.TargetID)
	if err != nil {
		return "", err
	}

	// A standing relation in either direction blocks a new proposal
	// unless it is terminal.
	if rel, err := e.store.GetRelation(ctx, country.ID, target.ID); err == nil {
		if rel.Status == world.RelationPending || rel.Status == world.RelationActive {
			return "", fmt.Errorf("a %s relation with %s is already %s: %w",
				rel.Kind, target.Name, rel.Status, world.ErrForbiddenAction)
		}
	} else if !errors.Is(err, world.ErrNotFound) {
		return "", err
	}

	rel := world.Relation{
		FromID:       country.ID,
		ToID:         target.ID,
		Kind:         action.RelationKind,
		Status:       world.RelationPending,
		ProposedYear: year,
		ExpiresYear:  year + e.cfg.ProposalExpiryTicks,
	}
	m.Relations = append(m.Relations, rel)
	m.History = append(m.History, world.RelationEvent{
		FromID: rel.FromID, ToID: rel.ToID, Kind: rel.Kind,
		Status: rel.Status, Year: year,
	})

	return fmt.Sprintf("%s sends envoys to %s proposing a %s.",
		country.Name, target.Name, rel.Kind), nil
}

func (e *Engine) resolveAccept(ctx context.Context, country *world.Country, action world.Action, year int64, m *store.Mutation) (string, error) {
	target, rel, err := e.pendingProposal(ctx, country, action.TargetID)
	if err != nil {
		return "", err
	}

	rel.Status = world.RelationActive
	rel.ResolvedYear = year
	m.Relations = append(m.Relations, *rel)
	m.History = append(m.History, world.RelationEvent{
		FromID: rel.FromID, ToID: rel.ToID, Kind: rel.Kind,
		Status: rel.Status, Year: year,
	})

	// Symmetric kinds activate the mirrored edge in the same commit.
	if rel.Kind.Symmetric() {
		mirror := *rel
		mirror.FromID, mirror.ToID = rel.ToID, rel.FromID
		m.Relations = append(m.Relations, mirror)
	}

	return fmt.Sprintf("%s accepts the %s offered by %s.",
		country.Name, rel.Kind, target.Name), nil
}

func (e *Engine) resolveReject(ctx context.Context, country *world.Country, action world.Action, year int64, m *store.Mutation) (string, error) {
	target, rel, err := e.pendingProposal(ctx, country, action.TargetID)
	if err != nil {
		return "", err
	}

	rel.Status = world.RelationRejected
	rel.ResolvedYear = year
	m.Relations = append(m.Relations, *rel)
	m.History = append(m.History, world.RelationEvent{
		FromID: rel.FromID, ToID: rel.ToID, Kind: rel.Kind,
		Status: rel.Status, Year: year,
	})

	return fmt.Sprintf("%s turns away the envoys of %s, rejecting the %s.",
		country.Name, target.Name, rel.Kind), nil
}

// pendingProposal loads the pending relation proposed BY targetID TO the
// acting country.
func (e *Engine) pendingProposal(ctx context.Context, country *world.Country, targetID int64) (*world.Country, *world.Relation, error) {
	target, err := e.store.GetCountry(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	rel, err := e.store.GetRelation(ctx, target.ID, country.ID)
	if errors.Is(err, world.ErrNotFound) {
		return nil, nil, fmt.Errorf("no proposal from %s: %w", target.Name, world.ErrForbiddenAction)
	}
	if err != nil {
		return nil, nil, err
	}
	if rel.Status != world.RelationPending {
		return nil, nil, fmt.Errorf("proposal from %s is %s: %w",
			target.Name, rel.Status, world.ErrForbiddenAction)
	}
	return target, rel, nil
}

func (e *Engine) resolveAttack(ctx context.Context, country *world.Country, action world.Action, year int64, m *store.Mutation) (string, error) {
	target, err := e.store.GetCountry(ctx, action.TargetID)
	if err != nil {
		return "", err
	}
	if country.Military <= 0 {
		return "", fmt.Errorf("no army to march: %w", world.ErrForbiddenAction)
	}

	m.Counterpart = target
	m.CounterpartRevision = target.Revision

	// Hostilities supersede whatever edge stood before, a dead proposal
	// or even a standing alliance. Only an already active conflict leaves
	// the edge untouched.
	rel, err := e.store.GetRelation(ctx, country.ID, target.ID)
	switch {
	case err != nil && !errors.Is(err, world.ErrNotFound):
		return "", err
	case err == nil && rel.Kind == world.RelationConflict && rel.Status == world.RelationActive:
		// war already declared
	default:
		m.Relations = append(m.Relations, world.Relation{
			FromID: country.ID, ToID: target.ID,
			Kind: world.RelationConflict, Status: world.RelationActive,
			ProposedYear: year, ResolvedYear: year,
		})
		m.History = append(m.History, world.RelationEvent{
			FromID: country.ID, ToID: target.ID,
			Kind: world.RelationConflict, Status: world.RelationActive, Year: year,
		})
	}

	// The fortune roll is keyed to the attacker, so the same battle
	// fought in the same year resolves the same way.
	roll := e.fortune.Roll(year, country.ID)
	attack := float64(country.Military) * e.cfg.CombatAttackWeight * (0.75 + 0.5*roll)
	defense := float64(target.Military)*e.cfg.CombatDefenseWeight + float64(target.Stability)*0.2

	var desc string
	if attack > defense {
		spoils := target.Treasury / 5
		ground := target.Territory / 10
		country.AddAttr(world.AttrTreasury, spoils)
		country.AddAttr(world.AttrTerritory, ground)
		country.AddAttr(world.AttrMilitary, -int64(float64(country.Military)*0.1))
		target.AddAttr(world.AttrTreasury, -spoils)
		target.AddAttr(world.AttrTerritory, -ground)
		target.AddAttr(world.AttrMilitary, -int64(float64(target.Military)*0.2))
		target.AddAttr(world.AttrStability, -10)
		desc = fmt.Sprintf("%s marches on %s and prevails, seizing %d in tribute and %d measures of land.",
			country.Name, target.Name, spoils, ground)
	} else {
		country.AddAttr(world.AttrMilitary, -int64(float64(country.Military)*0.25))
		country.AddAttr(world.AttrStability, -5)
		target.AddAttr(world.AttrMilitary, -int64(float64(target.Military)*0.05))
		desc = fmt.Sprintf("%s marches on %s and is repelled at great cost.",
			country.Name, target.Name)
	}

	target.UpdatedYear = year
	return desc, nil
}

func (e *Engine) resolvePolicy(country *world.Country, action world.Action, m *store.Mutation) (string, error) {
	if !world.ValidAttribute(action.Attribute) {
		return "", fmt.Errorf("unknown attribute %q: %w", action.Attribute, world.ErrUnintelligibleOrder)
	}
	before := country.Attr(action.Attribute)
	country.AddAttr(action.Attribute, action.Delta)
	after := country.Attr(action.Attribute)

	return fmt.Sprintf("%s enacts a policy: %s moves from %d to %d.",
		country.Name, action.Attribute, before, after), nil
}

// countryContext builds a short prompt context for narration: current
// standing plus the most similar indexed events.
func (e *Engine) countryContext(ctx context.Context, c *world.Country, year int64) string {
	out := fmt.Sprintf("The year is %s. %s: population %d, treasury %d, stability %d, military %d, territory %d.",
		world.FormatYear(year), c.Name, c.Population, c.Treasury,
		c.Stability, c.Military, c.Territory)

	events, err := e.idx.QueryCountry(ctx, c.ID, c.Name, e.cfg.ContextEvents)
	if err != nil {
		return out
	}
	if block := knowledge.ContextText(events); block != "" {
		out += "\n" + block
	}
	return out
}
