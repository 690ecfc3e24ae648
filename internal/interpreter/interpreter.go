// Package interpreter maps a player's free-text order onto a structured
// action against their country. Classification is delegated to the
// text-generation collaborator, grounded by knowledge-index context,
// with a keyword fallback when generation is unavailable. Every action
// is validated against current world state before it is returned.
package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ancientworld/internal/config"
	"ancientworld/internal/knowledge"
	"ancientworld/internal/llm"
	"ancientworld/internal/store"
	"ancientworld/internal/world"
)

// Interpreter converts orders to validated actions.
type Interpreter struct {
	store *store.Store
	idx   *knowledge.Index
	gen   llm.Generator
	cfg   config.Game
}

// New creates an interpreter. gen may be nil; the keyword classifier
// then handles every order.
func New(st *store.Store, idx *knowledge.Index, gen llm.Generator, cfg config.Game) *Interpreter {
	return &Interpreter{store: st, idx: idx, gen: gen, cfg: cfg}
}

// orderJSON is the structured shape the generator is asked to emit.
type orderJSON struct {
	Action      string `json:"action"`
	ProjectName string `json:"project_name"`
	ProjectKind string `json:"project_kind"`
	Cost        int64  `json:"cost"`
	Target      string `json:"target"`
	Relation    string `json:"relation"`
	Attribute   string `json:"attribute"`
	Delta       int64  `json:"delta"`
	Summary     string `json:"summary"`
}

// Anachronisms the ancient era rejects outright. The original check is
// generative; this list catches the obvious cases even offline.
var anachronisms = []string{
	"rifle", "cannon", "gunpowder", "tank", "airplane", "nuclear",
	"electricity", "internet", "computer", "satellite",
}

// Interpret maps raw player text to one validated action for the acting
// country. Fails with ErrUnintelligibleOrder when no action can be
// extracted and ErrForbiddenAction when validation rejects it.
func (it *Interpreter) Interpret(ctx context.Context, countryID int64, text string) (world.Action, error) {
	var zero world.Action

	text = strings.TrimSpace(text)
	if text == "" {
		return zero, world.ErrUnintelligibleOrder
	}

	country, err := it.store.GetCountry(ctx, countryID)
	if err != nil {
		return zero, err
	}

	lower := strings.ToLower(text)
	for _, word := range anachronisms {
		if strings.Contains(lower, word) {
			return zero, fmt.Errorf("%q does not belong to this era: %w",
				word, world.ErrForbiddenAction)
		}
	}

	// Ground classification with similar past events. Retrieval failures
	// degrade to an empty context.
	var contextBlock string
	if it.idx != nil {
		events, err := it.idx.QueryCountry(ctx, countryID, text, it.cfg.ContextEvents)
		if err != nil {
			slog.Warn("context retrieval failed", "country", countryID, "error", err)
		} else {
			contextBlock = knowledge.ContextText(events)
		}
	}

	action, err := it.classify(ctx, country, text, contextBlock)
	if err != nil {
		return zero, err
	}

	if err := it.validate(ctx, country, &action); err != nil {
		return zero, err
	}
	return action, nil
}

func (it *Interpreter) classify(ctx context.Context, country *world.Country, text, contextBlock string) (world.Action, error) {
	if it.gen != nil {
		action, err := it.classifyGenerative(ctx, country, text, contextBlock)
		if err == nil {
			return action, nil
		}
		if !errors.Is(err, world.ErrGenerationUnavailable) {
			return world.Action{}, err
		}
		slog.Warn("generative classification unavailable, using keyword fallback", "error", err)
	}
	return it.classifyKeywords(ctx, country, text)
}

const classifySystem = `You translate a ruler's orders into exactly one structured game action.
Respond ONLY with a JSON object containing:
- "action": one of "build-project", "propose-relation", "accept-relation", "reject-relation", "attack", "policy-change", "narrative-event"
- "project_name", "project_kind" ("construction" or "research"), "cost": for build-project
- "target": the name of the other country, for relation actions and attack
- "relation": "alliance" or "trade", for relation actions
- "attribute": one of "population", "treasury", "stability", "military", "territory", and "delta": a signed integer, for policy-change
- "summary": one sentence restating the order

Valid actions:
- build-project: start a construction or research effort (temple, walls, irrigation, bronze working)
- propose-relation: offer an alliance or trade pact to another country
- accept-relation / reject-relation: answer a standing proposal from another country
- attack: open hostilities against another country
- policy-change: adjust one internal attribute (raise taxes, recruit soldiers, calm unrest)
- narrative-event: a purely descriptive act with no mechanical effect`

func (it *Interpreter) classifyGenerative(ctx context.Context, country *world.Country, text, contextBlock string) (world.Action, error) {
	var zero world.Action

	var b strings.Builder
	fmt.Fprintf(&b, "The ruler of %s commands: %q\n", country.Name, text)
	if contextBlock != "" {
		b.WriteString("\n" + contextBlock)
	}
	b.WriteString("\nRespond with the JSON object only.")

	response, err := it.gen.Generate(ctx, classifySystem, b.String(), 400)
	if err != nil {
		return zero, err
	}

	// The model may wrap the object in explanation text.
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return zero, fmt.Errorf("no JSON object in response: %w", world.ErrUnintelligibleOrder)
	}

	var raw orderJSON
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return zero, fmt.Errorf("parse order: %v: %w", err, world.ErrUnintelligibleOrder)
	}

	return it.toAction(ctx, country, text, raw)
}

func (it *Interpreter) toAction(ctx context.Context, country *world.Country, text string, raw orderJSON) (world.Action, error) {
	var zero world.Action

	kind := world.ActionKind(raw.Action)
	if !world.ValidActionKind(kind) {
		return zero, fmt.Errorf("unknown action %q: %w", raw.Action, world.ErrUnintelligibleOrder)
	}

	action := world.Action{
		Kind:      kind,
		CountryID: country.ID,
		Text:      text,
	}

	switch kind {
	case world.ActionBuildProject:
		action.ProjectName = strings.TrimSpace(raw.ProjectName)
		if action.ProjectName == "" {
			action.ProjectName = "great work"
		}
		action.ProjectKind = world.ProjectKind(raw.ProjectKind)
		if action.ProjectKind != world.ProjectConstruction && action.ProjectKind != world.ProjectResearch {
			action.ProjectKind = world.ProjectConstruction
		}
		action.Cost = raw.Cost
		if action.Cost <= 0 {
			action.Cost = it.cfg.DefaultProjectCost
		}

	case world.ActionProposeRel:
		target, err := it.resolveTarget(ctx, raw.Target)
		if err != nil {
			return zero, err
		}
		action.TargetID = target.ID
		action.RelationKind = world.RelationKind(raw.Relation)

	case world.ActionAcceptRel, world.ActionRejectRel:
		target, err := it.resolveTarget(ctx, raw.Target)
		if err != nil {
			return zero, err
		}
		action.TargetID = target.ID

	case world.ActionAttack:
		target, err := it.resolveTarget(ctx, raw.Target)
		if err != nil {
			return zero, err
		}
		action.TargetID = target.ID
		action.RelationKind = world.RelationConflict

	case world.ActionPolicyChange:
		action.Attribute = world.Attribute(strings.ToLower(raw.Attribute))
		action.Delta = raw.Delta

	case world.ActionNarrativeEvent:
		if raw.Summary != "" {
			action.Text = raw.Summary
		}
	}

	return action, nil
}

func (it *Interpreter) resolveTarget(ctx context.Context, name string) (*world.Country, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("no target country named: %w", world.ErrUnintelligibleOrder)
	}
	target, err := it.store.GetCountryByName(ctx, name)
	if errors.Is(err, world.ErrNotFound) {
		return nil, fmt.Errorf("no country called %q: %w", name, world.ErrForbiddenAction)
	}
	return target, err
}

// classifyKeywords is the degraded classifier used when generation is
// unavailable. It recognizes the common phrasings only; anything else
// is unintelligible.
func (it *Interpreter) classifyKeywords(ctx context.Context, country *world.Country, text string) (world.Action, error) {
	var zero world.Action
	lower := strings.ToLower(text)

	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("build", "construct", "erect", "dig"):
		kind := world.ProjectConstruction
		if has("research", "study", "scholar") {
			kind = world.ProjectResearch
		}
		return world.Action{
			Kind:        world.ActionBuildProject,
			CountryID:   country.ID,
			ProjectName: projectNameFrom(text),
			ProjectKind: kind,
			Cost:        it.cfg.DefaultProjectCost,
			Text:        text,
		}, nil

	case has("research", "study"):
		return world.Action{
			Kind:        world.ActionBuildProject,
			CountryID:   country.ID,
			ProjectName: projectNameFrom(text),
			ProjectKind: world.ProjectResearch,
			Cost:        it.cfg.DefaultProjectCost,
			Text:        text,
		}, nil

	case has("attack", "invade", "raid", "declare war", "march on"):
		target, err := it.findNamedCountry(ctx, country.ID, lower)
		if err != nil {
			return zero, err
		}
		return world.Action{
			Kind:         world.ActionAttack,
			CountryID:    country.ID,
			TargetID:     target.ID,
			RelationKind: world.RelationConflict,
			Text:         text,
		}, nil

	case has("accept"):
		target, err := it.findNamedCountry(ctx, country.ID, lower)
		if err != nil {
			return zero, err
		}
		return world.Action{
			Kind:      world.ActionAcceptRel,
			CountryID: country.ID,
			TargetID:  target.ID,
			Text:      text,
		}, nil

	case has("reject", "refuse", "decline"):
		target, err := it.findNamedCountry(ctx, country.ID, lower)
		if err != nil {
			return zero, err
		}
		return world.Action{
			Kind:      world.ActionRejectRel,
			CountryID: country.ID,
			TargetID:  target.ID,
			Text:      text,
		}, nil

	case has("alliance", "ally"):
		target, err := it.findNamedCountry(ctx, country.ID, lower)
		if err != nil {
			return zero, err
		}
		return world.Action{
			Kind:         world.ActionProposeRel,
			CountryID:    country.ID,
			TargetID:     target.ID,
			RelationKind: world.RelationAlliance,
			Text:         text,
		}, nil

	case has("trade", "caravan", "merchants"):
		target, err := it.findNamedCountry(ctx, country.ID, lower)
		if err != nil {
			return zero, err
		}
		return world.Action{
			Kind:         world.ActionProposeRel,
			CountryID:    country.ID,
			TargetID:     target.ID,
			RelationKind: world.RelationTrade,
			Text:         text,
		}, nil

	case has("recruit", "conscript", "levy"):
		return world.Action{
			Kind: world.ActionPolicyChange, CountryID: country.ID,
			Attribute: world.AttrMilitary, Delta: it.cfg.PolicyStep, Text: text,
		}, nil

	case has("raise tax", "collect tax", "tribute"):
		return world.Action{
			Kind: world.ActionPolicyChange, CountryID: country.ID,
			Attribute: world.AttrTreasury, Delta: it.cfg.PolicyStep, Text: text,
		}, nil

	case has("festival", "games", "appease", "calm"):
		return world.Action{
			Kind: world.ActionPolicyChange, CountryID: country.ID,
			Attribute: world.AttrStability, Delta: it.cfg.PolicyStep, Text: text,
		}, nil
	}

	return zero, world.ErrUnintelligibleOrder
}

// projectNameFrom keeps the order text as the project name, shortened.
func projectNameFrom(text string) string {
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// findNamedCountry scans the order for any known country name other
// than the actor's own.
func (it *Interpreter) findNamedCountry(ctx context.Context, selfID int64, lower string) (*world.Country, error) {
	countries, err := it.store.ListCountries(ctx)
	if err != nil {
		return nil, err
	}
	for i := range countries {
		c := &countries[i]
		if c.ID == selfID {
			continue
		}
		if strings.Contains(lower, strings.ToLower(c.Name)) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no known country named in order: %w", world.ErrUnintelligibleOrder)
}

// validate rejects actions the acting country has no standing or
// resources for. Validation failures are reported, never coerced.
func (it *Interpreter) validate(ctx context.Context, country *world.Country, action *world.Action) error {
	switch action.Kind {
	case world.ActionBuildProject:
		if country.Treasury < action.Cost {
			return fmt.Errorf("treasury %d cannot cover cost %d: %w",
				country.Treasury, action.Cost, world.ErrForbiddenAction)
		}

	case world.ActionProposeRel:
		if action.RelationKind != world.RelationAlliance && action.RelationKind != world.RelationTrade {
			return fmt.Errorf("cannot propose %q: %w", action.RelationKind, world.ErrForbiddenAction)
		}
		if err := it.checkTarget(country, action.TargetID); err != nil {
			return err
		}

	case world.ActionAcceptRel, world.ActionRejectRel:
		if err := it.checkTarget(country, action.TargetID); err != nil {
			return err
		}
		rel, err := it.store.GetRelation(ctx, action.TargetID, country.ID)
		if errors.Is(err, world.ErrNotFound) || (err == nil && rel.Status != world.RelationPending) {
			return fmt.Errorf("no pending proposal from country %d: %w",
				action.TargetID, world.ErrForbiddenAction)
		}
		if err != nil {
			return err
		}
		action.RelationKind = rel.Kind

	case world.ActionAttack:
		if err := it.checkTarget(country, action.TargetID); err != nil {
			return err
		}
		if country.Military <= 0 {
			return fmt.Errorf("no army to march: %w", world.ErrForbiddenAction)
		}

	case world.ActionPolicyChange:
		if !world.ValidAttribute(action.Attribute) {
			return fmt.Errorf("unknown attribute %q: %w", action.Attribute, world.ErrUnintelligibleOrder)
		}
		if action.Delta == 0 {
			return fmt.Errorf("policy change without effect: %w", world.ErrUnintelligibleOrder)
		}
		if action.Delta > it.cfg.MaxPolicyDelta || action.Delta < -it.cfg.MaxPolicyDelta {
			return fmt.Errorf("policy change %+d exceeds bound %d: %w",
				action.Delta, it.cfg.MaxPolicyDelta, world.ErrForbiddenAction)
		}

	case world.ActionNarrativeEvent:
		if strings.TrimSpace(action.Text) == "" {
			return world.ErrUnintelligibleOrder
		}
	}
	return nil
}

func (it *Interpreter) checkTarget(country *world.Country, targetID int64) error {
	if targetID == 0 {
		return fmt.Errorf("no target country: %w", world.ErrUnintelligibleOrder)
	}
	if targetID == country.ID {
		return fmt.Errorf("cannot target your own country: %w", world.ErrForbiddenAction)
	}
	return nil
}
