package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ancientworld/internal/knowledge"
	"ancientworld/internal/llm"
	"ancientworld/internal/store"
	"ancientworld/internal/world"
)

// Tick advances the world clock by one year. It runs in two phases:
// every delta is computed against an in-memory snapshot first, then
// committed in a single transaction guarded by the stored year. A
// replayed tick (crash between commit and acknowledgment, or a
// double-fire) detects the advanced clock and returns a no-op summary.
func (e *Engine) Tick(ctx context.Context) (*TickSummary, error) {
	e.barrier.Lock()
	defer e.barrier.Unlock()

	year, err := e.store.CurrentYear(ctx)
	if err != nil {
		return nil, err
	}

	countries, err := e.store.ListCountries(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := e.store.ListActiveProjects(ctx)
	if err != nil {
		return nil, err
	}
	expiring, err := e.store.ExpiredProposals(ctx, year)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*world.Country, len(countries))
	for i := range countries {
		byID[countries[i].ID] = &countries[i]
	}

	var lines []string
	var indexed []knowledge.Event

	// Phase 1: advance projects, queue completion effects.
	for i := range projects {
		p := &projects[i]
		p.Progress += p.Increment
		if p.Progress >= p.Threshold {
			p.Progress = p.Threshold
			p.Status = world.ProjectCompleted
			p.CompletedYear = year + 1

			owner := byID[p.CountryID]
			if owner != nil {
				p.Effect.ApplyTo(owner)
				line := fmt.Sprintf("%s completes %s %q.", owner.Name, p.Kind, p.Name)
				lines = append(lines, line)
				indexed = append(indexed, knowledge.Event{
					ID:        "project-done-" + p.ID,
					CountryID: owner.ID,
					Year:      year,
					Kind:      "project-completed",
					Text:      line,
				})
			}
		}
	}

	// Phase 2: one random event per country, drawn from the fortune
	// field so reruns of the same year draw the same events.
	for i := range countries {
		c := &countries[i]
		ev := pickEvent(e.events, e.fortune.Luck(year, c.ID), e.fortune.Roll(year, c.ID))
		if ev == nil {
			continue
		}
		ev.Effect.ApplyTo(c)
		line := fmt.Sprintf("In %s, %s.", c.Name, ev.Text)
		lines = append(lines, line)
		indexed = append(indexed, knowledge.Event{
			ID:        fmt.Sprintf("event-%d-y%d", c.ID, year),
			CountryID: c.ID,
			Year:      year,
			Kind:      ev.Name,
			Text:      line,
		})

		c.Problems = countryProblems(c)
	}

	// Phase 3: note proposals the commit will expire.
	var history []world.RelationEvent
	for _, rel := range expiring {
		history = append(history, world.RelationEvent{
			FromID: rel.FromID, ToID: rel.ToID, Kind: rel.Kind,
			Status: world.RelationExpired, Year: year + 1,
		})
		from, to := byID[rel.FromID], byID[rel.ToID]
		if from != nil && to != nil {
			lines = append(lines, fmt.Sprintf(
				"The %s proposed by %s to %s lapses unanswered.",
				rel.Kind, from.Name, to.Name))
		}
	}

	err = e.store.CommitTick(ctx, store.TickCommit{
		Year:      year,
		Countries: countries,
		Projects:  projects,
		History:   history,
		FiredAt:   time.Now().UTC(),
	})
	if errors.Is(err, world.ErrStaleRevision) {
		slog.Info("tick already committed", "year", year)
		return &TickSummary{Year: year, NextYear: year + 1, Replayed: true}, nil
	}
	if err != nil {
		return nil, err
	}

	// Indexing is idempotent per event id, so a crash after commit and
	// before this point costs nothing on replay.
	for _, ev := range indexed {
		e.idx.AddBestEffort(ctx, ev)
	}

	chronicle := llm.Chronicle(ctx, e.gen, world.FormatYear(year), lines)
	e.idx.AddBestEffort(ctx, knowledge.Event{
		ID:   fmt.Sprintf("chronicle-y%d", year),
		Year: year,
		Kind: "chronicle",
		Text: chronicle,
	})

	slog.Info("tick committed",
		"year", world.FormatYear(year),
		"countries", len(countries),
		"events", len(lines),
	)

	return &TickSummary{
		Year:      year,
		NextYear:  year + 1,
		Events:    lines,
		Chronicle: chronicle,
	}, nil
}

// countryProblems derives the advisory problem list players see.
func countryProblems(c *world.Country) []string {
	var out []string
	if c.Stability < 25 {
		out = append(out, "the people are restless")
	}
	if c.Treasury < 20 {
		out = append(out, "the treasury runs dry")
	}
	if c.Military < 30 {
		out = append(out, "the army is depleted")
	}
	if c.Population < 1000 {
		out = append(out, "the population dwindles")
	}
	return out
}
