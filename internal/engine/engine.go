// Package engine resolves player actions against the world and drives
// the yearly tick. Resolves run concurrently under per-country
// optimistic revisions; the tick takes the write side of the phase
// barrier and runs alone.
package engine

import (
	"context"
	"fmt"
	"sync"

	"ancientworld/internal/config"
	"ancientworld/internal/entropy"
	"ancientworld/internal/knowledge"
	"ancientworld/internal/llm"
	"ancientworld/internal/store"
	"ancientworld/internal/world"
)

// Engine is the resolution and tick core.
type Engine struct {
	store   *store.Store
	idx     *knowledge.Index
	gen     llm.Generator
	cfg     config.Game
	fortune *entropy.Fortune
	events  []RandomEvent

	// barrier separates the resolve phase from the tick phase. Resolves
	// hold the read side; a tick takes the write side and therefore
	// observes no in-flight resolves.
	barrier sync.RWMutex

	// testHookBeforeApply, when set, runs between the state read and the
	// guarded write of each resolve attempt.
	testHookBeforeApply func()
}

// New creates an engine. gen may be nil; narration then falls back to
// templated text.
func New(st *store.Store, idx *knowledge.Index, gen llm.Generator, cfg config.Game) *Engine {
	return &Engine{
		store:   st,
		idx:     idx,
		gen:     gen,
		cfg:     cfg,
		fortune: entropy.NewFortune(cfg.WorldSeed),
		events:  DefaultEvents(cfg),
	}
}

// Summary reports the outcome of one resolved action back to the player.
type Summary struct {
	Action    world.Action   `json:"action"`
	Year      int64          `json:"year"`
	Narration string         `json:"narration"`
	Country   *world.Country `json:"country"`
}

// TickSummary reports one committed world tick.
type TickSummary struct {
	Year      int64    `json:"year"`      // the year that just ended
	NextYear  int64    `json:"next_year"` // the year the world advanced to
	Events    []string `json:"events"`
	Chronicle string   `json:"chronicle"`

	// Replayed is set when the tick found the clock already advanced and
	// wrote nothing.
	Replayed bool `json:"replayed,omitempty"`
}

// NewCountry registers a country for an owner with the configured
// starting attributes. Fails with world.ErrDuplicateOwner when the owner
// already rules one.
func (e *Engine) NewCountry(ctx context.Context, ownerID int64, ownerName, name, description string) (*world.Country, error) {
	year, err := e.store.CurrentYear(ctx)
	if err != nil {
		return nil, err
	}
	c := &world.Country{
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		Name:        name,
		Population:  e.cfg.StartingPopulation,
		Treasury:    e.cfg.StartingTreasury,
		Stability:   e.cfg.StartingStability,
		Military:    e.cfg.StartingMilitary,
		Territory:   e.cfg.StartingTerritory,
		Description: description,
		UpdatedYear: year,
	}
	if err := e.store.CreateCountry(ctx, c); err != nil {
		return nil, err
	}

	e.idx.AddBestEffort(ctx, knowledge.Event{
		ID:        foundingEventID(c.ID),
		CountryID: c.ID,
		Year:      year,
		Kind:      "founding",
		Text:      c.Name + " is founded: " + description,
	})
	return c, nil
}

func foundingEventID(countryID int64) string {
	return fmt.Sprintf("founding-%d", countryID)
}
