package engine

import (
	"ancientworld/internal/config"
	"ancientworld/internal/world"
)

// RandomEvent is one entry in the yearly event table. Weight sets how
// likely the event is relative to the rest of the table; Good events are
// favored when a country's fortune runs high, bad ones when it runs low.
type RandomEvent struct {
	Name   string
	Text   string
	Weight float64
	Good   bool
	Effect world.AttributeDelta
}

// DefaultEvents builds the yearly event table. Magnitudes scale off the
// configured starting attributes so tuning the start tunes the swings.
func DefaultEvents(cfg config.Game) []RandomEvent {
	pop := cfg.StartingPopulation
	gold := cfg.StartingTreasury

	return []RandomEvent{
		{
			Name: "bountiful-harvest", Good: true, Weight: 3,
			Text: "the harvest overflows the granaries",
			Effect: world.AttributeDelta{
				world.AttrPopulation: pop / 20,
				world.AttrTreasury:   gold / 10,
				world.AttrStability:  3,
			},
		},
		{
			Name: "trade-windfall", Good: true, Weight: 2,
			Text: "foreign caravans bring unexpected wealth",
			Effect: world.AttributeDelta{
				world.AttrTreasury: gold / 5,
			},
		},
		{
			Name: "veteran-levies", Good: true, Weight: 1,
			Text: "seasoned veterans train the levies",
			Effect: world.AttributeDelta{
				world.AttrMilitary: 10,
			},
		},
		{
			Name: "quiet-year", Good: true, Weight: 4,
			Text: "the year passes without incident",
			Effect: world.AttributeDelta{
				world.AttrPopulation: pop / 100,
			},
		},
		{
			Name: "drought", Good: false, Weight: 3,
			Text: "drought withers the fields",
			Effect: world.AttributeDelta{
				world.AttrPopulation: -pop / 25,
				world.AttrStability:  -5,
			},
		},
		{
			Name: "plague", Good: false, Weight: 1,
			Text: "a plague sweeps through the towns",
			Effect: world.AttributeDelta{
				world.AttrPopulation: -pop / 10,
				world.AttrMilitary:   -8,
				world.AttrStability:  -8,
			},
		},
		{
			Name: "unrest", Good: false, Weight: 2,
			Text: "unrest stirs in the streets",
			Effect: world.AttributeDelta{
				world.AttrStability: -7,
				world.AttrTreasury:  -gold / 20,
			},
		},
		{
			Name: "raiders", Good: false, Weight: 2,
			Text: "raiders harry the borderlands",
			Effect: world.AttributeDelta{
				world.AttrTreasury:  -gold / 10,
				world.AttrTerritory: -2,
			},
		},
	}
}

// pickEvent draws one event for a country. luck in [0,1] tilts the draw:
// high luck suppresses bad events, low luck suppresses good ones. roll
// in [0,1) selects within the tilted table.
func pickEvent(table []RandomEvent, luck, roll float64) *RandomEvent {
	if len(table) == 0 {
		return nil
	}

	weights := make([]float64, len(table))
	var total float64
	for i, ev := range table {
		w := ev.Weight
		if ev.Good {
			w *= 0.5 + luck
		} else {
			w *= 1.5 - luck
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return nil
	}

	target := roll * total
	for i := range table {
		target -= weights[i]
		if target < 0 {
			return &table[i]
		}
	}
	return &table[len(table)-1]
}
