// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full worldbot configuration.
type Config struct {
	DBPath   string `env:"WORLDBOT_DB" envDefault:"data/ancientworld.db"`
	HTTPPort int    `env:"WORLDBOT_PORT" envDefault:"8080"`

	// AdminKey gates force-tick and inspection endpoints. Empty disables
	// them. AdminIDs additionally allowlists chat user ids.
	AdminKey string  `env:"WORLDBOT_ADMIN_KEY"`
	AdminIDs []int64 `env:"WORLDBOT_ADMIN_IDS" envSeparator:","`

	// Text-generation collaborator.
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	LLMModel     string `env:"WORLDBOT_LLM_MODEL" envDefault:"claude-haiku-4-5-20251001"`

	// Embedding collaborator for the knowledge index. Empty endpoint
	// selects the deterministic local embedder.
	EmbedEndpoint string `env:"WORLDBOT_EMBED_ENDPOINT"`
	EmbedModel    string `env:"WORLDBOT_EMBED_MODEL" envDefault:"embeddinggemma"`

	// TickInterval is the wall-clock period between world-advancement
	// ticks. One tick advances the world clock by one year.
	TickInterval time.Duration `env:"WORLDBOT_TICK_INTERVAL" envDefault:"24h"`

	// CORSOrigins lists browser origins allowed to call the API beyond
	// the localhost dev servers.
	CORSOrigins []string `env:"WORLDBOT_CORS_ORIGINS" envSeparator:","`

	Game Game `envPrefix:"WORLDBOT_GAME_"`
}

// Game holds the gameplay tuning values. Combat weights and the random
// event table are design content, so everything here is a knob rather
// than a constant.
type Game struct {
	StartYear int64 `env:"START_YEAR" envDefault:"-3000"`

	StartingPopulation int64 `env:"STARTING_POPULATION" envDefault:"10000"`
	StartingTreasury   int64 `env:"STARTING_TREASURY" envDefault:"100"`
	StartingStability  int64 `env:"STARTING_STABILITY" envDefault:"50"`
	StartingMilitary   int64 `env:"STARTING_MILITARY" envDefault:"100"`
	StartingTerritory  int64 `env:"STARTING_TERRITORY" envDefault:"100"`

	// ProjectThreshold and ProjectIncrement control how many ticks a
	// default project takes (threshold/increment). DefaultProjectCost is
	// charged when an order names no price.
	ProjectThreshold   int64 `env:"PROJECT_THRESHOLD" envDefault:"100"`
	ProjectIncrement   int64 `env:"PROJECT_INCREMENT" envDefault:"25"`
	DefaultProjectCost int64 `env:"DEFAULT_PROJECT_COST" envDefault:"80"`

	// PolicyStep is the attribute delta the keyword classifier assigns to
	// policy orders; MaxPolicyDelta bounds what any single policy order
	// may move an attribute by.
	PolicyStep     int64 `env:"POLICY_STEP" envDefault:"5"`
	MaxPolicyDelta int64 `env:"MAX_POLICY_DELTA" envDefault:"10"`

	// ProposalExpiryTicks is how many ticks a pending relation proposal
	// survives before expiring.
	ProposalExpiryTicks int64 `env:"PROPOSAL_EXPIRY_TICKS" envDefault:"3"`

	// ResolveRetries bounds optimistic-concurrency retries before a
	// conflict is surfaced to the player.
	ResolveRetries int `env:"RESOLVE_RETRIES" envDefault:"3"`

	// ContextEvents is the top-k knowledge events retrieved to ground
	// order interpretation and narration.
	ContextEvents int `env:"CONTEXT_EVENTS" envDefault:"5"`

	// Combat formula weights (illustrative placeholders, see DESIGN.md).
	CombatAttackWeight  float64 `env:"COMBAT_ATTACK_WEIGHT" envDefault:"1.0"`
	CombatDefenseWeight float64 `env:"COMBAT_DEFENSE_WEIGHT" envDefault:"1.1"`

	// WorldSeed keys the deterministic fortune field used by random
	// event rolls.
	WorldSeed int64 `env:"WORLD_SEED" envDefault:"42"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
