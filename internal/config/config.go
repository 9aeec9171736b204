// Package config loads the process-level configuration surface (spec
// §6.4) once at startup via spf13/viper, the way the rest of the example
// pack's game-server repos source their runtime settings.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ironclad-rts/core/internal/match"
)

// Config is the full process-level configuration surface: the
// SessionManager cap plus the default GameConfig every new session is
// initialized with.
type Config struct {
	MaxConcurrentGames int
	AllowedOrigins     []string
	Game               match.GameConfig
}

// Load reads MAX_CONCURRENT_GAMES, TICK_RATE, DEPLOYMENT_DURATION,
// INCOME_PER_TICK, TICK_DURATION, VICTORY_THRESHOLD, STARTING_CREDITS, and
// ALLOWED_ORIGINS from the environment, falling back to spec-documented
// defaults. Read once at startup; there is no live-reload.
func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := match.DefaultGameConfig()
	v.SetDefault("max_concurrent_games", 20)
	v.SetDefault("tick_rate", def.TickRate)
	v.SetDefault("deployment_duration", def.DeploymentDuration)
	v.SetDefault("income_per_tick", def.IncomePerTick)
	v.SetDefault("tick_duration", def.TickDuration)
	v.SetDefault("victory_threshold", def.VictoryThreshold)
	v.SetDefault("starting_credits", def.StartingCredits)
	v.SetDefault("allowed_origins", []string{})

	return Config{
		MaxConcurrentGames: v.GetInt("max_concurrent_games"),
		AllowedOrigins:     v.GetStringSlice("allowed_origins"),
		Game: match.GameConfig{
			TickRate:           v.GetFloat64("tick_rate"),
			DeploymentDuration: v.GetFloat64("deployment_duration"),
			IncomePerTick:      v.GetInt("income_per_tick"),
			TickDuration:       v.GetFloat64("tick_duration"),
			VictoryThreshold:   v.GetInt("victory_threshold"),
			StartingCredits:    v.GetInt("starting_credits"),
		},
	}
}

// WithOverrides returns a copy of c with any non-zero override fields
// applied, used by the CLI layer to let the --max-games/--tick-rate flags
// win over environment-sourced values.
func (c Config) WithOverrides(maxGames int, tickRate float64) Config {
	out := c
	if maxGames > 0 {
		out.MaxConcurrentGames = maxGames
	}
	if tickRate > 0 {
		out.Game.TickRate = tickRate
	}
	return out
}
