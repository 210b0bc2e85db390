// Package engine selects the configured compatibility and persona backends.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/config"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/engine/gemini"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/secrets"
)

var ErrUnavailable = errors.New("ai engine is not configured")

type PersonaGenerator interface {
	GeneratePersona(ctx context.Context, profile *matching.Profile) (*matching.Persona, error)
}

type Engines struct {
	Compatibility matching.CompatibilityEngine
	Persona       PersonaGenerator
}

// Unavailable answers every call with ErrUnavailable, so compatibility
// degrades to the zero result for every candidate.
type Unavailable struct{}

func (Unavailable) Analyze(context.Context, *matching.Profile, *matching.Profile) (*matching.CompatibilityResult, error) {
	return nil, ErrUnavailable
}

func (Unavailable) GeneratePersona(context.Context, *matching.Profile) (*matching.Persona, error) {
	return nil, ErrUnavailable
}

func New(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (Engines, error) {
	switch cfg.Provider {
	case "none":
		logger.Warn("ai provider disabled, compatibility scores will be zero")
		return Engines{Compatibility: Unavailable{}, Persona: Unavailable{}}, nil
	case "gemini", "":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return Engines{}, err
		}
		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, logger.Named("gemini"))
		if err != nil {
			return Engines{}, err
		}
		logger.Info("ai provider ready", zap.String("provider", "gemini"), zap.String("model", generator.Model()))
		return Engines{
			Compatibility: gemini.NewCompatibilityEngine(generator, logger.Named("compatibility"), cfg.Gemini.MaxLogLength),
			Persona:       gemini.NewPersonaGenerator(generator, logger.Named("persona"), cfg.Gemini.MaxLogLength),
		}, nil
	default:
		return Engines{}, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
