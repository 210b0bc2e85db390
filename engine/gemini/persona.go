package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/logger"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

//go:embed prompts/persona.md
var personaPrompt string

//go:embed prompts/persona.schema.json
var personaSchemaSource string

var personaSchema = mustSchema(personaSchemaSource)

var now = time.Now

// PersonaGenerator writes a personality summary for a single profile.
type PersonaGenerator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewPersonaGenerator(generator contentGenerator, log *zap.Logger, maxLogLength int) *PersonaGenerator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PersonaGenerator{generator: generator, logger: log, maxLogLen: maxLogLength}
}

func (g *PersonaGenerator) GeneratePersona(ctx context.Context, profile *matching.Profile) (*matching.Persona, error) {
	if profile == nil {
		return nil, errors.New("profile is required")
	}

	pp := newPromptProfile(profile)
	// The persona is being replaced; don't feed the old one back.
	pp.Persona, pp.PositiveTraits, pp.NegativeTraits = "", nil, nil

	payload, err := json.MarshalIndent(pp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}
	prompt := strings.ReplaceAll(personaPrompt, "{{PROFILE_JSON}}", string(payload))

	g.logger.Debug("gemini persona request",
		zap.Int("user_id", profile.UserID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("gemini persona response",
		zap.Int("user_id", profile.UserID),
		zap.String("response_preview", logger.TruncateForLog(raw, g.maxLogLen)),
	)

	data, err := decodeResponse(raw, personaSchema)
	if err != nil {
		return nil, err
	}
	return &matching.Persona{
		Summary:        coerceString(data["summary"]),
		PositiveTraits: coerceStrings(data["positive_traits"]),
		NegativeTraits: coerceStrings(data["negative_traits"]),
		GeneratedAt:    now().UTC(),
	}, nil
}
