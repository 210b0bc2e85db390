package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/logger"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompts/compatibility.md
var compatibilityPrompt string

//go:embed prompts/compatibility.schema.json
var compatibilitySchemaSource string

var compatibilitySchema = mustSchema(compatibilitySchemaSource)

const defaultMaxLogLength = 200

// promptProfile is what the model sees of a profile. Ids and visibility
// switches stay out of the prompt.
type promptProfile struct {
	Name             string   `json:"name,omitempty"`
	Age              int      `json:"age,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	Location         string   `json:"location,omitempty"`
	Occupation       string   `json:"occupation,omitempty"`
	Education        string   `json:"education,omitempty"`
	RelationshipType string   `json:"relationship_type,omitempty"`
	Lifestyle        string   `json:"lifestyle,omitempty"`
	Interests        []string `json:"interests,omitempty"`
	Dealbreakers     []string `json:"dealbreakers,omitempty"`
	Persona          string   `json:"persona,omitempty"`
	PositiveTraits   []string `json:"positive_traits,omitempty"`
	NegativeTraits   []string `json:"negative_traits,omitempty"`
}

func newPromptProfile(p *matching.Profile) promptProfile {
	pp := promptProfile{
		Name:             p.Name,
		Age:              p.Age,
		Gender:           p.Gender,
		Location:         p.Location,
		Occupation:       p.Occupation,
		Education:        p.Education,
		RelationshipType: p.RelationshipType,
		Lifestyle:        p.Lifestyle,
		Interests:        p.Interests,
		Dealbreakers:     p.Dealbreakers,
	}
	if p.Persona != nil {
		pp.Persona = p.Persona.Summary
		pp.PositiveTraits = p.Persona.PositiveTraits
		pp.NegativeTraits = p.Persona.NegativeTraits
	}
	return pp
}

// CompatibilityEngine scores a pair of profiles with a Gemini prompt.
type CompatibilityEngine struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewCompatibilityEngine(generator contentGenerator, log *zap.Logger, maxLogLength int) *CompatibilityEngine {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CompatibilityEngine{generator: generator, logger: log, maxLogLen: maxLogLength}
}

func (e *CompatibilityEngine) Analyze(ctx context.Context, requester, candidate *matching.Profile) (*matching.CompatibilityResult, error) {
	if requester == nil || candidate == nil {
		return nil, errors.New("both profiles are required")
	}

	requesterJSON, err := json.MarshalIndent(newPromptProfile(requester), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal requester payload: %w", err)
	}
	candidateJSON, err := json.MarshalIndent(newPromptProfile(candidate), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	prompt := strings.ReplaceAll(compatibilityPrompt, "{{REQUESTER_JSON}}", string(requesterJSON))
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATE_JSON}}", string(candidateJSON))

	e.logger.Debug("gemini compatibility request",
		zap.Int("requester_id", requester.UserID),
		zap.Int("candidate_id", candidate.UserID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini compatibility response",
		zap.Int("requester_id", requester.UserID),
		zap.Int("candidate_id", candidate.UserID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseCompatibility(raw)
}

func parseCompatibility(raw string) (*matching.CompatibilityResult, error) {
	data, err := decodeResponse(raw, compatibilitySchema)
	if err != nil {
		return nil, err
	}

	r := matching.CompatibilityResult{
		Overall:            coerceFloat(data["overall"]),
		Emotional:          coerceFloat(data["emotional"]),
		Intellectual:       coerceFloat(data["intellectual"]),
		Lifestyle:          coerceFloat(data["lifestyle"]),
		Summary:            coerceString(data["summary"]),
		Strengths:          coerceStrings(data["strengths"]),
		Challenges:         coerceStrings(data["challenges"]),
		Tips:               coerceStrings(data["tips"]),
		LongTermPrediction: coerceString(data["long_term_prediction"]),
	}
	if math.IsNaN(r.Overall) {
		return nil, fmt.Errorf("gemini response has no numeric overall score: %v", data["overall"])
	}

	r = r.Clamp()
	return &r, nil
}
