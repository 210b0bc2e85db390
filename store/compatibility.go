package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

type CompatibilityStore struct {
	db *sql.DB
}

func NewCompatibilityStore(db *sql.DB) *CompatibilityStore {
	return &CompatibilityStore{db: db}
}

// SaveCompatibility upserts the tuple for the directional pair. Concurrent
// writers race and the last one wins.
func (s *CompatibilityStore) SaveCompatibility(ctx context.Context, requesterID, candidateID int, r matching.CompatibilityResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compatibility_scores (user_id, candidate_id, overall, emotional, intellectual, lifestyle,
			summary, strengths, challenges, tips, long_term_prediction, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (user_id, candidate_id) DO UPDATE SET
			overall = EXCLUDED.overall,
			emotional = EXCLUDED.emotional,
			intellectual = EXCLUDED.intellectual,
			lifestyle = EXCLUDED.lifestyle,
			summary = EXCLUDED.summary,
			strengths = EXCLUDED.strengths,
			challenges = EXCLUDED.challenges,
			tips = EXCLUDED.tips,
			long_term_prediction = EXCLUDED.long_term_prediction,
			updated_at = NOW()`,
		requesterID, candidateID,
		r.Overall, r.Emotional, r.Intellectual, r.Lifestyle,
		r.Summary,
		textArray(r.Strengths), textArray(r.Challenges), textArray(r.Tips),
		r.LongTermPrediction,
	)
	if err != nil {
		return fmt.Errorf("save compatibility %d -> %d: %w", requesterID, candidateID, err)
	}
	return nil
}

// GetCompatibility returns (nil, nil) when no tuple is stored for the pair.
func (s *CompatibilityStore) GetCompatibility(ctx context.Context, requesterID, candidateID int) (*matching.CompatibilityRecord, error) {
	rec := matching.CompatibilityRecord{RequesterID: requesterID, CandidateID: candidateID}
	r := &rec.Result
	err := s.db.QueryRowContext(ctx, `
		SELECT overall, emotional, intellectual, lifestyle, summary, strengths, challenges, tips,
			long_term_prediction, updated_at
		FROM compatibility_scores
		WHERE user_id = $1 AND candidate_id = $2`,
		requesterID, candidateID,
	).Scan(
		&r.Overall, &r.Emotional, &r.Intellectual, &r.Lifestyle,
		&r.Summary,
		(*pq.StringArray)(&r.Strengths),
		(*pq.StringArray)(&r.Challenges),
		(*pq.StringArray)(&r.Tips),
		&r.LongTermPrediction,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get compatibility %d -> %d: %w", requesterID, candidateID, err)
	}
	return &rec, nil
}
