package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
)

const profileColumns = `user_id, cupid_id, name, age, gender, location, occupation, education,
	relationship_type, lifestyle, interests, dealbreakers, pref_min_age, pref_max_age,
	pref_education_level, pref_relationship_type, pref_deal_breakers, visibility, persona, updated_at`

// ProfileStore reads and writes the profiles table.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*matching.Profile, error) {
	var (
		p       matching.Profile
		minAge  sql.NullInt32
		maxAge  sql.NullInt32
		persona []byte
	)
	err := row.Scan(
		&p.UserID,
		&p.CupidID,
		&p.Name,
		&p.Age,
		&p.Gender,
		&p.Location,
		&p.Occupation,
		&p.Education,
		&p.RelationshipType,
		&p.Lifestyle,
		(*pq.StringArray)(&p.Interests),
		(*pq.StringArray)(&p.Dealbreakers),
		&minAge,
		&maxAge,
		&p.Preferences.EducationLevel,
		&p.Preferences.RelationshipType,
		(*pq.StringArray)(&p.Preferences.DealBreakers),
		&p.Visibility,
		&persona,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if minAge.Valid {
		v := int(minAge.Int32)
		p.Preferences.MinAge = &v
	}
	if maxAge.Valid {
		v := int(maxAge.Int32)
		p.Preferences.MaxAge = &v
	}
	if len(persona) > 0 {
		p.Persona = &matching.Persona{}
		if err := p.Persona.Scan(persona); err != nil {
			return nil, fmt.Errorf("decode persona: %w", err)
		}
	}
	return &p, nil
}

// GetProfile returns (nil, nil) when the user has no profile yet.
func (s *ProfileStore) GetProfile(ctx context.Context, userID int) (*matching.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %d: %w", userID, err)
	}
	return p, nil
}

// GetProfiles loads many profiles in one query. Missing users are absent from
// the map.
func (s *ProfileStore) GetProfiles(ctx context.Context, userIDs []int) (map[int]*matching.Profile, error) {
	out := make(map[int]*matching.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE user_id IN (%s)`, profileColumns, placeholders(1, len(userIDs)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

// ListProfiles returns every visible profile except the excluded user that
// passes the filter.
func (s *ProfileStore) ListProfiles(ctx context.Context, filter matching.Filter) ([]matching.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE user_id <> $1
		  AND NOT COALESCE((visibility->>'hidden')::boolean, FALSE)
		  AND ($2::int IS NULL OR age >= $2)
		  AND ($3::int IS NULL OR age <= $3)
		  AND ($4 = '' OR education = $4)
		  AND ($5 = '' OR relationship_type = $5)
		ORDER BY user_id`,
		filter.ExcludeUserID,
		nullInt(filter.MinAge),
		nullInt(filter.MaxAge),
		filter.EducationLevel,
		filter.RelationshipType,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []matching.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpsertProfile creates or replaces the owner-editable fields of a profile.
// The cupid id is assigned once on creation and never changes.
func (s *ProfileStore) UpsertProfile(ctx context.Context, userID int, p matching.Profile) (*matching.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, cupid_id, name, age, gender, location, occupation, education,
			relationship_type, lifestyle, interests, dealbreakers, pref_min_age, pref_max_age,
			pref_education_level, pref_relationship_type, pref_deal_breakers, visibility, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			location = EXCLUDED.location,
			occupation = EXCLUDED.occupation,
			education = EXCLUDED.education,
			relationship_type = EXCLUDED.relationship_type,
			lifestyle = EXCLUDED.lifestyle,
			interests = EXCLUDED.interests,
			dealbreakers = EXCLUDED.dealbreakers,
			pref_min_age = EXCLUDED.pref_min_age,
			pref_max_age = EXCLUDED.pref_max_age,
			pref_education_level = EXCLUDED.pref_education_level,
			pref_relationship_type = EXCLUDED.pref_relationship_type,
			pref_deal_breakers = EXCLUDED.pref_deal_breakers,
			visibility = EXCLUDED.visibility,
			updated_at = NOW()
		RETURNING `+profileColumns,
		userID,
		uuid.NewString(),
		p.Name,
		p.Age,
		p.Gender,
		p.Location,
		p.Occupation,
		p.Education,
		p.RelationshipType,
		p.Lifestyle,
		textArray(p.Interests),
		textArray(p.Dealbreakers),
		nullInt(p.Preferences.MinAge),
		nullInt(p.Preferences.MaxAge),
		p.Preferences.EducationLevel,
		p.Preferences.RelationshipType,
		textArray(p.Preferences.DealBreakers),
		p.Visibility,
	)
	saved, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %d: %w", userID, err)
	}
	return saved, nil
}

// SavePersona attaches a generated persona to an existing profile.
func (s *ProfileStore) SavePersona(ctx context.Context, userID int, persona matching.Persona) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET persona = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, persona,
	)
	if err != nil {
		return fmt.Errorf("save persona %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save persona %d: %w", userID, err)
	}
	if n == 0 {
		return fmt.Errorf("save persona %d: %w", userID, matching.ErrProfileNotFound)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// textArray keeps NOT NULL text[] columns from receiving NULL.
func textArray(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}
