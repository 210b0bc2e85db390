package matching

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

const (
	// DefaultLimit is the size of the full matching page.
	DefaultLimit = 20
	// TopProfilesLimit is the size of the lightweight top profiles card.
	TopProfilesLimit = 10
)

// MatchingPreferences are the requester's hard filters. Nil or empty fields
// mean "no filter".
type MatchingPreferences struct {
	MinAge           *int     `json:"min_age,omitempty"`
	MaxAge           *int     `json:"max_age,omitempty"`
	EducationLevel   string   `json:"education_level,omitempty"`
	RelationshipType string   `json:"relationship_type,omitempty"`
	DealBreakers     []string `json:"deal_breakers,omitempty"`
}

// VisibilitySettings control what other users can see. Hidden is the master
// switch and removes the profile from everyone else's candidate pool.
type VisibilitySettings struct {
	Hidden         bool `json:"hidden"`
	HideAge        bool `json:"hide_age"`
	HideLocation   bool `json:"hide_location"`
	HideOccupation bool `json:"hide_occupation"`
	HideEducation  bool `json:"hide_education"`
	HideInterests  bool `json:"hide_interests"`
	HideLifestyle  bool `json:"hide_lifestyle"`
}

// Value implements the driver.Valuer interface for VisibilitySettings
func (v VisibilitySettings) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface for VisibilitySettings
func (v *VisibilitySettings) Scan(value interface{}) error {
	if value == nil {
		*v = VisibilitySettings{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, v)
}

// Persona is the generated summary of a user's traits.
type Persona struct {
	Summary        string    `json:"summary"`
	PositiveTraits []string  `json:"positive_traits"`
	NegativeTraits []string  `json:"negative_traits"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Value implements the driver.Valuer interface for Persona
func (p Persona) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for Persona
func (p *Persona) Scan(value interface{}) error {
	if value == nil {
		*p = Persona{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, p)
}

type Profile struct {
	UserID           int                 `json:"user_id"`
	CupidID          string              `json:"cupid_id"`
	Name             string              `json:"name"`
	Age              int                 `json:"age"`
	Gender           string              `json:"gender"`
	Location         string              `json:"location"`
	Occupation       string              `json:"occupation"`
	Education        string              `json:"education"`
	RelationshipType string              `json:"relationship_type"`
	Lifestyle        string              `json:"lifestyle"`
	Interests        []string            `json:"interests"`
	Dealbreakers     []string            `json:"dealbreakers"`
	Preferences      MatchingPreferences `json:"matching_preferences"`
	Visibility       VisibilitySettings  `json:"visibility_settings"`
	Persona          *Persona            `json:"persona,omitempty"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Public returns the view of the profile another user is allowed to see.
// Private matching data (preferences, dealbreakers) never leaves the owner.
func (p Profile) Public() Profile {
	out := Profile{
		UserID:           p.UserID,
		CupidID:          p.CupidID,
		Name:             p.Name,
		Age:              p.Age,
		Gender:           p.Gender,
		Location:         p.Location,
		Occupation:       p.Occupation,
		Education:        p.Education,
		RelationshipType: p.RelationshipType,
		Lifestyle:        p.Lifestyle,
		Interests:        p.Interests,
		Persona:          p.Persona,
		UpdatedAt:        p.UpdatedAt,
	}
	v := p.Visibility
	if v.HideAge {
		out.Age = 0
	}
	if v.HideLocation {
		out.Location = ""
	}
	if v.HideOccupation {
		out.Occupation = ""
	}
	if v.HideEducation {
		out.Education = ""
	}
	if v.HideInterests {
		out.Interests = nil
	}
	if v.HideLifestyle {
		out.Lifestyle = ""
	}
	return out
}

// CompatibilityResult is the engine's verdict for a (requester, candidate)
// pair. Scores are percentages in [0,100] and are never recomputed here.
type CompatibilityResult struct {
	Overall            float64  `json:"overall"`
	Emotional          float64  `json:"emotional"`
	Intellectual       float64  `json:"intellectual"`
	Lifestyle          float64  `json:"lifestyle"`
	Summary            string   `json:"summary"`
	Strengths          []string `json:"strengths"`
	Challenges         []string `json:"challenges"`
	Tips               []string `json:"tips"`
	LongTermPrediction string   `json:"long_term_prediction"`
}

// ZeroResult is what a candidate degrades to when its compatibility cannot be
// resolved.
func ZeroResult() CompatibilityResult {
	return CompatibilityResult{
		Strengths:  []string{},
		Challenges: []string{},
		Tips:       []string{},
	}
}

// Clamp bounds every score into [0,100] and replaces nil lists with empty ones.
func (r CompatibilityResult) Clamp() CompatibilityResult {
	r.Overall = clampScore(r.Overall)
	r.Emotional = clampScore(r.Emotional)
	r.Intellectual = clampScore(r.Intellectual)
	r.Lifestyle = clampScore(r.Lifestyle)
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.Challenges == nil {
		r.Challenges = []string{}
	}
	if r.Tips == nil {
		r.Tips = []string{}
	}
	return r
}

func clampScore(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// CompatibilityRecord is a persisted compatibility tuple.
type CompatibilityRecord struct {
	RequesterID int
	CandidateID int
	Result      CompatibilityResult
	UpdatedAt   time.Time
}

// Match is a transient view model, rebuilt on every pipeline run.
type Match struct {
	Profile       Profile             `json:"profile"`
	Compatibility CompatibilityResult `json:"compatibility"`
	IsFavorite    bool                `json:"is_favorite"`
	LastUpdated   time.Time           `json:"last_updated"`
}

type FavoriteRelation struct {
	UserID         int       `json:"user_id"`
	FavoriteUserID int       `json:"favorite_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}
