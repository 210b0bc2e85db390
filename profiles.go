package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/engine"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

type profileRepo interface {
	GetProfile(ctx context.Context, userID int) (*matching.Profile, error)
	UpsertProfile(ctx context.Context, userID int, p matching.Profile) (*matching.Profile, error)
	SavePersona(ctx context.Context, userID int, persona matching.Persona) error
}

// profileInput holds the fields a user may edit on their own profile.
type profileInput struct {
	Name             string                       `json:"name"`
	Age              int                          `json:"age"`
	Gender           string                       `json:"gender"`
	Location         string                       `json:"location"`
	Occupation       string                       `json:"occupation"`
	Education        string                       `json:"education"`
	RelationshipType string                       `json:"relationship_type"`
	Lifestyle        string                       `json:"lifestyle"`
	Interests        []string                     `json:"interests"`
	Dealbreakers     []string                     `json:"dealbreakers"`
	Preferences      matching.MatchingPreferences `json:"matching_preferences"`
	Visibility       matching.VisibilitySettings  `json:"visibility_settings"`
}

// validate normalizes the input and returns an error code, or "" if valid.
func (in *profileInput) validate() string {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "missing_name"
	}
	if in.Age < 18 || in.Age > 120 {
		return "invalid_age"
	}
	p := in.Preferences
	if (p.MinAge != nil && *p.MinAge < 18) || (p.MaxAge != nil && *p.MaxAge > 120) {
		return "invalid_preferences"
	}
	if p.MinAge != nil && p.MaxAge != nil && *p.MinAge > *p.MaxAge {
		return "invalid_preferences"
	}
	in.Interests = cleanList(in.Interests)
	in.Dealbreakers = cleanList(in.Dealbreakers)
	in.Preferences.DealBreakers = cleanList(in.Preferences.DealBreakers)
	return ""
}

func (in profileInput) profile() matching.Profile {
	return matching.Profile{
		Name:             in.Name,
		Age:              in.Age,
		Gender:           strings.TrimSpace(in.Gender),
		Location:         strings.TrimSpace(in.Location),
		Occupation:       strings.TrimSpace(in.Occupation),
		Education:        strings.TrimSpace(in.Education),
		RelationshipType: strings.TrimSpace(in.RelationshipType),
		Lifestyle:        strings.TrimSpace(in.Lifestyle),
		Interests:        in.Interests,
		Dealbreakers:     in.Dealbreakers,
		Preferences:      in.Preferences,
		Visibility:       in.Visibility,
	}
}

// cleanList trims items and drops empty ones and duplicates.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// GET /me/profile and PUT /me/profile
func meProfileHandler(profiles profileRepo, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := requesterID(r)

		switch r.Method {
		case http.MethodGet:
			p, err := profiles.GetProfile(r.Context(), userID)
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			if p == nil {
				writeError(w, http.StatusNotFound, "profile_not_found")
				return
			}
			writeJSON(w, http.StatusOK, p)

		case http.MethodPut:
			var in profileInput
			if err := decodeJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_json")
				return
			}
			if code := in.validate(); code != "" {
				writeError(w, http.StatusBadRequest, code)
				return
			}
			saved, err := profiles.UpsertProfile(r.Context(), userID, in.profile())
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			writeJSON(w, http.StatusOK, saved)

		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}

// POST /me/persona regenerates the caller's persona.
func mePersonaHandler(profiles profileRepo, personas engine.PersonaGenerator, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := requesterID(r)

		p, err := profiles.GetProfile(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}

		persona, err := personas.GeneratePersona(r.Context(), p)
		if errors.Is(err, engine.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "ai_unavailable")
			return
		}
		if err != nil {
			logger.Warn("generating persona", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "persona_failed")
			return
		}

		if err := profiles.SavePersona(r.Context(), userID, *persona); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, persona)
	})
}

type publicProfile struct {
	matching.Profile
	Online bool `json:"online"`
}

// GET /users/{id}/profile returns the visibility-filtered view of another
// user's profile and tells its owner they were viewed.
func usersDispatcher(profiles profileRepo, users userRepo, hub *Hub, notify *notifier, logger *zap.Logger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := pathParts(r)
		if len(parts) != 3 || parts[0] != "users" || parts[2] != "profile" {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		targetID, ok := positiveID(parts[1])
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_user_id")
			return
		}
		viewerID := requesterID(r)

		p, err := profiles.GetProfile(r.Context(), targetID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		if p == nil || (p.Visibility.Hidden && targetID != viewerID) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}

		online := hub.connected(targetID)
		if !online {
			online, err = users.IsOnline(r.Context(), targetID)
			if err != nil {
				logger.Warn("checking presence", zap.Int("user_id", targetID), zap.Error(err))
			}
		}

		if targetID != viewerID {
			notify.Notify(r.Context(), targetID, store.NotificationProfileView, store.NotificationContent{
				Title:    "Profile view",
				Message:  "Someone viewed your profile",
				TargetID: &viewerID,
			})
		}

		writeJSON(w, http.StatusOK, publicProfile{Profile: p.Public(), Online: online})
	})
}
