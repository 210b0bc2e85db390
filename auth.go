package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

// UserIDKey is the key type for storing user ID in context
type UserIDKey string

const userIDKey UserIDKey = "userID"

// Set from configuration at startup.
var (
	jwtSecret []byte
	tokenTTL  = 24 * time.Hour
)

type userRepo interface {
	Create(ctx context.Context, email, passwordHash string) (int, error)
	Credentials(ctx context.Context, email string) (int, string, error)
	Touch(ctx context.Context, userID int) error
	IsOnline(ctx context.Context, userID int) (bool, error)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *credentialsRequest) normalize() bool {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Password = strings.TrimSpace(c.Password)
	return c.Email != "" && c.Password != ""
}

func registerHandler(users userRepo, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !req.normalize() {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("hashing password", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "hash_error")
			return
		}

		newID, err := users.Create(r.Context(), req.Email, string(hashedPassword))
		if errors.Is(err, store.ErrEmailExists) {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		if err != nil {
			logger.Error("saving user", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "register_error")
			return
		}

		tokenString, err := issueToken(newID)
		if err != nil {
			logger.Error("generating token", zap.Int("user_id", newID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{"token": tokenString, "id": newID})
	}
}

func loginHandler(users userRepo, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !req.normalize() {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		userID, passwordHash, err := users.Credentials(r.Context(), req.Email)
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		if err != nil {
			logger.Error("querying user", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		// Don't fail login over presence.
		if err := users.Touch(r.Context(), userID); err != nil {
			logger.Warn("updating last_online", zap.Int("user_id", userID), zap.Error(err))
		}

		tokenString, err := issueToken(userID)
		if err != nil {
			logger.Error("generating token", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"token": tokenString, "id": userID})
	}
}

func issueToken(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(jwtSecret)
}

func authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := getUserIDFromBearer(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

// requesterID is only valid behind authenticate.
func requesterID(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)
	return id
}

func getUserIDFromBearer(r *http.Request) (int, bool) {
	auth := r.Header.Get("Authorization")
	tokenStr, found := strings.CutPrefix(auth, "Bearer ")
	if !found || tokenStr == "" {
		return 0, false
	}
	return parseUserIDFromJWT(tokenStr)
}

// getUserIDFromRequest also accepts a token query parameter, since browsers
// can't set headers on websocket upgrades.
func getUserIDFromRequest(r *http.Request) (int, bool) {
	if id, ok := getUserIDFromBearer(r); ok {
		return id, true
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return parseUserIDFromJWT(q)
	}
	return 0, false
}

func parseUserIDFromJWT(tokenStr string) (int, bool) {
	claims := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	// jwt.MapClaims stores numbers as float64 by default
	fv, ok := claims["user_id"].(float64)
	if !ok || fv <= 0 {
		return 0, false
	}
	return int(fv), true
}
