package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/config"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/engine"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/matching"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/secrets"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

const devJWTSecret = "dev_secret_change_me"

// app holds everything the HTTP handlers and CLI commands share.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db    *sql.DB
	redis *redis.Client

	users         userRepo
	profiles      profileRepo
	matches       matchService
	favorites     mutualChecker
	notifications notificationRepo
	chats         chatRepo
	persona       engine.PersonaGenerator

	hub      *Hub
	notifier *notifier
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := loadJWTSecret(cfg, logger); err != nil {
		return nil, err
	}
	tokenTTL = cfg.Auth.TokenTTL

	db, err := store.Open(ctx, cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db}

	if cfg.Database.Postgres.AutoMigrate {
		if err := store.Migrate(db, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	engines, err := engine.New(ctx, cfg.AI, logger.Named("engine"))
	if err != nil {
		a.Close()
		return nil, err
	}

	favorites := store.NewFavoriteStore(db)
	deps := matching.Deps{
		Profiles:      store.NewProfileLoader(store.NewProfileStore(db)),
		Favorites:     favorites,
		Compatibility: store.NewCompatibilityStore(db),
		Engine:        engines.Compatibility,
		Logger:        logger.Named("matching"),
	}
	if cfg.Matching.CacheTTL > 0 {
		a.redis, err = store.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Cache = store.NewCompatibilityCache(a.redis, cfg.Matching.CacheTTL)
		logger.Info("compatibility cache enabled", zap.Duration("ttl", cfg.Matching.CacheTTL))
	}

	a.users = store.NewUserStore(db)
	a.profiles = store.NewProfileStore(db)
	a.favorites = favorites
	a.notifications = store.NewNotificationStore(db)
	a.chats = store.NewChatStore(db)
	a.persona = engines.Persona
	a.matches = matching.NewService(deps, matching.Config{
		DefaultLimit:     cfg.Matching.DefaultLimit,
		Concurrency:      cfg.Matching.Concurrency,
		CandidateTimeout: cfg.Matching.CandidateTimeout,
	})
	a.wireRealtime()
	return a, nil
}

func (a *app) wireRealtime() {
	a.hub = newHub()
	a.notifier = &notifier{store: a.notifications, hub: a.hub, logger: a.logger.Named("notify")}
}

func loadJWTSecret(cfg *config.Config, logger *zap.Logger) error {
	secret, err := secrets.Load(secrets.Source{
		Name:  "jwt secret",
		Value: cfg.Auth.JWTSecret,
		File:  cfg.Auth.JWTSecretFile,
	})
	if err != nil {
		if cfg.Environment != "development" {
			return err
		}
		logger.Warn("jwt secret not configured, using development fallback")
		secret = devJWTSecret
	}
	jwtSecret = []byte(secret)
	return nil
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	log := a.logger.Named("http")

	// Auth
	mux.Handle("/register", registerHandler(a.users, log))
	mux.Handle("/login", loginHandler(a.users, log))

	// Own profile, persona and presence
	mux.Handle("/me/profile", meProfileHandler(a.profiles, log))
	mux.Handle("/me/persona", mePersonaHandler(a.profiles, a.persona, log))
	mux.Handle("/me/ping", mePingHandler(a.users, log))

	// Other users: /users/{id}/profile
	mux.Handle("/users/", usersDispatcher(a.profiles, a.users, a.hub, a.notifier, log))

	// Matching
	mux.Handle("/matches", matchesHandler(a.matches, a.cfg.Matching.DefaultLimit, log))
	mux.Handle("/matches/top", matchesHandler(a.matches, a.cfg.Matching.TopProfilesLimit, log))
	mux.Handle("/matches/current", currentMatchesHandler(a.matches))
	mux.Handle("/matches/", matchesActionsRouter(a.matches, log)) // POST /matches/{id}/refresh

	// Favorites
	mux.Handle("/favorites", favoritesHandler(a.matches, log))
	mux.Handle("/favorites/", favoritesActionsRouter(a.matches, a.favorites, a.notifier, log))

	// Notifications
	mux.Handle("/notifications", notificationsHandler(a.notifications, log))
	mux.Handle("/notifications/", notificationsActionsRouter(a.notifications, log))

	// Chat
	chat := &chatServer{hub: a.hub, chats: a.chats, users: a.users, notifier: a.notifier, logger: a.logger.Named("chat")}
	mux.Handle("/ws", chat.wsHandler())
	mux.Handle("/chats", chat.summaryHandler())
	mux.Handle("/chats/", chat.chatsActionsRouter()) // GET /chats/{id}/messages, POST /chats/{id}/read

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", a.healthHandler)

	return withCORS(a.cfg.Server.CORSOrigins)(mux)
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing database", zap.Error(err))
		}
	}
}
