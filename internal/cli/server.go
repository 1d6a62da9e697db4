package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"escape-room-service/internal/app"
	"escape-room-service/internal/auth"
	"escape-room-service/internal/config"
	"escape-room-service/internal/domain"
	"escape-room-service/internal/infra/firebase"
	"escape-room-service/internal/infra/memory"
	inframongo "escape-room-service/internal/infra/mongo"
	pgloader "escape-room-service/internal/infra/postgres"
	infraredis "escape-room-service/internal/infra/redis"
	"escape-room-service/internal/infra/sqlite"
	transport "escape-room-service/internal/transport/http"
	fb "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the escape room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// closers collects cleanup funcs of opened backends, run in reverse order.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var cleanup closers
	defer cleanup.run()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanup.add(func() { _ = redisClient.Close() })
	}

	// The Firebase app is shared by the Firestore store and the Firebase verifier.
	var fbApp *fb.App
	if cfg.Store.Driver == config.DriverFirestore || cfg.Auth.Provider == config.ProviderFirebase {
		fbApp, err = firebase.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
	}

	store, err := newDocumentStore(ctx, cfg, redisClient, fbApp, &cleanup)
	if err != nil {
		return err
	}
	verifier, err := newVerifier(ctx, cfg, fbApp)
	if err != nil {
		return err
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(questionSets(cfg))
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		cleanup.add(pool.Close)
		loader = pgloader.NewQuestionLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Game.CacheTTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = infraredis.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, cacheTTL)
	}

	storeTimeout := config.TTLDuration(cfg.Store.Timeout, 10*time.Second)
	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute), storeTimeout)
	} else {
		sessions = memory.NewSessionStore()
	}

	service := app.NewGameService(store, questions, sessions, app.Options{
		QuestionSet: cfg.Game.QuestionSet,
		Positions:   cfg.Game.Positions,
		Timeout:     storeTimeout,
	})
	checkQuestionSet(ctx, questions, cfg.Game.QuestionSet, service.PositionCount())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, verifier),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", finalPort).
			Str("store", cfg.Store.Driver).
			Str("auth", cfg.Auth.Provider).
			Msg("starting escape room service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newDocumentStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, fbApp *fb.App, cleanup *closers) (app.DocumentStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewDocumentStore(), nil
	case config.DriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("store driver %q needs redis.addr", cfg.Store.Driver)
		}
		return infraredis.NewDocumentStore(redisClient), nil
	case config.DriverMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("store driver %q needs mongo.uri", cfg.Store.Driver)
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		cleanup.add(func() { _ = client.Disconnect(context.Background()) })
		return inframongo.NewDocumentStore(client, cfg.Mongo.Database), nil
	case config.DriverFirestore:
		store, err := firebase.NewDocumentStore(ctx, fbApp)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = store.Close() })
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.NewDocumentStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newVerifier(ctx context.Context, cfg config.Config, fbApp *fb.App) (auth.Verifier, error) {
	switch cfg.Auth.Provider {
	case config.ProviderJWT:
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("auth provider %q needs auth.jwtSecret", cfg.Auth.Provider)
		}
		return auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)), nil
	case config.ProviderFirebase:
		return firebase.NewVerifier(ctx, fbApp)
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}

// checkQuestionSet warns when the configured set cannot be loaded or outgrows the marker table.
func checkQuestionSet(ctx context.Context, questions app.QuestionRepository, setID string, positions int) {
	set, err := questions.GetQuestionSet(ctx, setID)
	if err != nil {
		log.Warn().Err(err).Str("set", setID).Msg("question set not available yet")
		return
	}
	if len(set.Questions) > positions {
		log.Warn().
			Str("set", setID).
			Int("questions", len(set.Questions)).
			Int("positions", positions).
			Msg("more questions than marker positions, marker hides on the extra ones")
	}
}

// questionSets merges the sets declared in config over the built-in sample.
func questionSets(cfg config.Config) map[string]domain.QuestionSet {
	sets := map[string]domain.QuestionSet{
		"default": {
			ID: "default",
			Questions: []domain.Question{
				{Prompt: "What has keys but can't open locks?", Options: []string{"piano", "map"}, Solution: "piano"},
				{Prompt: "What gets wetter the more it dries?", Options: []string{"towel", "sponge"}, Solution: "towel"},
				{Prompt: "What has hands but can't clap?", Options: []string{"clock", "statue"}, Solution: "clock"},
			},
		},
	}
	for id, set := range cfg.QuestionSets() {
		sets[id] = set
	}
	return sets
}
