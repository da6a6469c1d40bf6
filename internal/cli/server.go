package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"friedrich-quiz-service/internal/config"
	"friedrich-quiz-service/internal/game"
	pgloader "friedrich-quiz-service/internal/infra/postgres"
	"friedrich-quiz-service/internal/quiz"
	"friedrich-quiz-service/internal/store"
	memorystore "friedrich-quiz-service/internal/store/memory"
	redisstore "friedrich-quiz-service/internal/store/redis"
	transport "friedrich-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	defaultSet := quiz.DefaultSet()
	var loader quiz.Loader = quiz.NewStaticLoader(map[string]quiz.Set{defaultSet.ID: defaultSet})
	if pool != nil {
		loader = pgloader.NewQuestionSetLoader(pool)
	}
	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	sets := quiz.NewRepository(loader, quizTTL)

	setID := cfg.Quiz.SetID
	if setID == "" {
		setID = defaultSet.ID
	}

	var docs store.Store
	if redisClient != nil {
		docs = redisstore.NewStore(redisClient)
	} else {
		docs = memorystore.NewStore()
	}

	gameCfg := game.Config{
		PollInterval:  config.Duration(cfg.Game.PollInterval, 800*time.Millisecond),
		AnswerTimeout: config.Duration(cfg.Game.AnswerTimeout, 0),
	}
	wsHandler := transport.NewWSHandler(docs, sets, setID, gameCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia room service on :%s (set %s)", finalPort, setID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
