package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/api"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/cache"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/client"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/config"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/repo"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/scheduler"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:]); err != nil {
		slog.Error("quizbot failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	db, err := repo.OpenPostgres(ctx, cfg.Database.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	users := repo.NewPostgresUserRepo(db)

	if len(args) > 0 {
		return runCommand(ctx, users, args)
	}
	return serve(ctx, cfg, users)
}

type userBlacklister interface {
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	Create(ctx context.Context, phone string) (*model.User, error)
	Blacklist(ctx context.Context, id int64) error
}

func runCommand(ctx context.Context, users userBlacklister, args []string) error {
	switch args[0] {
	case "blacklist":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return errors.New("usage: quizbot blacklist <phone>")
		}
		return blacklist(ctx, users, strings.TrimSpace(args[1]))
	default:
		return fmt.Errorf("unknown command %q (usage: quizbot [blacklist <phone>])", args[0])
	}
}

// blacklist marks a phone number as ignored, creating the user first so a
// number can be blocked before it ever writes in.
func blacklist(ctx context.Context, users userBlacklister, phone string) error {
	u, err := users.GetByPhone(ctx, phone)
	if errors.Is(err, repo.ErrUserNotFound) {
		u, err = users.Create(ctx, phone)
	}
	if err != nil {
		return fmt.Errorf("lookup %s: %w", phone, err)
	}
	if err := users.Blacklist(ctx, u.ID); err != nil {
		return fmt.Errorf("blacklist %s: %w", phone, err)
	}
	slog.Info("user blacklisted", "phone", phone, "user_id", u.ID)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, users repo.UserRepository) error {
	states, closeStates, err := newConversationStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStates()

	bank, err := repo.LoadQuestions(cfg.Questions.Path)
	if err != nil {
		return err
	}
	questions := repo.NewMemoryQuestionStore(bank)
	slog.Info("question bank loaded", "path", cfg.Questions.Path, "questions", questions.Len())

	wa := client.NewWhatsAppClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Token)
	sender := service.NewSender(wa, cfg.WhatsApp.ContentMax).WithHooks(
		func(ctx context.Context, to string, d model.Directive, remoteMessageID string) {
			slog.Debug("message sent", "phone", to, "kind", d.Kind, "remote_id", remoteMessageID, "request_id", service.RequestID(ctx))
		},
		func(ctx context.Context, to string, d model.Directive, reason string) {
			slog.Warn("message send failed", "phone", to, "kind", d.Kind, "reason", reason, "request_id", service.RequestID(ctx))
		},
	)

	dispatcher := service.NewDispatcher(users, states, service.NewEngine(questions), sender, slog.Default())
	delivery := service.NewDelivery(dispatcher, cfg.Delivery.Location, cfg.Delivery.Concurrency)

	sched, err := scheduler.New("weekly-delivery", cfg.Delivery.Interval, func(ctx context.Context) {
		if _, _, err := delivery.SendDue(ctx, time.Now()); err != nil {
			slog.Error("weekly delivery failed", "err", err)
		}
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           loggingMiddleware(api.Router(api.NewHandler(cfg.WhatsApp.VerifyToken, dispatcher, sched))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("quizbot starting",
		"addr", cfg.Server.Address,
		"interval", cfg.Delivery.Interval,
		"timezone", cfg.Delivery.Location.String(),
		"redis", cfg.Redis.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		dispatcher.Wait()
		slog.Info("quizbot stopped")
		return err
	})
	sched.Start()

	return g.Wait()
}

func newConversationStore(ctx context.Context, cfg *config.Config) (cache.ConversationStore, func(), error) {
	if !cfg.Redis.Enabled {
		slog.Warn("REDIS_ADDR not set, conversation state is kept in memory")
		return cache.NewMemoryCache(cfg.State.TTL), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return cache.NewRedisCache(rdb, cfg.State.TTL), func() { _ = rdb.Close() }, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
