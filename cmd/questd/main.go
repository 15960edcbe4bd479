package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/questd/internal/config"
	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/db"
	"github.com/udisondev/questd/internal/game/quest"
	"github.com/udisondev/questd/internal/logging"
	"github.com/udisondev/questd/internal/mail"
	"github.com/udisondev/questd/internal/world"
)

const DefaultConfigPath = "config/questd.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := flag.String("config", DefaultConfigPath, "path to questd.yaml")
	flag.Parse()

	if err := run(ctx, config.ResolvePath(*configPath)); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.LoadQuestServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()
	slog.SetDefault(logger)

	slog.Info("questd starting", "config", cfgPath, "log_level", cfg.LogLevel)

	loc, err := cfg.Reset.Location()
	if err != nil {
		return err
	}
	weekday, err := cfg.Reset.Weekday()
	if err != nil {
		return err
	}

	store, err := data.LoadQuestTemplates(cfg.Quest.TemplatesPath)
	if err != nil {
		return fmt.Errorf("loading quest templates: %w", err)
	}
	slog.Info("quest templates loaded", "path", cfg.Quest.TemplatesPath, "quests", store.QuestCount())

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	questRepo := db.NewQuestRepository(database.Pool())
	outbox := mail.NewOutbox(db.NewMailRepository(database.Pool()), cfg.Mail.QueueSize)

	manager := quest.NewManager(quest.ManagerConfig{
		Templates:  store,
		Conditions: store.Conditions(),
		Mailer:     outbox,
		Repo:       questRepo,
		Options: quest.Options{
			Strict:            cfg.Quest.StrictInvariants,
			MoneyMaxLevelRate: cfg.Quest.MoneyMaxLevelRate,
		},
	})

	loop := world.New(world.Config{
		Manager:      manager,
		Catalog:      store,
		Offline:      questRepo,
		TickInterval: cfg.Quest.TickInterval,
		SaveInterval: cfg.Quest.SaveInterval,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loop.Run(gctx); err != nil {
			return fmt.Errorf("world loop: %w", err)
		}
		return nil
	})

	scheduler := quest.NewResetScheduler(quest.ResetClock{
		Location:   loc,
		DailyHour:  cfg.Reset.DailyHour,
		WeeklyDay:  weekday,
		MonthlyDay: cfg.Reset.MonthlyDay,
	}, loop.ResetFunc(gctx))
	g.Go(func() error {
		slog.Info("starting quest reset scheduler",
			"timezone", loc,
			"dailyHour", cfg.Reset.DailyHour,
			"weeklyDay", weekday,
			"monthlyDay", cfg.Reset.MonthlyDay)
		if err := scheduler.Run(gctx); err != nil {
			return fmt.Errorf("reset scheduler: %w", err)
		}
		return nil
	})

	for _, ev := range cfg.Events {
		g.Go(func() error {
			// Прошедшее начало срабатывает сразу, сброс идемпотентен.
			timer := time.NewTimer(time.Until(ev.Start))
			defer timer.Stop()
			select {
			case <-gctx.Done():
				return nil
			case <-timer.C:
			}
			loop.SeasonalReset(gctx, ev.ID, ev.Start)
			return nil
		})
	}

	g.Go(func() error {
		if err := outbox.Run(gctx); err != nil {
			return fmt.Errorf("mail outbox: %w", err)
		}
		return nil
	})

	slog.Info("questd ready")
	if err := g.Wait(); err != nil {
		return err
	}
	// Почта, отправленная при финальной обработке задач цикла
	if err := outbox.Flush(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	slog.Info("questd stopped")
	return nil
}
