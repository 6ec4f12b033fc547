package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/example/listenbot/internal/bot"
	"github.com/example/listenbot/internal/config"
	"github.com/example/listenbot/internal/database"
	"github.com/example/listenbot/internal/importer"
	"github.com/example/listenbot/internal/scheduler"
	"github.com/example/listenbot/internal/session"
	"github.com/example/listenbot/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to load time zone %s: %v", cfg.TZ, err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	users := database.NewUserRepository(db)
	decks := database.NewDeckRepository(db)
	cards := database.NewCardRepository(db)
	enrollments := database.NewEnrollmentRepository(db)
	reviews := database.NewReviewRepository(db)
	sessions := database.NewSessionRepository(db)
	flags := database.NewFlagRepository(db)
	translationCache := database.NewTranslationRepository(db)

	var translator translate.Translator
	if cfg.TranslateEnabled {
		translator = translate.NewGoogleFreeTranslator(cfg.TranslateMaxRetries, cfg.TranslateBaseDelay, cfg.TranslateMaxDelay)
	}
	translations := translate.NewService(translator, translationCache,
		cfg.TranslateEnabled, cfg.TranslateSourceLang, cfg.TranslateTargetLang)

	locks := session.NewLockRegistry()
	engine := session.NewEngine(sessions, reviews, cards, decks, enrollments)
	imp := importer.New(cards, translations)

	b, err := bot.New(cfg, loc, engine, locks,
		users, decks, cards, enrollments, reviews, sessions, flags, translations, imp)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	sched := scheduler.New(engine, sessions, reviews, cards, users, enrollments, b, locks,
		loc, cfg.DailyPushHour, cfg.LearningPollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Start(gctx) })
	g.Go(func() error { return sched.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Shutdown with error: %v", err)
	}
	log.Println("Bot stopped successfully")
}
