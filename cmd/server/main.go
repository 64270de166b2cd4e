package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bookstore/internal/config"
	"bookstore/internal/domain"
	apphttp "bookstore/internal/http"
	"bookstore/internal/integrations/telegram"
	"bookstore/internal/integrations/webhook"
	"bookstore/internal/metrics"
	"bookstore/internal/service/cart"
	storepkg "bookstore/internal/store"
	"bookstore/internal/store/memory"
	"bookstore/internal/store/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := config.LoadDotEnv(".env"); err != nil {
		log.WithError(err).Warn("failed to load .env")
	}
	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	alerts := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)

	var st storepkg.Store
	if cfg.StoreMode == "postgres" && cfg.DatabaseURL != "" {
		pgStore, err := newPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Error("postgres store unavailable, falling back to memory store")
			_ = alerts.Alert(context.Background(), "bookstore: postgres unavailable at boot, running on memory store: %v", err)
			st = newMemoryStore(log)
		} else {
			st = pgStore
		}
	} else {
		st = newMemoryStore(log)
	}

	carts := cart.NewManager(st, log)
	events := webhook.NewClient(
		cfg.CartWebhookURL,
		cfg.CartWebhookTimeout,
		cfg.CartWebhookRetries,
		cfg.CartWebhookBackoff,
		cfg.CartWebhookMaxWait,
	)
	m := metrics.New()

	srv := apphttp.NewServer(cfg, st, carts, events, alerts, m, log)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("bookstore API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func newPostgresStore(databaseURL string) (*postgres.Store, error) {
	if err := postgres.Migrate(databaseURL); err != nil {
		return nil, err
	}
	return postgres.NewStore(databaseURL)
}

// newMemoryStore backs local development: no database required, with a
// small demo catalog so the storefront is browsable out of the box.
func newMemoryStore(log logrus.FieldLogger) *memory.Store {
	st := memory.NewStore()
	demo := []domain.Book{
		{Title: "ภาษาไทยสำหรับผู้เริ่มต้น", TitleEN: "Thai for Beginners", Price: 45000, Currency: "THB", Language: "thai", DifficultyLevel: "beginner", StockQuantity: 12, IsBestseller: true},
		{Title: "ไวยากรณ์ญี่ปุ่นระดับกลาง", TitleEN: "Intermediate Japanese Grammar", Price: 52000, Currency: "THB", Language: "japanese", DifficultyLevel: "intermediate", StockQuantity: 7, IsNew: true},
		{Title: "อ่านเกาหลีเบื้องต้น", TitleEN: "Korean Reading Primer", Price: 39000, Currency: "THB", Language: "korean", DifficultyLevel: "beginner", StockQuantity: 0},
	}
	for _, b := range demo {
		if _, err := st.CreateBook(context.Background(), b); err != nil {
			log.WithError(err).WithField("title", b.TitleEN).Warn("seed demo book")
		}
	}
	return st
}
