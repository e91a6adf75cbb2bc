package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/finance-engine/api"
	"github.com/warp/finance-engine/ledger"
	"github.com/warp/finance-engine/store/sqlite"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if env("LOG_LEVEL", "info") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}

	addr := ":" + env("PORT", "8080")
	dbPath := env("DB_PATH", "finance.db")

	store, err := sqlite.New(dbPath)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer store.Close()

	engine := ledger.NewEngine(store, ledger.SystemClock{})
	engine.Log = log

	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(engine, store, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "db": dbPath}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
