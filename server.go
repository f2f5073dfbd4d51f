package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/directory"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	if config.SkipMigrations() {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	} else {
		models.MigrateTable()
	}

	directoryService := directory.NewService(directory.NewHTTPFetcher(), logger)
	go directoryService.Run(sigCtx)

	logger.Info("collaboration core ready")
	<-sigCtx.Done()
	logger.Info("shutting down")
}
