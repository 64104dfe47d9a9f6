package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/utkuozdemir/upd-migrate/internal/app"
	applog "github.com/utkuozdemir/upd-migrate/internal/log"
)

const dotEnvFile = ".env"

var (
	// will be overridden by goreleaser: https://goreleaser.com/environment/#using-the-mainversion
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := applog.New(ctx)
	if err != nil {
		log.Fatalf(":cross_mark: Error: %s", err.Error())
	}

	if err := app.LoadDotEnv(dotEnvFile); err != nil {
		logger.Fatalf(":cross_mark: Error: %s", err.Error())
	}

	cliApp := app.New(logger, version, commit)
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		cancel()
		logger.Fatalf(":cross_mark: Error: %s", err.Error())
	}
}
