package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	applog "github.com/utkuozdemir/upd-migrate/internal/log"
)

type cliAppContextKey string

const (
	envPrefix = "UPD_MIGRATE_"

	CommandMigrate = "migrate"
	FlagLogLevel   = "log-level"
	FlagLogFormat  = "log-format"
	FlagLogFile    = "log-file"
	FlagConfig     = "config"

	loggerContextKey cliAppContextKey = "logger"
	configContextKey cliAppContextKey = "config"
	closerContextKey cliAppContextKey = "log-file"
)

func New(logger *log.Entry, version string, commit string) *cli.App {
	return &cli.App{
		Name: "upd-migrate",
		Usage: "A command-line utility to migrate User Profile Disk containers " +
			"to per-user profile containers",
		Version:  fmt.Sprintf("%s (commit: %s)", version, commit),
		Commands: []*cli.Command{buildMigrateCommand()},
		Flags: []cli.Flag{
			cli.HelpFlag,
			cli.VersionFlag,
			&cli.StringFlag{
				Name:    FlagLogLevel,
				Aliases: []string{"l"},
				Usage:   fmt.Sprintf("Log level. Must be one of: %s", strings.Join(applog.Levels, ", ")),
				Value:   applog.LevelInfo,
				EnvVars: envVars(FlagLogLevel),
			},
			&cli.StringFlag{
				Name:    FlagLogFormat,
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Log format. Must be one of: %s", strings.Join(applog.Formats, ", ")),
				Value:   applog.FormatFancy,
				EnvVars: envVars(FlagLogFormat),
			},
			&cli.StringFlag{
				Name:      FlagLogFile,
				Usage:     "Append a plain-text copy of the log and the completion banner to this file",
				EnvVars:   envVars(FlagLogFile),
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      FlagConfig,
				Usage:     "YAML file with default values for any flag",
				EnvVars:   envVars(FlagConfig),
				TakesFile: true,
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := LoadConfig(c.String(FlagConfig))
			if err != nil {
				return err
			}

			if err := cfg.Apply(c, FlagLogLevel, FlagLogFormat, FlagLogFile); err != nil {
				return err
			}

			if err := applog.Configure(logger, c.String(FlagLogLevel), c.String(FlagLogFormat)); err != nil {
				return err
			}

			var closer io.Closer = nopCloser{}

			if path := c.String(FlagLogFile); path != "" {
				closer, err = applog.AttachFile(logger, path)
				if err != nil {
					return err
				}
			}

			ctx := context.WithValue(c.Context, loggerContextKey, logger)
			ctx = context.WithValue(ctx, configContextKey, cfg)
			c.Context = context.WithValue(ctx, closerContextKey, closer)

			return nil
		},
		After: func(c *cli.Context) error {
			if closer, ok := c.Context.Value(closerContextKey).(io.Closer); ok {
				return closer.Close()
			}

			return nil
		},
		CommandNotFound: func(c *cli.Context, s string) {
			logger.Errorf(":cross_mark: Error: no help topic for '%s'", s)
		},
	}
}

func extractLogger(c context.Context) *log.Entry {
	return c.Value(loggerContextKey).(*log.Entry)
}

func extractConfig(c context.Context) *Config {
	cfg, ok := c.Value(configContextKey).(*Config)
	if !ok {
		return &Config{}
	}

	return cfg
}

// envVars returns the environment variable a flag is read from, UPD_MIGRATE_<FLAG_NAME>.
func envVars(flag string) []string {
	return []string{envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))}
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}
