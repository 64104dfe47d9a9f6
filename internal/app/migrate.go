package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/juju/clock"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"k8s.io/utils/exec"

	"github.com/utkuozdemir/upd-migrate/internal/descriptor"
	"github.com/utkuozdemir/upd-migrate/internal/disk"
	"github.com/utkuozdemir/upd-migrate/internal/identity"
	applog "github.com/utkuozdemir/upd-migrate/internal/log"
	"github.com/utkuozdemir/upd-migrate/internal/migration"
	"github.com/utkuozdemir/upd-migrate/internal/migrator"
	"github.com/utkuozdemir/upd-migrate/internal/permission"
	"github.com/utkuozdemir/upd-migrate/internal/replicate"
	"github.com/utkuozdemir/upd-migrate/internal/report"
	"github.com/utkuozdemir/upd-migrate/internal/shell"
	"github.com/utkuozdemir/upd-migrate/internal/source"
	"github.com/utkuozdemir/upd-migrate/internal/util"
)

const (
	FlagSourceDir     = "source-dir"
	FlagSourcePath    = "source-path"
	FlagSourceList    = "source-list"
	FlagDestRoot      = "dest-root"
	FlagMaxSizeGB     = "max-size-gb"
	FlagSectorSize    = "sector-size"
	FlagFormat        = "format"
	FlagFlipFlop      = "flip-flop"
	FlagVerboseCopy   = "verbose-copy"
	FlagNoProgressBar = "no-progress-bar"
	FlagShowDetails   = "show-details"
)

var (
	migrateFlagNames = []string{
		FlagSourceDir, FlagSourcePath, FlagSourceList, FlagDestRoot, FlagMaxSizeGB, FlagSectorSize,
		FlagFormat, FlagFlipFlop, FlagVerboseCopy, FlagNoProgressBar, FlagShowDetails,
	}

	ErrSourceSelection = errors.New("exactly one of --source-dir, --source-path or --source-list is required")
)

func buildMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:    CommandMigrate,
		Usage:   "Migrate user profile disks to profile containers",
		Aliases: []string{"m"},
		Before: func(c *cli.Context) error {
			return extractConfig(c.Context).Apply(c, migrateFlagNames...)
		},
		Action: runMigration,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      FlagSourceDir,
				Aliases:   []string{"s"},
				Usage:     "Directory holding the UVHD-<SID> containers to migrate",
				EnvVars:   envVars(FlagSourceDir),
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      FlagSourcePath,
				Aliases:   []string{"p"},
				Usage:     "Single container to migrate",
				EnvVars:   envVars(FlagSourcePath),
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      FlagSourceList,
				Usage:     "CSV file listing the containers to migrate in a Path column",
				EnvVars:   envVars(FlagSourceList),
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      FlagDestRoot,
				Aliases:   []string{"d"},
				Usage:     "Root directory of the profile containers to create",
				EnvVars:   envVars(FlagDestRoot),
				TakesFile: true,
			},
			&cli.IntFlag{
				Name:    FlagMaxSizeGB,
				Usage:   "Maximum size of the created containers in gigabytes",
				EnvVars: envVars(FlagMaxSizeGB),
			},
			&cli.IntFlag{
				Name:    FlagSectorSize,
				Usage:   "Logical sector size of the created containers, 4096 or 512",
				EnvVars: envVars(FlagSectorSize),
			},
			&cli.StringFlag{
				Name: FlagFormat,
				Usage: fmt.Sprintf("Format of the created containers. Must be one of: %s",
					strings.Join(util.ConvertStrings[string](migration.Formats), ", ")),
				Value:   string(migration.DefaultFormat),
				EnvVars: envVars(FlagFormat),
			},
			&cli.BoolFlag{
				Name:    FlagFlipFlop,
				Usage:   "Name profile directories <user>_<SID> instead of <SID>_<user>",
				EnvVars: envVars(FlagFlipFlop),
			},
			&cli.BoolFlag{
				Name:    FlagVerboseCopy,
				Aliases: []string{"v"},
				Usage:   "Log every copied file instead of the aggregate progress",
				EnvVars: envVars(FlagVerboseCopy),
			},
			&cli.BoolFlag{
				Name:    FlagNoProgressBar,
				Aliases: []string{"b"},
				Usage:   "Do not display a progress bar",
				EnvVars: envVars(FlagNoProgressBar),
			},
			&cli.BoolFlag{
				Name:    FlagShowDetails,
				Usage:   "Print a per-profile table after the summary",
				EnvVars: envVars(FlagShowDetails),
			},
		},
	}
}

func runMigration(c *cli.Context) error {
	logger := extractLogger(c.Context)

	req, err := buildRequest(c, logger)
	if err != nil {
		return err
	}

	enumerator, err := buildEnumerator(c)
	if err != nil {
		return err
	}

	paths, err := enumerator.Enumerate()
	if err != nil {
		return err
	}

	builder := descriptor.Builder{
		DestRoot: req.DestRoot,
		Format:   req.Format,
		FlipFlop: req.FlipFlop,
		Resolver: identity.NewSystem(),
		Logger:   logger,
	}

	descriptors, err := builder.BuildAll(paths)
	if err != nil {
		return err
	}

	runner := shell.New(exec.New(), logger)
	m := migrator.New(
		disk.NewPowerShell(runner, logger),
		replicate.NewRobocopy(runner, replicate.Options{ShowProgressBar: req.ShowProgressBar, Logger: logger}),
		permission.NewIcacls(runner, logger),
		clock.WallClock,
	)

	outcome, err := m.Run(c.Context, descriptors, req)
	if err != nil {
		return err
	}

	s := report.Summarize(outcome)
	logger.WithFields(log.Fields{
		"batch":      s.BatchID,
		"total":      s.Total,
		"eligible":   s.Eligible,
		"successful": s.Successful,
		"skipped":    s.Skipped,
		"failed":     s.Failed,
	}).Infof(":bar_chart: Batch completed in %s", util.FormatElapsed(s.Elapsed))

	if err := report.Write(c.App.Writer, outcome, c.Bool(FlagShowDetails)); err != nil {
		logger.WithError(err).Warn(":large_orange_diamond: Failed to print the report")
	}

	if req.LogFile != "" {
		if err := report.AppendBanner(req.LogFile, outcome.BatchID, clock.WallClock.Now()); err != nil {
			logger.WithError(err).Warn(":large_orange_diamond: Failed to write the completion banner")
		}
	}

	return nil
}

func buildRequest(c *cli.Context, logger *log.Entry) (*migration.Request, error) {
	format, err := migration.ParseFormat(c.String(FlagFormat))
	if err != nil {
		return nil, err
	}

	verbose := c.Bool(FlagVerboseCopy)
	showProgressBar := !verbose && !c.Bool(FlagNoProgressBar) &&
		isTerminal(os.Stderr) && c.String(FlagLogFormat) == applog.FormatFancy

	req := migration.Request{
		DestRoot:        c.String(FlagDestRoot),
		MaxSizeGB:       c.Int(FlagMaxSizeGB),
		SectorSize:      c.Int(FlagSectorSize),
		Format:          format,
		FlipFlop:        c.Bool(FlagFlipFlop),
		VerboseCopy:     verbose,
		ShowProgressBar: showProgressBar,
		LogFile:         c.String(FlagLogFile),
		Logger:          logger,
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

func buildEnumerator(c *cli.Context) (source.Enumerator, error) {
	var selected []source.Enumerator

	if p := strings.TrimSpace(c.String(FlagSourceDir)); p != "" {
		selected = append(selected, &source.Dir{Path: p})
	}

	if p := strings.TrimSpace(c.String(FlagSourcePath)); p != "" {
		selected = append(selected, &source.Single{Path: p})
	}

	if p := strings.TrimSpace(c.String(FlagSourceList)); p != "" {
		selected = append(selected, &source.List{Path: p})
	}

	if len(selected) != 1 {
		return nil, fmt.Errorf("%w, got %d", ErrSourceSelection, len(selected))
	}

	return selected[0], nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
