package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Config holds flag defaults read from a YAML file. Keys are the flag names.
// Values apply only to flags given neither on the command line nor in the environment.
type Config struct {
	LogLevel      string `yaml:"log-level"`
	LogFormat     string `yaml:"log-format"`
	LogFile       string `yaml:"log-file"`
	SourceDir     string `yaml:"source-dir"`
	SourcePath    string `yaml:"source-path"`
	SourceList    string `yaml:"source-list"`
	DestRoot      string `yaml:"dest-root"`
	MaxSizeGB     int    `yaml:"max-size-gb"`
	SectorSize    int    `yaml:"sector-size"`
	Format        string `yaml:"format"`
	FlipFlop      *bool  `yaml:"flip-flop"`
	VerboseCopy   *bool  `yaml:"verbose-copy"`
	NoProgressBar *bool  `yaml:"no-progress-bar"`
	ShowDetails   *bool  `yaml:"show-details"`
}

// LoadConfig reads the config file at path. An empty path yields an empty config.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg Config

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Apply sets the given flags to their configured values unless they are already set.
func (c *Config) Apply(ctx *cli.Context, flags ...string) error {
	values := c.values()

	for _, name := range flags {
		v, ok := values[name]
		if !ok || ctx.IsSet(name) {
			continue
		}

		if err := ctx.Set(name, v); err != nil {
			return fmt.Errorf("invalid config value %q for %s: %w", v, name, err)
		}
	}

	return nil
}

func (c *Config) values() map[string]string {
	values := map[string]string{}

	setString := func(name, v string) {
		if v != "" {
			values[name] = v
		}
	}

	setInt := func(name string, v int) {
		if v != 0 {
			values[name] = strconv.Itoa(v)
		}
	}

	setBool := func(name string, v *bool) {
		if v != nil {
			values[name] = strconv.FormatBool(*v)
		}
	}

	setString(FlagLogLevel, c.LogLevel)
	setString(FlagLogFormat, c.LogFormat)
	setString(FlagLogFile, c.LogFile)
	setString(FlagSourceDir, c.SourceDir)
	setString(FlagSourcePath, c.SourcePath)
	setString(FlagSourceList, c.SourceList)
	setString(FlagDestRoot, c.DestRoot)
	setInt(FlagMaxSizeGB, c.MaxSizeGB)
	setInt(FlagSectorSize, c.SectorSize)
	setString(FlagFormat, c.Format)
	setBool(FlagFlipFlop, c.FlipFlop)
	setBool(FlagVerboseCopy, c.VerboseCopy)
	setBool(FlagNoProgressBar, c.NoProgressBar)
	setBool(FlagShowDetails, c.ShowDetails)

	return values
}

// LoadDotEnv exports the variables of the .env file at path that are not set yet.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}
