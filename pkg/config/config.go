package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	parseOnce   sync.Once
	exportOnce  sync.Once
	exportErr   error
)

// MustNew is New that panics on error. Use it only during process start.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New populates T from the environment under prefix. The env file given by
// -env (or ./.env when present) is exported once per process before the
// first lookup, so later calls only read the environment.
func New[T any](prefix string) (*T, error) {
	exportOnce.Do(func() {
		exportErr = exportConfiguredFile()
	})
	if exportErr != nil {
		return nil, exportErr
	}
	return Process[T](prefix)
}

// Process reads T from the current environment without touching env files.
func Process[T any](prefix string) (*T, error) {
	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("config %q: %w", prefix, err)
	}
	return &conf, nil
}

// LoadFile exports every key of the given file (.env, yaml, json, toml) to
// the process environment. Existing variables are overwritten.
func LoadFile(filepath string) error {
	return exportEnvironment(filepath)
}

func exportConfiguredFile() error {
	filepath := resolveEnvPath()
	if filepath != "" {
		if err := exportEnvironment(filepath); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}
	if err := exportEnvironmentIfExists(".env"); err != nil {
		return fmt.Errorf("failed to load default env file: %w", err)
	}
	return nil
}

func resolveEnvPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func exportEnvironmentIfExists(filepath string) error {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(filepath)
}

func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	if strings.HasSuffix(filepath, ".env") {
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
