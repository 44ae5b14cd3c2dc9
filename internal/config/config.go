package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

const envPrefix = "FLASHCARDS_"

type Config struct {
	TelegramToken string   `koanf:"telegram_token" validate:"required"`
	Postgres      Postgres `koanf:"postgres"`
	Ingestion     Ingest   `koanf:"ingestion"`
	MigrationsDir string   `koanf:"migrations_dir" validate:"required"`
}

type Postgres struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	Database string `koanf:"database" validate:"required"`
	SSLMode  string `koanf:"ssl_mode" validate:"oneof=disable require verify-full"`
	MaxIdle  int    `koanf:"max_idle" validate:"min=1"`
	MaxOpen  int    `koanf:"max_open" validate:"min=1"`
}

type Ingest struct {
	BaseURL      string `koanf:"base_url" validate:"required,url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	TokenURL     string `koanf:"token_url"`
}

func defaults() Config {
	return Config{
		Postgres: Postgres{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "flashcards",
			SSLMode:  "disable",
			MaxIdle:  10,
			MaxOpen:  20,
		},
		Ingestion: Ingest{
			BaseURL: "http://localhost:8090",
		},
		MigrationsDir: "migrations",
	}
}

// Load builds the config from defaults, an optional YAML file, environment
// variables prefixed with FLASHCARDS_, and command line flags, later sources
// overriding earlier ones.
func Load(args []string) (Config, error) {
	flags := flag.NewFlagSet("flashcards", flag.ContinueOnError)
	flags.String("config", "", "path to config file")
	flags.String("migrations-dir", "", "path to goose migrations")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file (path: %s): %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}
	if dir := k.String("migrations-dir"); dir != "" {
		_ = k.Set("migrations_dir", dir)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DSN renders the Postgres connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
