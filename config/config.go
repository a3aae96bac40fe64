package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"examsim-server/exam"
	"examsim-server/models"
)

// Config holds all application configuration
type Config struct {
	ServerPort     string           `mapstructure:"SERVER_PORT"`
	GinMode        string           `mapstructure:"GIN_MODE"`
	Store          StoreConfig      `mapstructure:"STORE"`
	Auth           AuthConfig       `mapstructure:"AUTH"`
	Bank           BankConfig       `mapstructure:"BANK"`
	Sections       []SectionConfig  `mapstructure:"SECTIONS"`
	Grouping       exam.GroupPolicy `mapstructure:"GROUPING"`
	ReloadInterval time.Duration    `mapstructure:"RELOAD_INTERVAL"`
	ExamFile       string           `mapstructure:"EXAM_FILE"`
}

// StoreConfig selects where assembled exam sets are kept
type StoreConfig struct {
	Driver      string        `mapstructure:"DRIVER"` // sqlite|postgres|redis
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	RedisAddr   string        `mapstructure:"REDIS_ADDR"`
	RedisTTL    time.Duration `mapstructure:"REDIS_TTL"`
}

// AuthConfig holds JWT-related configuration
type AuthConfig struct {
	Enabled       bool   `mapstructure:"ENABLED"`
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	Issuer        string `mapstructure:"ISSUER"`
}

// BankConfig holds question bank configuration
type BankConfig struct {
	Path       string `mapstructure:"PATH"`
	SeedSample bool   `mapstructure:"SEED_SAMPLE"` // Write the sample bank when Path is missing
}

// SectionConfig is one entry of the ordered SECTIONS list
type SectionConfig struct {
	Name       string                 `mapstructure:"name"`
	Title      string                 `mapstructure:"title"`
	Total      int                    `mapstructure:"total"`
	Difficulty models.DifficultyQuota `mapstructure:"difficulty"`
	Terms      int                    `mapstructure:"terms"`
	TimeLimit  time.Duration          `mapstructure:"time_limit"`
}

// DefaultSections mirrors the board exam layout: three sections in a fixed order.
func DefaultSections() []SectionConfig {
	return []SectionConfig{
		{
			Name: "AMSTHEC", Title: "Mathematics, Surveying & Transportation Engineering", Total: 75,
			Difficulty: models.DifficultyQuota{Easy: 7, Medium: 7, Hard: 7}, Terms: 5, TimeLimit: 5 * time.Hour,
		},
		{
			Name: "HPGE", Title: "Hydraulics & Geotechnical Engineering", Total: 50,
			Difficulty: models.DifficultyQuota{Easy: 5, Medium: 5, Hard: 5}, Terms: 5, TimeLimit: 4 * time.Hour,
		},
		{
			Name: "PSAD", Title: "Structural Design & Construction", Total: 75,
			Difficulty: models.DifficultyQuota{Easy: 7, Medium: 7, Hard: 7}, Terms: 5, TimeLimit: 5 * time.Hour,
		},
	}
}

// Flags returns the command-line flags that override configuration keys.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("examsim-server", pflag.ContinueOnError)
	fs.String("config", "", "path to config.yaml")
	fs.String("bank", "", "question bank file (.json, .yaml, .csv)")
	fs.String("out", "", "exam file written by --generate")
	fs.String("store", "", "exam set store: sqlite, postgres or redis")
	fs.Bool("generate", false, "assemble one exam, write it to --out and exit")
	fs.Bool("strict", false, "with --generate, fail when a section is short")
	fs.String("issue-token", "", "print a signed API token for this subject and exit")
	fs.StringSlice("roles", []string{"candidate"}, "roles carried by --issue-token")
	fs.Duration("token-ttl", 24*time.Hour, "lifetime of --issue-token")
	return fs
}

// LoadConfig loads configuration from flags, environment variables and config.yaml
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("SERVER_PORT", ":8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("STORE.DRIVER", "sqlite")
	v.SetDefault("STORE.DATABASE_URL", "file:examsim.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)")
	v.SetDefault("STORE.REDIS_ADDR", "localhost:6379")
	v.SetDefault("STORE.REDIS_TTL", "24h")
	v.SetDefault("AUTH.ENABLED", false) // Offline desktop use needs no tokens
	v.SetDefault("AUTH.JWT_SIGNING_KEY", "change-me-examsim-jwt-key")
	v.SetDefault("AUTH.ISSUER", "examsim.local")
	v.SetDefault("BANK.PATH", "question_bank.json")
	v.SetDefault("BANK.SEED_SAMPLE", false)
	v.SetDefault("GROUPING.enabled", true)
	v.SetDefault("GROUPING.situation_first", false)
	v.SetDefault("GROUPING.tail_guard", 0)
	v.SetDefault("RELOAD_INTERVAL", "5m")
	v.SetDefault("EXAM_FILE", "questions.json")

	if fs != nil {
		for key, flag := range map[string]string{
			"BANK.PATH":    "bank",
			"EXAM_FILE":    "out",
			"STORE.DRIVER": "store",
		} {
			if f := fs.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("unable to bind flag %s: %w", flag, err)
				}
			}
		}
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
		}
	}

	// Read from config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("config.yaml not found, using environment variables and defaults")
		} else {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	// Override with environment variables (e.g., EXAMSIM_SERVER_PORT, EXAMSIM_BANK_PATH)
	v.SetEnvPrefix("EXAMSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if len(cfg.Sections) == 0 {
		cfg.Sections = DefaultSections()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the section quotas and the store driver.
func (c *Config) Validate() error {
	if err := exam.ValidateSpecs(c.SectionSpecs()); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Grouping.TailGuard < 0 {
		return fmt.Errorf("grouping.tail_guard must not be negative")
	}
	return nil
}

// SectionSpecs converts the configured sections into engine specs, keeping order.
func (c *Config) SectionSpecs() []models.SectionSpec {
	specs := make([]models.SectionSpec, 0, len(c.Sections))
	for _, s := range c.Sections {
		specs = append(specs, models.SectionSpec{
			Name:       s.Name,
			Title:      s.Title,
			Total:      s.Total,
			Difficulty: s.Difficulty,
			Terms:      s.Terms,
			TimeLimit:  int(s.TimeLimit / time.Second),
		})
	}
	return specs
}
