package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"stealthcompany.com/labmerge/internal/dataset"
	"stealthcompany.com/labmerge/internal/exam"
)

// Output modes for the merged file
const (
	OutputFlat    = "flat"
	OutputGrouped = "grouped"
)

type Config struct {
	SourceAPath         string `mapstructure:"SOURCE_A_PATH"`
	SourceAFormat       string `mapstructure:"SOURCE_A_FORMAT"`
	SourceBPath         string `mapstructure:"SOURCE_B_PATH"`
	SourceBFormat       string `mapstructure:"SOURCE_B_FORMAT"`
	OutputPath          string `mapstructure:"OUTPUT_PATH"`
	OutputMode          string `mapstructure:"OUTPUT_MODE"`
	AgePolicy           string `mapstructure:"AGE_POLICY"`
	PreviewCount        int    `mapstructure:"PREVIEW_COUNT"`
	LookupSequential    string `mapstructure:"LOOKUP_SEQUENTIAL"`
	LookupBinary        string `mapstructure:"LOOKUP_BINARY"`
	PlannerCosts        string `mapstructure:"PLANNER_COSTS"`
	PlannerCapacity     int    `mapstructure:"PLANNER_CAPACITY"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	ElasticsearchURL    string `mapstructure:"ELASTICSEARCH_URL"`
	MetricsTextfile     string `mapstructure:"METRICS_TEXTFILE"`
	EnableSystemMetrics bool   `mapstructure:"ENABLE_SYSTEM_METRICS"`
	CouchbaseURL        string `mapstructure:"COUCHBASE_URL"`
	CouchbaseUsername   string `mapstructure:"COUCHBASE_USERNAME"`
	CouchbasePassword   string `mapstructure:"COUCHBASE_PASSWORD"`
	CouchbaseBucket     string `mapstructure:"COUCHBASE_BUCKET"`
}

var defaults = map[string]any{
	"SOURCE_A_PATH":         "data/raw/dados_laboratorioA.json",
	"SOURCE_A_FORMAT":       "json",
	"SOURCE_B_PATH":         "data/raw/dados_laboratorioB.csv",
	"SOURCE_B_FORMAT":       "csv",
	"OUTPUT_PATH":           "data/processed/dados_laboratorios.json",
	"OUTPUT_MODE":           OutputFlat,
	"AGE_POLICY":            string(exam.AgeStrict),
	"PREVIEW_COUNT":         5,
	"LOOKUP_SEQUENTIAL":     "João Silva",
	"LOOKUP_BINARY":         "Ana Souza",
	"PLANNER_COSTS":         "2,3,4,5",
	"PLANNER_CAPACITY":      5,
	"LOG_LEVEL":             "info",
	"ELASTICSEARCH_URL":     "",
	"METRICS_TEXTFILE":      "",
	"ENABLE_SYSTEM_METRICS": false,
	"COUCHBASE_URL":         "",
	"COUCHBASE_USERNAME":    "",
	"COUCHBASE_PASSWORD":    "",
	"COUCHBASE_BUCKET":      "labmerge",
}

// LoadDotEnv loads ../.env and then .env when present. Missing files are
// not an error; the process environment is used as-is.
func LoadDotEnv() {
	err := godotenv.Load("../.env")
	if err != nil {
		log.Debug().Msg("Not found .env file in parent directory, trying current directory")
		err = godotenv.Load(".env")
		if err != nil {
			log.Debug().Msg("Not found .env file in current directory, assuming environment variables are set")
		}
	}
}

// Load reads configuration from the environment and, when configFile is
// set, from that file. Environment variables win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown formats, modes and policies and malformed planner input
func (c *Config) Validate() error {
	if c.SourceAPath == "" || c.SourceBPath == "" {
		return fmt.Errorf("%w: both source paths are required", exam.ErrInvalidArgument)
	}
	if _, err := dataset.ParseFormat(c.SourceAFormat); err != nil {
		return fmt.Errorf("SOURCE_A_FORMAT: %w", err)
	}
	if _, err := dataset.ParseFormat(c.SourceBFormat); err != nil {
		return fmt.Errorf("SOURCE_B_FORMAT: %w", err)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: OUTPUT_PATH is required", exam.ErrInvalidArgument)
	}
	if _, err := ParseOutputMode(c.OutputMode); err != nil {
		return err
	}
	if _, err := exam.ParseAgePolicy(c.AgePolicy); err != nil {
		return fmt.Errorf("AGE_POLICY: %w", err)
	}
	if c.PreviewCount < 0 {
		return fmt.Errorf("%w: PREVIEW_COUNT must not be negative", exam.ErrInvalidArgument)
	}
	if _, err := ParseCosts(c.PlannerCosts); err != nil {
		return fmt.Errorf("PLANNER_COSTS: %w", err)
	}
	if c.PlannerCapacity < 0 {
		return fmt.Errorf("%w: PLANNER_CAPACITY must not be negative", exam.ErrInvalidArgument)
	}
	return nil
}

// PlannerCostList returns the parsed PLANNER_COSTS value
func (c *Config) PlannerCostList() []int {
	costs, _ := ParseCosts(c.PlannerCosts)
	return costs
}

// ParseOutputMode normalizes an output mode name
func ParseOutputMode(s string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(s)); mode {
	case "", OutputFlat:
		return OutputFlat, nil
	case OutputGrouped:
		return OutputGrouped, nil
	default:
		return "", fmt.Errorf("%w: unknown output mode %q, use flat or grouped", exam.ErrInvalidArgument, s)
	}
}

// ParseCosts parses a comma separated list of non-negative integers.
// An empty string is an empty list.
func ParseCosts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}

	parts := strings.Split(s, ",")
	costs := make([]int, 0, len(parts))
	for _, part := range parts {
		cost, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: cost %q is not an integer", exam.ErrInvalidArgument, part)
		}
		if cost < 0 {
			return nil, fmt.Errorf("%w: cost %d is negative", exam.ErrInvalidArgument, cost)
		}
		costs = append(costs, cost)
	}
	return costs, nil
}
