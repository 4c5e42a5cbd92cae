package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	Schema       string `mapstructure:"schema"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
}

// AnalysisConfig carries every detector threshold. The numeric defaults
// are behavioral contract, not tuning suggestions; changing them changes
// which traces get flagged.
type AnalysisConfig struct {
	JoinThreshold          int     `mapstructure:"join_threshold"`
	CriticalJoinThreshold  int     `mapstructure:"critical_join_threshold"`
	MaxJoinsRecommended    int     `mapstructure:"max_joins_recommended"`
	MaxJoinsCritical       int     `mapstructure:"max_joins_critical"`
	FindAllRowThreshold    int     `mapstructure:"find_all_row_threshold"`
	FlushCountThreshold    int     `mapstructure:"flush_count_threshold"`
	BatchSizeThreshold     int     `mapstructure:"batch_size_threshold"`
	LikeMinExecutionTimeMs float64 `mapstructure:"like_min_execution_time_ms"`
	FrequentQueryThreshold int     `mapstructure:"frequent_query_threshold"`
}

// DefaultAnalysis returns the stock thresholds.
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		JoinThreshold:          7,
		CriticalJoinThreshold:  10,
		MaxJoinsRecommended:    5,
		MaxJoinsCritical:       8,
		FindAllRowThreshold:    99,
		FlushCountThreshold:    5,
		BatchSizeThreshold:     20,
		LikeMinExecutionTimeMs: 5.0,
		FrequentQueryThreshold: 10,
	}
}

// Validate fails fast on thresholds that would make a detector
// meaningless. Analyzer construction refuses an invalid config; Analyze
// itself never re-validates.
func (c AnalysisConfig) Validate() error {
	var errs []error
	if c.JoinThreshold <= 0 {
		errs = append(errs, fmt.Errorf("join_threshold must be positive, got %d", c.JoinThreshold))
	}
	if c.CriticalJoinThreshold < c.JoinThreshold {
		errs = append(errs, fmt.Errorf("critical_join_threshold (%d) must be >= join_threshold (%d)", c.CriticalJoinThreshold, c.JoinThreshold))
	}
	if c.MaxJoinsRecommended <= 0 {
		errs = append(errs, fmt.Errorf("max_joins_recommended must be positive, got %d", c.MaxJoinsRecommended))
	}
	if c.MaxJoinsCritical < c.MaxJoinsRecommended {
		errs = append(errs, fmt.Errorf("max_joins_critical (%d) must be >= max_joins_recommended (%d)", c.MaxJoinsCritical, c.MaxJoinsRecommended))
	}
	if c.FindAllRowThreshold <= 0 {
		errs = append(errs, fmt.Errorf("find_all_row_threshold must be positive, got %d", c.FindAllRowThreshold))
	}
	if c.FlushCountThreshold <= 0 {
		errs = append(errs, fmt.Errorf("flush_count_threshold must be positive, got %d", c.FlushCountThreshold))
	}
	if c.BatchSizeThreshold <= 0 {
		errs = append(errs, fmt.Errorf("batch_size_threshold must be positive, got %d", c.BatchSizeThreshold))
	}
	if c.LikeMinExecutionTimeMs <= 0 || c.LikeMinExecutionTimeMs > 60000 {
		errs = append(errs, fmt.Errorf("like_min_execution_time_ms must be in (0, 60000], got %g", c.LikeMinExecutionTimeMs))
	}
	if c.FrequentQueryThreshold <= 1 {
		errs = append(errs, fmt.Errorf("frequent_query_threshold must be greater than 1, got %d", c.FrequentQueryThreshold))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from config.yaml and environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./")
	v.AddConfigPath("$HOME/.querylens/")
	v.AddConfigPath("/etc/querylens/")

	v.SetEnvPrefix("QUERYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setAnalysisDefaults(v)
	v.SetDefault("server.addr", ":8089")
	v.SetDefault("db.maxOpenConns", 4)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}

	return &config, nil
}

func setAnalysisDefaults(v *viper.Viper) {
	d := DefaultAnalysis()
	v.SetDefault("analysis.join_threshold", d.JoinThreshold)
	v.SetDefault("analysis.critical_join_threshold", d.CriticalJoinThreshold)
	v.SetDefault("analysis.max_joins_recommended", d.MaxJoinsRecommended)
	v.SetDefault("analysis.max_joins_critical", d.MaxJoinsCritical)
	v.SetDefault("analysis.find_all_row_threshold", d.FindAllRowThreshold)
	v.SetDefault("analysis.flush_count_threshold", d.FlushCountThreshold)
	v.SetDefault("analysis.batch_size_threshold", d.BatchSizeThreshold)
	v.SetDefault("analysis.like_min_execution_time_ms", d.LikeMinExecutionTimeMs)
	v.SetDefault("analysis.frequent_query_threshold", d.FrequentQueryThreshold)
}
