package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/cceval/internal/score"
	"github.com/blackwell-systems/cceval/internal/telemetry"
)

// Config is the top-level cceval configuration.
type Config struct {
	ClaudeHome    string             `mapstructure:"claude_home"`
	IncludeAgents bool               `mapstructure:"include_agents"`
	Format        string             `mapstructure:"format"`
	Weights       map[string]float64 `mapstructure:"weights"`
	Thresholds    Thresholds         `mapstructure:"thresholds"`
	Completion    Completion         `mapstructure:"completion"`
	Quality       Quality            `mapstructure:"quality"`
	History       History            `mapstructure:"history"`
	Telemetry     telemetry.Config   `mapstructure:"telemetry"`
	Log           Log                `mapstructure:"log"`
}

// Thresholds are the scoring thresholds in config form. The field set
// matches score.Thresholds so the two convert directly.
type Thresholds struct {
	CompletionPartialScore  float64       `mapstructure:"completion_partial_score"`
	LatencyTarget           time.Duration `mapstructure:"latency_target"`
	LatencyMax              time.Duration `mapstructure:"latency_max"`
	ReasoningTarget         time.Duration `mapstructure:"reasoning_target"`
	ReasoningMax            time.Duration `mapstructure:"reasoning_max"`
	LatencyShare            float64       `mapstructure:"latency_share"`
	RequireFirstCompletion  bool          `mapstructure:"require_first_completion"`
	OptimalPrompts          int           `mapstructure:"optimal_prompts"`
	MaxPrompts              int           `mapstructure:"max_prompts"`
	MaxComplexity           float64       `mapstructure:"max_complexity"`
	MaintainabilityFloor    float64       `mapstructure:"maintainability_floor"`
	MaxLintDensity          float64       `mapstructure:"max_lint_density"`
	LintErrorWeight         float64       `mapstructure:"lint_error_weight"`
	LintWarningWeight       float64       `mapstructure:"lint_warning_weight"`
	LintInfoWeight          float64       `mapstructure:"lint_info_weight"`
	FallbackComplexity      float64       `mapstructure:"fallback_complexity"`
	FallbackMaintainability float64       `mapstructure:"fallback_maintainability"`
	NoCodeScore             float64       `mapstructure:"no_code_score"`
	CodeSizeBaseline        int           `mapstructure:"code_size_baseline"`
}

// Completion configures the first-attempt classifier.
type Completion struct {
	// VocabularyFile replaces the built-in correction vocabulary.
	VocabularyFile string   `mapstructure:"vocabulary_file"`
	MetaKeywords   []string `mapstructure:"meta_keywords"`
}

// Quality configures static analysis of generated code.
type Quality struct {
	Enabled bool          `mapstructure:"enabled"`
	Radon   string        `mapstructure:"radon"`
	Flake8  string        `mapstructure:"flake8"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// History configures the evaluation history store.
type History struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	// DSN is a file path for sqlite and a DSN for mysql. Empty means the
	// default database under the config directory.
	DSN string `mapstructure:"dsn"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level"`
	// File receives JSON-lines logs. The MCP server always logs here.
	File string `mapstructure:"file"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. CCEVAL_-prefixed
// environment variables override file values, with "." in keys written as
// "_" (CCEVAL_HISTORY_DRIVER).
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CCEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		configDir := expandPath(DefaultConfigDir)
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// A weights block in the file replaces the defaults instead of merging
	// with them. Env overrides still apply per key.
	if v.InConfig("weights") {
		file, _ := v.Get("weights").(map[string]any)
		cfg.Weights = make(map[string]float64, len(file))
		for name := range file {
			cfg.Weights[name] = v.GetFloat64("weights." + name)
		}
	}

	cfg.ClaudeHome = expandPath(cfg.ClaudeHome)
	cfg.Completion.VocabularyFile = expandPath(cfg.Completion.VocabularyFile)
	cfg.Log.File = expandPath(cfg.Log.File)
	if cfg.History.Driver == "sqlite" || cfg.History.Driver == "" {
		cfg.History.DSN = expandPath(cfg.History.DSN)
		if cfg.History.DSN == "" {
			cfg.History.DSN = DBPath()
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("claude_home", DefaultClaudeHome)
	v.SetDefault("include_agents", false)
	v.SetDefault("format", DefaultFormat)

	for name, w := range score.DefaultWeights() {
		v.SetDefault("weights."+name, w)
	}

	th := defaultThresholds()
	v.SetDefault("thresholds.completion_partial_score", th.CompletionPartialScore)
	v.SetDefault("thresholds.latency_target", th.LatencyTarget)
	v.SetDefault("thresholds.latency_max", th.LatencyMax)
	v.SetDefault("thresholds.reasoning_target", th.ReasoningTarget)
	v.SetDefault("thresholds.reasoning_max", th.ReasoningMax)
	v.SetDefault("thresholds.latency_share", th.LatencyShare)
	v.SetDefault("thresholds.require_first_completion", th.RequireFirstCompletion)
	v.SetDefault("thresholds.optimal_prompts", th.OptimalPrompts)
	v.SetDefault("thresholds.max_prompts", th.MaxPrompts)
	v.SetDefault("thresholds.max_complexity", th.MaxComplexity)
	v.SetDefault("thresholds.maintainability_floor", th.MaintainabilityFloor)
	v.SetDefault("thresholds.max_lint_density", th.MaxLintDensity)
	v.SetDefault("thresholds.lint_error_weight", th.LintErrorWeight)
	v.SetDefault("thresholds.lint_warning_weight", th.LintWarningWeight)
	v.SetDefault("thresholds.lint_info_weight", th.LintInfoWeight)
	v.SetDefault("thresholds.fallback_complexity", th.FallbackComplexity)
	v.SetDefault("thresholds.fallback_maintainability", th.FallbackMaintainability)
	v.SetDefault("thresholds.no_code_score", th.NoCodeScore)
	v.SetDefault("thresholds.code_size_baseline", th.CodeSizeBaseline)

	v.SetDefault("completion.vocabulary_file", "")
	v.SetDefault("completion.meta_keywords", DefaultMetaKeywords)

	v.SetDefault("quality.enabled", DefaultQuality.Enabled)
	v.SetDefault("quality.radon", DefaultQuality.Radon)
	v.SetDefault("quality.flake8", DefaultQuality.Flake8)
	v.SetDefault("quality.timeout", DefaultQuality.Timeout)

	v.SetDefault("history.enabled", DefaultHistory.Enabled)
	v.SetDefault("history.driver", DefaultHistory.Driver)
	v.SetDefault("history.dsn", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// ScoreWeights returns the configured weights. Dimensions missing from a
// file's weights block weigh 0.
func (c *Config) ScoreWeights() score.Weights {
	w := make(score.Weights, len(c.Weights))
	for k, v := range c.Weights {
		w[k] = v
	}
	return w
}

// ScoreThresholds converts the configured thresholds.
func (c *Config) ScoreThresholds() score.Thresholds {
	return score.Thresholds(c.Thresholds)
}

// DBPath returns the full path to the default SQLite history database.
func DBPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultDBName)
}

// LogPath returns the default JSON-lines log path.
func LogPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultLogName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
