// Package config provides configuration loading and defaults for cceval.
package config

import (
	"time"

	"github.com/blackwell-systems/cceval/internal/score"
)

// DefaultClaudeHome is the default location of Claude Code's data directory.
const DefaultClaudeHome = "~/.claude"

// DefaultConfigDir is the default location for cceval configuration.
const DefaultConfigDir = "~/.config/cceval"

// DefaultDBName is the filename for the SQLite history database.
const DefaultDBName = "history.db"

// DefaultLogName is the filename for the JSON-lines log.
const DefaultLogName = "cceval.log"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultFormat is the report format when none is given.
const DefaultFormat = "table"

// DefaultMetaKeywords mark user turns that ask for an evaluation rather than
// drive the task, so they are not counted as prompts.
var DefaultMetaKeywords = []string{
	"评分", "评估", "打分", "打个分",
	"cc-eval", "warmup",
	"score this session", "evaluate this session", "rate this session",
}

// DefaultQuality holds the default static analysis settings.
var DefaultQuality = Quality{
	Enabled: true,
	Radon:   "radon",
	Flake8:  "flake8",
	Timeout: 10 * time.Second,
}

// DefaultHistory keeps history in the local SQLite database.
var DefaultHistory = History{
	Enabled: true,
	Driver:  "sqlite",
}

func defaultThresholds() Thresholds {
	return Thresholds(score.DefaultThresholds())
}
