// Package config loads the chatrttm YAML configuration.
package config

import (
	"log/slog"

	"github.com/bosley/chatrttm/chat"
)

// LogLevel is the minimum slog level to emit.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l onto slog. Unknown or empty values give info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root of the YAML file.
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level"`
	Paths     PathsConfig     `yaml:"paths"`
	Formatter FormatterConfig `yaml:"formatter"`
	Manifest  ManifestConfig  `yaml:"manifest"`
	Serve     ServeConfig     `yaml:"serve"`
}

// PathsConfig names the directories the tool reads and writes.
type PathsConfig struct {
	// Annotations holds the .cha files.
	Annotations string `yaml:"annotations"`
	// Audio holds the .wav files.
	Audio string `yaml:"audio"`
	// RTTM receives the exported ground truth.
	RTTM string `yaml:"rttm"`
	// Manifest is the .jsonl manifest to write, if any.
	Manifest string `yaml:"manifest"`
}

// FormatterConfig overrides individual chat.Formatter switches. Unset
// fields keep the default.
type FormatterConfig struct {
	PhonologicalFragments *bool `yaml:"phonological_fragments"`
	Fillers               *bool `yaml:"fillers"`
	Nonwords              *bool `yaml:"nonwords"`
	SimpleEvents          *bool `yaml:"simple_events"`
	OmittedWords          *bool `yaml:"omitted_words"`
	Terminators           *bool `yaml:"terminators"`
	Brackets              *bool `yaml:"brackets"`
	Scopes                *bool `yaml:"scopes"`
	Shortenings           *bool `yaml:"shortenings"`
	SpecialForms          *bool `yaml:"special_forms"`
	Unintelligible        *bool `yaml:"unintelligible"`
	Uninterpretable       *bool `yaml:"uninterpretable"`
	DiscardEmpty          *bool `yaml:"discard_empty"`
	FinalFilter           *bool `yaml:"final_filter"`
}

// Formatter returns chat.DefaultFormatter with the overrides applied.
func (fc FormatterConfig) Formatter() chat.Formatter {
	f := chat.DefaultFormatter()
	overrides := []struct {
		src *bool
		dst *bool
	}{
		{fc.PhonologicalFragments, &f.PhonologicalFragments},
		{fc.Fillers, &f.Fillers},
		{fc.Nonwords, &f.Nonwords},
		{fc.SimpleEvents, &f.SimpleEvents},
		{fc.OmittedWords, &f.OmittedWords},
		{fc.Terminators, &f.Terminators},
		{fc.Brackets, &f.Brackets},
		{fc.Scopes, &f.Scopes},
		{fc.Shortenings, &f.Shortenings},
		{fc.SpecialForms, &f.SpecialForms},
		{fc.Unintelligible, &f.Unintelligible},
		{fc.Uninterpretable, &f.Uninterpretable},
		{fc.DiscardEmpty, &f.DiscardEmpty},
		{fc.FinalFilter, &f.FinalFilter},
	}
	for _, o := range overrides {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	return f
}

// ManifestConfig controls manifest generation.
type ManifestConfig struct {
	// SkipMissing drops transcripts whose audio or RTTM file is missing
	// instead of failing. Defaults to true.
	SkipMissing *bool `yaml:"skip_missing"`
}

// Skip reports the effective SkipMissing value.
func (m ManifestConfig) Skip() bool {
	return m.SkipMissing == nil || *m.SkipMissing
}

// ServeConfig configures the watch-and-serve mode.
type ServeConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	Workers  int    `yaml:"workers"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Serve: ServeConfig{
			HTTPAddr: ":8444",
			Workers:  2,
		},
	}
}
