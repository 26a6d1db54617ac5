// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EngineConfig holds the engine's tunables (SPEC_FULL.md §9.3): AST cache
// sizing, the $cond recursion limit, and the $script timeout. None of this
// is part of the DSL or the evaluation contract — it only shapes resource
// bounds spec.md §4.7/§5 leave to the implementer.
type EngineConfig struct {
	CacheCapacity     int           `koanf:"cache.capacity"`
	CacheTTL          time.Duration `koanf:"cache.ttl"`
	MaxRecursionDepth int           `koanf:"evaluation.max_recursion_depth"`
	ScriptTimeout     time.Duration `koanf:"evaluation.script_timeout"`
	ContinueOnError   bool          `koanf:"evaluation.continue_on_error"`
}

// DefaultEngineConfig returns the configuration spec.md's defaults imply:
// 256-entry/5-minute cache, depth limit 32, continue-on-error batches.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CacheCapacity:     DefaultCacheCapacity,
		CacheTTL:          DefaultCacheTTL,
		MaxRecursionDepth: 32,
		ScriptTimeout:     50 * time.Millisecond,
		ContinueOnError:   true,
	}
}

// LoadEngineConfig layers EngineConfig from defaults, an optional YAML
// file, then CLI flags — file overrides defaults, flags override the file.
// configPath may be empty to skip the file layer.
func LoadEngineConfig(configPath string, flags *pflag.FlagSet) (EngineConfig, error) {
	k := koanf.New(".")
	cfg := DefaultEngineConfig()

	if err := k.Load(structProvider(cfg), nil); err != nil {
		return cfg, err
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return cfg, err
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, err
		}
	}

	out := DefaultEngineConfig()
	if err := k.Unmarshal("", &out); err != nil {
		return cfg, err
	}
	return out, nil
}

// structProvider adapts a plain EngineConfig value into a koanf.Provider so
// defaults participate in the same layered Load/merge pipeline as the file
// and flag providers, rather than being applied out-of-band.
type configProvider struct{ cfg EngineConfig }

func structProvider(cfg EngineConfig) *configProvider { return &configProvider{cfg: cfg} }

func (p *configProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ruleengine: configProvider does not support ReadBytes")
}

func (p *configProvider) Read() (map[string]any, error) {
	return map[string]any{
		"cache": map[string]any{
			"capacity": p.cfg.CacheCapacity,
			"ttl":      p.cfg.CacheTTL,
		},
		"evaluation": map[string]any{
			"max_recursion_depth": p.cfg.MaxRecursionDepth,
			"script_timeout":      p.cfg.ScriptTimeout,
			"continue_on_error":   p.cfg.ContinueOnError,
		},
	}, nil
}
