package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/imlitech/split"
)

const (
	envPrefix         = "SPLIT_"
	maxConfigFileSize = 1024 * 1024
)

// loadConfig reads the YAML file at path (optional) and applies SPLIT_*
// environment overrides on top.
//
// Environment variables map to configuration keys by dropping the prefix,
// lowercasing and turning "__" into a nesting level:
//
//	SPLIT_DISABLED                     -> disabled
//	SPLIT_FAILOVER__ENABLED            -> failover.enabled
//	SPLIT_STORE__OPERATIONTIMEOUT      -> store.operationtimeout
//
// Keys are matched to fields case-insensitively.
func loadConfig(path string) (split.Config, error) {
	k := koanf.New(".")

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return split.Config{}, fmt.Errorf("stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return split.Config{}, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return split.Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return split.Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return split.Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg split.Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return split.Config{}, fmt.Errorf("decode config: %w", err)
	}

	split.SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return split.Config{}, err
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))

	return strings.ReplaceAll(s, "__", ".")
}
