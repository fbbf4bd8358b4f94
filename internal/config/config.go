package config

import (
	"fmt"
	"os"

	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configFilename = "duologue.yaml"
)

// LoadConfig reads the YAML config (path overrides the default location),
// applies .env and environment overrides and fills defaults. A missing file
// is not an error.
func LoadConfig(path string) (types.Config, error) {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return types.Config{}, fmt.Errorf("failed to initialize file operations: %w", err)
	}
	return Load(fileOps, path)
}

// Load is LoadConfig with explicit file operations
func Load(fileOps fileops.FileOps, path string) (types.Config, error) {
	if path == "" {
		path = configFilename
	}

	var config types.Config

	data, err := fileOps.LoadConfig(path)
	switch {
	case err == fileops.ErrConfigNotFound:
		logger.Debugf("No config file at %s, using defaults", path)
	case err != nil:
		return types.Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return types.Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Failed to load .env: %v", err)
	}
	applyEnv(&config, os.Getenv)

	return config.WithDefaults(), nil
}

// SaveConfig writes config to the default location
func SaveConfig(config types.Config) error {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}

	if err := fileOps.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileOps.SaveConfig(configFilename, data); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// applyEnv overrides credentials with environment values when they are set
func applyEnv(config *types.Config, getenv func(string) string) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SILICONFLOW_API_KEY", &config.Keys.SiliconFlow},
		{"MINIMAX_API_KEY", &config.Keys.MiniMax},
		{"MINIMAX_GROUP_ID", &config.Keys.MiniMaxGroupID},
		{"DASHSCOPE_API_KEY", &config.Keys.Aliyun},
		{"ELEVENLABS_API_KEY", &config.Keys.ElevenLabs},
		{"OPENAI_API_KEY", &config.Keys.OpenAI},
		{"OPENAI_BASE_URL", &config.LLM.BaseURL},
		{"DUOLOGUE_LLM_MODEL", &config.LLM.Model},
	}

	for _, o := range overrides {
		if v := getenv(o.env); v != "" {
			*o.target = v
		}
	}
}
