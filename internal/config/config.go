// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port          int `mapstructure:"port"`
	SweepInterval int `mapstructure:"sweep_interval"` // minutes between audio sweeps, 0 disables
	Database      struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Audio struct {
		Path string `mapstructure:"path"` // directory holding narration files
	} `mapstructure:"audio"`
	Provider struct {
		APIKey      string `mapstructure:"api_key"`
		BaseURL     string `mapstructure:"base_url"`
		TextModel   string `mapstructure:"text_model"`
		SpeechModel string `mapstructure:"speech_model"`
	} `mapstructure:"provider"`
	Generation struct {
		MaxAudioAttempts int `mapstructure:"max_audio_attempts"`
	} `mapstructure:"generation"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with an "ATLAS_" prefix.
	// e.g., ATLAS_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("ATLAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("sweep_interval", 60)
	viper.SetDefault("database.path", "./atlas.db")
	viper.SetDefault("audio.path", "./narration")
	viper.SetDefault("provider.api_key", "")
	viper.SetDefault("provider.base_url", "")
	viper.SetDefault("provider.text_model", "gpt-4o")
	viper.SetDefault("provider.speech_model", "tts-1")
	viper.SetDefault("generation.max_audio_attempts", 3)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
