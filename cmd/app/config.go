package main

import (
	"fmt"
	"strings"
	"time"

	"coinforge/internal/model"
	"coinforge/internal/repository"
	"coinforge/internal/service"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`

	TelegramAuth TelegramAuthConfig `yaml:"telegramAuth"`
	Notify       NotifyConfig       `yaml:"notify"`
	Economy      EconomyConfig      `yaml:"economy"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	DebugMode        bool   `yaml:"debugMode"`
}

type NotifyConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	TelegramDebug    bool   `yaml:"telegramDebug"`
}

type EconomyConfig struct {
	Milestones      []model.Milestone   `yaml:"milestones"`
	Games           []service.GameRules `yaml:"games"`
	DailyPlayCap    int                 `yaml:"dailyPlayCap"`
	CleanupInterval time.Duration       `yaml:"cleanupInterval"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Economy.Milestones) == 0 {
		cfg.Economy.Milestones = service.DefaultMilestones
	}
	if len(cfg.Economy.Games) == 0 {
		cfg.Economy.Games = service.DefaultGames
	}
	if cfg.Economy.DailyPlayCap == 0 {
		cfg.Economy.DailyPlayCap = service.DefaultDailyPlayCap
	}
	if cfg.Economy.CleanupInterval == 0 {
		cfg.Economy.CleanupInterval = time.Hour
	}

	return &cfg, nil
}
