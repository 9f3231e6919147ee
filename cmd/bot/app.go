package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"friendbot/commands"
	"friendbot/internal/bank"
	"friendbot/internal/cache"
	"friendbot/internal/database"
	"friendbot/internal/dispatch"
	"friendbot/internal/driver/console"
	"friendbot/internal/permissions"
	"friendbot/internal/voice"
)

const (
	envConfigFile           = "FRIENDBOT_CONFIG_FILE"
	defaultConfigFilePath   = "config/bot.json"
	alternateConfigFilePath = "bin/config/bot.json"

	defaultDatabasePath    = "data/friendbot.db"
	defaultSoundsDir       = "sounds"
	defaultSoundExtension  = ".opus"
	defaultVoiceIdle       = 5 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
)

type appConfig struct {
	logLevel slog.Level

	databasePath    string
	soundsDir       string
	soundExtension  string
	voiceIdle       time.Duration
	shutdownTimeout time.Duration

	consoleGuildID   string
	consoleChannelID string
	consoleActorID   string
	consoleAdmin     bool
}

type fileConfig struct {
	LogLevel         string            `json:"log_level"`
	DatabasePath     string            `json:"database_path"`
	SoundsDir        string            `json:"sounds_dir"`
	SoundExtension   string            `json:"sound_extension"`
	VoiceIdleTimeout string            `json:"voice_idle_timeout"`
	ShutdownTimeout  string            `json:"shutdown_timeout"`
	Console          fileConsoleConfig `json:"console"`
}

type fileConsoleConfig struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	ActorID   string `json:"actor_id"`
	Admin     *bool  `json:"admin"`
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.databasePath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	memoryCache := cache.NewMemoryCache(cache.WithMemoryCacheLogger(logger))
	durableCache := cache.NewDurableStore(
		cache.NewSQLiteBackend(db),
		cache.WithDurableStoreLogger(logger),
	)

	permissionService := permissions.NewService(db, permissions.WithLogger(logger))
	bankService := bank.NewService(db)
	voiceManager := voice.NewManager(
		voice.WithIdleTimeout(cfg.voiceIdle),
		voice.WithManagerLogger(logger),
	)

	pipeline := dispatch.NewPipeline(permissionService, dispatch.WithLogger(logger))
	pipeline.Register(
		commands.NewDisconnectCommand(voiceManager),
		commands.NewPermissionAdminCommand(permissionService),
		commands.NewBankAdminCommand(bankService),
		commands.NewBankCommand(bankService),
		commands.NewPlayCommand(
			voiceManager,
			commands.NewFSSoundLibrary(os.DirFS(cfg.soundsDir), cfg.soundExtension),
		),
		commands.NewCountdownCommand(),
		commands.NewProfileCommand(memoryCache, durableCache),
		commands.NewPraiseReactionCommand(),
	)

	consoleDriver := console.New(os.Stdin, os.Stdout,
		console.WithLogger(logger),
		console.WithGuild(cfg.consoleGuildID, cfg.consoleChannelID),
		console.WithActor(cfg.consoleActorID, cfg.consoleAdmin),
	)

	logger.Info("bot started", "driver", consoleDriver.Name(), "database", cfg.databasePath)

	runErr := consoleDriver.Start(ctx, pipeline)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	if err := consoleDriver.Shutdown(shutdownCtx); err != nil {
		logger.Error("driver shutdown failed", "error", err)
	}
	if err := voiceManager.DisconnectAll(shutdownCtx); err != nil {
		logger.Error("voice teardown failed", "error", err)
	}

	logger.Info("bot stopped")

	return runErr
}

func loadConfig() (appConfig, error) {
	cfg := defaultAppConfig()

	configFile, err := resolveConfigFilePath()
	if err != nil {
		return appConfig{}, err
	}
	if configFile != "" {
		if err := applyConfigFile(&cfg, configFile); err != nil {
			return appConfig{}, err
		}
	}

	return cfg, nil
}

// resolveConfigFilePath finds the config file, which is optional: the
// defaults run the bot against a local database with no further setup.
func resolveConfigFilePath() (string, error) {
	if configFile := strings.TrimSpace(os.Getenv(envConfigFile)); configFile != "" {
		return configFile, nil
	}

	for _, candidate := range []string{defaultConfigFilePath, alternateConfigFilePath} {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config file %s is a directory", candidate)
			}

			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}

	return "", nil
}

func defaultAppConfig() appConfig {
	return appConfig{
		logLevel:        slog.LevelInfo,
		databasePath:    defaultDatabasePath,
		soundsDir:       defaultSoundsDir,
		soundExtension:  defaultSoundExtension,
		voiceIdle:       defaultVoiceIdle,
		shutdownTimeout: defaultShutdownTimeout,
		consoleAdmin:    true,
	}
}

func applyConfigFile(cfg *appConfig, path string) error {
	if cfg == nil {
		return fmt.Errorf("apply config file: nil config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if rawLevel := strings.TrimSpace(parsed.LogLevel); rawLevel != "" {
		level, err := parseLogLevel(rawLevel)
		if err != nil {
			return fmt.Errorf("parse log_level: %w", err)
		}
		cfg.logLevel = level
	}
	if databasePath := strings.TrimSpace(parsed.DatabasePath); databasePath != "" {
		cfg.databasePath = databasePath
	}
	if soundsDir := strings.TrimSpace(parsed.SoundsDir); soundsDir != "" {
		cfg.soundsDir = soundsDir
	}
	if extension := strings.TrimSpace(parsed.SoundExtension); extension != "" {
		if !strings.HasPrefix(extension, ".") {
			return fmt.Errorf("parse sound_extension: %q must start with a dot", extension)
		}
		cfg.soundExtension = extension
	}
	if rawIdle := strings.TrimSpace(parsed.VoiceIdleTimeout); rawIdle != "" {
		idle, err := time.ParseDuration(rawIdle)
		if err != nil {
			return fmt.Errorf("parse voice_idle_timeout: %w", err)
		}
		if idle <= 0 {
			return fmt.Errorf("parse voice_idle_timeout: must be > 0")
		}
		cfg.voiceIdle = idle
	}
	if rawTimeout := strings.TrimSpace(parsed.ShutdownTimeout); rawTimeout != "" {
		timeout, err := time.ParseDuration(rawTimeout)
		if err != nil {
			return fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		if timeout <= 0 {
			return fmt.Errorf("parse shutdown_timeout: must be > 0")
		}
		cfg.shutdownTimeout = timeout
	}

	cfg.consoleGuildID = strings.TrimSpace(parsed.Console.GuildID)
	cfg.consoleChannelID = strings.TrimSpace(parsed.Console.ChannelID)
	cfg.consoleActorID = strings.TrimSpace(parsed.Console.ActorID)
	if parsed.Console.Admin != nil {
		cfg.consoleAdmin = *parsed.Console.Admin
	}

	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}
