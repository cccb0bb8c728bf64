package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wlchewing/internal/chewing"
	"wlchewing/internal/config"
	"wlchewing/internal/ime"
	"wlchewing/internal/logging"
	"wlchewing/internal/panel"
	"wlchewing/internal/timer"
	"wlchewing/internal/tray"
	"wlchewing/internal/wayland"
	"wlchewing/internal/xkb"
)

// eventQueue is the capacity of the session loop's event channel.
const eventQueue = 64

type runFlags struct {
	configPath       string
	startWithEnglish bool
	logLevel         string
}

var flags runFlags

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&flags.configPath, "config", "c", "", "configuration file (default "+config.ConfigPath()+")")
	rootCmd.Flags().BoolVarP(&flags.startWithEnglish, "start-with-english", "e", false, "start in English mode")
	rootCmd.Flags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(loader *config.Loader, f runFlags) (*config.Config, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if f.startWithEnglish {
		cfg.StartInEnglish = true
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func run(cmd *cobra.Command, f runFlags) error {
	loader := config.NewLoader(f.configPath)
	defer loader.Close()
	cfg, err := loadConfig(loader, f)
	if err != nil {
		return err
	}

	logCfg, err := cfg.Logging.LoggerConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	log := logger.Logger

	crash := &logging.CrashHandler{Dir: logging.CrashDir(), Version: version, Component: "wlchewing", Logger: log}
	defer crash.Recover()

	opts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	events := make(chan ime.Event, eventQueue)

	keyboard, err := xkb.New(logger.WithComponent("xkb").Logger)
	if err != nil {
		return err
	}
	defer keyboard.Close()

	engine, err := chewing.New(chewing.Options{
		Layout:            cfg.Engine.KeyboardLayout,
		CandidatesPerPage: cfg.Engine.CandidatesPerPage,
	}, logger.WithComponent("chewing").Logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	repeat, err := timer.New(events, logger.WithComponent("timer").Logger)
	if err != nil {
		return err
	}
	defer repeat.Close()
	repeat.Start(ctx)

	proto, err := wayland.Connect(events, logger.WithComponent("wayland").Logger)
	if err != nil {
		return err
	}
	defer proto.Close()

	var indicator ime.Indicator
	if cfg.TrayIcon {
		t := tray.New(events, logger.WithComponent("tray").Logger)
		t.SetForwarding(opts.StartInEnglish)
		if err := t.Start(ctx); err != nil {
			log.Warn("tray icon unavailable", "error", err)
		} else {
			defer t.Close()
			indicator = t
		}
	}

	session, err := ime.NewSession(ime.Config{
		Engine:    engine,
		Keyboard:  keyboard,
		Protocol:  proto,
		Timer:     repeat,
		Indicator: indicator,
		Overlay:   panel.NewLogOverlay(panel.NewStrip(cfg.Panel.KeyHints, cfg.Panel.MaxColumns), logger.WithComponent("panel").Logger),
		Logger:    log,
		Options:   opts,
	})
	if err != nil {
		return err
	}

	watchConfig(ctx, loader, logger, events, f)

	protoErr := make(chan error, 1)
	go func() {
		defer crash.Recover()
		err := proto.Run(ctx)
		stop()
		protoErr <- err
	}()

	log.Info("input method started", "version", version, "forwarding", session.Forwarding())
	err = session.Run(ctx, events)
	stop()
	proto.Close()
	if perr := <-protoErr; errors.Is(err, context.Canceled) {
		err = perr
	}
	if err != nil {
		log.Error("input method stopped", "error", err)
		return err
	}
	log.Info("input method stopped")
	return nil
}

// watchConfig applies configuration changes while running: the log level,
// the toggle key and repeat overrides. Engine and panel settings take effect
// on restart.
func watchConfig(ctx context.Context, loader *config.Loader, logger *logging.Logger, events chan<- ime.Event, f runFlags) {
	log := logger.Logger
	loader.OnChange(func(cfg *config.Config) {
		if f.logLevel == "" {
			if lc, err := cfg.Logging.LoggerConfig(); err == nil {
				logger.SetLevel(lc.Level)
				log.Debug("log level applied", "level", logging.LevelString(lc.Level))
			}
		}
		opts, err := cfg.SessionOptions()
		if err != nil {
			log.Warn("ignoring reloaded configuration", "error", err)
			return
		}
		select {
		case events <- ime.OptionsEvent{Options: opts}:
			log.Info("configuration reloaded", "path", loader.Path())
		case <-ctx.Done():
		}
	})
	if err := loader.Watch(); err != nil {
		log.Warn("configuration reload disabled", "error", err)
		return
	}
	go func() {
		for {
			select {
			case err := <-loader.Errors():
				kept := loader.Config()
				log.Warn("configuration reload failed, keeping previous settings",
					"error", err, "toggle_key", kept.ToggleKey, "log_level", kept.Logging.Level)
			case <-ctx.Done():
				return
			}
		}
	}()
}

