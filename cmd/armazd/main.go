package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/armazcape/armazd/internal/config"
	"github.com/armazcape/armazd/internal/daemon"
	"github.com/armazcape/armazd/internal/version"
)

const stopTimeout = 10 * time.Second

var CLI struct {
	Config  string `short:"c" help:"Path to the default configuration layer" default:"/etc/armazd/default.conf"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
	} `cmd:"" default:"1" help:"Run the control daemon"`

	Version struct {
	} `cmd:"" help:"Print the version and exit"`
}

func main() {
	ctx := kong.Parse(&CLI)

	switch ctx.Command() {
	case "version":
		fmt.Println(version.Version)
	default:
		if err := run(); err != nil {
			slog.Error("armazd failed", "error", err)
			os.Exit(1)
		}
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	res := daemon.New(cfg)
	if res.IsErr() {
		return res.UnwrapErr()
	}
	d := res.Unwrap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Shutdown requested")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return d.Stop(stopCtx)
}

// loadConfig merges the standard layers on top of the defaults given on
// the command line, then applies any variant and profile overlays.
func loadConfig() (*config.Config, error) {
	layers := []string{CLI.Config}
	if CLI.Config == config.DefaultConfPath {
		layers = append(layers, config.MachineConfPath, config.CustomConfPath)
	}
	cfg, err := config.Load(layers...)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(CLI.Config)
	if err := cfg.LoadVariant(baseDir); err != nil {
		return nil, err
	}
	if err := cfg.LoadProfile(baseDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the default text handler at the configured
// level. --verbose wins over [system] loglevel.
func setupLogging(cfg *config.Config) {
	level := parseLevel(cfg.Get("system", "loglevel", "info"))
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}

func parseLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
