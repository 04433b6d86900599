package main

import (
	"log/slog"
	"os"

	"github.com/alejandrodnm/proprun/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("proprun exited with error", "err", err)
		os.Exit(1)
	}
}

// setupLogger configura el logger global. Los logs van a stderr: stdout
// queda para la salida de los comandos.
func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
