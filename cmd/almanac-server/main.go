package main

import (
	"log/slog"
	"os"

	"almanac/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("application initialization failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application exited with error", "error", err)
		os.Exit(1)
	}
}
