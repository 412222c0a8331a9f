package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		slog.Error("irbench failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
