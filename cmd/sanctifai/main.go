package main

import (
	"log/slog"
	"os"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application terminated", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
