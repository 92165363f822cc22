package main

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/alfredjeanlab/foundry/internal/ui"
)

func TestMain(m *testing.M) {
	ui.ForceNoColor()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}
