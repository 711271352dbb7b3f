package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestResolveAddr(t *testing.T) {
	t.Setenv("STREAMY_ADDR", "")
	if got := resolveAddr(""); got != ":8080" {
		t.Fatalf("default addr = %q", got)
	}
	if got := resolveAddr("127.0.0.1:9090"); got != "127.0.0.1:9090" {
		t.Fatalf("flag addr = %q", got)
	}
	t.Setenv("STREAMY_ADDR", ":7070")
	if got := resolveAddr(""); got != ":7070" {
		t.Fatalf("env addr = %q", got)
	}
	if got := resolveAddr(":6060"); got != ":6060" {
		t.Fatalf("flag should win over env, got %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "value", "other"); got != "value" {
		t.Fatalf("firstNonEmpty = %q", got)
	}
	if got := firstNonEmpty("", "  "); got != "" {
		t.Fatalf("firstNonEmpty of blanks = %q", got)
	}
}

func TestRunRequiresBroker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(context.Background(), logger, runConfig{postgresDSN: "postgres://ignored"})
	if err == nil {
		t.Fatal("run accepted missing broker URL")
	}
}
