package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"socialstats/internal/config"
	"socialstats/internal/model"
)

// --- truncate ---

func TestTruncate_WhenStringFitsWithinMax_ShouldReturnUnchanged(t *testing.T) {
	got := truncate("hello", 10)
	if got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestTruncate_WhenStringExceedsMax_ShouldTruncateWithEllipsis(t *testing.T) {
	got := truncate("hello world", 5)
	if got != "hello..." {
		t.Errorf("expected 'hello...', got %q", got)
	}
}

func TestTruncate_WhenStringHasMultibyteRunes_ShouldCutOnRuneBoundary(t *testing.T) {
	got := truncate("héllo", 2)
	if got != "hé..." {
		t.Errorf("expected 'hé...', got %q", got)
	}
}

func TestTruncate_WhenEmptyString_ShouldReturnEmpty(t *testing.T) {
	got := truncate("", 10)
	if got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

// --- parseArgs ---

func TestParseArgs_WhenPlatformFlagsRepeated_ShouldCollectPaths(t *testing.T) {
	o, err := parseArgs([]string{"-whatsapp", "a.zip", "-discord", "d.zip", "-whatsapp", "b.zip"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sources := o.sources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %+v", sources)
	}
	if sources[0].Platform != model.Discord {
		t.Errorf("expected Discord first, got %s", sources[0].Platform)
	}
	if sources[1].Platform != model.WhatsApp || len(sources[1].Paths) != 2 {
		t.Errorf("expected one WhatsApp source with both chats, got %+v", sources[1])
	}
}

func TestParseArgs_WhenLongFormsGiven_ShouldMergeIntoShortForms(t *testing.T) {
	o, err := parseArgs([]string{"--min-messages", "10", "--text-search", "auth"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.minMessages != 10 {
		t.Errorf("expected minMessages 10, got %d", o.minMessages)
	}
	if o.text != "auth" {
		t.Errorf("expected text 'auth', got %q", o.text)
	}
	if o.limit != 20 {
		t.Errorf("expected default limit 20, got %d", o.limit)
	}
}

func TestParseArgs_WhenTwoModesGiven_ShouldReturnError(t *testing.T) {
	_, err := parseArgs([]string{"-t", "x", "--init-aliases"}, io.Discard)
	if err == nil {
		t.Fatal("expected error for two modes")
	}
}

func TestParseArgs_WhenPositionalArgumentsGiven_ShouldReturnError(t *testing.T) {
	_, err := parseArgs([]string{"stray.zip"}, io.Discard)
	if err == nil {
		t.Fatal("expected error for positional argument")
	}
}

func TestParseArgs_WhenHelpRequested_ShouldPrintUsage(t *testing.T) {
	var out bytes.Buffer
	_, err := parseArgs([]string{"-h"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(out.String(), "--text-search") {
		t.Errorf("expected usage text, got %q", out.String())
	}
}

// --- apply ---

func TestApply_WhenFlagsSet_ShouldOverrideConfig(t *testing.T) {
	cfg, err := config.FromEnv(map[string]string{"STATS_TIMEZONE": "UTC"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	o, err := parseArgs([]string{"-m", "3", "--strategy", "estimate", "--me", "Bob", "--format", "sqlite"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := o.apply(&cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.MinMessages != 3 || cfg.MergeStrategy != "estimate" || cfg.WhatsAppOwner != "Bob" || cfg.SnapshotFormat != "sqlite" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestApply_WhenFlagsUnset_ShouldKeepConfig(t *testing.T) {
	cfg, err := config.FromEnv(map[string]string{"MIN_MESSAGES": "7", "STATS_TIMEZONE": "UTC"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	o, err := parseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := o.apply(&cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.MinMessages != 7 {
		t.Errorf("expected MIN_MESSAGES kept at 7, got %d", cfg.MinMessages)
	}
}

func TestApply_WhenStrategyUnknown_ShouldReturnError(t *testing.T) {
	cfg, err := config.FromEnv(map[string]string{"STATS_TIMEZONE": "UTC"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	o := options{minMessages: -1, strategy: "guess"}
	if err := o.apply(&cfg); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

// --- snapshotFormat ---

func TestSnapshotFormat_ShouldFollowExtensionThenFallback(t *testing.T) {
	cases := map[string]string{
		"reports/merge.sqlite": "sqlite",
		"reports/merge.duckdb": "duckdb",
		"reports/merge.bin":    "duckdb",
	}
	for path, want := range cases {
		if got := snapshotFormat(path, "duckdb"); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
	}
}

// --- printResults ---

func TestPrintResults_ShouldListRecordsWithMedia(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, []model.Record{{
		Platform:  model.Instagram,
		Contact:   "alice",
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Author:    "neo",
		Message:   "look\nat this",
		MediaRefs: []string{"photo.jpg"},
	}})
	got := out.String()
	if !strings.Contains(got, "[1]") || !strings.Contains(got, "look at this") {
		t.Errorf("expected numbered single-line message, got %q", got)
	}
	if !strings.Contains(got, "media: photo.jpg") {
		t.Errorf("expected media refs, got %q", got)
	}
}
