package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"socialstats/internal/config"
	"socialstats/internal/merge"
	"socialstats/internal/model"
	"socialstats/internal/pipeline"
	"socialstats/internal/report"
	"socialstats/internal/store"
)

const usage = `socialstats - chat export statistics across Discord, Instagram, SnapChat and WhatsApp

usage: socialstats [options]

With no mode flag, every package under EXPORT_ROOT/<Platform>/*.zip is read
(or only the packages named with -discord, -instagram, -snapchat, -whatsapp),
one report is written per package and a merged report named "merge".

modes:
  -t, --text-search PATTERN  case-insensitive search over a report's messages
      --init-aliases         write a commented alias file template

options:
  -discord PATH              Discord package zip (repeatable)
  -instagram PATH            Instagram package zip (repeatable)
  -snapchat PATH             SnapChat package zip (repeatable)
  -whatsapp PATH             WhatsApp chat zip (repeatable, all form one package)
  -m, --min-messages NUM     leave out contacts with fewer messages
      --strategy NAME        keep-all, keep-mine or estimate
      --aliases PATH         alias file (default: ALIAS_FILE)
      --me NAME              your author name in WhatsApp chats
      --hours POLICY         all or outgoing
      --since, --until TIME  window: 30m, 2h, 1d, 1w or 2006-01-02[T15:04:05Z07:00]
      --format FORMAT        snapshot format, duckdb or sqlite
      --db PATH              snapshot to search (default: the merge report)
  -n NUM                     max search results (default 20)

environment:
  EXPORT_ROOT, ALIAS_FILE, REPORT_DIR, SNAPSHOT_FORMAT, SKIP_AUDIO_PROCESS,
  SKIP_CALL_PROCESS, MIN_MESSAGES, HOUR_POLICY, MERGE_STRATEGY,
  WHATSAPP_OWNER, STATS_TIMEZONE (also read from ./.env)
`

// options holds the parsed command line. Empty values leave the
// configuration untouched.
type options struct {
	paths map[model.Platform][]string

	minMessages int
	strategy    string
	aliases     string
	me          string
	hours       string
	since       string
	until       string
	format      string

	text        string
	limit       int
	db          string
	initAliases bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	o := options{paths: map[model.Platform][]string{}, minMessages: -1}

	fs := flag.NewFlagSet("socialstats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	for _, p := range model.Platforms {
		p := p // per-iteration copy: go.mod targets go1.21 loop semantics
		fs.Func(strings.ToLower(string(p)), string(p)+" package zip", func(v string) error {
			o.paths[p] = append(o.paths[p], v)
			return nil
		})
	}
	fs.IntVar(&o.minMessages, "m", -1, "")
	minLong := fs.Int("min-messages", -1, "leave out contacts with fewer messages")
	fs.StringVar(&o.strategy, "strategy", "", "merge strategy")
	fs.StringVar(&o.aliases, "aliases", "", "alias file")
	fs.StringVar(&o.me, "me", "", "your WhatsApp author name")
	fs.StringVar(&o.hours, "hours", "", "hour histogram policy")
	fs.StringVar(&o.since, "since", "", "window start")
	fs.StringVar(&o.until, "until", "", "window end")
	fs.StringVar(&o.format, "format", "", "snapshot format")
	fs.StringVar(&o.text, "t", "", "")
	textLong := fs.String("text-search", "", "case-insensitive text search pattern")
	fs.IntVar(&o.limit, "n", 20, "max search results")
	fs.StringVar(&o.db, "db", "", "snapshot to search")
	fs.BoolVar(&o.initAliases, "init-aliases", false, "write an alias file template")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	// Merge short and long forms.
	if *minLong >= 0 {
		o.minMessages = *minLong
	}
	if *textLong != "" {
		o.text = *textLong
	}

	if o.text != "" && o.initAliases {
		return o, errors.New("specify only one of -t, --init-aliases")
	}
	return o, nil
}

// apply overrides configuration values set on the command line.
func (o options) apply(cfg *config.Config) error {
	if o.minMessages >= 0 {
		cfg.MinMessages = o.minMessages
	}
	if o.strategy != "" {
		cfg.MergeStrategy = o.strategy
	}
	if o.aliases != "" {
		cfg.AliasFile = o.aliases
	}
	if o.me != "" {
		cfg.WhatsAppOwner = o.me
	}
	if o.hours != "" {
		cfg.HourPolicy = o.hours
	}
	if o.format != "" {
		cfg.SnapshotFormat = o.format
	}
	return cfg.Validate()
}

// sources returns the packages named on the command line, in platform order.
func (o options) sources() []pipeline.Source {
	var out []pipeline.Source
	for _, p := range model.Platforms {
		paths := o.paths[p]
		if len(paths) == 0 {
			continue
		}
		if p == model.WhatsApp {
			out = append(out, pipeline.Source{Platform: p, Paths: paths})
			continue
		}
		for _, path := range paths {
			out = append(out, pipeline.Source{Platform: p, Paths: []string{path}})
		}
	}
	return out
}

func main() {
	o, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "socialstats: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err == nil {
		err = o.apply(&cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "socialstats: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case o.initAliases:
		err = runInitAliases(cfg)
	case o.text != "":
		err = runTextSearch(cfg, o)
	default:
		err = runAnalyse(ctx, cfg, o)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "socialstats: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// --- Analyse mode ---

func runAnalyse(ctx context.Context, cfg config.Config, o options) error {
	window, err := model.ParseTimeFilter(o.since, o.until, time.Now())
	if err != nil {
		return err
	}

	sources := o.sources()
	if len(sources) == 0 {
		if sources, err = pipeline.Discover(cfg); err != nil {
			return err
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("no packages found under %s (expected %s/<Platform>/*.zip)", cfg.ExportRoot, cfg.ExportRoot)
	}

	renderer := report.Multi{
		report.Terminal{W: os.Stdout, MaxRows: 20},
		store.Snapshot{Format: cfg.SnapshotFormat, PathFor: cfg.ReportPath},
	}
	logger := log.New(os.Stderr, "socialstats: ", 0)

	p, err := pipeline.New(cfg, window, renderer, logger)
	if err != nil {
		return err
	}
	out, err := p.Run(ctx, sources)
	if err != nil {
		return err
	}

	if len(out.Packages) == 0 {
		return fmt.Errorf("none of the %d packages could be read", len(sources))
	}
	fmt.Printf("Reports written to %s\n", cfg.ReportDir)
	return nil
}

// --- Alias template mode ---

func runInitAliases(cfg config.Config) error {
	if err := merge.WriteTemplate(cfg.AliasFile); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists, not overwriting it", cfg.AliasFile)
		}
		return err
	}
	fmt.Printf("Alias template written to %s\n", cfg.AliasFile)
	return nil
}

// --- Text search mode ---

func runTextSearch(cfg config.Config, o options) error {
	window, err := model.ParseTimeFilter(o.since, o.until, time.Now())
	if err != nil {
		return err
	}

	path := o.db
	if path == "" {
		path = cfg.ReportPath(pipeline.MergeReport)
	}
	st, err := store.OpenSnapshot(snapshotFormat(path, cfg.SnapshotFormat), path)
	if err != nil {
		return fmt.Errorf("%w (run socialstats without -t first)", err)
	}
	defer st.Close()

	results, err := st.TextSearch(o.text, o.limit, window)
	if err != nil {
		return fmt.Errorf("text search: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	printResults(os.Stdout, results)
	return nil
}

// --- Helpers ---

// snapshotFormat picks the driver from the file extension, falling back to
// the configured format.
func snapshotFormat(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".sqlite3", ".db":
		return store.SQLite
	case ".duckdb":
		return store.DuckDB
	}
	return fallback
}

func printResults(w io.Writer, results []model.Record) {
	for i, r := range results {
		fmt.Fprintf(w, "[%d] %s  [%s]  %s  %s\n",
			i+1, r.Timestamp.Local().Format("2006-01-02 15:04"), r.Platform, r.Contact, r.Author)
		fmt.Fprintf(w, "    %s\n", truncate(strings.ReplaceAll(r.Message, "\n", " "), 200))
		if len(r.MediaRefs) > 0 {
			fmt.Fprintf(w, "    media: %s\n", strings.Join(r.MediaRefs, ", "))
		}
		fmt.Fprintln(w)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
