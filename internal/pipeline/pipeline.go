// Package pipeline runs the batch: every export package is extracted and
// aggregated in turn, then all of them are merged into one report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"time"

	"socialstats/internal/adapter"
	"socialstats/internal/config"
	"socialstats/internal/merge"
	"socialstats/internal/model"
	"socialstats/internal/report"
	"socialstats/internal/session"
	"socialstats/internal/stats"

	"github.com/dustin/go-humanize"
)

// MergeReport is the name of the consolidated report.
const MergeReport = "merge"

// Source is one export package: a single zip, or every WhatsApp chat zip.
type Source struct {
	Platform model.Platform
	Paths    []string
}

// Discover lists the packages found under the export root, one directory per
// platform. Platforms without a directory are skipped.
func Discover(cfg config.Config) ([]Source, error) {
	var out []Source
	for _, p := range model.Platforms {
		paths, err := filepath.Glob(filepath.Join(cfg.PlatformDir(string(p)), "*.zip"))
		if err != nil {
			return nil, fmt.Errorf("list %s packages: %w", p, err)
		}
		if len(paths) == 0 {
			continue
		}
		sort.Strings(paths)
		if p == model.WhatsApp {
			out = append(out, Source{Platform: p, Paths: paths})
			continue
		}
		for _, path := range paths {
			out = append(out, Source{Platform: p, Paths: []string{path}})
		}
	}
	return out, nil
}

// Package is the outcome of one successfully processed source.
type Package struct {
	Name       string
	Source     Source
	Extraction *model.Extraction
	Stats      stats.Result
	// Calls is set when call sessions were reconciled.
	Calls   *session.Summary
	Records []model.Record
}

// Failure records a source that could not be processed.
type Failure struct {
	Source Source
	Err    error
}

// Outcome summarizes a run.
type Outcome struct {
	Packages []Package
	Failed   []Failure
	// Merged is nil when no package produced statistics.
	Merged *merge.Result
}

// Pipeline holds the settings of one run.
type Pipeline struct {
	cfg      config.Config
	loc      *time.Location
	window   *model.TimeFilter
	renderer report.Renderer
	log      *log.Logger
}

// New validates cfg and returns a Pipeline. window may be nil; renderer
// receives every per-package report and then the merged one.
func New(cfg config.Config, window *model.TimeFilter, renderer report.Renderer, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{cfg: cfg, loc: loc, window: window, renderer: renderer, log: logger}, nil
}

func (p *Pipeline) adapterOptions() adapter.Options {
	return adapter.Options{
		MinMessages: p.cfg.MinMessages,
		SkipAudio:   p.cfg.SkipAudio,
		SkipCalls:   p.cfg.SkipCalls,
		Owner:       p.cfg.WhatsAppOwner,
		Location:    p.loc,
		Logger:      p.log,
	}
}

func (p *Pipeline) statsOptions(ext *model.Extraction) stats.Options {
	hours := stats.HoursAll
	if p.cfg.HourPolicy == config.HoursOutgoing {
		hours = stats.HoursOutgoing
	}
	return stats.Options{
		Location:    p.loc,
		MinMessages: p.cfg.MinMessages,
		Hours:       hours,
		Window:      p.window,
		Voice:       ext.Voice,
		Delays:      !ext.OneSided,
	}
}

// Run processes sources one after another. A source that fails is logged and
// recorded in the outcome; only cancellation and render failures stop the run.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (Outcome, error) {
	groups, err := merge.LoadAliases(p.cfg.AliasFile)
	if err != nil {
		return Outcome{}, err
	}
	strategy, err := merge.ParseStrategy(p.cfg.MergeStrategy)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		pkg, err := p.Process(ctx, src)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			p.logFailure(src, err)
			out.Failed = append(out.Failed, Failure{Source: src, Err: err})
			continue
		}
		if err := p.renderer.Render(ctx, p.packageReport(pkg)); err != nil {
			return out, fmt.Errorf("render %s: %w", pkg.Name, err)
		}
		out.Packages = append(out.Packages, pkg)
	}

	merged, err := p.merge(out.Packages, groups, strategy)
	if errors.Is(err, merge.ErrNoInput) {
		p.log.Printf("nothing to merge")
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Merged = &merged

	if err := p.renderer.Render(ctx, report.Report{
		Name:    MergeReport,
		Table:   merged.Table,
		Daily:   merged.Daily,
		Hours:   merged.Hours,
		Records: allRecords(out.Packages),
	}); err != nil {
		return out, fmt.Errorf("render %s: %w", MergeReport, err)
	}
	return out, nil
}

func (p *Pipeline) logFailure(src Source, err error) {
	var se *adapter.StructureError
	if errors.As(err, &se) {
		p.log.Printf("error: %s package skipped: %v", src.Platform, err)
		return
	}
	p.log.Printf("error: %s %v: %v", src.Platform, src.Paths, err)
}

// Process extracts and aggregates a single source.
func (p *Pipeline) Process(ctx context.Context, src Source) (Package, error) {
	a, err := adapter.For(src.Platform)
	if err != nil {
		return Package{}, err
	}
	p.log.Printf("reading %s package %v", src.Platform, src.Paths)
	ext, err := a.Extract(ctx, src.Paths, p.adapterOptions())
	if err != nil {
		return Package{}, fmt.Errorf("extract %s: %w", src.Platform, err)
	}
	if ext.Skipped > 0 {
		p.log.Printf("warning: %s: skipped %d malformed records", src.Platform, ext.Skipped)
	}

	pkg := Package{
		Name:       packageName(ext.Identity),
		Source:     src,
		Extraction: ext,
	}

	agg := stats.NewAggregator(p.statsOptions(ext))
	for _, conv := range ext.Conversations {
		if !agg.Add(conv) {
			continue
		}
		for _, rec := range conv.Records {
			if p.window == nil || p.window.Contains(rec.Timestamp) {
				pkg.Records = append(pkg.Records, rec)
			}
		}
	}
	pkg.Stats = agg.Result()

	if ext.Calls {
		sum := session.Reconcile(ext.Sessions, ext.ChannelContacts)
		addCallTime(pkg.Stats.Table, sum)
		pkg.Calls = &sum
		p.log.Printf("%s: %d calls, %s in total, longest %s (%d unmatched)",
			pkg.Name, sum.Completed, report.FormatDuration(sum.Total), report.FormatDuration(sum.Longest), sum.Orphaned)
	}

	t := pkg.Stats.Totals
	p.log.Printf("%s: loaded %s messages with %s characters",
		pkg.Name, humanize.Comma(t.Messages), humanize.Comma(t.Characters))
	if t.Excluded > 0 {
		p.log.Printf("%s: %d contacts under %d messages left out", pkg.Name, t.Excluded, p.cfg.MinMessages)
	}
	return pkg, nil
}

// addCallTime adds a call duration column. Contacts without calls get zero.
func addCallTime(t *stats.Table, sum session.Summary) {
	t.AddColumn(stats.CallTime, stats.KindDuration)
	for i := 0; i < t.Rows(); i++ {
		contact := t.Get(stats.Contact, i).Text
		t.Set(stats.CallTime, i, stats.Dur(sum.PerContact[contact]))
	}
}

func (p *Pipeline) merge(pkgs []Package, groups []merge.Group, strategy merge.Strategy) (merge.Result, error) {
	inputs := make([]merge.Input, 0, len(pkgs))
	for _, pkg := range pkgs {
		inputs = append(inputs, merge.Input{
			Name:      pkg.Name,
			OneSided:  pkg.Extraction.OneSided,
			Table:     pkg.Stats.Table,
			Daily:     pkg.Stats.Daily,
			Hours:     pkg.Stats.Hours,
			SentHours: pkg.Stats.SentHours,
		})
	}
	res, err := merge.Merge(inputs, groups, strategy)
	if err != nil {
		return res, err
	}
	if merge.NeedsStrategy(inputs) {
		if res.Applied == merge.Estimate {
			p.log.Printf("merge: estimated incoming messages with ratio %.2f", res.Ratio)
		} else {
			p.log.Printf("merge: one-sided packages merged with strategy %s", res.Applied)
		}
	}
	p.log.Printf("merge: %d packages, %d contacts", len(inputs), res.Table.Rows())
	return res, nil
}

func (p *Pipeline) packageReport(pkg Package) report.Report {
	return report.Report{
		Name:     pkg.Name,
		Identity: pkg.Extraction.Identity,
		Table:    pkg.Stats.Table,
		Daily:    pkg.Stats.Daily,
		Hours:    pkg.Stats.Hours,
		Records:  pkg.Records,
	}
}

func packageName(id model.Identity) string {
	if id.Name == "" {
		return string(id.Platform)
	}
	return string(id.Platform) + "_" + id.Name
}

// allRecords returns every package's records in chronological order.
func allRecords(pkgs []Package) []model.Record {
	var out []model.Record
	for _, pkg := range pkgs {
		out = append(out, pkg.Records...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
