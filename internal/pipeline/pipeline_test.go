package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"socialstats/internal/config"
	"socialstats/internal/merge"
	"socialstats/internal/model"
	"socialstats/internal/report"
	"socialstats/internal/stats"
)

var march1 = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

const aliceLog = `01/03/2024, 10:00 - Alice: hi
01/03/2024, 10:01 - Bob: hello
01/03/2024, 10:02 - Alice: how are you
01/03/2024, 10:03 - Bob: fine
01/03/2024, 10:04 - Alice: great
`

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
}

func snowflake(t time.Time) uint64 {
	return uint64(t.UnixMilli()-1420070400000) << 22
}

// exportRoot lays out a Discord package, a WhatsApp chat with Alice and an
// Instagram package missing its profile file.
func exportRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "Discord", "package.zip"), map[string]string{
		"Account/user.json":   fmt.Sprintf(`{"id": "%d", "username": "neo"}`, snowflake(march1.AddDate(-3, 0, 0))),
		"Messages/index.json": `{"111": "Direct Message with alice"}`,
		"Messages/c111/messages.json": fmt.Sprintf(`[{"ID": "%d", "Contents": "yo"}, {"ID": "%d", "Contents": "sup"}]`,
			snowflake(march1), snowflake(march1.Add(5*time.Minute))),
	})
	writeZip(t, filepath.Join(root, "WhatsApp", "WhatsApp Chat with Alice.zip"), map[string]string{
		"WhatsApp Chat with Alice.txt": aliceLog,
	})
	writeZip(t, filepath.Join(root, "Instagram", "broken.zip"), map[string]string{
		"readme.txt": "no profile here",
	})
	return root
}

type captureRenderer struct {
	reports []report.Report
}

func (c *captureRenderer) Render(_ context.Context, r report.Report) error {
	c.reports = append(c.reports, r)
	return nil
}

func testConfig(t *testing.T, root string, vars map[string]string) config.Config {
	t.Helper()
	env := map[string]string{
		"EXPORT_ROOT":    root,
		"ALIAS_FILE":     filepath.Join(root, "merge_map.csv"),
		"STATS_TIMEZONE": "UTC",
	}
	for k, v := range vars {
		env[k] = v
	}
	cfg, err := config.FromEnv(env)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

// --- Discover ---

func TestDiscover_ShouldListPackagesInPlatformOrder(t *testing.T) {
	root := exportRoot(t)
	sources, err := Discover(testConfig(t, root, nil))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %+v", sources)
	}
	got := []model.Platform{sources[0].Platform, sources[1].Platform, sources[2].Platform}
	want := []model.Platform{model.Discord, model.Instagram, model.WhatsApp}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected platform order %v, got %v", want, got)
			break
		}
	}
}

func TestDiscover_WhenSeveralWhatsAppChats_ShouldGroupThemIntoOneSource(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "WhatsApp", "WhatsApp Chat with Alice.zip"), map[string]string{"WhatsApp Chat with Alice.txt": aliceLog})
	writeZip(t, filepath.Join(root, "WhatsApp", "WhatsApp Chat with Carol.zip"), map[string]string{"WhatsApp Chat with Carol.txt": aliceLog})

	sources, err := Discover(testConfig(t, root, nil))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(sources) != 1 || len(sources[0].Paths) != 2 {
		t.Fatalf("expected one WhatsApp source with 2 paths, got %+v", sources)
	}
}

func TestDiscover_WhenExportRootEmpty_ShouldReturnNothing(t *testing.T) {
	sources, err := Discover(testConfig(t, t.TempDir(), nil))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %+v", sources)
	}
}

// --- New ---

func TestNew_WhenConfigInvalid_ShouldReturnError(t *testing.T) {
	cfg := config.Config{HourPolicy: "sometimes", MergeStrategy: "keep-all", SnapshotFormat: "sqlite"}
	if _, err := New(cfg, nil, &captureRenderer{}, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

// --- Run ---

func TestRun_ShouldIsolateFailingPackageAndMergeTheRest(t *testing.T) {
	root := exportRoot(t)
	if err := os.WriteFile(filepath.Join(root, "merge_map.csv"), []byte("# people\nAlice,alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t, root, map[string]string{"MERGE_STRATEGY": "estimate"})
	sources, err := Discover(cfg)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	var logs bytes.Buffer
	rr := &captureRenderer{}
	p, err := New(cfg, nil, rr, log.New(&logs, "", 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := p.Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(out.Packages) != 2 || len(out.Failed) != 1 {
		t.Fatalf("expected 2 packages and 1 failure, got %d and %d", len(out.Packages), len(out.Failed))
	}
	if out.Failed[0].Source.Platform != model.Instagram {
		t.Errorf("expected Instagram to fail, got %s", out.Failed[0].Source.Platform)
	}
	if !strings.Contains(logs.String(), "Instagram package skipped") {
		t.Errorf("expected structure failure logged, got:\n%s", logs.String())
	}

	names := make([]string, len(rr.reports))
	for i, r := range rr.reports {
		names[i] = r.Name
	}
	if strings.Join(names, ",") != "Discord_neo,WhatsApp_Bob,merge" {
		t.Errorf("unexpected report order %v", names)
	}

	m := out.Merged
	if m == nil {
		t.Fatal("expected a merged result")
	}
	if m.Applied != merge.Estimate {
		t.Errorf("expected estimate strategy, got %s", m.Applied)
	}
	if m.Table.Rows() != 1 {
		t.Fatalf("expected aliases folded into one row, got %d", m.Table.Rows())
	}
	// WhatsApp 5 plus Discord 2 sent and round(2 * 2/3) estimated.
	if got := m.Table.Get(stats.Messages, 0).Num; got != 8 {
		t.Errorf("expected 8 messages, got %d", got)
	}
	if got := m.Table.Get(stats.Contact, 0).Text; got != "Alice" {
		t.Errorf("expected canonical contact 'Alice', got %q", got)
	}
	if got := m.Daily.Get(stats.DateOf(march1), "Alice"); got != (stats.Pair{Out: 4, In: 4}) {
		t.Errorf("expected daily (4, 4), got %+v", got)
	}
	if m.Hours[10] != 7 {
		t.Errorf("expected 7 messages at 10h, got %d", m.Hours[10])
	}
	if merged := rr.reports[2]; len(merged.Records) != 7 {
		t.Errorf("expected 7 records in merged report, got %d", len(merged.Records))
	}
}

func TestRun_WhenDiscordPackage_ShouldAddCallTimeColumn(t *testing.T) {
	root := exportRoot(t)
	cfg := testConfig(t, root, nil)
	p, err := New(cfg, nil, &captureRenderer{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pkg, err := p.Process(context.Background(), Source{
		Platform: model.Discord,
		Paths:    []string{filepath.Join(root, "Discord", "package.zip")},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !pkg.Stats.Table.Has(stats.CallTime) || pkg.Calls == nil {
		t.Error("expected call time column and summary")
	}
	if pkg.Stats.Table.Has(stats.DelaySent) {
		t.Error("expected no delay columns for a one-sided package")
	}
}

func TestRun_WhenCallsSkipped_ShouldOmitCallTimeColumn(t *testing.T) {
	root := exportRoot(t)
	cfg := testConfig(t, root, map[string]string{"SKIP_CALL_PROCESS": "true"})
	p, err := New(cfg, nil, &captureRenderer{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pkg, err := p.Process(context.Background(), Source{
		Platform: model.Discord,
		Paths:    []string{filepath.Join(root, "Discord", "package.zip")},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if pkg.Stats.Table.Has(stats.CallTime) || pkg.Calls != nil {
		t.Error("expected no call time when calls are skipped")
	}
}

func TestRun_WhenWindowSet_ShouldDropOutOfWindowRecords(t *testing.T) {
	root := exportRoot(t)
	since := march1.Add(2 * time.Minute)
	p, err := New(testConfig(t, root, nil), &model.TimeFilter{Since: &since}, &captureRenderer{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pkg, err := p.Process(context.Background(), Source{
		Platform: model.WhatsApp,
		Paths:    []string{filepath.Join(root, "WhatsApp", "WhatsApp Chat with Alice.zip")},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if pkg.Stats.Totals.Messages != 3 || len(pkg.Records) != 3 {
		t.Errorf("expected 3 messages and records in window, got %d and %d",
			pkg.Stats.Totals.Messages, len(pkg.Records))
	}
}

func TestRun_WhenNoSources_ShouldRenderNothing(t *testing.T) {
	rr := &captureRenderer{}
	p, err := New(testConfig(t, t.TempDir(), nil), nil, rr, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Merged != nil || len(rr.reports) != 0 {
		t.Errorf("expected no output, got %d reports", len(rr.reports))
	}
}

func TestRun_WhenContextCancelled_ShouldStop(t *testing.T) {
	root := exportRoot(t)
	cfg := testConfig(t, root, nil)
	sources, err := Discover(cfg)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New(cfg, nil, &captureRenderer{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := p.Run(ctx, sources); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
