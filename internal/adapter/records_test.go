package adapter

import (
	"context"
	"fmt"
	"testing"

	"socialstats/internal/model"
	"socialstats/internal/stats"
)

// aggregate folds every conversation of ext and returns the totals.
func aggregate(ext *model.Extraction) stats.Totals {
	agg := stats.NewAggregator(stats.Options{})
	for _, conv := range ext.Conversations {
		agg.Add(conv)
	}
	return agg.Result().Totals
}

// --- malformed records ---

func TestSnapchatExtract_WhenRecordsMalformed_ShouldSkipOnlyThoseRecords(t *testing.T) {
	ms := march1.UnixMilli()
	path := writePackage(t, t.TempDir(), "snapchat.zip", map[string]string{
		snapchatAccountFile: `{"Basic Information": {"Username": "snapme"}}`,
		snapchatHistoryFile: fmt.Sprintf(`{"amy": [
			{"From": "amy", "Media Type": "TEXT", "Content": "a", "IsSender": false, "Created(microseconds)": %d},
			{"From": "amy", "Media Type": "TEXT", "Content": "b", "IsSender": "no", "Created(microseconds)": %d},
			{"From": "snapme", "Media Type": "TEXT", "Content": "c", "IsSender": true, "Created(microseconds)": %d},
			{"From": "amy", "Media Type": "TEXT", "Content": "d", "IsSender": false, "Created(microseconds)": "soon"}
		]}`, ms, ms, ms+60000),
	})

	ext, err := Snapchat{}.Extract(context.Background(), []string{path}, Options{})
	if err != nil {
		t.Fatalf("expected package to survive malformed records, got %v", err)
	}
	if ext.Skipped != 2 {
		t.Errorf("expected 2 skipped records, got %d", ext.Skipped)
	}
	if got := aggregate(ext).Messages; got != 2 {
		t.Errorf("expected 2 aggregated messages, got %d", got)
	}
}

func TestInstagramExtract_WhenRecordsMalformed_ShouldSkipOnlyThoseRecords(t *testing.T) {
	ms := march1.UnixMilli()
	path := writePackage(t, t.TempDir(), "instagram.zip", map[string]string{
		instagramProfileFile: igProfile,
		igAlice + "message_1.json": fmt.Sprintf(`{"messages": [
			{"sender_name": "alice", "timestamp_ms": %d, "content": "one"},
			{"sender_name": "alice", "timestamp_ms": "bad", "content": "lost"},
			{"sender_name": "Me Myself", "timestamp_ms": %d, "content": "two"}
		]}`, ms, ms+1000),
	})

	ext, err := Instagram{}.Extract(context.Background(), []string{path}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.Skipped != 1 {
		t.Errorf("expected 1 skipped record, got %d", ext.Skipped)
	}
	if got := aggregate(ext).Messages; got != 2 {
		t.Errorf("expected 2 aggregated messages, got %d", got)
	}
}

func TestDiscordExtract_WhenRecordsMalformed_ShouldSkipOnlyThoseRecords(t *testing.T) {
	path := discordPackage(t, map[string]string{
		"Messages/c222/messages.json": fmt.Sprintf(`[
			{"ID": "%d", "Contents": "a"},
			{"ID": {"nested": true}, "Contents": "b"},
			{"ID": "%d", "Contents": ["c"]},
			{"ID": "%d", "Contents": "d"}
		]`, snowflake(march1), snowflake(march1), snowflake(march1)),
	})

	ext, err := Discord{}.Extract(context.Background(), []string{path}, Options{SkipCalls: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var bob *model.Conversation
	for i := range ext.Conversations {
		if ext.Conversations[i].Contact == "bob" {
			bob = &ext.Conversations[i]
		}
	}
	if bob == nil || len(bob.Events) != 2 {
		t.Fatalf("expected bob to keep 2 well-formed messages, got %+v", bob)
	}
	// One malformed id in alice's channel plus two here.
	if ext.Skipped != 3 {
		t.Errorf("expected 3 skipped records, got %d", ext.Skipped)
	}
	// alice 2 + bob 2, quiet has none.
	if got := aggregate(ext).Messages; got != 4 {
		t.Errorf("expected 4 aggregated messages, got %d", got)
	}
}
