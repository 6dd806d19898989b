package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"socialstats/internal/archive"
	"socialstats/internal/model"
)

const (
	igProfile = `{"profile_user": [{"string_map_data": {"Name": {"value": "Me Myself"}}}]}`
	igSignup  = `{"account_history_registration_info": [{"string_map_data": {"Time": {"timestamp": 1600000000}}}]}`
	igAlice   = "your_instagram_activity/messages/inbox/alice_123456/"
)

func instagramPackage(t *testing.T) string {
	t.Helper()
	ms := march1.UnixMilli()
	return writePackage(t, t.TempDir(), "instagram.zip", map[string]string{
		instagramProfileFile: igProfile,
		instagramSignupFile:  igSignup,
		igAlice + "message_1.json": fmt.Sprintf(`{"messages": [
			{"sender_name": "alice", "timestamp_ms": %d, "audio_files": [{"uri": "%saudio/clip.mp4"}]},
			{"sender_name": "Me Myself", "timestamp_ms": %d, "content": "hey you"}
		]}`, ms+120000, igAlice, ms+60000),
		igAlice + "message_2.json": fmt.Sprintf(`{"messages": [
			{"sender_name": "alice", "timestamp_ms": %d, "content": "first", "photos": [{"uri": "p.jpg"}]},
			{"sender_name": "alice", "content": "no time"}
		]}`, ms),
		igAlice + "audio/clip.mp4": voiceClip(4 * time.Second),
		"your_instagram_activity/messages/inbox/bob_smith_999/message_1.json": fmt.Sprintf(
			`{"messages": [{"sender_name": "bob smith", "timestamp_ms": %d, "content": "x"}]}`, ms),
	})
}

func TestInstagramContact_ShouldDropTrailingThreadID(t *testing.T) {
	cases := map[string]string{
		"inbox/alice_123456":  "alice",
		"inbox/bob_smith_999": "bob_smith",
		"inbox/nounderscore":  "nounderscore",
	}
	for in, want := range cases {
		if got := instagramContact(in); got != want {
			t.Errorf("instagramContact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstagramExtract_ShouldGroupFilesPerThread(t *testing.T) {
	ext, err := Instagram{}.Extract(context.Background(), []string{instagramPackage(t)}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.OneSided {
		t.Error("expected two-sided extraction")
	}
	if ext.Identity.Name != "Me Myself" || !ext.Identity.CreatedAt.Equal(time.Unix(1600000000, 0)) {
		t.Errorf("unexpected identity %+v", ext.Identity)
	}
	if len(ext.Conversations) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(ext.Conversations))
	}
	alice := ext.Conversations[0]
	if alice.Contact != "alice" || len(alice.Events) != 3 {
		t.Fatalf("expected alice with 3 events, got %q with %d", alice.Contact, len(alice.Events))
	}
	if ext.Skipped != 1 {
		t.Errorf("expected the message without timestamp to be skipped, got %d", ext.Skipped)
	}

	voice := alice.Events[0]
	if voice.Direction != model.Incoming || voice.Voice == nil || *voice.Voice != 4*time.Second {
		t.Errorf("expected 4s incoming voice clip, got %+v", voice)
	}
	mine := alice.Events[1]
	if mine.Direction != model.Outgoing || mine.Chars != 7 {
		t.Errorf("expected outgoing 7-char message, got %+v", mine)
	}
	if refs := alice.Records[2].MediaRefs; len(refs) != 1 || refs[0] != "p.jpg" {
		t.Errorf("expected photo ref, got %v", refs)
	}
}

func TestInstagramExtract_WhenSkipAudio_ShouldNotReadClips(t *testing.T) {
	ext, err := Instagram{}.Extract(context.Background(), []string{instagramPackage(t)}, Options{SkipAudio: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.Conversations[0].Events[0].Voice != nil {
		t.Error("expected no voice duration when audio is skipped")
	}
	if ext.Voice {
		t.Error("expected Voice unset when audio is skipped")
	}
}

func TestInstagramExtract_WhenProfileMissing_ShouldReturnStructureError(t *testing.T) {
	path := writePackage(t, t.TempDir(), "instagram.zip", map[string]string{
		igAlice + "message_1.json": `{"messages": []}`,
	})
	_, err := Instagram{}.Extract(context.Background(), []string{path}, Options{})
	var serr *StructureError
	if !errors.As(err, &serr) || serr.Platform != model.Instagram {
		t.Fatalf("expected Instagram StructureError, got %v", err)
	}
}

func TestInstagramExtract_WhenInboxEmpty_ShouldReturnStructureError(t *testing.T) {
	path := writePackage(t, t.TempDir(), "instagram.zip", map[string]string{
		instagramProfileFile: igProfile,
	})
	_, err := Instagram{}.Extract(context.Background(), []string{path}, Options{})
	if !errors.Is(err, archive.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestInstagramIdentify_WhenSignupMissing_ShouldLeaveCreationZero(t *testing.T) {
	path := writePackage(t, t.TempDir(), "instagram.zip", map[string]string{
		instagramProfileFile: igProfile,
	})
	id, err := Instagram{}.Identify([]string{path}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !id.CreatedAt.IsZero() {
		t.Errorf("expected zero creation time, got %v", id.CreatedAt)
	}
}
