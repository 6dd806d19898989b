// Package adapter decodes platform export packages into canonical events.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"
	"unicode/utf8"

	"socialstats/internal/archive"
	"socialstats/internal/media"
	"socialstats/internal/model"
)

// Options tunes one extraction.
type Options struct {
	// MinMessages skips conversations with fewer raw messages before any
	// media lookups are made. 0 keeps everyone.
	MinMessages int

	SkipAudio bool
	SkipCalls bool

	// Owner is the account owner's author name in WhatsApp logs. When empty
	// it is inferred from the chats.
	Owner string

	// Location is the zone wall-clock timestamps are read in. Defaults to UTC.
	Location *time.Location

	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) belowThreshold(n int) bool {
	return o.MinMessages > 0 && n < o.MinMessages
}

// Adapter is implemented once per platform.
//
// A package is the list of files exported together: a single zip for most
// platforms, one zip per chat for WhatsApp.
type Adapter interface {
	Platform() model.Platform
	Identify(paths []string, opts Options) (model.Identity, error)
	Extract(ctx context.Context, paths []string, opts Options) (*model.Extraction, error)
}

// For returns the adapter for a platform.
func For(p model.Platform) (Adapter, error) {
	switch p {
	case model.Discord:
		return Discord{}, nil
	case model.Instagram:
		return Instagram{}, nil
	case model.Snapchat:
		return Snapchat{}, nil
	case model.WhatsApp:
		return WhatsApp{}, nil
	}
	return nil, fmt.Errorf("no adapter for platform %q", p)
}

// collector accumulates conversations and counts skipped records.
type collector struct {
	platform model.Platform
	opts     Options
	ext      *model.Extraction
}

func newCollector(p model.Platform, opts Options) *collector {
	return &collector{platform: p, opts: opts, ext: &model.Extraction{}}
}

// skip logs a record-level failure and moves on.
func (c *collector) skip(err error) {
	c.ext.Skipped++
	c.opts.logger().Printf("warning: %s: %v", c.platform, err)
}

func (c *collector) conversation(contact string) *conversationBuilder {
	return &conversationBuilder{platform: c.platform, conv: model.Conversation{Contact: contact}}
}

func (c *collector) add(b *conversationBuilder) {
	c.ext.Conversations = append(c.ext.Conversations, b.conv)
}

type conversationBuilder struct {
	platform model.Platform
	conv     model.Conversation
}

type message struct {
	at     time.Time
	dir    model.Direction
	author string
	text   string
	chars  int
	voice  *time.Duration
	media  []string
}

func (b *conversationBuilder) add(m message) {
	b.conv.Events = append(b.conv.Events, model.MessageEvent{
		Platform:  b.platform,
		Contact:   b.conv.Contact,
		Timestamp: m.at,
		Direction: m.dir,
		Chars:     m.chars,
		Voice:     m.voice,
	})
	b.conv.Records = append(b.conv.Records, model.Record{
		Platform:  b.platform,
		Contact:   b.conv.Contact,
		Timestamp: m.at,
		Author:    m.author,
		Message:   m.text,
		MediaRefs: m.media,
	})
}

func runes(s string) int { return utf8.RuneCountInString(s) }

func direction(outgoing bool) model.Direction {
	if outgoing {
		return model.Outgoing
	}
	return model.Incoming
}

func onePath(p model.Platform, paths []string) (string, error) {
	if len(paths) != 1 {
		return "", fmt.Errorf("%s: expected one package file, got %d", p, len(paths))
	}
	return paths[0], nil
}

// clipDurations sums the durations of voice clips stored in the package.
// Clips that cannot be read are logged and count as zero.
func (c *collector) clipDurations(p *archive.Package, clips []string) *time.Duration {
	var total time.Duration
	for _, clip := range clips {
		d, err := clipDuration(p, clip)
		if err != nil {
			c.opts.logger().Printf("warning: %s: voice clip %s: %v", c.platform, clip, err)
			continue
		}
		total += d
	}
	return &total
}

func clipDuration(p *archive.Package, name string) (time.Duration, error) {
	data, err := p.ReadFile(name)
	if err != nil {
		return 0, err
	}
	return media.MP4Duration(data)
}

// decodeRecords unmarshals each raw record of entry into T. Records that do
// not decode are skipped and the rest keep their order.
func decodeRecords[T any](c *collector, entry string, raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			c.skip(&RecordError{Entry: entry, Record: strconv.Itoa(i), Err: err})
			continue
		}
		out = append(out, v)
	}
	return out
}
