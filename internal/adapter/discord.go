package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"socialstats/internal/archive"
	"socialstats/internal/model"
)

const (
	discordEpochMillis  = 1420070400000 // 2015-01-01T00:00:00Z
	directMessagePrefix = "Direct Message with "

	discordAccountFile = "Account/user.json"
	discordIndexFile   = "Messages/index.json"
)

var discordChannelPattern = regexp.MustCompile(`^Messages/c(\d+)/messages\.json$`)

// Discord reads data packages requested from Discord privacy settings.
// Only the owner's messages are exported.
type Discord struct{}

func (Discord) Platform() model.Platform { return model.Discord }

type discordUser struct {
	ID       json.Number `json:"id"`
	Username string      `json:"username"`
}

type discordMessage struct {
	ID          json.Number `json:"ID"`
	Contents    string      `json:"Contents"`
	Attachments string      `json:"Attachments"`
}

type discordEvent struct {
	EventType       string `json:"event_type"`
	RTCConnectionID string `json:"rtc_connection_id"`
	ChannelID       string `json:"channel_id"`
	Timestamp       string `json:"timestamp"`
}

// SnowflakeTime decodes the creation instant embedded in a Discord id.
func SnowflakeTime(id uint64) time.Time {
	return time.UnixMilli(discordEpochMillis + int64(id>>22)).UTC()
}

func parseSnowflake(n json.Number) (time.Time, error) {
	id, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("snowflake %q: %w", n, err)
	}
	return SnowflakeTime(id), nil
}

func (d Discord) Identify(paths []string, _ Options) (model.Identity, error) {
	path, err := onePath(model.Discord, paths)
	if err != nil {
		return model.Identity{}, err
	}
	var id model.Identity
	err = archive.With(path, func(p *archive.Package) error {
		var ierr error
		id, ierr = d.identify(p)
		return ierr
	})
	return id, err
}

func (Discord) identify(p *archive.Package) (model.Identity, error) {
	var u discordUser
	if err := p.ReadJSON(discordAccountFile, &u); err != nil {
		return model.Identity{}, structural(model.Discord, p.Path(), err)
	}
	if u.Username == "" {
		return model.Identity{}, structural(model.Discord, p.Path(), fmt.Errorf("%s: no username", discordAccountFile))
	}
	id := model.Identity{Platform: model.Discord, Name: u.Username}
	if created, err := parseSnowflake(u.ID); err == nil {
		id.CreatedAt = created
	}
	return id, nil
}

func (d Discord) Extract(ctx context.Context, paths []string, opts Options) (*model.Extraction, error) {
	path, err := onePath(model.Discord, paths)
	if err != nil {
		return nil, err
	}
	c := newCollector(model.Discord, opts)
	c.ext.OneSided = true
	c.ext.Calls = !opts.SkipCalls

	err = archive.With(path, func(p *archive.Package) error {
		id, err := d.identify(p)
		if err != nil {
			return err
		}
		c.ext.Identity = id
		index, err := discordIndex(p)
		if err != nil {
			return err
		}
		c.ext.ChannelContacts = index

		for _, name := range p.Find("Messages/", "/messages.json") {
			if err := ctx.Err(); err != nil {
				return err
			}
			m := discordChannelPattern.FindStringSubmatch(name)
			if m == nil {
				continue
			}
			contact, ok := index[m[1]]
			if !ok {
				continue
			}
			if err := d.channel(p, name, contact, c); err != nil {
				return err
			}
		}

		if opts.SkipCalls {
			return nil
		}
		return d.sessions(ctx, p, c)
	})
	if err != nil {
		return nil, err
	}
	return c.ext, nil
}

func discordIndex(p *archive.Package) (map[string]string, error) {
	index := map[string]string{}
	if err := p.ReadJSON(discordIndexFile, &index); err != nil {
		return nil, structural(model.Discord, p.Path(), err)
	}
	for id, name := range index {
		index[id] = strings.TrimPrefix(name, directMessagePrefix)
	}
	return index, nil
}

func (Discord) channel(p *archive.Package, name, contact string, c *collector) error {
	var raws []json.RawMessage
	if err := p.ReadJSON(name, &raws); err != nil {
		c.skip(&RecordError{Entry: name, Err: err})
		return nil
	}
	if c.opts.belowThreshold(len(raws)) {
		return nil
	}
	msgs := decodeRecords[discordMessage](c, name, raws)

	b := c.conversation(contact)
	for _, msg := range msgs {
		at, err := parseSnowflake(msg.ID)
		if err != nil {
			c.skip(&RecordError{Entry: name, Record: msg.ID.String(), Err: err})
			continue
		}
		b.add(message{
			at:     at,
			dir:    model.Outgoing,
			author: c.ext.Identity.Name,
			text:   msg.Contents,
			chars:  runes(msg.Contents),
			media:  strings.Fields(msg.Attachments),
		})
	}
	c.add(b)
	return nil
}

// sessions scans the analytics event logs for voice channel joins and leaves.
func (Discord) sessions(ctx context.Context, p *archive.Package, c *collector) error {
	for _, name := range p.Names() {
		if !strings.Contains(name, "events") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := p.Open(name)
		if err != nil {
			c.skip(&RecordError{Entry: name, Err: err})
			continue
		}
		err = scanDiscordEvents(rc, name, c)
		rc.Close()
		if err != nil {
			c.skip(&RecordError{Entry: name, Err: err})
		}
	}
	return nil
}

func scanDiscordEvents(r io.Reader, name string, c *collector) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10 MB max line

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev discordEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			c.skip(&RecordError{Entry: name, Record: "line " + strconv.Itoa(lineNo), Err: err})
			continue
		}
		var kind model.HalfKind
		switch ev.EventType {
		case "join_voice_channel":
			kind = model.Start
		case "leave_voice_channel":
			kind = model.End
		default:
			continue
		}
		if ev.RTCConnectionID == "" {
			continue
		}
		at, err := parseDiscordTimestamp(ev.Timestamp)
		if err != nil {
			c.skip(&RecordError{Entry: name, Record: "line " + strconv.Itoa(lineNo), Err: err})
			continue
		}
		c.ext.Sessions = append(c.ext.Sessions, model.SessionHalf{
			ConnectionID: ev.RTCConnectionID,
			ChannelID:    ev.ChannelID,
			Kind:         kind,
			Timestamp:    at,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan events: %w", err)
	}
	return nil
}

func parseDiscordTimestamp(raw string) (time.Time, error) {
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t, nil
}
