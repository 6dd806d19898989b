package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"socialstats/internal/archive"
	"socialstats/internal/model"
)

const (
	snapchatAccountFile = "json/account.json"
	snapchatHistoryFile = "json/chat_history.json"
	snapchatMediaDir    = "chat_media/"

	snapchatCreatedLayout = "2006-01-02 15:04:05 MST"

	// Epoch values above this are read as microseconds, below as milliseconds.
	microsecondThreshold = 1e14
)

// Snapchat reads "My Data" packages.
type Snapchat struct{}

func (Snapchat) Platform() model.Platform { return model.Snapchat }

type snapchatAccount struct {
	Basic struct {
		Username     string `json:"Username"`
		CreationDate string `json:"Creation Date"`
	} `json:"Basic Information"`
}

type snapchatMessage struct {
	From      string `json:"From"`
	MediaType string `json:"Media Type"`
	Content   string `json:"Content"`
	IsSender  bool   `json:"IsSender"`
	Created   int64  `json:"Created(microseconds)"`
	MediaIDs  string `json:"Media IDs"`
}

func (s Snapchat) Identify(paths []string, _ Options) (model.Identity, error) {
	file, err := onePath(model.Snapchat, paths)
	if err != nil {
		return model.Identity{}, err
	}
	var id model.Identity
	err = archive.With(file, func(p *archive.Package) error {
		var ierr error
		id, ierr = s.identify(p)
		return ierr
	})
	return id, err
}

func (Snapchat) identify(p *archive.Package) (model.Identity, error) {
	var acc snapchatAccount
	if err := p.ReadJSON(snapchatAccountFile, &acc); err != nil {
		return model.Identity{}, structural(model.Snapchat, p.Path(), err)
	}
	if acc.Basic.Username == "" {
		return model.Identity{}, structural(model.Snapchat, p.Path(), fmt.Errorf("%s: no username", snapchatAccountFile))
	}
	id := model.Identity{Platform: model.Snapchat, Name: acc.Basic.Username}
	if t, err := time.Parse(snapchatCreatedLayout, acc.Basic.CreationDate); err == nil {
		id.CreatedAt = t.UTC()
	}
	return id, nil
}

// snapchatTime converts the exported creation stamp. The field is labelled
// microseconds but real packages carry milliseconds.
func snapchatTime(v int64) time.Time {
	if v > microsecondThreshold {
		return time.UnixMicro(v).UTC()
	}
	return time.UnixMilli(v).UTC()
}

// snapchatMedia indexes chat_media files by the media id embedded in their
// names: the third "_" separated field of the entry path, without extension.
func snapchatMedia(p *archive.Package) map[string]string {
	out := map[string]string{}
	for _, name := range p.Find(snapchatMediaDir, "") {
		parts := strings.Split(name, "_")
		if len(parts) < 3 {
			continue
		}
		key, _, _ := strings.Cut(parts[2], ".")
		if key != "" {
			out[key] = name
		}
	}
	return out
}

func splitMediaIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, "|") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (s Snapchat) Extract(ctx context.Context, paths []string, opts Options) (*model.Extraction, error) {
	file, err := onePath(model.Snapchat, paths)
	if err != nil {
		return nil, err
	}
	c := newCollector(model.Snapchat, opts)
	c.ext.Voice = !opts.SkipAudio

	err = archive.With(file, func(p *archive.Package) error {
		id, err := s.identify(p)
		if err != nil {
			return err
		}
		c.ext.Identity = id

		history := map[string][]json.RawMessage{}
		if err := p.ReadJSON(snapchatHistoryFile, &history); err != nil {
			return structural(model.Snapchat, p.Path(), err)
		}

		var mediaFiles map[string]string
		if !opts.SkipAudio {
			mediaFiles = snapchatMedia(p)
		}

		contacts := make([]string, 0, len(history))
		for contact := range history {
			contacts = append(contacts, contact)
		}
		sort.Strings(contacts)

		for _, contact := range contacts {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.chat(p, contact, history[contact], mediaFiles, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.ext, nil
}

func (Snapchat) chat(p *archive.Package, contact string, raws []json.RawMessage, mediaFiles map[string]string, c *collector) {
	if c.opts.belowThreshold(len(raws)) {
		return
	}
	msgs := decodeRecords[snapchatMessage](c, snapchatHistoryFile+": "+contact, raws)
	b := c.conversation(contact)
	for i, msg := range msgs {
		if msg.Created <= 0 {
			c.skip(&RecordError{Entry: contact, Record: fmt.Sprint(i), Err: errors.New("missing creation time")})
			continue
		}
		ids := splitMediaIDs(msg.MediaIDs)
		m := message{
			at:     snapchatTime(msg.Created),
			dir:    direction(msg.IsSender),
			author: msg.From,
			media:  ids,
		}
		switch msg.MediaType {
		case "TEXT":
			m.text = msg.Content
			m.chars = runes(msg.Content)
		case "NOTE":
			if mediaFiles != nil {
				m.voice = c.noteDuration(p, ids, mediaFiles)
			}
		}
		b.add(m)
	}
	c.add(b)
}

func (c *collector) noteDuration(p *archive.Package, ids []string, files map[string]string) *time.Duration {
	var clips []string
	for _, id := range ids {
		if name, ok := files[id]; ok {
			clips = append(clips, name)
		}
	}
	if len(clips) == 0 {
		return nil
	}
	return c.clipDurations(p, clips)
}
