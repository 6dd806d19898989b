package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"socialstats/internal/archive"
	"socialstats/internal/model"
)

const (
	instagramProfileFile = "personal_information/personal_information/personal_information.json"
	instagramSignupFile  = "security_and_login_information/login_and_profile_creation/signup_details.json"
	instagramInbox       = "your_instagram_activity/messages/inbox/"
)

// Instagram reads "Download your information" packages in JSON format.
type Instagram struct{}

func (Instagram) Platform() model.Platform { return model.Instagram }

type instagramProfile struct {
	ProfileUser []struct {
		StringMapData struct {
			Name struct {
				Value string `json:"value"`
			} `json:"Name"`
		} `json:"string_map_data"`
	} `json:"profile_user"`
}

type instagramSignup struct {
	Registration []struct {
		StringMapData struct {
			Time struct {
				Timestamp int64 `json:"timestamp"`
			} `json:"Time"`
		} `json:"string_map_data"`
	} `json:"account_history_registration_info"`
}

type instagramURI struct {
	URI string `json:"uri"`
}

type instagramMessage struct {
	SenderName  string         `json:"sender_name"`
	TimestampMS int64          `json:"timestamp_ms"`
	Content     *string        `json:"content"`
	AudioFiles  []instagramURI `json:"audio_files"`
	Photos      []instagramURI `json:"photos"`
	Videos      []instagramURI `json:"videos"`
}

type instagramThread struct {
	Messages []json.RawMessage `json:"messages"`
}

func (g Instagram) Identify(paths []string, _ Options) (model.Identity, error) {
	file, err := onePath(model.Instagram, paths)
	if err != nil {
		return model.Identity{}, err
	}
	var id model.Identity
	err = archive.With(file, func(p *archive.Package) error {
		var ierr error
		id, ierr = g.identify(p)
		return ierr
	})
	return id, err
}

func (Instagram) identify(p *archive.Package) (model.Identity, error) {
	var prof instagramProfile
	if err := p.ReadJSON(instagramProfileFile, &prof); err != nil {
		return model.Identity{}, structural(model.Instagram, p.Path(), err)
	}
	if len(prof.ProfileUser) == 0 || prof.ProfileUser[0].StringMapData.Name.Value == "" {
		return model.Identity{}, structural(model.Instagram, p.Path(), fmt.Errorf("%s: no profile name", instagramProfileFile))
	}
	id := model.Identity{Platform: model.Instagram, Name: prof.ProfileUser[0].StringMapData.Name.Value}

	var signup instagramSignup
	if err := p.ReadJSON(instagramSignupFile, &signup); err == nil && len(signup.Registration) > 0 {
		if ts := signup.Registration[0].StringMapData.Time.Timestamp; ts > 0 {
			id.CreatedAt = time.Unix(ts, 0).UTC()
		}
	}
	return id, nil
}

// instagramContact recovers the contact name from a thread directory such as
// "john_doe_123456789": the trailing "_<id>" is dropped.
func instagramContact(dir string) string {
	base := path.Base(dir)
	if i := strings.LastIndex(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}

// instagramThreads groups message_N.json files by thread directory.
func instagramThreads(p *archive.Package) (dirs []string, files map[string][]string) {
	files = map[string][]string{}
	for _, name := range p.Find(instagramInbox, ".json") {
		dir := path.Dir(name)
		if _, ok := files[dir]; !ok {
			dirs = append(dirs, dir)
		}
		files[dir] = append(files[dir], name)
	}
	sort.Strings(dirs)
	return dirs, files
}

func (g Instagram) Extract(ctx context.Context, paths []string, opts Options) (*model.Extraction, error) {
	file, err := onePath(model.Instagram, paths)
	if err != nil {
		return nil, err
	}
	c := newCollector(model.Instagram, opts)
	c.ext.Voice = !opts.SkipAudio

	err = archive.With(file, func(p *archive.Package) error {
		id, err := g.identify(p)
		if err != nil {
			return err
		}
		c.ext.Identity = id

		dirs, files := instagramThreads(p)
		if len(dirs) == 0 {
			return structural(model.Instagram, p.Path(), fmt.Errorf("%s: %w", instagramInbox, archive.ErrMissing))
		}
		for _, dir := range dirs {
			if err := ctx.Err(); err != nil {
				return err
			}
			g.thread(p, instagramContact(dir), files[dir], c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.ext, nil
}

func (Instagram) thread(p *archive.Package, contact string, names []string, c *collector) {
	threads := make(map[string][]json.RawMessage, len(names))
	total := 0
	for _, name := range names {
		var th instagramThread
		if err := p.ReadJSON(name, &th); err != nil {
			c.skip(&RecordError{Entry: name, Err: err})
			continue
		}
		threads[name] = th.Messages
		total += len(th.Messages)
	}
	if c.opts.belowThreshold(total) {
		return
	}
	var msgs []instagramMessage
	for _, name := range names {
		msgs = append(msgs, decodeRecords[instagramMessage](c, name, threads[name])...)
	}

	owner := c.ext.Identity.Name
	b := c.conversation(contact)
	for i, msg := range msgs {
		if msg.TimestampMS <= 0 {
			c.skip(&RecordError{Entry: contact, Record: fmt.Sprint(i), Err: errors.New("missing timestamp_ms")})
			continue
		}
		m := message{
			at:     time.UnixMilli(msg.TimestampMS).UTC(),
			dir:    direction(msg.SenderName == owner),
			author: msg.SenderName,
		}
		if msg.Content != nil {
			m.text = *msg.Content
			m.chars = runes(m.text)
		}
		for _, group := range [][]instagramURI{msg.AudioFiles, msg.Photos, msg.Videos} {
			for _, u := range group {
				m.media = append(m.media, u.URI)
			}
		}
		if len(msg.AudioFiles) > 0 && !c.opts.SkipAudio {
			clips := make([]string, len(msg.AudioFiles))
			for j, a := range msg.AudioFiles {
				clips[j] = a.URI
			}
			m.voice = c.clipDurations(p, clips)
		}
		b.add(m)
	}
	c.add(b)
}
