package adapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"socialstats/internal/archive"
	"socialstats/internal/model"
)

const (
	whatsappChatPrefix = "WhatsApp Chat with "
	whatsappChatSuffix = ".txt"
)

var whatsappLine = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}), (\d{2}:\d{2}) - `)

// WhatsApp reads "Export chat" archives, one zip per conversation. All the
// zips of one account form a single package.
type WhatsApp struct{}

func (WhatsApp) Platform() model.Platform { return model.WhatsApp }

// chatLine is one message of a WhatsApp text log.
type chatLine struct {
	at      time.Time
	author  string
	message string
}

type whatsappChat struct {
	contact string
	lines   []chatLine
}

// parseChat reads a WhatsApp log. A line starting with "DATE, TIME - " opens
// a message whose author is the text before the first ": "; other lines are
// appended to the open message. Openers without an author split are system
// notices and are dropped, as are openers whose date does not parse.
func parseChat(r io.Reader, loc *time.Location, skip func(lineNo int, err error)) ([]chatLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10 MB max line

	var out []chatLine
	var cur *chatLine
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		m := whatsappLine.FindStringSubmatchIndex(line)
		if m == nil {
			if cur != nil {
				cur.message += "\n" + line
			}
			continue
		}

		at, err := parseChatTime(line[m[2]:m[3]], line[m[4]:m[5]], loc)
		if err != nil {
			skip(lineNo, err)
			continue
		}
		author, text, ok := strings.Cut(line[m[1]:], ": ")
		if !ok {
			continue
		}
		if cur != nil {
			out = append(out, *cur)
		}
		cur = &chatLine{at: at, author: author, message: text}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan chat: %w", err)
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out, nil
}

// parseChatTime reads day-first dates with 2 or 4 digit years.
func parseChatTime(date, clock string, loc *time.Location) (time.Time, error) {
	layout := "2/1/2006 15:04"
	if year := date[strings.LastIndex(date, "/")+1:]; len(year) == 2 {
		layout = "2/1/06 15:04"
	}
	t, err := time.ParseInLocation(layout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date+", "+clock, err)
	}
	return t, nil
}

func whatsappContact(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, whatsappChatSuffix)
	return strings.TrimPrefix(base, whatsappChatPrefix)
}

// readChats parses every chat log of the package, sorted by contact.
func (WhatsApp) readChats(ctx context.Context, paths []string, c *collector) ([]whatsappChat, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: no chat archives given", model.WhatsApp)
	}
	loc := c.opts.location()
	var chats []whatsappChat
	for _, file := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := archive.With(file, func(p *archive.Package) error {
			logs := p.Find("", whatsappChatSuffix)
			if len(logs) == 0 {
				return structural(model.WhatsApp, p.Path(), fmt.Errorf("chat log: %w", archive.ErrMissing))
			}
			for _, name := range logs {
				rc, err := p.Open(name)
				if err != nil {
					return structural(model.WhatsApp, p.Path(), err)
				}
				lines, err := parseChat(rc, loc, func(lineNo int, err error) {
					c.skip(&RecordError{Entry: name, Record: fmt.Sprintf("line %d", lineNo), Err: err})
				})
				rc.Close()
				if err != nil {
					return structural(model.WhatsApp, p.Path(), err)
				}
				chats = append(chats, whatsappChat{contact: whatsappContact(name), lines: lines})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(chats, func(i, j int) bool { return chats[i].contact < chats[j].contact })
	return chats, nil
}

// inferOwner returns the single author present in every chat that is not
// that chat's contact.
func inferOwner(chats []whatsappChat) (string, error) {
	var common map[string]bool
	for _, chat := range chats {
		authors := map[string]bool{}
		for _, l := range chat.lines {
			if l.author != chat.contact {
				authors[l.author] = true
			}
		}
		if len(authors) == 0 {
			continue
		}
		if common == nil {
			common = authors
			continue
		}
		for a := range common {
			if !authors[a] {
				delete(common, a)
			}
		}
	}
	if len(common) != 1 {
		names := make([]string, 0, len(common))
		for a := range common {
			names = append(names, a)
		}
		sort.Strings(names)
		return "", fmt.Errorf("cannot tell the account owner apart (candidates %v); set WHATSAPP_OWNER", names)
	}
	for a := range common {
		return a, nil
	}
	return "", nil
}

func (w WhatsApp) Identify(paths []string, opts Options) (model.Identity, error) {
	if opts.Owner != "" {
		return model.Identity{Platform: model.WhatsApp, Name: opts.Owner}, nil
	}
	c := newCollector(model.WhatsApp, opts)
	chats, err := w.readChats(context.Background(), paths, c)
	if err != nil {
		return model.Identity{}, err
	}
	return w.identify(paths, chats, opts)
}

func (WhatsApp) identify(paths []string, chats []whatsappChat, opts Options) (model.Identity, error) {
	owner := opts.Owner
	if owner == "" {
		var err error
		if owner, err = inferOwner(chats); err != nil {
			return model.Identity{}, structural(model.WhatsApp, strings.Join(paths, ","), err)
		}
	}
	return model.Identity{Platform: model.WhatsApp, Name: owner}, nil
}

func (w WhatsApp) Extract(ctx context.Context, paths []string, opts Options) (*model.Extraction, error) {
	c := newCollector(model.WhatsApp, opts)
	chats, err := w.readChats(ctx, paths, c)
	if err != nil {
		return nil, err
	}
	id, err := w.identify(paths, chats, opts)
	if err != nil {
		return nil, err
	}
	c.ext.Identity = id

	for _, chat := range chats {
		if opts.belowThreshold(len(chat.lines)) {
			continue
		}
		b := c.conversation(chat.contact)
		for _, l := range chat.lines {
			b.add(message{
				at:     l.at,
				dir:    direction(l.author == id.Name),
				author: l.author,
				text:   l.message,
				chars:  runes(l.message),
			})
		}
		c.add(b)
	}
	return c.ext, nil
}
