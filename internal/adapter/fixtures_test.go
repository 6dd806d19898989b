package adapter

import (
	"archive/zip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writePackage writes a zip named name into dir with the given entries.
func writePackage(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for entry, body := range entries {
		w, err := zw.Create(entry)
		if err != nil {
			t.Fatalf("create entry %s: %v", entry, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", entry, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
	return path
}

// voiceClip returns a minimal MP4 movie header declaring d.
func voiceClip(d time.Duration) string {
	b := []byte("\x00\x00\x00\x6cmoov\x00\x00\x00\x64mvhd")
	hdr := make([]byte, 20)
	binary.BigEndian.PutUint32(hdr[12:16], 1000)
	binary.BigEndian.PutUint32(hdr[16:20], uint32(d.Milliseconds()))
	return string(append(b, hdr...))
}

var march1 = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
