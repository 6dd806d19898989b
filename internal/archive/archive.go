// Package archive gives read-only access to exported zip packages.
package archive

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrMissing is returned when a required entry is absent from a package.
var ErrMissing = errors.New("entry not found in package")

// Package is an open zip archive. Close releases the underlying file.
type Package struct {
	path  string
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

// Open opens the zip archive at path for reading.
func Open(path string) (*Package, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open package %s: %w", path, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return &Package{path: path, zr: zr, files: files}, nil
}

// With opens the package, runs fn and closes the package whatever fn returns.
func With(path string, fn func(*Package) error) (err error) {
	p, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(p)
}

// Path returns the file the package was opened from.
func (p *Package) Path() string { return p.path }

// Close releases the archive handle.
func (p *Package) Close() error {
	return p.zr.Close()
}

// Has reports whether the package contains the named entry.
func (p *Package) Has(name string) bool {
	_, ok := p.files[name]
	return ok
}

// Names returns the names of all non-directory entries, sorted.
func (p *Package) Names() []string {
	out := make([]string, 0, len(p.files))
	for name, f := range p.files {
		if f.FileInfo().IsDir() {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Find returns the sorted entry names matching both prefix and suffix.
func (p *Package) Find(prefix, suffix string) []string {
	var out []string
	for _, name := range p.Names() {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			out = append(out, name)
		}
	}
	return out
}

// Open opens a single entry. The caller closes the reader.
func (p *Package) Open(name string) (io.ReadCloser, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrMissing)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return rc, nil
}

// ReadFile returns the full contents of an entry.
func (p *Package) ReadFile(name string) ([]byte, error) {
	rc, err := p.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// ReadJSON decodes an entry into v.
func (p *Package) ReadJSON(name string, v any) error {
	rc, err := p.Open(name)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
