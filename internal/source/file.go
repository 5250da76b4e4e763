package source

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tinytelemetry/dealboard/internal/model"
	"gopkg.in/yaml.v3"
)

// fileDocument is the YAML layout read by FileSource.
type fileDocument struct {
	Slideshows []slideshowDTO `yaml:"slideshows"`
	Stats      []statsDTO     `yaml:"leaderboards"`
	Trends     []trendDTO     `yaml:"trends"`
	Quotes     []quoteDTO     `yaml:"quotes"`
}

// FileSource serves slideshows and payloads from a YAML file. The file is
// re-read on every call so edits show up on the next refresh pass.
type FileSource struct {
	path string

	mu   sync.Mutex
	read func(string) ([]byte, error)
}

// NewFileSource creates a source backed by the YAML file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, read: os.ReadFile}
}

// ParseFileSource builds a source from in-memory YAML, mostly for tests
// and demos.
func ParseFileSource(data []byte) (*FileSource, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("source: parse yaml: %w", err)
	}
	return &FileSource{read: func(string) ([]byte, error) { return data, nil }}, nil
}

func (f *FileSource) load() (*fileDocument, error) {
	f.mu.Lock()
	data, err := f.read(f.path)
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", f.path, err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("source: parse %s: %w", f.path, err)
	}
	return &doc, nil
}

func (f *FileSource) Slideshow(_ context.Context, id string) (*model.Slideshow, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	for _, ss := range doc.Slideshows {
		if ss.ID == id {
			return ss.toModel(), nil
		}
	}
	return nil, fmt.Errorf("slideshow %q: %w", id, ErrNotFound)
}

func (f *FileSource) LeaderboardStats(_ context.Context, leaderboardID string) (*model.LeaderboardStats, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	for _, s := range doc.Stats {
		if s.Leaderboard.ID == leaderboardID {
			return s.toModel(), nil
		}
	}
	return nil, fmt.Errorf("leaderboard %q: %w", leaderboardID, ErrNotFound)
}

func (f *FileSource) TrendHistory(_ context.Context, leaderboardID string) (*model.TrendHistory, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	for _, t := range doc.Trends {
		if t.LeaderboardID == leaderboardID {
			return t.toModel(), nil
		}
	}
	return nil, fmt.Errorf("trend %q: %w", leaderboardID, ErrNotFound)
}

func (f *FileSource) Quotes(_ context.Context) ([]model.Quote, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return quotesToModel(doc.Quotes), nil
}
