// Package state keeps per-source statistics and recent search history in a YAML file.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

const (
	DefaultPath       = "instance/scout_state.yaml"
	DefaultMaxHistory = 100
)

// SourceStats accumulates the outcomes of one source.
type SourceStats struct {
	Queried     int            `yaml:"queried"`
	Succeeded   int            `yaml:"succeeded"`
	Candidates  int            `yaml:"candidates"`
	Failures    map[string]int `yaml:"failures,omitempty"`
	LastFailure string         `yaml:"last_failure,omitempty"`
	LastSeen    time.Time      `yaml:"last_seen"`
}

// SuccessRate is the share of successful queries, or 0 before the first query.
func (s SourceStats) SuccessRate() float64 {
	if s.Queried == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Queried)
}

// Search is one entry of the search history.
type Search struct {
	ID         string    `yaml:"id"`
	Keywords   string    `yaml:"keywords"`
	Location   string    `yaml:"location,omitempty"`
	Skills     []string  `yaml:"skills,omitempty"`
	TotalFound int       `yaml:"total_found"`
	At         time.Time `yaml:"at"`
}

// Snapshot is the persisted document.
type Snapshot struct {
	Sources  map[string]SourceStats `yaml:"sources"`
	Searches []Search               `yaml:"searches"`
}

// Store is safe for concurrent use and implements sourcing.Recorder.
// Nothing is written until Save is called.
type Store struct {
	mu         sync.Mutex
	path       string
	maxHistory int
	now        func() time.Time
	data       Snapshot
}

type Option func(*Store)

// WithMaxHistory bounds the number of remembered searches.
func WithMaxHistory(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{
		path:       path,
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
		data:       Snapshot{Sources: make(map[string]SourceStats)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the file. A missing file leaves the store empty.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state %q: %w", s.path, err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode state %q: %w", s.path, err)
	}
	if snap.Sources == nil {
		snap.Sources = make(map[string]SourceStats)
	}

	s.mu.Lock()
	s.data = snap
	s.mu.Unlock()
	return nil
}

// Save writes the file atomically, creating parent directories.
func (s *Store) Save() error {
	s.mu.Lock()
	raw, err := yaml.Marshal(s.data)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func (s *Store) RecordSource(source string, candidates int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.data.Sources[source]
	stats.Queried++
	stats.LastSeen = s.now().UTC()
	if err != nil {
		if stats.Failures == nil {
			stats.Failures = make(map[string]int)
		}
		stats.Failures[sourcing.FailureTag(err)]++
		stats.LastFailure = err.Error()
	} else {
		stats.Succeeded++
		stats.Candidates += candidates
	}
	s.data.Sources[source] = stats
}

func (s *Store) RecordSearch(searchID string, req sourcing.SearchRequest, totalFound int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Searches = append(s.data.Searches, Search{
		ID:         searchID,
		Keywords:   req.Keywords,
		Location:   req.Location,
		Skills:     append([]string(nil), req.Skills...),
		TotalFound: totalFound,
		At:         s.now().UTC(),
	})
	if extra := len(s.data.Searches) - s.maxHistory; extra > 0 {
		s.data.Searches = append([]Search(nil), s.data.Searches[extra:]...)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		Sources:  make(map[string]SourceStats, len(s.data.Sources)),
		Searches: append([]Search(nil), s.data.Searches...),
	}
	for name, stats := range s.data.Sources {
		if stats.Failures != nil {
			failures := make(map[string]int, len(stats.Failures))
			for k, v := range stats.Failures {
				failures[k] = v
			}
			stats.Failures = failures
		}
		out.Sources[name] = stats
	}
	return out
}

// Similar returns past searches whose keywords share at least half of the words
// in keywords, newest first and one per distinct keyword string.
func (s *Store) Similar(keywords string, limit int) []Search {
	words := wordSet(keywords)
	if len(words) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var out []Search
	for i := len(s.data.Searches) - 1; i >= 0; i-- {
		past := s.data.Searches[i]
		key := strings.Join(strings.Fields(strings.ToLower(past.Keywords)), " ")
		if _, dup := seen[key]; dup {
			continue
		}

		overlap := 0
		for w := range wordSet(past.Keywords) {
			if _, ok := words[w]; ok {
				overlap++
			}
		}
		if overlap*2 < len(words) {
			continue
		}

		seen[key] = struct{}{}
		past.Skills = append([]string(nil), past.Skills...)
		out = append(out, past)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Hints describes similar past searches as one line each.
func (s *Store) Hints(keywords string, limit int) []string {
	similar := s.Similar(keywords, limit)
	out := make([]string, 0, len(similar))
	for _, past := range similar {
		line := fmt.Sprintf("Similar past search %q found %d candidates", past.Keywords, past.TotalFound)
		if past.Location != "" {
			line += " in " + past.Location
		}
		if len(past.Skills) > 0 {
			line += " with " + strings.Join(past.Skills, ", ")
		}
		out = append(out, line+".")
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}
