package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")
	store := New(path, WithClock(fixedClock))

	if err := store.Load(); err != nil {
		t.Fatalf("expected missing file to be fine, got %v", err)
	}

	store.RecordSource("GitHub", 4, nil)
	store.RecordSource("GitHub", 0, fmt.Errorf("%w: quota", sourcing.ErrRateLimited))
	store.RecordSource("X", 0, fmt.Errorf("%w: no key", sourcing.ErrUnauthenticated))
	store.RecordSearch("id-1", sourcing.SearchRequest{Keywords: "electrician", Skills: []string{"osha 30"}}, 7)

	if err := store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temporary file to be renamed")
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := reloaded.Snapshot()

	gh := snap.Sources["GitHub"]
	if gh.Queried != 2 || gh.Succeeded != 1 || gh.Candidates != 4 || gh.Failures[sourcing.TagRateLimited] != 1 {
		t.Fatalf("unexpected github stats %+v", gh)
	}
	if gh.SuccessRate() != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", gh.SuccessRate())
	}
	if !gh.LastSeen.Equal(fixedClock()) {
		t.Fatalf("unexpected last seen %v", gh.LastSeen)
	}
	if snap.Sources["X"].Failures[sourcing.TagUnauthenticated] != 1 {
		t.Fatalf("unexpected x stats %+v", snap.Sources["X"])
	}
	if len(snap.Searches) != 1 || snap.Searches[0].ID != "id-1" || snap.Searches[0].TotalFound != 7 {
		t.Fatalf("unexpected history %+v", snap.Searches)
	}
}

func TestStoreBoundsHistory(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.yaml"), WithMaxHistory(3))
	for i := range 5 {
		store.RecordSearch(fmt.Sprintf("id-%d", i), sourcing.SearchRequest{Keywords: "welder"}, i)
	}

	snap := store.Snapshot()
	if len(snap.Searches) != 3 || snap.Searches[0].ID != "id-2" || snap.Searches[2].ID != "id-4" {
		t.Fatalf("expected the three newest searches, got %+v", snap.Searches)
	}
}

func TestStoreConcurrentRecording(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.yaml"))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RecordSource("Indeed", i, nil)
		}()
	}
	wg.Wait()

	if got := store.Snapshot().Sources["Indeed"].Queried; got != 50 {
		t.Fatalf("expected 50 queries, got %d", got)
	}
}

func TestStoreLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("sources: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := New(path).Load(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.yaml"))
	store.RecordSource("GitHub", 0, fmt.Errorf("%w", sourcing.ErrTransient))

	snap := store.Snapshot()
	snap.Sources["GitHub"].Failures[sourcing.TagTransient] = 99

	if store.Snapshot().Sources["GitHub"].Failures[sourcing.TagTransient] != 1 {
		t.Fatalf("expected snapshot mutation not to leak into the store")
	}
}

func TestStoreSimilar(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.yaml"))
	store.RecordSearch("id-1", sourcing.SearchRequest{Keywords: "master electrician", Location: "Tampa"}, 4)
	store.RecordSearch("id-2", sourcing.SearchRequest{Keywords: "welder"}, 2)
	store.RecordSearch("id-3", sourcing.SearchRequest{Keywords: "Electrician", Skills: []string{"OSHA 30"}}, 9)
	store.RecordSearch("id-4", sourcing.SearchRequest{Keywords: "electrician "}, 1)

	similar := store.Similar("electrician", 0)
	if len(similar) != 2 || similar[0].ID != "id-4" || similar[1].ID != "id-1" {
		t.Fatalf("expected newest electrician search and the master one, got %+v", similar)
	}

	if got := store.Similar("licensed industrial electrician", 0); len(got) != 0 {
		t.Fatalf("expected less than half overlap to be ignored, got %+v", got)
	}
	if got := store.Similar("  ", 5); got != nil {
		t.Fatalf("expected no matches for empty keywords, got %+v", got)
	}
	if got := store.Similar("electrician", 1); len(got) != 1 {
		t.Fatalf("expected limit to apply, got %+v", got)
	}

	hints := store.Hints("master electrician", 0)
	if len(hints) != 2 || hints[1] != `Similar past search "master electrician" found 4 candidates in Tampa.` {
		t.Fatalf("unexpected hints %q", hints)
	}
}

var _ sourcing.Recorder = (*Store)(nil)
