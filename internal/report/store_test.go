package report

import (
	"os"
	"testing"

	"github.com/user/posterforge/internal/types"
)

type sample struct {
	Poster  string `json:"poster"`
	Created int    `json:"created"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	id := types.NewRunID()

	path, err := store.Save(id, &sample{Poster: "spring", Created: 3})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("report file missing or empty: %v", err)
	}

	var got sample
	if err := store.Load(id, &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Poster != "spring" || got.Created != 3 {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestListEmpty(t *testing.T) {
	store := NewStore(t.TempDir())
	ids, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no reports, got %v", ids)
	}
}

func TestListSorted(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, id := range []types.RunID{"b", "a", "c"} {
		if _, err := store.Save(id, &sample{}); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Errorf("unexpected listing %v", ids)
	}
}
