package index

import (
	"sync"
	"testing"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
)

func testDoc(t *testing.T) *domain.Document {
	t.Helper()
	d := domain.NewDocument()
	if err := d.AppendCategory("Phones",
		domain.Entry{DisplayName: "Phone (2)", Aliases: []string{"phone 2", "p2"}, Link: "https://x.test/p2"},
		domain.Entry{DisplayName: "Phone (1)", Aliases: []string{"phone 1", "p1"}, Link: "https://x.test/p1"},
	); err != nil {
		t.Fatal(err)
	}
	if err := d.AppendCategory("Audio",
		domain.Entry{DisplayName: "Ear (2)", Aliases: []string{"ear 2", "P2"}, Link: "https://x.test/ear2"},
	); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestNewMemoryIndex(t *testing.T) {
	index := NewMemoryIndex()
	if index == nil {
		t.Fatal("NewMemoryIndex() returned nil")
	}
	if n := index.Count(); n != 0 {
		t.Errorf("NewMemoryIndex() should start empty, got %v aliases", n)
	}
}

func TestUpdate(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	if got := index.Count(); got != 5 {
		t.Errorf("Update() indexed %v aliases, want 5", got)
	}

	want := []string{"phone 2", "p2", "phone 1", "p1", "ear 2"}
	all := index.All()
	if len(all) != len(want) {
		t.Fatalf("All() = %v links, want %v", len(all), len(want))
	}
	for i, l := range all {
		if l.Alias != want[i] {
			t.Errorf("All()[%d].Alias = %q, want %q", i, l.Alias, want[i])
		}
	}
	if index.GetLastReload().IsZero() {
		t.Error("Update() should record the reload time")
	}
}

func TestFirstHolderWins(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	l, ok := index.Get("P2")
	if !ok {
		t.Fatal("Get(P2) not found")
	}
	if l.DisplayName != "Phone (2)" || l.Category != "Phones" || l.URL != "https://x.test/p2" {
		t.Errorf("Get(P2) = %+v, want the Phones entry", l)
	}
}

func TestUpdateOverwrites(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	d := domain.NewDocument()
	if err := d.AppendCategory("Wiki", domain.Entry{DisplayName: "Rules", Aliases: []string{"rules"}, Link: "https://x.test/r"}); err != nil {
		t.Fatal(err)
	}
	index.Update(d)

	if index.Count() != 1 {
		t.Errorf("Update() should overwrite, got %v aliases want 1", index.Count())
	}
	if _, ok := index.Get("p2"); ok {
		t.Error("Get(p2) should be gone after overwrite")
	}
}

func TestIncrementCounter(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	index.IncrementCounter("p1")
	index.IncrementCounter("p1")

	l, _ := index.Get("p1")
	if l.Counter != 2 {
		t.Errorf("IncrementCounter() counter = %v, want 2", l.Counter)
	}

	// Counters survive a rebuild that keeps the alias.
	index.Update(testDoc(t))
	l, _ = index.Get("p1")
	if l.Counter != 2 {
		t.Errorf("counter after Update() = %v, want 2", l.Counter)
	}
}

func TestIncrementCounterNonExistent(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	// Increment counter for non-existent alias should not panic
	index.IncrementCounter("nonexistent")

	for _, l := range index.All() {
		if l.Counter != 0 {
			t.Errorf("IncrementCounter() on non-existent should not affect %q, got %v", l.Alias, l.Counter)
		}
	}
}

func TestSetCounters(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	index.SetCounters(map[string]int64{"p2": 7, "gone": 3})

	l, _ := index.Get("p2")
	if l.Counter != 7 {
		t.Errorf("SetCounters() counter = %v, want 7", l.Counter)
	}
	if _, ok := index.Get("gone"); ok {
		t.Error("SetCounters() must not create aliases")
	}
}

func TestConcurrentAccess(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	var wg sync.WaitGroup

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = index.All()
		}()
	}

	// Concurrent counter increments
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index.IncrementCounter("phone 1")
		}()
	}

	wg.Wait()

	l, _ := index.Get("phone 1")
	if l.Counter != 100 {
		t.Errorf("Concurrent IncrementCounter() counter = %v, want 100", l.Counter)
	}
}

func TestAllReturnsCopies(t *testing.T) {
	index := NewMemoryIndex()
	index.Update(testDoc(t))

	snapshot := index.All()
	snapshot[0].URL = "mutated"

	l, _ := index.Get(snapshot[0].Alias)
	if l.URL == "mutated" {
		t.Error("All() should return copies, not references into the index")
	}
}
