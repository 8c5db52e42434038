package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
)

// Link is what one alias resolves to.
type Link struct {
	Alias       string `json:"alias"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	URL         string `json:"link"`
	Counter     int64  `json:"counter"`
}

// MemoryIndex maps aliases to links for the published document.
// When several entries share an alias the first one in document order wins.
type MemoryIndex struct {
	mu         sync.RWMutex
	links      map[string]*Link // alias -> Link
	order      []string         // aliases in document order
	lastReload time.Time
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		links: make(map[string]*Link),
	}
}

// Update rebuilds the index from doc. Counters of aliases that survive
// the rebuild are kept.
func (idx *MemoryIndex) Update(doc *domain.Document) {
	links := make(map[string]*Link)
	var order []string

	doc.Walk(func(pos domain.Position, e domain.Entry) bool {
		for _, a := range e.Aliases {
			a = domain.NormalizeAlias(a)
			if a == "" {
				continue
			}
			if _, taken := links[a]; taken {
				continue
			}
			links[a] = &Link{
				Alias:       a,
				DisplayName: e.DisplayName,
				Category:    pos.Category,
				URL:         e.Link,
			}
			order = append(order, a)
		}
		return true
	})

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for alias, l := range links {
		if prev, ok := idx.links[alias]; ok {
			l.Counter = prev.Counter
		}
	}
	idx.links = links
	idx.order = order
	idx.lastReload = time.Now()
}

// Get returns the link for an alias.
func (idx *MemoryIndex) Get(alias string) (Link, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	l, ok := idx.links[domain.NormalizeAlias(alias)]
	if !ok {
		return Link{}, false
	}
	return *l, true
}

// All returns every link in document order.
func (idx *MemoryIndex) All() []Link {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Link, 0, len(idx.order))
	for _, a := range idx.order {
		out = append(out, *idx.links[a])
	}
	return out
}

// Count returns the number of distinct aliases
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.links)
}

// IncrementCounter increments the usage counter for an alias
func (idx *MemoryIndex) IncrementCounter(alias string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if l, ok := idx.links[alias]; ok {
		l.Counter++
	}
}

// SetCounters overwrites counters from persisted usage stats.
// Unknown aliases are ignored.
func (idx *MemoryIndex) SetCounters(stats map[string]int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for alias, n := range stats {
		if l, ok := idx.links[alias]; ok {
			l.Counter = n
		}
	}
}

// GetLastReload returns the timestamp of the last Update
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
