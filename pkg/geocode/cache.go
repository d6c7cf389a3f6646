package geocode

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// cacheKey returns SHA-256 hex of the normalized query.
func cacheKey(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Memo remembers definitive lookup outcomes (a match or ErrNotFound) for the
// lifetime of one run. Timeouts and other failures are never remembered.
// A remembered not-found is stored as a nil result.
type Memo struct {
	mu      sync.Mutex
	entries map[string]*Result
}

// NewMemo returns an empty memo.
func NewMemo() *Memo {
	return &Memo{entries: make(map[string]*Result)}
}

// Get returns the remembered outcome for query. A nil result with ok set
// means the query is known not to resolve.
func (m *Memo) Get(query string) (result *Result, ok bool) {
	key := cacheKey(query)
	m.mu.Lock()
	r, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	zap.L().Debug("geocode memo hit", zap.String("key", key[:12]), zap.Bool("matched", r != nil))
	if r == nil {
		return nil, true
	}
	cp := *r
	return &cp, true
}

// Put records the outcome of a lookup if it is definitive.
func (m *Memo) Put(query string, result *Result, err error) {
	switch {
	case err == nil && result != nil:
		r := *result
		result = &r
	case errors.Is(err, ErrNotFound):
		result = nil
	default:
		return
	}

	m.mu.Lock()
	m.entries[cacheKey(query)] = result
	m.mu.Unlock()
}

// Len returns the number of remembered queries.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
