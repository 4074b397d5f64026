package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store with the same condition semantics as the
// real adapters.
type memStore struct {
	mu       sync.Mutex
	products map[string]*Product

	getErr error
	putErr error
}

func newMemStore() *memStore {
	return &memStore{products: make(map[string]*Product)}
}

func (m *memStore) Get(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return p.Clone(), nil
}

func (m *memStore) ConditionalPut(_ context.Context, p *Product, cond PutCondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}

	_, exists := m.products[p.ID]
	if cond == MustNotExist && exists || cond == MustExist && !exists {
		return ErrConditionFailed
	}
	for id, other := range m.products {
		if id != p.ID && other.Barcode == p.Barcode {
			return ErrBarcodeTaken
		}
	}

	m.products[p.ID] = p.Clone()
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *memStore) QueryByBarcode(_ context.Context, barcode string) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.products {
		if p.Barcode == barcode {
			out = append(out, *p.Clone())
		}
	}
	return out, nil
}

func (m *memStore) QueryByIndex(_ context.Context, q IndexQuery) (Page, error) {
	if q.PageToken == "bogus" {
		return Page{}, ErrInvalidPageToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.products {
		if p.AvailabilityKey == q.Availability {
			out = append(out, *p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Descending {
			return out[i].CreatedKey > out[j].CreatedKey
		}
		return out[i].CreatedKey < out[j].CreatedKey
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return Page{Items: out}, nil
}

func (m *memStore) Scan(_ context.Context, limit int, pageToken string) (Page, error) {
	if pageToken == "bogus" {
		return Page{}, ErrInvalidPageToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.products {
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return Page{Items: out}, nil
}

// fakeBlobs records calls and can be told to fail.
type fakeBlobs struct {
	mu         sync.Mutex
	deleteCall [][]string
	presigned  int
	fail       bool
}

func (f *fakeBlobs) DeleteObjects(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCall = append(f.deleteCall, append([]string{}, keys...))
	if f.fail {
		return errors.New("blob store unavailable")
	}
	return nil
}

func (f *fakeBlobs) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if f.fail {
		return "", errors.New("blob store unavailable")
	}
	return fmt.Sprintf("https://blobs.test/%s?op=put&type=%s&ttl=%d", key, contentType, int(ttl.Seconds())), nil
}

func (f *fakeBlobs) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	f.presigned++
	n := f.presigned
	f.mu.Unlock()
	if f.fail {
		return "", errors.New("blob store unavailable")
	}
	return fmt.Sprintf("https://blobs.test/%s?op=get&n=%d", key, n), nil
}

func (f *fakeBlobs) deletes() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCall
}

// fakeCache is a map-backed URLCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.entries[key]
	return url, ok
}

func (c *fakeCache) Set(_ context.Context, key, url string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = url
	c.ttls[key] = ttl
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []ProductEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e ProductEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

// testClock returns a clock that advances one millisecond per call.
func testClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

// sequentialIDs mints p-0001, p-0002, ...
func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("p-%04d", n), nil
	}
}
