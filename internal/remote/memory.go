package remote

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// Operation names used by Memory for fault injection and call recording.
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpFetch  = "fetch"
	OpDelete = "delete"
)

// Call is one recorded Memory operation.
type Call struct {
	Op  string
	Key string // remote key; "" for list
	At  time.Time
}

type memResource struct {
	id       string
	key      string
	revision int
	content  []byte
	locales  mapset.Set[string]
	// translations by locale
	translations map[string][]byte
}

type fault struct {
	op, key string
	err     error
	left    int
}

// Memory is an in-memory Catalog for tests. It is safe for concurrent use.
type Memory struct {
	// Locales are assigned to resources created through CreateResource.
	Locales []string
	// Latency, if set, is slept (honoring ctx) before every operation.
	Latency time.Duration

	mu     sync.Mutex
	byKey  map[string]*memResource
	byID   map[string]*memResource
	nextID int
	faults []*fault
	calls  []Call
}

var _ Catalog = (*Memory)(nil)

// NewMemory returns an empty catalog whose new resources get locales.
func NewMemory(locales ...string) *Memory {
	return &Memory{
		Locales: locales,
		byKey:   make(map[string]*memResource),
		byID:    make(map[string]*memResource),
	}
}

// Seed adds a resource directly, bypassing fault injection and recording.
func (m *Memory) Seed(key string, content []byte, locales ...string) Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.add(key, content, locales)
	return r.resource()
}

// SetTranslation stores the translated content returned by FetchTranslation.
func (m *Memory) SetTranslation(key, locale string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byKey[key]; ok {
		r.translations[locale] = append([]byte(nil), content...)
	}
}

// FailNext makes the next n calls of op on key fail with err. An empty key
// matches every key.
func (m *Memory) FailNext(op, key string, err error, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, &fault{op: op, key: key, err: err, left: n})
}

// Calls returns the recorded calls in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many calls of op were made. An empty op counts all
// calls.
func (m *Memory) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if op == "" || c.Op == op {
			n++
		}
	}
	return n
}

// Content returns the current source content of key.
func (m *Memory) Content(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byKey[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), r.content...), true
}

func (m *Memory) ListResources(ctx context.Context, projectID string) ([]Resource, error) {
	if err := m.begin(ctx, OpList, ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Resource, 0, len(m.byKey))
	for _, r := range m.byKey {
		out = append(out, r.resource())
	}
	sortResources(out)
	return out, nil
}

func (m *Memory) CreateResource(ctx context.Context, projectID, remoteKey string, content []byte) (Resource, error) {
	if err := m.begin(ctx, OpCreate, remoteKey); err != nil {
		return Resource{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[remoteKey]; exists {
		return Resource{}, &syncerr.Error{Kind: syncerr.KindValidation, Op: OpCreate, Key: remoteKey, Err: fmt.Errorf("name is not unique (notUnique)")}
	}
	return m.add(remoteKey, content, m.Locales).resource(), nil
}

func (m *Memory) UpdateResource(ctx context.Context, projectID, remoteID string, content []byte) (Resource, error) {
	if err := m.begin(ctx, OpUpdate, m.keyOf(remoteID)); err != nil {
		return Resource{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[remoteID]
	if !ok {
		return Resource{}, &syncerr.Error{Kind: syncerr.KindValidation, Op: OpUpdate, Key: remoteID, Err: fmt.Errorf("file not found")}
	}
	r.content = append([]byte(nil), content...)
	r.revision++
	return r.resource(), nil
}

// FetchTranslation returns the stored translation, or the source content
// when none was set, as Crowdin exports untranslated strings verbatim.
func (m *Memory) FetchTranslation(ctx context.Context, projectID, remoteID, locale string) ([]byte, error) {
	if err := m.begin(ctx, OpFetch, m.keyOf(remoteID)); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[remoteID]
	if !ok {
		return nil, &syncerr.Error{Kind: syncerr.KindValidation, Op: OpFetch, Key: remoteID, Err: fmt.Errorf("file not found")}
	}
	if !r.locales.Contains(locale) {
		return nil, &syncerr.Error{Kind: syncerr.KindValidation, Op: OpFetch, Key: r.key, Err: fmt.Errorf("language %s is not a target language", locale)}
	}
	if t, ok := r.translations[locale]; ok {
		return append([]byte(nil), t...), nil
	}
	return append([]byte(nil), r.content...), nil
}

func (m *Memory) DeleteResource(ctx context.Context, projectID, remoteID string) error {
	if err := m.begin(ctx, OpDelete, m.keyOf(remoteID)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byID[remoteID]; ok {
		delete(m.byKey, r.key)
		delete(m.byID, remoteID)
	}
	return nil
}

// begin records the call, applies latency and returns an injected fault.
func (m *Memory) begin(ctx context.Context, op, key string) error {
	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return syncerr.New(syncerr.KindCancelled, op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: op, Key: key, At: time.Now()})
	for _, f := range m.faults {
		if f.left > 0 && f.op == op && (f.key == "" || f.key == key) {
			f.left--
			return f.err
		}
	}
	return nil
}

func (m *Memory) keyOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byID[id]; ok {
		return r.key
	}
	return id
}

// add must be called with m.mu held.
func (m *Memory) add(key string, content []byte, locales []string) *memResource {
	m.nextID++
	r := &memResource{
		id:           strconv.Itoa(m.nextID),
		key:          key,
		revision:     1,
		content:      append([]byte(nil), content...),
		locales:      mapset.NewSet(locales...),
		translations: make(map[string][]byte),
	}
	m.byKey[key] = r
	m.byID[r.id] = r
	return r
}

func (r *memResource) resource() Resource {
	return Resource{
		RemoteKey:        r.key,
		RemoteID:         r.id,
		RemoteHash:       "rev-" + strconv.Itoa(r.revision),
		AvailableLocales: r.locales.Clone(),
	}
}
