package querycache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/rs/zerolog"
)

type Kind string

const (
	KindList   Kind = "LIST"
	KindStats  Kind = "STATS"
	KindEntity Kind = "ENTITY"
)

// Tag names a slice of cached data. ID is only set for entity tags.
type Tag struct {
	Resource string
	Kind     Kind
	ID       string
}

func ListTag(resource string) Tag  { return Tag{Resource: resource, Kind: KindList} }
func StatsTag(resource string) Tag { return Tag{Resource: resource, Kind: KindStats} }

func EntityTag(resource string, id string) Tag {
	return Tag{Resource: resource, Kind: KindEntity, ID: id}
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Resource + ":" + string(t.Kind)
	}
	return t.Resource + ":" + string(t.Kind) + ":" + t.ID
}

var ErrNotObject = errors.New("cached value is not a JSON object")

type entry struct {
	data    []byte
	tags    []Tag
	expires time.Time
	version uint64
}

// Cache holds JSON response bodies keyed by request and indexed by tag.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	stacks  map[string]*patchStack
	clock   ports.Clock
	logger  zerolog.Logger
	version uint64
}

var _ ports.CacheInvalidator = (*Cache)(nil)

type Option func(*Cache)

func WithClock(clock ports.Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger.With().Str("component", "query-cache").Logger()
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: map[string]*entry{},
		stacks:  map[string]*patchStack{},
		clock:   ports.SystemClock{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached body. Expired entries are dropped on read.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		delete(c.stacks, key)
		return nil, false
	}
	return append([]byte(nil), e.data...), true
}

// Put stores data under key. A non-positive ttl keeps the entry until it is
// invalidated.
func (c *Cache) Put(key string, data []byte, ttl time.Duration, tags ...Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{data: append([]byte(nil), data...), tags: append([]Tag(nil), tags...)}
	if ttl > 0 {
		e.expires = c.clock.Now().Add(ttl)
	}
	c.version++
	e.version = c.version
	c.entries[key] = e
	delete(c.stacks, key)
}

// Invalidate drops every entry carrying one of tags and reports how many went.
func (c *Cache) Invalidate(tags ...Tag) int {
	if len(tags) == 0 {
		return 0
	}

	wanted := make(map[Tag]struct{}, len(tags))
	for _, tag := range tags {
		wanted[tag] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for key, e := range c.entries {
		for _, tag := range e.tags {
			if _, ok := wanted[tag]; ok {
				delete(c.entries, key)
				delete(c.stacks, key)
				dropped++
				break
			}
		}
	}

	if dropped > 0 {
		c.logger.Debug().Int("dropped", dropped).Stringer("tag", tags[0]).Int("tags", len(tags)).Msg("cache invalidated")
	}
	return dropped
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[string]*entry{}
	c.stacks = map[string]*patchStack{}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

type PatchState int

const (
	PatchPending PatchState = iota
	PatchCommitted
	PatchRolledBack
)

func (s PatchState) String() string {
	switch s {
	case PatchPending:
		return "pending"
	case PatchCommitted:
		return "committed"
	case PatchRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("PatchState(%d)", int(s))
	}
}

// Patch is an optimistic edit of one cached entry. It starts Pending and ends
// either Committed or RolledBack; the first transition wins.
type Patch struct {
	cache   *Cache
	key     string
	partial map[string]any
	state   PatchState
}

// patchStack holds the edits layered over one entry. base is the entry as it
// was before the oldest of them and version is the entry they produced.
type patchStack struct {
	base    *entry
	patches []*Patch
	version uint64
}

func (s *patchStack) holds(p *Patch) bool {
	for _, q := range s.patches {
		if q == p {
			return true
		}
	}
	return false
}

func (s *patchStack) pending() bool {
	for _, q := range s.patches {
		if q.state == PatchPending {
			return true
		}
	}
	return false
}

// BeginPatch merges partial into the top-level fields of the cached object at
// key. When nothing is cached the patch still exists but changes nothing.
func (c *Cache) BeginPatch(key string, partial map[string]any) (*Patch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &Patch{cache: c, key: key, partial: make(map[string]any, len(partial))}
	for field, value := range partial {
		p.partial[field] = value
	}

	current, ok := c.entries[key]
	if !ok || len(partial) == 0 {
		return p, nil
	}

	patched, err := mergeFields(current.data, p.partial)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", key, err)
	}

	stack, ok := c.stacks[key]
	if !ok || stack.version != current.version {
		stack = &patchStack{base: current}
		c.stacks[key] = stack
	}
	stack.patches = append(stack.patches, p)

	c.version++
	stack.version = c.version
	c.entries[key] = &entry{data: patched, tags: current.tags, expires: current.expires, version: c.version}
	return p, nil
}

func (p *Patch) State() PatchState {
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()

	return p.state
}

func (p *Patch) Commit() {
	c := p.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.state != PatchPending {
		return
	}
	p.state = PatchCommitted
	c.settle(p.key)
}

// Rollback takes this patch's fields back out of the entry. The entry is
// rebuilt from the pre-patch body plus every edit that has not been rolled
// back, so patches may fail in any order. Nothing happens when the entry has
// been replaced or invalidated since.
func (p *Patch) Rollback() {
	c := p.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.state != PatchPending {
		return
	}
	p.state = PatchRolledBack

	stack, ok := c.stacks[p.key]
	if !ok || !stack.holds(p) {
		return
	}
	current, ok := c.entries[p.key]
	if !ok || current.version != stack.version {
		delete(c.stacks, p.key)
		return
	}

	data := stack.base.data
	for _, q := range stack.patches {
		if q.state == PatchRolledBack {
			continue
		}
		merged, err := mergeFields(data, q.partial)
		if err != nil {
			data = stack.base.data
			break
		}
		data = merged
	}

	c.version++
	stack.version = c.version
	c.entries[p.key] = &entry{data: data, tags: current.tags, expires: current.expires, version: c.version}
	c.settle(p.key)
	c.logger.Debug().Str("key", p.key).Msg("optimistic patch rolled back")
}

// settle forgets the stack at key once none of its patches is pending.
func (c *Cache) settle(key string) {
	if stack, ok := c.stacks[key]; ok && !stack.pending() {
		delete(c.stacks, key)
	}
}

func mergeFields(data []byte, partial map[string]any) ([]byte, error) {
	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil || object == nil {
		return nil, ErrNotObject
	}
	for field, value := range partial {
		object[field] = value
	}
	return json.Marshal(object)
}
