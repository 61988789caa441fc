package session

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxSessions = 10000
	defaultTTL         = 2 * time.Hour
)

// Registry maps session handles to sessions. It is bounded and entries expire;
// a session that falls out is simply gone, since nothing is persisted.
type Registry struct {
	cache *expirable.LRU[string, *Session]
	now   func() time.Time
}

type RegistryOptions struct {
	MaxSessions int
	TTL         time.Duration
	OnEvict     func(id string)
}

func NewRegistry(opts RegistryOptions) *Registry {
	size := opts.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	var onEvict expirable.EvictCallback[string, *Session]
	if opts.OnEvict != nil {
		onEvict = func(id string, _ *Session) { opts.OnEvict(id) }
	}
	return &Registry{
		cache: expirable.NewLRU[string, *Session](size, onEvict, ttl),
		now:   time.Now,
	}
}

// Create registers a fresh, empty session.
func (r *Registry) Create() *Session {
	s := newWithClock(r.now)
	r.cache.Add(s.ID(), s)
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.cache.Get(strings.TrimSpace(id))
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) Delete(id string) bool {
	return r.cache.Remove(strings.TrimSpace(id))
}

func (r *Registry) Len() int { return r.cache.Len() }
