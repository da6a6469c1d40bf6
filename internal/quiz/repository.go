package quiz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"friedrich-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Loader fetches question-set content from a backing store.
type Loader interface {
	LoadQuestionSet(ctx context.Context, setID string) (Set, error)
}

// Repository caches question sets with TTL to avoid repeated store hits.
// Every client in a room must resolve the same set ID to identical content,
// so sets are cached whole and never assembled from room state.
type Repository struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       Set
	expiresAt time.Time
}

func NewRepository(loader Loader, ttl time.Duration) *Repository {
	return &Repository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *Repository) GetSet(ctx context.Context, setID string) (Set, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadQuestionSet(ctx, setID)
		if err != nil {
			return Set{}, err
		}

		r.mu.Lock()
		r.cache[setID] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return Set{}, err
	}
	return result.(Set), nil
}

// StaticLoader serves sets from an in-memory map (tests/demos and the
// built-in default set).
type StaticLoader struct {
	sets map[string]Set
}

func NewStaticLoader(sets map[string]Set) *StaticLoader {
	return &StaticLoader{sets: sets}
}

func (l *StaticLoader) LoadQuestionSet(_ context.Context, setID string) (Set, error) {
	if set, ok := l.sets[setID]; ok {
		return set, nil
	}
	return Set{}, domain.ErrQuestionSetNotFound
}

func (r *Repository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
