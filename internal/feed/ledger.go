package feed

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/geodrop-app/geodrop/backend/internal/stores"
)

const likedPostsKey = "liked_posts"

// LikeLedger is the durable per-device set of liked post IDs. It is the sole
// authority for the IsLiked flag rendered to the user, independent of and
// overriding any remote like count. Every mutation persists the full set to
// the local store before returning, so a crash between a ledger mutation and
// the remote write leaves local truth intact.
type LikeLedger struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	local stores.LocalStore
}

// NewLikeLedger loads the liked set from the local store. An absent key
// means an empty set, not an error.
func NewLikeLedger(local stores.LocalStore) (*LikeLedger, error) {
	data, err := local.Get(likedPostsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load like ledger: %w", err)
	}

	ids := make(map[string]struct{})
	if data != nil {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to decode like ledger: %w", err)
		}
		for _, id := range list {
			ids[id] = struct{}{}
		}
	}

	return &LikeLedger{ids: ids, local: local}, nil
}

// Contains reports whether this device has liked the post.
func (l *LikeLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// Insert adds the post ID and persists the set before returning.
func (l *LikeLedger) Insert(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = struct{}{}
	return l.persist()
}

// Remove deletes the post ID and persists the set before returning.
func (l *LikeLedger) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.ids, id)
	return l.persist()
}

// Toggle flips membership for the post ID, persists, and returns the new
// liked state.
func (l *LikeLedger) Toggle(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, liked := l.ids[id]
	if liked {
		delete(l.ids, id)
	} else {
		l.ids[id] = struct{}{}
	}
	return !liked, l.persist()
}

// persist must be called with the mutex held.
func (l *LikeLedger) persist() error {
	list := make([]string, 0, len(l.ids))
	for id := range l.ids {
		list = append(list, id)
	}
	sort.Strings(list)

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode like ledger: %w", err)
	}
	if err := l.local.Set(likedPostsKey, data); err != nil {
		return fmt.Errorf("failed to persist like ledger: %w", err)
	}
	return nil
}
