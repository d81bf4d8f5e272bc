package feed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/geodrop-app/geodrop/backend/internal/models"
	"github.com/geodrop-app/geodrop/backend/internal/stores"
)

// FeedSynchronizer owns the single live subscription to the remote post
// store and keeps a published post list that reflects the latest remote
// snapshot with the device-local like flag overlaid from the ledger.
// Snapshot publishes are atomic: readers never observe a partially-updated
// list. Local optimistic mutations write into the same published list and
// are simply re-rendered over by the next remote snapshot; the ledger always
// wins for IsLiked.
type FeedSynchronizer struct {
	remote stores.RemoteStore
	ledger *LikeLedger
	log    *logrus.Entry

	mu       sync.Mutex
	posts    []models.Post
	detailID string
	detail   *models.Post

	subCancel context.CancelFunc
	subDone   chan struct{}

	nextListener int
	listeners    map[int]chan struct{}
}

// NewFeedSynchronizer creates a new FeedSynchronizer
func NewFeedSynchronizer(remote stores.RemoteStore, ledger *LikeLedger) *FeedSynchronizer {
	return &FeedSynchronizer{
		remote:    remote,
		ledger:    ledger,
		log:       logrus.WithField("package", "feed"),
		listeners: make(map[int]chan struct{}),
	}
}

// Start opens the live subscription. Calling Start again first cancels the
// existing subscription, so repeated calls (e.g. on session refresh) never
// leave more than one active subscription behind.
func (s *FeedSynchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	cancel, done := s.subCancel, s.subDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	subCtx, subCancel := context.WithCancel(ctx)
	subDone := make(chan struct{})

	s.mu.Lock()
	s.subCancel, s.subDone = subCancel, subDone
	s.mu.Unlock()

	go s.run(subCtx, subDone)
}

// Stop cancels the subscription. It is idempotent and safe to call on a
// synchronizer that was never started.
func (s *FeedSynchronizer) Stop() {
	s.mu.Lock()
	cancel, done := s.subCancel, s.subDone
	s.subCancel, s.subDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *FeedSynchronizer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ch := s.remote.LiveQuery(ctx, func(err error) {
		// A delivery error never invalidates the previously published
		// list; it is logged and the subscription keeps going.
		s.log.WithError(err).Error(ErrRemoteSubscription.Error())
	})

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			s.applySnapshot(snapshot)
		}
	}
}

// applySnapshot merges the remote snapshot with the ledger and publishes
// the result in one step, refreshing the open-detail copy along the way.
func (s *FeedSynchronizer) applySnapshot(snapshot []models.Post) {
	merged := mergeSnapshot(snapshot, s.ledger)

	s.mu.Lock()
	s.posts = merged
	if s.detailID != "" {
		for i := range merged {
			if merged[i].ID == s.detailID {
				post := merged[i]
				s.detail = &post
				break
			}
		}
	}
	s.mu.Unlock()

	s.signal()
}

// mergeSnapshot is a pure function of snapshot and ledger: every element
// gets IsLiked from ledger membership and malformed entries with an empty
// author ID are dropped.
func mergeSnapshot(snapshot []models.Post, ledger *LikeLedger) []models.Post {
	merged := make([]models.Post, 0, len(snapshot))
	for _, p := range snapshot {
		if p.AuthorID == "" {
			continue
		}
		merged = append(merged, p.WithIsLiked(ledger.Contains(p.ID)))
	}
	return merged
}

// Posts returns a copy of the currently published list.
func (s *FeedSynchronizer) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Subscribe registers a coalesced notification channel that receives a
// signal whenever the published list changes. The returned func removes the
// registration.
func (s *FeedSynchronizer) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// OpenDetail binds the detail view to the post with the given ID and
// returns its current published copy.
func (s *FeedSynchronizer) OpenDetail(id string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			post := s.posts[i]
			s.detailID = id
			s.detail = &post
			return post, true
		}
	}
	return models.Post{}, false
}

// CloseDetail clears the detail binding.
func (s *FeedSynchronizer) CloseDetail() {
	s.mu.Lock()
	s.detailID = ""
	s.detail = nil
	s.mu.Unlock()
}

// Detail returns the currently bound detail copy, if any.
func (s *FeedSynchronizer) Detail() (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		return models.Post{}, false
	}
	return *s.detail, true
}

// insertLocal prepends an optimistically created post. Inserting an ID that
// is already published is a no-op, so the eventual remote snapshot and the
// optimistic insert cannot duplicate the post.
func (s *FeedSynchronizer) insertLocal(post models.Post) {
	s.mu.Lock()
	for i := range s.posts {
		if s.posts[i].ID == post.ID {
			s.mu.Unlock()
			return
		}
	}
	s.posts = append([]models.Post{post}, s.posts...)
	s.mu.Unlock()

	s.signal()
}

// updateLocal replaces the published copy of the post and refreshes the
// detail binding when it points at the same ID. Unknown IDs are ignored.
func (s *FeedSynchronizer) updateLocal(post models.Post) {
	s.mu.Lock()
	for i := range s.posts {
		if s.posts[i].ID == post.ID {
			s.posts[i] = post
			break
		}
	}
	if s.detailID == post.ID {
		p := post
		s.detail = &p
	}
	s.mu.Unlock()

	s.signal()
}

// removeLocal drops the post from the published list and closes the detail
// view if it was bound to it. This happens synchronously, before any remote
// delete completes.
func (s *FeedSynchronizer) removeLocal(id string) {
	s.mu.Lock()
	kept := s.posts[:0]
	for _, p := range s.posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.posts = kept
	if s.detailID == id {
		s.detailID = ""
		s.detail = nil
	}
	s.mu.Unlock()

	s.signal()
}

// find returns the published copy of a post by ID.
func (s *FeedSynchronizer) find(id string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			return s.posts[i], true
		}
	}
	return models.Post{}, false
}

func (s *FeedSynchronizer) signal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
