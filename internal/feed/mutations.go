package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/geodrop-app/geodrop/backend/internal/models"
	"github.com/geodrop-app/geodrop/backend/internal/stores"
)

// Reputation awarded to the author when a drop is created. The award is
// fire-and-forget; a duplicate award on retry is a known gap.
const createReputationAward = 10

// ReputationAwarder applies a reputation award both to the locally cached
// profile and to the remote copy.
type ReputationAwarder interface {
	AwardReputation(ctx context.Context, userID string, points int) error
}

// Draft is the author's input for a new drop before any uploads have run.
type Draft struct {
	Title     string
	Caption   string
	Category  models.Category
	Latitude  float64
	Longitude float64
	Images    [][]byte
}

// PostMutationService orchestrates the write paths as optimistic local
// mutation followed by a background remote write, so callers never block on
// network latency. Remote failures are logged and never roll back local
// state. Once a post is deleted, every further operation on its ID is a
// no-op rather than an error.
type PostMutationService struct {
	remote     stores.RemoteStore
	blobs      stores.BlobStore
	reports    stores.ReportStore
	uploads    *UploadCoordinator
	feed       *FeedSynchronizer
	ledger     *LikeLedger
	reputation ReputationAwarder
	log        *logrus.Entry

	now   func() time.Time
	newID func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	deleted map[string]struct{}
}

// NewPostMutationService creates a new PostMutationService. Background
// writes are tied to the service's lifetime and cancelled by Close.
func NewPostMutationService(
	remote stores.RemoteStore,
	blobs stores.BlobStore,
	reports stores.ReportStore,
	synchronizer *FeedSynchronizer,
	ledger *LikeLedger,
	reputation ReputationAwarder,
) *PostMutationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PostMutationService{
		remote:     remote,
		blobs:      blobs,
		reports:    reports,
		uploads:    NewUploadCoordinator(blobs),
		feed:       synchronizer,
		ledger:     ledger,
		reputation: reputation,
		log:        logrus.WithField("package", "feed"),
		now:        time.Now,
		newID:      uuid.NewString,
		ctx:        ctx,
		cancel:     cancel,
		deleted:    make(map[string]struct{}),
	}
}

// Create assigns the new drop's ID and returns immediately; image uploads,
// the remote write, the optimistic insert and the reputation award all run
// in the background. The insert dedupes by ID, so it stays idempotent when
// the live subscription has already delivered the post.
func (m *PostMutationService) Create(draft Draft, authorID string) string {
	id := m.newID()

	m.spawn(func(ctx context.Context) {
		result := m.uploads.UploadAll(ctx, draft.Images)
		if result.Failed > 0 {
			m.log.WithFields(logrus.Fields{
				"requested": result.Requested,
				"failed":    result.Failed,
			}).Warn("post will carry fewer images than selected")
		}

		post := models.Post{
			ID:        id,
			AuthorID:  authorID,
			Title:     draft.Title,
			Caption:   draft.Caption,
			Category:  draft.Category,
			Latitude:  draft.Latitude,
			Longitude: draft.Longitude,
			ImageURLs: result.URLs,
			Timestamp: m.now().UTC(),
			LikeCount: 0,
		}

		if err := m.remote.CreateOrReplace(ctx, &post); err != nil {
			m.log.WithError(err).WithField("post", id).Error(ErrRemoteWrite.Error())
			return
		}

		m.feed.insertLocal(post)

		if err := m.reputation.AwardReputation(ctx, authorID, createReputationAward); err != nil {
			m.log.WithError(err).WithField("author", authorID).Error("failed to award reputation")
		}
	})

	return id
}

// ToggleLike flips the ledger and the published copy synchronously, then
// issues the atomic remote counter update in the background. The local like
// count is floored at zero.
func (m *PostMutationService) ToggleLike(id string) {
	if m.isDeleted(id) {
		return
	}
	post, ok := m.feed.find(id)
	if !ok {
		return
	}

	liked, err := m.ledger.Toggle(id)
	if err != nil {
		// In-memory ledger state already moved; the remote write below
		// is best-effort catch-up either way.
		m.log.WithError(err).WithField("post", id).Error("failed to persist like ledger")
	}

	post.IsLiked = liked
	if liked {
		post.LikeCount++
	} else if post.LikeCount > 0 {
		post.LikeCount--
	}
	m.feed.updateLocal(post)

	delta := 1
	if !liked {
		delta = -1
	}
	m.spawn(func(ctx context.Context) {
		if err := m.remote.AdjustLikeCount(ctx, id, delta); err != nil {
			m.log.WithError(err).WithField("post", id).Error(ErrRemoteWrite.Error())
		}
	})
}

// Delete removes the post from the published list (closing an open detail
// view bound to it) synchronously, then deletes the remote document and its
// blobs in the background. Blob deletes are best-effort: failures are
// logged, not retried, not surfaced.
func (m *PostMutationService) Delete(id string) {
	m.mu.Lock()
	if _, gone := m.deleted[id]; gone {
		m.mu.Unlock()
		return
	}
	m.deleted[id] = struct{}{}
	m.mu.Unlock()

	post, _ := m.feed.find(id)
	m.feed.removeLocal(id)

	urls := post.ImageURLs
	m.spawn(func(ctx context.Context) {
		if err := m.remote.Delete(ctx, id); err != nil {
			m.log.WithError(err).WithField("post", id).Error(ErrDelete.Error())
		}
		for _, url := range urls {
			if err := m.blobs.Delete(ctx, url); err != nil {
				m.log.WithError(err).WithField("url", url).Error(ErrDelete.Error())
			}
		}
	})
}

// Report fires off a moderation record. No local state changes; the only
// user feedback is the caller's transient acknowledgement.
func (m *PostMutationService) Report(id, reporterID, reason string) {
	if m.isDeleted(id) {
		return
	}
	m.spawn(func(ctx context.Context) {
		report := &models.Report{
			PostID:     id,
			ReporterID: reporterID,
			Reason:     reason,
			CreatedAt:  m.now().UTC(),
		}
		if err := m.reports.CreateReport(ctx, report); err != nil {
			m.log.WithError(err).WithField("post", id).Error("failed to submit report")
		}
	})
}

// Wait blocks until the background writes spawned so far have settled.
func (m *PostMutationService) Wait() {
	m.wg.Wait()
}

// Close cancels outstanding background work and waits for it to finish.
func (m *PostMutationService) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *PostMutationService) isDeleted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, gone := m.deleted[id]
	return gone
}

func (m *PostMutationService) spawn(f func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		f(m.ctx)
	}()
}
