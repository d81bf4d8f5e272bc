package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodrop-app/geodrop/backend/internal/models"
)

func testPost(id string, ts int64, likes int) models.Post {
	return models.Post{
		ID:        id,
		AuthorID:  "author-" + id,
		Title:     "drop " + id,
		Category:  models.CategoryExplore,
		Timestamp: time.Unix(ts, 0).UTC(),
		LikeCount: likes,
	}
}

func newTestSynchronizer(t *testing.T) (*FeedSynchronizer, *fakeRemote, *LikeLedger) {
	t.Helper()
	remote := newFakeRemote()
	ledger, err := NewLikeLedger(newMemLocal())
	require.NoError(t, err)
	return NewFeedSynchronizer(remote, ledger), remote, ledger
}

func TestMergeOverridesIsLikedFromLedger(t *testing.T) {
	ledger, err := NewLikeLedger(newMemLocal())
	require.NoError(t, err)
	require.NoError(t, ledger.Insert("a"))

	snapshot := []models.Post{testPost("a", 10, 5), testPost("b", 20, 1)}
	merged := mergeSnapshot(snapshot, ledger)

	require.Len(t, merged, 2)
	assert.True(t, merged[0].IsLiked)
	assert.Equal(t, 5, merged[0].LikeCount, "remote count stays authoritative for the aggregate")
	assert.False(t, merged[1].IsLiked)

	// Merge is a pure function of snapshot and ledger: running it again
	// gives the same result and leaves the input untouched.
	again := mergeSnapshot(snapshot, ledger)
	assert.Equal(t, merged, again)
	assert.False(t, snapshot[0].IsLiked)
}

func TestMergeDropsEmptyAuthor(t *testing.T) {
	ledger, err := NewLikeLedger(newMemLocal())
	require.NoError(t, err)

	malformed := testPost("x", 30, 0)
	malformed.AuthorID = ""
	merged := mergeSnapshot([]models.Post{malformed, testPost("a", 10, 0)}, ledger)

	require.Len(t, merged, 1)
	assert.Equal(t, "a", merged[0].ID)
}

func TestSnapshotReplacesPublishedList(t *testing.T) {
	sync, remote, _ := newTestSynchronizer(t)
	sync.Start(context.Background())
	defer sync.Stop()

	remote.push([]models.Post{testPost("b", 20, 1), testPost("a", 10, 3)})
	require.Eventually(t, func() bool { return len(sync.Posts()) == 2 }, time.Second, 5*time.Millisecond)

	// B deleted, C added: published list follows the snapshot order,
	// newest first.
	remote.push([]models.Post{testPost("c", 30, 0), testPost("a", 10, 3)})
	require.Eventually(t, func() bool {
		posts := sync.Posts()
		return len(posts) == 2 && posts[0].ID == "c" && posts[1].ID == "a"
	}, time.Second, 5*time.Millisecond)

	posts := sync.Posts()
	assert.True(t, posts[0].Timestamp.After(posts[1].Timestamp))
}

func TestStartIsIdempotent(t *testing.T) {
	sync, remote, _ := newTestSynchronizer(t)

	sync.Start(context.Background())
	sync.Start(context.Background())
	sync.Start(context.Background())
	defer sync.Stop()

	require.Eventually(t, func() bool { return remote.activeSubscriptions() == 1 },
		time.Second, 5*time.Millisecond)

	remote.push([]models.Post{testPost("a", 10, 0)})
	require.Eventually(t, func() bool { return len(sync.Posts()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopCancelsSubscription(t *testing.T) {
	sync, remote, _ := newTestSynchronizer(t)

	sync.Start(context.Background())
	require.Eventually(t, func() bool { return remote.activeSubscriptions() == 1 },
		time.Second, 5*time.Millisecond)

	sync.Stop()
	require.Eventually(t, func() bool { return remote.activeSubscriptions() == 0 },
		time.Second, 5*time.Millisecond)

	// Idempotent, including on a synchronizer that was never started.
	sync.Stop()
	NewFeedSynchronizer(newFakeRemote(), sync.ledger).Stop()
}

func TestSnapshotRefreshesOpenDetail(t *testing.T) {
	sync, remote, _ := newTestSynchronizer(t)
	sync.Start(context.Background())
	defer sync.Stop()

	remote.push([]models.Post{testPost("a", 10, 3)})
	require.Eventually(t, func() bool { return len(sync.Posts()) == 1 }, time.Second, 5*time.Millisecond)

	detail, ok := sync.OpenDetail("a")
	require.True(t, ok)
	assert.Equal(t, 3, detail.LikeCount)

	remote.push([]models.Post{testPost("a", 10, 7)})
	require.Eventually(t, func() bool {
		detail, ok := sync.Detail()
		return ok && detail.LikeCount == 7
	}, time.Second, 5*time.Millisecond)
}

func TestSubscriptionErrorKeepsPreviousList(t *testing.T) {
	sync, remote, _ := newTestSynchronizer(t)
	sync.Start(context.Background())
	defer sync.Stop()

	remote.push([]models.Post{testPost("a", 10, 3)})
	require.Eventually(t, func() bool { return len(sync.Posts()) == 1 }, time.Second, 5*time.Millisecond)

	remote.emitError(errors.New("snapshot delivery failed"))

	posts := sync.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "a", posts[0].ID)
}

func TestInsertLocalDedupesByID(t *testing.T) {
	sync, _, _ := newTestSynchronizer(t)

	post := testPost("a", 10, 0)
	sync.insertLocal(post)
	sync.insertLocal(post)

	assert.Len(t, sync.Posts(), 1)

	sync.insertLocal(testPost("b", 20, 0))
	posts := sync.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, "b", posts[0].ID, "optimistic inserts go to the head")
}

func TestSubscribeSignalsOnPublish(t *testing.T) {
	sync, remote, _ := newTestSynchronizer(t)
	sync.Start(context.Background())
	defer sync.Stop()

	first, cancelFirst := sync.Subscribe()
	second, cancelSecond := sync.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	remote.push([]models.Post{testPost("a", 10, 0)})

	for _, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("listener was not signalled")
		}
	}
}

func TestOpenDetailUnknownID(t *testing.T) {
	sync, _, _ := newTestSynchronizer(t)

	_, ok := sync.OpenDetail("missing")
	assert.False(t, ok)

	_, ok = sync.Detail()
	assert.False(t, ok)
}
