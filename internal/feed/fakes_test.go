package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/geodrop-app/geodrop/backend/internal/models"
	"github.com/geodrop-app/geodrop/backend/internal/stores"
)

// fakeRemote is an in-memory RemoteStore whose snapshots are pushed by the
// test. It counts active live subscriptions so idempotence of Start/Stop can
// be observed.
type fakeRemote struct {
	mu          sync.Mutex
	snapshots   chan []models.Post
	active      int
	onErr       stores.ErrHandler
	created     []models.Post
	deleted     []string
	likeAdjusts map[string]int
	failWrites  bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		snapshots:   make(chan []models.Post, 16),
		likeAdjusts: make(map[string]int),
	}
}

func (f *fakeRemote) CreateOrReplace(_ context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("remote store down")
	}
	f.created = append(f.created, *post)
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("remote store down")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) GetByID(_ context.Context, id string) (*models.Post, error) {
	return nil, nil
}

func (f *fakeRemote) AdjustLikeCount(_ context.Context, id string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("remote store down")
	}
	f.likeAdjusts[id] += delta
	return nil
}

func (f *fakeRemote) LiveQuery(ctx context.Context, onErr stores.ErrHandler) <-chan []models.Post {
	f.mu.Lock()
	f.active++
	f.onErr = onErr
	f.mu.Unlock()

	ch := make(chan []models.Post, 1)
	go func() {
		defer close(ch)
		defer func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case snapshot := <-f.snapshots:
				select {
				case <-ctx.Done():
					return
				case ch <- snapshot:
				}
			}
		}
	}()
	return ch
}

func (f *fakeRemote) push(snapshot []models.Post) {
	f.snapshots <- snapshot
}

func (f *fakeRemote) activeSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeRemote) emitError(err error) {
	f.mu.Lock()
	onErr := f.onErr
	f.mu.Unlock()
	if onErr != nil {
		onErr(err)
	}
}

func (f *fakeRemote) createdPosts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Post, len(f.created))
	copy(out, f.created)
	return out
}

func (f *fakeRemote) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func (f *fakeRemote) likeAdjustFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likeAdjusts[id]
}

// memLocal is an in-memory LocalStore.
type memLocal struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemLocal() *memLocal {
	return &memLocal{data: make(map[string][]byte)}
}

func (m *memLocal) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memLocal) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

// fakeBlobs is an in-memory BlobStore.
type fakeBlobs struct {
	mu      sync.Mutex
	puts    int
	failAll bool
	objects map[string][]byte
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Put(_ context.Context, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAll {
		return "", errors.New("bucket unavailable")
	}
	url := fmt.Sprintf("https://blobs.test/%d", b.puts)
	b.puts++
	cp := make([]byte, len(data))
	copy(cp, data)
	b.objects[url] = cp
	return url, nil
}

func (b *fakeBlobs) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, url)
	b.deleted = append(b.deleted, url)
	return nil
}

func (b *fakeBlobs) Get(_ context.Context, url string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[url], nil
}

func (b *fakeBlobs) deletedURLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.deleted))
	copy(out, b.deleted)
	return out
}

// fakeAwarder records reputation awards.
type fakeAwarder struct {
	mu     sync.Mutex
	awards map[string]int
}

func newFakeAwarder() *fakeAwarder {
	return &fakeAwarder{awards: make(map[string]int)}
}

func (a *fakeAwarder) AwardReputation(_ context.Context, userID string, points int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.awards[userID] += points
	return nil
}

func (a *fakeAwarder) awardFor(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.awards[userID]
}

// fakeReports records moderation records.
type fakeReports struct {
	mu   sync.Mutex
	rows []models.Report
}

func newFakeReports() *fakeReports {
	return &fakeReports{}
}

func (r *fakeReports) CreateReport(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *report)
	return nil
}

func (r *fakeReports) reports() []models.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Report, len(r.rows))
	copy(out, r.rows)
	return out
}

// makeJPEG renders a solid-color JPEG for upload tests.
func makeJPEG(width, height int) []byte {
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
