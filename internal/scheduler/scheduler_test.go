package scheduler

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/publisher"
)

type writtenResult struct {
	postID int64
	status string
	audit  string
}

type fakePostRepo struct {
	due     []*models.Post
	dueErr  error
	written []writtenResult
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}

func (f *fakePostRepo) Schedule(ctx context.Context, postID int64, platforms []string, scheduledAt time.Time) error {
	return nil
}

func (f *fakePostRepo) GetDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	var due []*models.Post
	for _, post := range f.due {
		if post.Status == models.PostStatusScheduled && post.ScheduledAt != nil && !post.ScheduledAt.After(now) {
			due = append(due, post)
		}
	}
	return due, nil
}

func (f *fakePostRepo) WriteResult(ctx context.Context, postID int64, status string, postedAt time.Time, audit []byte) error {
	f.written = append(f.written, writtenResult{postID: postID, status: status, audit: string(audit)})
	return nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type fakeAssetRepo struct {
	byPost map[int64][]*models.MediaAsset
	panics map[int64]bool
}

func (f *fakeAssetRepo) Create(ctx context.Context, tx *sql.Tx, asset *models.MediaAsset) (int64, error) {
	return 0, nil
}

func (f *fakeAssetRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, nil
}

func (f *fakeAssetRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	if f.panics[postID] {
		panic("asset lookup exploded")
	}
	return f.byPost[postID], nil
}

func (f *fakeAssetRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type fakeHistoryRepo struct {
	rows []*models.PublishHistory
}

func (f *fakeHistoryRepo) Create(ctx context.Context, ph *models.PublishHistory) (int64, error) {
	f.rows = append(f.rows, ph)
	return int64(len(f.rows)), nil
}

func (f *fakeHistoryRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.PublishHistory, error) {
	return f.rows, nil
}

func (f *fakeHistoryRepo) GetByPostID(ctx context.Context, postID int64) ([]*models.PublishHistory, error) {
	return f.rows, nil
}

type publisherFunc func(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult

func (fn publisherFunc) Publish(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult {
	return fn(ctx, post, assets)
}

func okPublisher() publisher.Publisher {
	return publisherFunc(func(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult {
		return models.PublishResult{Success: true, PostID: "remote-1"}
	})
}

func panickingPublisher() publisher.Publisher {
	return publisherFunc(func(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult {
		panic("adapter bug")
	})
}

func scheduledPost(id int64, at time.Time, platforms ...string) *models.Post {
	return &models.Post{
		ID:          id,
		UserID:      7,
		Caption:     "caption",
		Platforms:   platforms,
		Status:      models.PostStatusScheduled,
		ScheduledAt: &at,
	}
}

func newTestScheduler(pr *fakePostRepo, ma *fakeAssetRepo, ph *fakeHistoryRepo, reg publisher.Registry) *Scheduler {
	if ma.byPost == nil {
		ma.byPost = map[int64][]*models.MediaAsset{}
	}
	if ma.panics == nil {
		ma.panics = map[int64]bool{}
	}
	return New(time.Hour, pr, ma, ph, reg)
}

func TestTickPublishesOnlyDuePosts(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	pr := &fakePostRepo{due: []*models.Post{
		scheduledPost(1, now.Add(-time.Minute), "facebook"),
		scheduledPost(2, now.Add(time.Hour), "facebook"),
		{ID: 3, Status: models.PostStatusDraft},
	}}
	ph := &fakeHistoryRepo{}
	s := newTestScheduler(pr, &fakeAssetRepo{}, ph, publisher.Registry{"facebook": okPublisher()})

	s.Tick(context.Background(), now)

	if len(pr.written) != 1 {
		t.Fatalf("wrote %d results, want 1", len(pr.written))
	}
	if pr.written[0].postID != 1 {
		t.Fatalf("published post %d, want 1", pr.written[0].postID)
	}
	if pr.written[0].status != models.PostStatusPublished {
		t.Fatalf("status = %q", pr.written[0].status)
	}
	if len(ph.rows) != 1 || ph.rows[0].Platform != "facebook" || !ph.rows[0].Success {
		t.Fatalf("unexpected history rows: %+v", ph.rows)
	}
}

func TestTickProcessesPostsInRepositoryOrder(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	pr := &fakePostRepo{due: []*models.Post{
		scheduledPost(11, now.Add(-3*time.Hour), "facebook"),
		scheduledPost(12, now.Add(-2*time.Hour), "facebook"),
		scheduledPost(13, now.Add(-time.Hour), "facebook"),
	}}
	s := newTestScheduler(pr, &fakeAssetRepo{}, &fakeHistoryRepo{}, publisher.Registry{"facebook": okPublisher()})

	s.Tick(context.Background(), now)

	if len(pr.written) != 3 {
		t.Fatalf("wrote %d results, want 3", len(pr.written))
	}
	for i, want := range []int64{11, 12, 13} {
		if pr.written[i].postID != want {
			t.Fatalf("position %d got post %d, want %d", i, pr.written[i].postID, want)
		}
	}
}

func TestAdapterPanicFailsOnlyThatPlatform(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	pr := &fakePostRepo{due: []*models.Post{
		scheduledPost(21, now.Add(-time.Minute), "facebook", "twitter"),
	}}
	ph := &fakeHistoryRepo{}
	reg := publisher.Registry{
		"facebook": okPublisher(),
		"twitter":  panickingPublisher(),
	}
	s := newTestScheduler(pr, &fakeAssetRepo{}, ph, reg)

	s.Tick(context.Background(), now)

	if len(pr.written) != 1 {
		t.Fatalf("wrote %d results, want 1", len(pr.written))
	}
	if pr.written[0].status != models.PostStatusPartiallyPublished {
		t.Fatalf("status = %q, want %q", pr.written[0].status, models.PostStatusPartiallyPublished)
	}
	if !strings.Contains(pr.written[0].audit, "publish panic") {
		t.Fatalf("audit does not record the panic: %s", pr.written[0].audit)
	}

	var twitterRow *models.PublishHistory
	for _, row := range ph.rows {
		if row.Platform == "twitter" {
			twitterRow = row
		}
	}
	if twitterRow == nil || twitterRow.Success {
		t.Fatalf("twitter history row missing or marked successful: %+v", ph.rows)
	}
}

func TestBrokenPostDoesNotStopTheTick(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	pr := &fakePostRepo{due: []*models.Post{
		scheduledPost(31, now.Add(-2*time.Minute), "facebook"),
		scheduledPost(32, now.Add(-time.Minute), "facebook"),
	}}
	ma := &fakeAssetRepo{panics: map[int64]bool{31: true}}
	s := newTestScheduler(pr, ma, &fakeHistoryRepo{}, publisher.Registry{"facebook": okPublisher()})

	s.Tick(context.Background(), now)

	if len(pr.written) != 2 {
		t.Fatalf("wrote %d results, want 2", len(pr.written))
	}
	if pr.written[0].postID != 31 || pr.written[0].status != models.PostStatusFailed {
		t.Fatalf("broken post result = %+v", pr.written[0])
	}
	if pr.written[1].postID != 32 || pr.written[1].status != models.PostStatusPublished {
		t.Fatalf("sibling post result = %+v", pr.written[1])
	}
}

func TestAllPlatformsFailingMarksPostFailed(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	pr := &fakePostRepo{due: []*models.Post{
		scheduledPost(41, now.Add(-time.Minute), "facebook"),
	}}
	reg := publisher.Registry{
		"facebook": publisherFunc(func(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult {
			return models.PublishResult{Error: "missing Facebook credentials"}
		}),
	}
	s := newTestScheduler(pr, &fakeAssetRepo{}, &fakeHistoryRepo{}, reg)

	s.Tick(context.Background(), now)

	if len(pr.written) != 1 || pr.written[0].status != models.PostStatusFailed {
		t.Fatalf("results = %+v", pr.written)
	}
	if !strings.Contains(pr.written[0].audit, "missing Facebook credentials") {
		t.Fatalf("audit does not carry the platform error: %s", pr.written[0].audit)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	s := newTestScheduler(&fakePostRepo{}, &fakeAssetRepo{}, &fakeHistoryRepo{}, publisher.Registry{})

	if s.Running() {
		t.Fatal("scheduler reports running before Start")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("scheduler not running after Start")
	}
	if err := s.Start(); err == nil {
		t.Fatal("second Start did not error")
	}

	s.Stop()
	if s.Running() {
		t.Fatal("scheduler still running after Stop")
	}
	s.Stop()
}
