package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/publisher"
	"github.com/maheshrc27/postqueue/internal/repository"
	"github.com/robfig/cron/v3"
)

// Scheduler polls the post repository on a fixed interval and publishes due
// posts. Exactly one instance is expected per deployment: running two against
// the same database can publish posts twice, as nothing locks the due-post
// query.
type Scheduler struct {
	interval   time.Duration
	pr         repository.PostRepository
	ma         repository.MediaAssetRepository
	ph         repository.PublishHistoryRepository
	publishers publisher.Registry

	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

func New(
	interval time.Duration,
	pr repository.PostRepository,
	ma repository.MediaAssetRepository,
	ph repository.PublishHistoryRepository,
	publishers publisher.Registry) *Scheduler {
	return &Scheduler{
		interval:   interval,
		pr:         pr,
		ma:         ma,
		ph:         ph,
		publishers: publishers,
	}
}

// Start spawns the polling task. A tick that runs long is never overlapped by
// the next one; it is skipped instead.
func (s *Scheduler) Start() error {
	if s.running {
		return errors.New("scheduler is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Tick(ctx, time.Now())
	})
	if err != nil {
		cancel()
		return err
	}
	c.Start()

	s.cron = c
	s.running = true
	log.Println("Scheduler started")
	return nil
}

// Stop cancels the polling task and waits for an in-flight tick to unwind.
// An in-flight platform call may still run up to its own HTTP timeout.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	log.Println("Scheduler stopped")
}

func (s *Scheduler) Running() bool {
	return s.running
}

// Tick publishes every due post once, sequentially, in the order the
// repository returns them. Errors never escape: a broken post is marked
// failed and the loop moves on.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from scheduler tick panic: %v", r)
		}
	}()

	posts, err := s.pr.GetDuePosts(ctx, now)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, post := range posts {
		s.processPost(ctx, post)
	}
}

func (s *Scheduler) processPost(ctx context.Context, post *models.Post) {
	defer func() {
		if r := recover(); r != nil {
			// An adapter bug fails this post only, never the tick.
			log.Printf("Recovered while publishing post %d: %v", post.ID, r)
			s.writeFailure(ctx, post, fmt.Sprintf("publish panic: %v", r))
		}
	}()

	assets, err := s.ma.ListByPostID(ctx, post.ID)
	if err != nil {
		s.writeFailure(ctx, post, fmt.Sprintf("error loading media: %v", err))
		return
	}

	results := make(map[string]models.PublishResult, len(post.Platforms))
	for _, platform := range post.Platforms {
		results[platform] = s.publishers.Publish(ctx, platform, post, assets)
	}

	agg := publisher.Aggregate(results, time.Now())
	audit, err := json.Marshal(agg.Audit)
	if err != nil {
		slog.Info(err.Error())
	}

	if err := s.pr.WriteResult(ctx, post.ID, agg.Status, agg.PostedAt, audit); err != nil {
		slog.Info(err.Error())
	}

	for _, platform := range post.Platforms {
		result := results[platform]
		history := models.PublishHistory{
			UserID:         post.UserID,
			PostID:         post.ID,
			Platform:       platform,
			Success:        result.Success,
			PlatformPostID: result.PostID,
			ErrorMessage:   result.Error,
		}
		if _, err := s.ph.Create(ctx, &history); err != nil {
			log.Printf("Error saving publish history for post %d: %v", post.ID, err)
		}
	}

	log.Printf("Published post %d: status=%s", post.ID, agg.Status)
}

func (s *Scheduler) writeFailure(ctx context.Context, post *models.Post, reason string) {
	audit, _ := json.Marshal(map[string]string{"error": reason})
	if err := s.pr.WriteResult(ctx, post.ID, models.PostStatusFailed, time.Now(), audit); err != nil {
		slog.Info(err.Error())
	}
}
