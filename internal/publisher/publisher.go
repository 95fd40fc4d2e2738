package publisher

import (
	"context"
	"fmt"
	"log"

	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/models"
)

// Publisher submits a post to one platform. Implementations never return an
// error: any failure (missing credentials, validation, transport) is carried
// inside the PublishResult so sibling platforms stay unaffected.
type Publisher interface {
	Publish(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult
}

// Registry maps platform identifiers to their publisher. Facebook and
// Instagram share the Graph API variant.
type Registry map[string]Publisher

func NewRegistry(cfg config.Config) Registry {
	graph := NewFacebookPublisher(cfg.Facebook)
	return Registry{
		"facebook":  graph,
		"instagram": graph,
		"twitter":   NewTwitterPublisher(cfg.Twitter),
		"reddit":    NewRedditPublisher(cfg.Reddit),
	}
}

// Publish dispatches to the platform's publisher. Unknown platforms and
// panicking adapters yield a failure result instead of an error so the rest
// of the post's platforms still get their attempt.
func (r Registry) Publish(ctx context.Context, platform string, post *models.Post, assets []*models.MediaAsset) (result models.PublishResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered from %s publisher panic: %v", platform, rec)
			result = failure(fmt.Sprintf("publish panic: %v", rec))
		}
	}()

	p, ok := r[platform]
	if !ok {
		return failure("unsupported platform")
	}
	return p.Publish(ctx, post, assets)
}

func failure(message string) models.PublishResult {
	return models.PublishResult{Success: false, Error: message}
}
