package publisher

import (
	"reflect"
	"testing"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
)

func TestAggregateAllSucceeded(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	results := map[string]models.PublishResult{
		"facebook": {Success: true, PostID: "fb_1"},
		"twitter":  {Success: true, PostID: "tw_1"},
	}

	agg := Aggregate(results, at)
	if agg.Status != models.PostStatusPublished {
		t.Fatalf("Status = %s, want %s", agg.Status, models.PostStatusPublished)
	}
	if !agg.Audit.AllPlatformsSuccessful {
		t.Fatal("AllPlatformsSuccessful = false, want true")
	}
	if !reflect.DeepEqual(agg.Audit.SuccessfulPlatforms, []string{"facebook", "twitter"}) {
		t.Fatalf("SuccessfulPlatforms = %v", agg.Audit.SuccessfulPlatforms)
	}
	if len(agg.Audit.FailedPlatforms) != 0 {
		t.Fatalf("FailedPlatforms = %v, want empty", agg.Audit.FailedPlatforms)
	}
	if !agg.PostedAt.Equal(at) {
		t.Fatalf("PostedAt = %v, want %v", agg.PostedAt, at)
	}
}

func TestAggregatePartialSuccess(t *testing.T) {
	t.Parallel()
	results := map[string]models.PublishResult{
		"facebook": {Success: true, PostID: "fb_1"},
		"reddit":   {Success: false, Error: "Reddit API error: RATELIMIT"},
	}

	agg := Aggregate(results, time.Now())
	if agg.Status != models.PostStatusPartiallyPublished {
		t.Fatalf("Status = %s, want %s", agg.Status, models.PostStatusPartiallyPublished)
	}
	if !reflect.DeepEqual(agg.Audit.SuccessfulPlatforms, []string{"facebook"}) {
		t.Fatalf("SuccessfulPlatforms = %v, want [facebook]", agg.Audit.SuccessfulPlatforms)
	}
	if !reflect.DeepEqual(agg.Audit.FailedPlatforms, []string{"reddit"}) {
		t.Fatalf("FailedPlatforms = %v, want [reddit]", agg.Audit.FailedPlatforms)
	}
	if agg.Audit.Errors["reddit"] != "Reddit API error: RATELIMIT" {
		t.Fatalf("Errors[reddit] = %q", agg.Audit.Errors["reddit"])
	}
	if agg.Audit.AllPlatformsSuccessful {
		t.Fatal("AllPlatformsSuccessful = true, want false")
	}
}

func TestAggregateAllFailed(t *testing.T) {
	t.Parallel()
	results := map[string]models.PublishResult{
		"twitter": {Success: false, Error: "missing Twitter credentials"},
		"reddit":  {Success: false, Error: "missing Reddit credentials"},
	}

	agg := Aggregate(results, time.Now())
	if agg.Status != models.PostStatusFailed {
		t.Fatalf("Status = %s, want %s", agg.Status, models.PostStatusFailed)
	}
	if len(agg.Audit.Errors) != 2 {
		t.Fatalf("Errors = %v, want both failure reasons", agg.Audit.Errors)
	}
}

func TestAggregateEmptyResults(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)

	agg := Aggregate(nil, at)
	if agg.Status != models.PostStatusFailed {
		t.Fatalf("Status = %s, want %s", agg.Status, models.PostStatusFailed)
	}
	// posted_at is stamped even when nothing was attempted, so the
	// dashboard can show the last attempt time.
	if !agg.PostedAt.Equal(at) {
		t.Fatalf("PostedAt = %v, want %v", agg.PostedAt, at)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	results := map[string]models.PublishResult{
		"facebook": {Success: true},
		"twitter":  {Success: false, Error: "timeout"},
	}

	first := Aggregate(results, at)
	second := Aggregate(results, at)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregation is not idempotent: %+v vs %+v", first, second)
	}
}
