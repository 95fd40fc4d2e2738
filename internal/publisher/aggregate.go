package publisher

import (
	"sort"
	"time"

	"github.com/maheshrc27/postqueue/internal/models"
)

// Audit is the post-level record of one publish attempt, stored as JSON in
// the post's platform_results column.
type Audit struct {
	AllPlatformsSuccessful bool                            `json:"all_platforms_successful"`
	SuccessfulPlatforms    []string                        `json:"successful_platforms"`
	FailedPlatforms        []string                        `json:"failed_platforms"`
	Errors                 map[string]string               `json:"errors,omitempty"`
	Results                map[string]models.PublishResult `json:"results"`
}

type Aggregation struct {
	Status   string
	PostedAt time.Time
	Audit    Audit
}

// Aggregate folds per-platform outcomes into a post-level status. It is a
// pure function: the same result map always yields the same aggregation, and
// posted_at is stamped with the given time even when every platform failed,
// so "last attempted at" stays visible.
func Aggregate(results map[string]models.PublishResult, at time.Time) Aggregation {
	audit := Audit{
		SuccessfulPlatforms: []string{},
		FailedPlatforms:     []string{},
		Results:             results,
	}
	if audit.Results == nil {
		audit.Results = map[string]models.PublishResult{}
	}

	for platform, result := range results {
		if result.Success {
			audit.SuccessfulPlatforms = append(audit.SuccessfulPlatforms, platform)
		} else {
			audit.FailedPlatforms = append(audit.FailedPlatforms, platform)
			if result.Error != "" {
				if audit.Errors == nil {
					audit.Errors = map[string]string{}
				}
				audit.Errors[platform] = result.Error
			}
		}
	}
	sort.Strings(audit.SuccessfulPlatforms)
	sort.Strings(audit.FailedPlatforms)

	var status string
	switch {
	case len(results) == 0:
		status = models.PostStatusFailed
	case len(audit.FailedPlatforms) == 0:
		status = models.PostStatusPublished
		audit.AllPlatformsSuccessful = true
	case len(audit.SuccessfulPlatforms) == 0:
		status = models.PostStatusFailed
	default:
		status = models.PostStatusPartiallyPublished
	}

	return Aggregation{
		Status:   status,
		PostedAt: at,
		Audit:    audit,
	}
}
