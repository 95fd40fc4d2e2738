package models

import "time"

type Post struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	Caption         string     `db:"caption" json:"caption"`
	Platforms       []string   `db:"platforms" json:"platforms"`
	Status          string     `db:"status" json:"status"` // draft, scheduled, published, partially_published, failed
	ScheduledAt     *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PostedAt        *time.Time `db:"posted_at" json:"posted_at,omitempty"`
	PlatformResults []byte     `db:"platform_results" json:"platform_results,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	LocalPath string    `db:"local_path" json:"-"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	PostStatusDraft              = "draft"
	PostStatusScheduled          = "scheduled"
	PostStatusPublished          = "published"
	PostStatusPartiallyPublished = "partially_published"
	PostStatusFailed             = "failed"
)

// PublishResult is the per-platform outcome of one publish attempt. It is
// never stored on its own; the scheduler folds the per-post map of results
// into the post's status and platform_results audit column.
type PublishResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}
