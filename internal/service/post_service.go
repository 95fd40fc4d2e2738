package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/models"
	"github.com/maheshrc27/postqueue/internal/repository"
	"github.com/maheshrc27/postqueue/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const scheduledTimeLayout = "2006-01-02T15:04"

var supportedPlatforms = map[string]struct{}{
	"facebook": {}, "instagram": {}, "reddit": {}, "twitter": {},
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error)
	SchedulePost(ctx context.Context, userID int64, su *transfer.ScheduleUpdate) error
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	History(ctx context.Context, userID int64) ([]*models.PublishHistory, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	cfg config.Config
	db  *sql.DB
	pr  repository.PostRepository
	ma  repository.MediaAssetRepository
	pm  repository.PostMediaRepository
	ph  repository.PublishHistoryRepository
	r2  R2Service
}

func NewPostService(
	cfg config.Config,
	db *sql.DB,
	pr repository.PostRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	ph repository.PublishHistoryRepository,
	r2 R2Service) PostService {
	return &postService{
		cfg: cfg,
		db:  db,
		pr:  pr,
		ma:  ma,
		pm:  pm,
		ph:  ph,
		r2:  r2,
	}
}

// CreatePost stores a new post, optionally with media files and an initial
// schedule. Without a scheduled time the post stays a draft until
// SchedulePost promotes it.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Caption == "" {
		err := errors.New("caption cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}

	var platforms []string
	if pc.Platforms != "" {
		if err := json.Unmarshal([]byte(pc.Platforms), &platforms); err != nil {
			err = fmt.Errorf("invalid platforms format: %w", err)
			slog.Error(err.Error())
			return 0, err
		}
		for _, p := range platforms {
			if _, ok := supportedPlatforms[p]; !ok {
				err := fmt.Errorf("platform %s is not supported", p)
				slog.Info(err.Error())
				return 0, err
			}
		}
	}

	status := models.PostStatusDraft
	var scheduledAt *time.Time
	if pc.ScheduledTime != "" {
		t, err := time.Parse(scheduledTimeLayout, pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, err
		}
		if len(platforms) == 0 {
			err := errors.New("no platforms selected for scheduled post")
			slog.Info(err.Error())
			return 0, err
		}
		scheduledAt = &t
		status = models.PostStatusScheduled
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:      userID,
		Caption:     pc.Caption,
		Platforms:   platforms,
		Status:      status,
		ScheduledAt: scheduledAt,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
		return 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return postID, nil
}

// SchedulePost moves a post into the scheduled state. This is the only way a
// failed or partially published post gets another attempt.
func (s *postService) SchedulePost(ctx context.Context, userID int64, su *transfer.ScheduleUpdate) error {
	if su == nil || su.PostID == 0 {
		err := errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}
	if len(su.Platforms) == 0 {
		err := errors.New("no platforms selected")
		slog.Info(err.Error())
		return err
	}
	for _, p := range su.Platforms {
		if _, ok := supportedPlatforms[p]; !ok {
			err := fmt.Errorf("platform %s is not supported", p)
			slog.Info(err.Error())
			return err
		}
	}

	scheduledAt, err := time.Parse(scheduledTimeLayout, su.ScheduledTime)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, su.PostID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	return s.pr.Schedule(ctx, su.PostID, su.Platforms, scheduledAt)
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"jpeg": {}, "png": {}, "jpg": {}, "gif": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, fileType.MIME.Value, fileType.Extension, fileBytes)
		if err != nil {
			return fmt.Errorf("error saving file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

// saveFile keeps the original bytes on local disk (the Facebook publisher
// uploads from a file) and mirrors them to R2 for a public URL.
func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, mimeType, ext string, file []byte) (int64, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	fileName := fmt.Sprintf("%s.%s", id, ext)
	localPath := filepath.Join(s.cfg.MediaDir, fileName)
	if err := os.MkdirAll(s.cfg.MediaDir, 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(localPath, file, 0o644); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	fileURL, err := s.r2.UploadToR2(ctx, fileName, file, mimeType)
	if err != nil {
		return 0, err
	}

	ma := models.MediaAsset{
		UserID:    userID,
		FileName:  fileName,
		FileType:  mimeType,
		FileSize:  int64(len(file)),
		LocalPath: localPath,
		FileURL:   fileURL,
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

func (s *postService) History(ctx context.Context, userID int64) ([]*models.PublishHistory, error) {
	history, err := s.ph.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting publish history")
	}
	return history, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}
