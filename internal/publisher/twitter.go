package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/models"
)

const tweetMaxLength = 280

type TwitterPublisher struct {
	cfg       config.Twitter
	client    *http.Client
	uploadURL string
	apiURL    string
}

type twitterMediaResponse struct {
	MediaIDString string `json:"media_id_string"`
}

type twitterTweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Detail string `json:"detail"`
}

func NewTwitterPublisher(cfg config.Twitter) *TwitterPublisher {
	return &TwitterPublisher{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		uploadURL: "https://upload.twitter.com/1.1/media/upload.json",
		apiURL:    "https://api.twitter.com",
	}
}

func (t *TwitterPublisher) Publish(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult {
	if t.cfg.BearerToken == "" {
		return failure("missing Twitter credentials")
	}

	// Length is enforced here, not upstream: a too-long caption is a local
	// failure and never reaches the network.
	if utf8.RuneCountInString(post.Caption) > tweetMaxLength {
		return failure(fmt.Sprintf("caption exceeds %d characters", tweetMaxLength))
	}

	var mediaIDs []string
	if len(assets) > 0 {
		mediaID, err := t.uploadMedia(ctx, assets[0].LocalPath)
		if err != nil {
			// Step 2 is skipped when the media upload fails.
			return failure(err.Error())
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	tweetID, err := t.createTweet(ctx, post.Caption, mediaIDs)
	if err != nil {
		return failure(err.Error())
	}

	return models.PublishResult{
		Success: true,
		PostID:  tweetID,
		URL:     fmt.Sprintf("https://twitter.com/i/web/status/%s", tweetID),
	}
}

// uploadMedia is step one of the two-step flow: the image bytes go to the
// media endpoint, which returns the media id the tweet references.
func (t *TwitterPublisher) uploadMedia(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening media file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Twitter media upload failed: %s (status code: %d)", respBody, resp.StatusCode)
	}

	var media twitterMediaResponse
	if err := json.Unmarshal(respBody, &media); err != nil {
		return "", fmt.Errorf("error parsing media response: %w", err)
	}
	if media.MediaIDString == "" {
		return "", fmt.Errorf("no media ID returned from Twitter")
	}

	return media.MediaIDString, nil
}

func (t *TwitterPublisher) createTweet(ctx context.Context, text string, mediaIDs []string) (string, error) {
	payload := map[string]interface{}{
		"text": text,
	}
	if len(mediaIDs) > 0 {
		payload["media"] = map[string]interface{}{
			"media_ids": mediaIDs,
		}
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/2/tweets", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var tweet twitterTweetResponse
	if err := json.Unmarshal(respBody, &tweet); err != nil {
		return "", fmt.Errorf("error parsing tweet response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		if len(tweet.Errors) > 0 {
			return "", fmt.Errorf("Twitter API error: %s", tweet.Errors[0].Message)
		}
		if tweet.Detail != "" {
			return "", fmt.Errorf("Twitter API error: %s", tweet.Detail)
		}
		return "", fmt.Errorf("unexpected status code from Twitter: %d", resp.StatusCode)
	}

	if tweet.Data.ID == "" {
		return "", fmt.Errorf("no tweet ID returned from Twitter")
	}

	return tweet.Data.ID, nil
}
