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

	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/models"
)

// FacebookPublisher posts to a Facebook page through the Graph API. The same
// variant serves Instagram business accounts linked to the page.
type FacebookPublisher struct {
	cfg     config.Facebook
	client  *http.Client
	baseURL string
}

type graphErrorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

type graphObjectResponse struct {
	ID string `json:"id"`
}

func NewFacebookPublisher(cfg config.Facebook) *FacebookPublisher {
	return &FacebookPublisher{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://graph.facebook.com",
	}
}

func (f *FacebookPublisher) Publish(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult {
	if f.cfg.AccessToken == "" || f.cfg.PageID == "" {
		return failure("missing Facebook credentials")
	}

	var objectID string
	var err error
	if len(assets) > 0 {
		objectID, err = f.uploadPhoto(ctx, assets[0].LocalPath, post.Caption)
	} else {
		objectID, err = f.publishTextOnly(ctx, post.Caption)
	}
	if err != nil {
		return failure(err.Error())
	}

	return models.PublishResult{
		Success: true,
		PostID:  objectID,
		URL:     fmt.Sprintf("https://www.facebook.com/%s", objectID),
	}
}

// uploadPhoto multipart-uploads a local image to the page's photos endpoint
// with the caption as the accompanying message.
func (f *FacebookPublisher) uploadPhoto(ctx context.Context, path, caption string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening media file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("source", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if caption != "" {
		writer.WriteField("message", caption)
	}
	writer.Close()

	url := fmt.Sprintf("%s/%s/%s/photos", f.baseURL, f.cfg.APIVersion, f.cfg.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.cfg.AccessToken)

	return f.do(req)
}

func (f *FacebookPublisher) publishTextOnly(ctx context.Context, caption string) (string, error) {
	payload := map[string]string{
		"message": caption,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/%s/feed", f.baseURL, f.cfg.APIVersion, f.cfg.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.cfg.AccessToken)

	return f.do(req)
}

func (f *FacebookPublisher) do(req *http.Request) (string, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		// Keep the platform's own message for operator diagnosis.
		var graphErr graphErrorResponse
		if err := json.Unmarshal(respBody, &graphErr); err == nil && graphErr.Error.Message != "" {
			return "", fmt.Errorf("Facebook API error: %s", graphErr.Error.Message)
		}
		return "", fmt.Errorf("unexpected status code from Facebook: %d", resp.StatusCode)
	}

	var object graphObjectResponse
	if err := json.Unmarshal(respBody, &object); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if object.ID == "" {
		return "", fmt.Errorf("no object ID returned from Facebook")
	}

	return object.ID, nil
}
