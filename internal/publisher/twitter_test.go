package publisher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/models"
)

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTwitterMissingCredentials(t *testing.T) {
	t.Parallel()
	tw := NewTwitterPublisher(config.Twitter{})

	result := tw.Publish(context.Background(), &models.Post{Caption: "hello"}, nil)
	if result.Success {
		t.Fatal("publish succeeded without credentials")
	}
	if result.Error != "missing Twitter credentials" {
		t.Fatalf("Error = %q", result.Error)
	}
}

func TestTwitterRejectsLongCaptionWithoutNetworkCall(t *testing.T) {
	t.Parallel()
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	tw := NewTwitterPublisher(config.Twitter{BearerToken: "token"})
	tw.apiURL = server.URL
	tw.uploadURL = server.URL

	post := &models.Post{Caption: strings.Repeat("a", 281)}
	result := tw.Publish(context.Background(), post, nil)
	if result.Success {
		t.Fatal("publish succeeded with a 281 character caption")
	}
	if !strings.Contains(result.Error, "280") {
		t.Fatalf("Error = %q, want mention of the length limit", result.Error)
	}
	if called {
		t.Fatal("length violation reached the network")
	}
}

func TestTwitterAcceptsCaptionAtLimit(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1234567890"}}`))
	}))
	defer server.Close()

	tw := NewTwitterPublisher(config.Twitter{BearerToken: "token"})
	tw.apiURL = server.URL

	post := &models.Post{Caption: strings.Repeat("a", 280)}
	result := tw.Publish(context.Background(), post, nil)
	if !result.Success {
		t.Fatalf("publish failed: %s", result.Error)
	}
	if result.PostID != "1234567890" {
		t.Fatalf("PostID = %q", result.PostID)
	}
	if result.URL != "https://twitter.com/i/web/status/1234567890" {
		t.Fatalf("URL = %q", result.URL)
	}
}

func TestTwitterMediaUploadFailureSkipsTweetCreation(t *testing.T) {
	t.Parallel()
	upload := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errors":[{"message":"media type unrecognized"}]}`))
	}))
	defer upload.Close()

	var tweetCalled bool
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tweetCalled = true
	}))
	defer api.Close()

	tw := NewTwitterPublisher(config.Twitter{BearerToken: "token"})
	tw.uploadURL = upload.URL
	tw.apiURL = api.URL

	assets := []*models.MediaAsset{{LocalPath: writeTempImage(t)}}
	result := tw.Publish(context.Background(), &models.Post{Caption: "with media"}, assets)
	if result.Success {
		t.Fatal("publish succeeded despite media upload failure")
	}
	if !strings.Contains(result.Error, "media upload failed") {
		t.Fatalf("Error = %q", result.Error)
	}
	if tweetCalled {
		t.Fatal("tweet creation was attempted after media upload failed")
	}
}

func TestTwitterTwoStepMediaUpload(t *testing.T) {
	t.Parallel()
	upload := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("upload request is not multipart: %v", err)
		}
		if _, _, err := r.FormFile("media"); err != nil {
			t.Errorf("upload request has no media part: %v", err)
		}
		w.Write([]byte(`{"media_id_string":"711041"}`))
	}))
	defer upload.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		if !strings.Contains(string(body), `"711041"`) {
			t.Errorf("tweet does not reference the uploaded media: %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"42"}}`))
	}))
	defer api.Close()

	tw := NewTwitterPublisher(config.Twitter{BearerToken: "token"})
	tw.uploadURL = upload.URL
	tw.apiURL = api.URL

	assets := []*models.MediaAsset{{LocalPath: writeTempImage(t)}}
	result := tw.Publish(context.Background(), &models.Post{Caption: "with media"}, assets)
	if !result.Success {
		t.Fatalf("publish failed: %s", result.Error)
	}
	if result.PostID != "42" {
		t.Fatalf("PostID = %q", result.PostID)
	}
}
