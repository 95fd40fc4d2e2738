package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/models"
	"golang.org/x/oauth2"
)

const redditTitleMaxLength = 100

type RedditPublisher struct {
	cfg      config.Reddit
	client   *http.Client
	apiURL   string
	tokenURL string

	mu          sync.Mutex
	accessToken string
}

type redditSubmitResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

func NewRedditPublisher(cfg config.Reddit) *RedditPublisher {
	return &RedditPublisher{
		cfg:      cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
		apiURL:   "https://oauth.reddit.com",
		tokenURL: "https://www.reddit.com/api/v1/access_token",
	}
}

func (r *RedditPublisher) Publish(ctx context.Context, post *models.Post, assets []*models.MediaAsset) models.PublishResult {
	if r.cfg.ClientID == "" || r.cfg.ClientSecret == "" || r.cfg.RefreshToken == "" {
		return failure("missing Reddit credentials")
	}
	if r.cfg.Subreddit == "" {
		return failure("no subreddit configured")
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("sr", r.cfg.Subreddit)
	form.Set("title", redditTitle(post.Caption))
	if len(assets) > 0 {
		form.Set("kind", "link")
		form.Set("url", assets[0].FileURL)
	} else {
		form.Set("kind", "self")
		form.Set("text", post.Caption)
	}

	name, postURL, err := r.submit(ctx, form)
	if err != nil {
		return failure(err.Error())
	}

	return models.PublishResult{
		Success: true,
		PostID:  name,
		URL:     postURL,
	}
}

// submit posts the form to /api/submit. An expired bearer gets exactly one
// refresh-and-retry; any further 401/403 is a failure.
func (r *RedditPublisher) submit(ctx context.Context, form url.Values) (string, string, error) {
	resp, err := r.doSubmit(ctx, form)
	if err != nil {
		return "", "", err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		if err := r.refreshAccessToken(ctx); err != nil {
			return "", "", fmt.Errorf("error refreshing Reddit token: %w", err)
		}
		resp, err = r.doSubmit(ctx, form)
		if err != nil {
			return "", "", err
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("Reddit API error: %s (status code: %d)", respBody, resp.StatusCode)
	}

	var submit redditSubmitResponse
	if err := json.Unmarshal(respBody, &submit); err != nil {
		return "", "", fmt.Errorf("error parsing submit response: %w", err)
	}
	if len(submit.JSON.Errors) > 0 {
		return "", "", fmt.Errorf("Reddit API error: %v", submit.JSON.Errors[0])
	}

	return submit.JSON.Data.Name, submit.JSON.Data.URL, nil
}

func (r *RedditPublisher) doSubmit(ctx context.Context, form url.Values) (*http.Response, error) {
	token, err := r.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return resp, nil
}

func (r *RedditPublisher) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	token := r.accessToken
	r.mu.Unlock()
	if token != "" {
		return token, nil
	}
	if err := r.refreshAccessToken(ctx); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessToken, nil
}

func (r *RedditPublisher) refreshAccessToken(ctx context.Context) error {
	conf := &oauth2.Config{
		ClientID:     r.cfg.ClientID,
		ClientSecret: r.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: r.cfg.RefreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	r.mu.Lock()
	r.accessToken = token.AccessToken
	r.mu.Unlock()
	return nil
}

// redditTitle derives the submission title from the caption's first hundred
// or so characters.
func redditTitle(caption string) string {
	runes := []rune(strings.TrimSpace(caption))
	if len(runes) <= redditTitleMaxLength {
		return string(runes)
	}
	return string(runes[:redditTitleMaxLength])
}
