package config

import (
	"os"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Facebook struct {
	PageID      string
	AccessToken string
	APIVersion  string
}

type Twitter struct {
	BearerToken string
}

type Reddit struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Subreddit    string
	UserAgent    string
}

type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	PostgresURI        string
	FrontendURL        string
	MediaDir           string
	PollInterval       time.Duration
	Facebook           Facebook
	Twitter            Twitter
	Reddit             Reddit
	R2                 R2
	SecretKey          string
	CookieName         string
}

func LoadConfig() *Config {
	return &Config{
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		MediaDir:           getEnv("MEDIA_DIR", "./media"),
		PollInterval:       getEnvDuration("POLL_INTERVAL", time.Minute),
		Facebook: Facebook{
			PageID:      getEnv("FACEBOOK_PAGE_ID", ""),
			AccessToken: getEnv("FACEBOOK_ACCESS_TOKEN", ""),
			APIVersion:  getEnv("FACEBOOK_API_VERSION", "v21.0"),
		},
		Twitter: Twitter{
			BearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		},
		Reddit: Reddit{
			ClientID:     getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
			RefreshToken: getEnv("REDDIT_REFRESH_TOKEN", ""),
			Subreddit:    getEnv("REDDIT_SUBREDDIT", ""),
			UserAgent:    getEnv("REDDIT_USER_AGENT", "postqueue/1.0"),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "postqueue_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
