package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	// DevCode, when set, is accepted as the verification code for every
	// phone number instead of a random one. Dev/demo only.
	DevCode string
	CodeTTL time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("PICBOOK_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("PICBOOK_JWT_ISSUER")
	if issuer == "" {
		issuer = "picbook"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: durationEnv("PICBOOK_JWT_TTL_HOURS", 24) * time.Hour,
		DevCode:     os.Getenv("PICBOOK_DEV_CODE"),
		CodeTTL:     5 * time.Minute,
	}
}

// ProviderConfig holds everything needed to reach the two AI services.
type ProviderConfig struct {
	ChatBaseURL  string
	ChatAPIKey   string
	ChatModel    string
	ChatTimeout  time.Duration
	ImageBaseURL string
	ImageAPIKey  string
	ImageTimeout time.Duration
	// MockImages replaces the image provider with canned placeholder
	// URLs so the workflow can be exercised without an API key.
	MockImages bool
}

func LoadProviderConfig() ProviderConfig {
	chatBase := os.Getenv("PICBOOK_CHAT_BASE_URL")
	if chatBase == "" {
		chatBase = "https://api.deepseek.com/v1"
	}

	chatModel := os.Getenv("PICBOOK_CHAT_MODEL")
	if chatModel == "" {
		chatModel = "deepseek-chat"
	}

	imageBase := os.Getenv("PICBOOK_IMAGE_BASE_URL")
	if imageBase == "" {
		imageBase = "https://external.api.recraft.ai/v1"
	}

	return ProviderConfig{
		ChatBaseURL:  chatBase,
		ChatAPIKey:   os.Getenv("PICBOOK_CHAT_API_KEY"),
		ChatModel:    chatModel,
		ChatTimeout:  durationEnv("PICBOOK_CHAT_TIMEOUT_SECONDS", 60) * time.Second,
		ImageBaseURL: imageBase,
		ImageAPIKey:  os.Getenv("PICBOOK_IMAGE_API_KEY"),
		ImageTimeout: durationEnv("PICBOOK_IMAGE_TIMEOUT_SECONDS", 90) * time.Second,
		MockImages:   os.Getenv("PICBOOK_MOCK_IMAGES") == "true",
	}
}

func durationEnv(key string, fallback int64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return time.Duration(fallback)
	}
	return time.Duration(n)
}
