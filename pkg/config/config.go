// Package config provides configuration management for the receptionist
// server, generalizing the teacher's env-var-driven Config/LoadFromEnv/
// Validate shape to the full settings table the receptionist needs:
// telephony, STT/LLM/TTS providers, storage, notifications, and the
// webhook signature-validation mode.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the receptionist server needs at startup.
type Config struct {
	// Server
	Port int

	// Environment mode: "development", "test", or "production".
	AppEnv             string
	SkipTwilioValidation bool
	LogLevel           string
	DashboardPassword  string

	// Telephony (Twilio)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioPhoneNumber string
	PublicBaseURL    string

	// Speech-to-text (Deepgram)
	DeepgramAPIKey string
	STTModel       string

	// LLM (OpenAI)
	OpenAIAPIKey string
	OpenAIModel  string

	// Text-to-speech (ElevenLabs)
	ElevenLabsAPIKey string
	TTSModel         string

	// Storage
	DatabaseURL string

	// Notifications
	StaffPhone      string
	StaffEmail      string
	EmailProvider   string // "sendgrid" | "ses"
	SendGridAPIKey  string
	SendGridFromEmail string
	AWSRegion       string
	SESFromEmail    string
	SMSRateLimit    int
	TranscriptBaseURL string
}

// DefaultConfig returns a Config with the receptionist's sensible
// defaults, matching the teacher's DefaultConfig shape.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		AppEnv:       "development",
		LogLevel:     "info",
		STTModel:     "nova-2",
		OpenAIModel:  "gpt-4o",
		TTSModel:     "eleven_turbo_v2_5",
		EmailProvider: "sendgrid",
		SMSRateLimit: 10,
	}
}

// Load builds a Config from (in increasing precedence) the defaults, an
// optional YAML overlay, and the process environment, matching the
// teacher's LoadFromEnv entry point. A local .env file is first loaded
// into the process environment without overriding variables already set,
// so its values also take precedence over the YAML overlay. On a
// validation failure Load returns a nil Config with the error.
func Load(yamlOverlayPath string) (*Config, error) {
	// Best-effort: a missing .env is normal in production, where secrets
	// come from the deployment environment instead.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if yamlOverlayPath != "" {
		if err := applyYAMLOverlay(cfg, yamlOverlayPath); err != nil {
			return nil, fmt.Errorf("config: yaml overlay: %w", err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyYAMLOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.AppEnv = v
	}
	c.SkipTwilioValidation = os.Getenv("SKIP_TWILIO_VALIDATION") == "true"
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DASHBOARD_PASSWORD"); v != "" {
		c.DashboardPassword = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		c.PublicBaseURL = v
	}

	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		c.TwilioAccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		c.TwilioAuthToken = v
	}
	if v := os.Getenv("TWILIO_PHONE_NUMBER"); v != "" {
		c.TwilioPhoneNumber = v
	}

	if v := os.Getenv("DEEPGRAM_API_KEY"); v != "" {
		c.DeepgramAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAIModel = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		c.ElevenLabsAPIKey = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}

	if v := os.Getenv("STAFF_PHONE"); v != "" {
		c.StaffPhone = v
	}
	if v := os.Getenv("STAFF_EMAIL"); v != "" {
		c.StaffEmail = v
	}
	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		c.EmailProvider = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		c.SendGridAPIKey = v
	}
	if v := os.Getenv("FROM_EMAIL"); v != "" {
		c.SendGridFromEmail = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWSRegion = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		c.SESFromEmail = v
	}
	if v := os.Getenv("SMS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SMSRateLimit = n
		}
	}
	if v := os.Getenv("TRANSCRIPT_BASE_URL"); v != "" {
		c.TranscriptBaseURL = v
	}
}

// IsDevMode reports whether APP_ENV is one of the non-production modes
// the webhook signature check treats as eligible for the skip flag.
func (c *Config) IsDevMode() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}

// Validate checks that the settings required to run the service in its
// configured mode are present. Provider credentials are only required
// outside dev mode, so local development can run against stub providers.
func (c *Config) Validate() error {
	var missing []string

	if !c.IsDevMode() {
		if c.TwilioAccountSID == "" {
			missing = append(missing, "TWILIO_ACCOUNT_SID")
		}
		if c.TwilioAuthToken == "" {
			missing = append(missing, "TWILIO_AUTH_TOKEN")
		}
		if c.DeepgramAPIKey == "" {
			missing = append(missing, "DEEPGRAM_API_KEY")
		}
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if c.ElevenLabsAPIKey == "" {
			missing = append(missing, "ELEVENLABS_API_KEY")
		}
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	}

	if c.EmailProvider == "sendgrid" && c.StaffEmail != "" && c.SendGridAPIKey == "" && !c.IsDevMode() {
		missing = append(missing, "SENDGRID_API_KEY")
	}
	if c.EmailProvider == "ses" && c.StaffEmail != "" && c.SESFromEmail == "" && !c.IsDevMode() {
		missing = append(missing, "SES_FROM_EMAIL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %v", missing)
	}
	return nil
}
