package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearReceptionistEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"PORT", "APP_ENV", "SKIP_TWILIO_VALIDATION", "LOG_LEVEL", "DASHBOARD_PASSWORD",
		"PUBLIC_BASE_URL", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER",
		"DEEPGRAM_API_KEY", "OPENAI_API_KEY", "OPENAI_MODEL", "ELEVENLABS_API_KEY",
		"DATABASE_URL", "STAFF_PHONE", "STAFF_EMAIL", "EMAIL_PROVIDER", "SENDGRID_API_KEY",
		"FROM_EMAIL", "AWS_REGION", "SES_FROM_EMAIL", "SMS_RATE_LIMIT", "TRANSCRIPT_BASE_URL",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestDefaultConfigHasSafeDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 10, cfg.SMSRateLimit)
}

func TestLoadAppliesEnvOverDefaults(t *testing.T) {
	clearReceptionistEnv(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("STAFF_PHONE", "+15551234567")
	t.Setenv("SMS_RATE_LIMIT", "3")
	t.Setenv("TRANSCRIPT_BASE_URL", "https://app.insurance-office.com/transcripts")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", cfg.StaffPhone)
	assert.Equal(t, 3, cfg.SMSRateLimit)
	assert.Equal(t, "https://app.insurance-office.com/transcripts", cfg.TranscriptBaseURL)
}

func TestValidateRequiresProviderCredentialsOutsideDevMode(t *testing.T) {
	clearReceptionistEnv(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load("")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidatePassesInDevModeWithoutCredentials(t *testing.T) {
	clearReceptionistEnv(t)
	t.Setenv("APP_ENV", "development")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsDevMode())
}

func TestYAMLOverlayAppliesBeforeEnv(t *testing.T) {
	clearReceptionistEnv(t)
	t.Setenv("APP_ENV", "development")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "staffphone: \"+15559998888\"\nsmsratelimit: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "+15559998888", cfg.StaffPhone)
	assert.Equal(t, 5, cfg.SMSRateLimit)
}
