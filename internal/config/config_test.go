package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/smsledger/internal/config"
)

func TestLoad_WebhookSecret(t *testing.T) {
	type testCase struct {
		name    string
		env     string
		secret  string
		wantErr string
	}

	tests := []testCase{
		{name: "DevelopmentWithoutSecret", env: "development"},
		{name: "ProductionWithoutSecret", env: "production", wantErr: "SMS_WEBHOOK_SECRET is required"},
		{name: "ProductionWithSecret", env: "production", secret: "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv("APP_ENV", tt.env)
			t.Setenv("SMS_WEBHOOK_SECRET", tt.secret)

			cfg, err := config.Load()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.SMS.WebhookSecret)
		})
	}
}

func TestLoad_RejectsMinConfidenceOutOfRange(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SMS_DEFAULT_MIN_CONFIDENCE", "1.5")

	_, err := config.Load()
	assert.ErrorContains(t, err, "SMS_DEFAULT_MIN_CONFIDENCE")
}
