package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("LADDER_TIMEZONE", "")
	t.Setenv("INGEST_RETRIES", "")
	t.Setenv("INGEST_RETRY_DELAY", "")
	t.Setenv("INGEST_SCHEDULE", "")

	cfg, err := FromEnv(zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "Asia/Shanghai", cfg.Location.String())
	require.Equal(t, 3, cfg.IngestRetries)
	require.Equal(t, 30*time.Second, cfg.IngestRetryDelay)
	require.Equal(t, "@every 6h0m0s", cfg.IngestSchedule)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"LADDER_TIMEZONE":     "Not/AZone",
		"INGEST_RETRIES":      "-1",
		"INGEST_RETRY_DELAY":  "soon",
		"API_RATE_PER_SECOND": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv(zerolog.Nop())
			require.Error(t, err)
		})
	}
}
