package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "HANDSHAKE_TIMEOUT", "PUSH_PROVIDER", "PUSH_WORKERS", "PREVIEW_LENGTH"} {
		t.Setenv(key, "")
	}

	s := Load()

	assert.Equal(t, "3000", s.ServerPort)
	assert.Equal(t, 3*time.Second, s.HandshakeTimeout)
	assert.Equal(t, "log", s.PushProvider)
	assert.Equal(t, 4, s.PushWorkers)
	assert.Equal(t, 50, s.PreviewLength)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HANDSHAKE_TIMEOUT", "1500")
	t.Setenv("PUSH_TIMEOUT", "2s")
	t.Setenv("PUSH_WORKERS", "8")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	s := Load()

	assert.Equal(t, 1500*time.Millisecond, s.HandshakeTimeout)
	assert.Equal(t, 2*time.Second, s.PushTimeout)
	assert.Equal(t, 8, s.PushWorkers)
	assert.Equal(t, "cache:6380", s.RedisAddr)
}

func TestLoadInvalidFallsBack(t *testing.T) {
	t.Setenv("PUSH_QUEUE_SIZE", "lots")
	t.Setenv("PUSH_TIMEOUT", "soon")

	s := Load()

	assert.Equal(t, 256, s.PushQueueSize)
	assert.Equal(t, 5*time.Second, s.PushTimeout)
}
