package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BATCH_SIZE", "7")
	t.Setenv("BROKEN_INT", "seven")
	t.Setenv("DEBUG", "true")
	t.Setenv("ODD_BOOL", "yes")
	t.Setenv("TASK_TTL", "2h")
	t.Setenv("EMPTY", "")

	assert.Equal(t, 7, GetEnvInt("BATCH_SIZE", 5))
	assert.Equal(t, 5, GetEnvInt("BROKEN_INT", 5))
	assert.Equal(t, 5, GetEnvInt("MISSING_INT", 5))
	assert.Equal(t, 7.0, GetEnvNumeric("BATCH_SIZE", 1))
	assert.True(t, GetEnvBool("DEBUG", false))
	assert.False(t, GetEnvBool("ODD_BOOL", false))
	assert.Equal(t, 2*time.Hour, GetEnvDuration("TASK_TTL", time.Hour))
	assert.Equal(t, time.Hour, GetEnvDuration("MISSING_TTL", time.Hour))
	assert.Equal(t, "fallback", GetEnvString("EMPTY", "fallback"))
	assert.Equal(t, "", GetEnv("EMPTY"))
}
