package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DUR", "90s")
	t.Setenv("TEST_BAD_INT", "nope")
	t.Setenv("TEST_BAD_DUR", "soon")

	assert.Equal(t, "value", ParseString("TEST_STR", "fallback"))
	assert.Equal(t, "fallback", ParseString("TEST_UNSET", "fallback"))
	assert.Equal(t, 42, ParseInt("TEST_INT", 7))
	assert.Equal(t, 7, ParseInt("TEST_BAD_INT", 7))
	assert.Equal(t, true, ParseBool("TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, ParseDuration("TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("TEST_BAD_DUR", time.Minute))
}
