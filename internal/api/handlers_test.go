package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 8, 28, 18, 19, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-08-28T18:19:00Z",
		"2025/08/28 18:19:00",
		"2025-08-28 18:19:00",
		"2025-08-28T18:19:00",
	} {
		got, err := parseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	day, err := parseTime("2025-08-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC), day)

	_, err = parseTime("last week")
	assert.Error(t, err)
}
