package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	t.Parallel()

	ref := time.Date(2024, 5, 10, 12, 30, 15, 0, time.UTC)
	info, err := GetTriggerInfo("0 0 * * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 29*time.Minute+45*time.Second, info.TimeUntilNext)
	assert.False(t, info.Last.After(ref))
	assert.Equal(t, "0 0 * * * *", info.Expression)
}

func TestGetTriggerInfo_Descriptor(t *testing.T) {
	t.Parallel()

	ref := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	info, err := GetTriggerInfo("@every 5m", ref)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, info.TimeUntilNext)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse("every tuesday")
	assert.ErrorContains(t, err, "invalid cron expression")

	// five field expressions need the leading seconds field
	_, err = Parse("0 * * * *")
	assert.Error(t, err)
}
