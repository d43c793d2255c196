package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicetime/internal/models"
)

var baseTime = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

func TestStartAndEndSession(t *testing.T) {
	t.Parallel()

	record := &models.ActivityRecord{UserID: "u1", GuildID: "g1"}
	record.StartSession("c1", "General", true, false, false, baseTime)

	open := record.OpenSession()
	require.NotNil(t, open)
	assert.Equal(t, "c1", open.ChannelID)
	assert.Equal(t, "General", open.ChannelName)
	assert.True(t, open.MicEnabled)

	closed := record.EndOpenSession(baseTime.Add(5 * time.Minute))
	require.True(t, closed)
	assert.Nil(t, record.OpenSession())
	assert.Equal(t, int64(5), record.Sessions[0].Duration)
	assert.Equal(t, int64(5), record.TotalTimeInVoice)
}

func TestEndOpenSessionIdempotent(t *testing.T) {
	t.Parallel()

	record := &models.ActivityRecord{}
	record.StartSession("c1", "General", true, false, false, baseTime)
	require.True(t, record.EndOpenSession(baseTime.Add(3*time.Minute)))

	before := record.TotalTimeInVoice
	assert.False(t, record.EndOpenSession(baseTime.Add(10*time.Minute)))
	assert.Equal(t, before, record.TotalTimeInVoice)
	assert.Len(t, record.Sessions, 1)
	assert.Equal(t, int64(3), record.Sessions[0].Duration)
}

func TestEndOpenSessionWithoutSessions(t *testing.T) {
	t.Parallel()

	record := &models.ActivityRecord{}
	assert.False(t, record.EndOpenSession(baseTime))
	assert.Empty(t, record.Sessions)
}

func TestStartSessionClosesLingeringOpenSession(t *testing.T) {
	t.Parallel()

	// A duplicate join (missed leave) must never leave two sessions open.
	record := &models.ActivityRecord{}
	record.StartSession("c1", "General", true, false, false, baseTime)
	record.StartSession("c2", "Music", true, false, false, baseTime.Add(4*time.Minute))

	require.Len(t, record.Sessions, 2)
	openCount := 0
	for i := range record.Sessions {
		if record.Sessions[i].IsOpen() {
			openCount++
		}
	}
	assert.Equal(t, 1, openCount)
	assert.Equal(t, int64(4), record.Sessions[0].Duration)
	assert.Equal(t, "c2", record.OpenSession().ChannelID)
}

func TestUpdateSessionStatus(t *testing.T) {
	t.Parallel()

	record := &models.ActivityRecord{}
	record.StartSession("c1", "General", true, false, false, baseTime)
	startTime := record.Sessions[0].StartTime

	changed := record.UpdateSessionStatus(false, true, false, baseTime.Add(time.Minute))
	require.True(t, changed)
	assert.False(t, record.Sessions[0].MicEnabled)
	assert.True(t, record.Sessions[0].Deafened)

	// Status updates never touch session identity.
	assert.Len(t, record.Sessions, 1)
	assert.Equal(t, startTime, record.Sessions[0].StartTime)
	assert.Equal(t, "c1", record.Sessions[0].ChannelID)

	// Identical flags are a no-op.
	assert.False(t, record.UpdateSessionStatus(false, true, false, baseTime.Add(2*time.Minute)))
}

func TestUpdateSessionStatusWithoutOpenSession(t *testing.T) {
	t.Parallel()

	record := &models.ActivityRecord{}
	record.StartSession("c1", "General", true, false, false, baseTime)
	record.EndOpenSession(baseTime.Add(time.Minute))

	assert.False(t, record.UpdateSessionStatus(false, false, true, baseTime.Add(2*time.Minute)))
}

func TestTotalMinutesDerivesMissingDurations(t *testing.T) {
	t.Parallel()

	end1 := baseTime.Add(3 * time.Minute)
	end2 := baseTime.Add(20 * time.Minute)
	record := &models.ActivityRecord{
		Sessions: []models.Session{
			{StartTime: baseTime, EndTime: &end1}, // closed but never stamped
			{StartTime: baseTime.Add(10 * time.Minute), EndTime: &end2, Duration: 10},
			{StartTime: baseTime.Add(30 * time.Minute)}, // still open
		},
	}

	assert.Equal(t, int64(13), record.TotalMinutes())
	assert.Equal(t, int64(13), record.RecomputeTotal())
	assert.Equal(t, int64(13), record.TotalTimeInVoice)
}

func TestTotalMatchesClosedSessionSum(t *testing.T) {
	t.Parallel()

	record := &models.ActivityRecord{}
	now := baseTime
	for _, minutes := range []int64{2, 5, 0, 11} {
		record.StartSession("c1", "General", true, false, false, now)
		now = now.Add(time.Duration(minutes) * time.Minute)
		record.EndOpenSession(now)
		now = now.Add(time.Minute)
	}

	var sum int64
	for _, session := range record.Sessions {
		require.NotNil(t, session.EndTime)
		sum += session.Duration
	}
	assert.Equal(t, sum, record.TotalTimeInVoice)
	assert.Equal(t, int64(18), record.TotalTimeInVoice)
}

func TestDurationMinutesFloors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"sub-minute", 59 * time.Second, 0},
		{"exact minute", time.Minute, 1},
		{"rounds down", 299 * time.Second, 4},
		{"negative", -time.Minute, 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, models.DurationMinutes(baseTime, baseTime.Add(tc.elapsed)))
		})
	}
}
