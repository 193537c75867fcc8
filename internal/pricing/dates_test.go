package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var baseTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestIsLastMinute(t *testing.T) {
	tests := []struct {
		name      string
		requested time.Time
		want      bool
	}{
		{"right now", baseTime, true},
		{"in one hour", baseTime.Add(time.Hour), true},
		{"at the 48h boundary", baseTime.Add(48 * time.Hour), true},
		{"just past 48h", baseTime.Add(48*time.Hour + time.Minute), false},
		{"next week", baseTime.Add(7 * 24 * time.Hour), false},
		{"in the past", baseTime.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLastMinute(tt.requested, baseTime))
		})
	}
}

func TestIsAdvanceBooking(t *testing.T) {
	tests := []struct {
		name      string
		requested time.Time
		want      bool
	}{
		{"tomorrow", baseTime.Add(24 * time.Hour), false},
		{"exactly 30 days", baseTime.Add(30 * 24 * time.Hour), false},
		{"just past 30 days", baseTime.Add(30*24*time.Hour + time.Minute), true},
		{"three months out", baseTime.Add(90 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAdvanceBooking(tt.requested, baseTime))
		})
	}
}

func TestIsPeakSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  bool
	}{
		{time.January, true},
		{time.February, false},
		{time.June, false},
		{time.July, true},
		{time.August, true},
		{time.September, false},
		{time.December, true},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			date := time.Date(2025, tt.month, 15, 0, 0, 0, 0, time.UTC)
			assert.Equal(t, tt.want, IsPeakSeason(date))
		})
	}
}

func TestClassifyTiming(t *testing.T) {
	// A request tomorrow in December is both last-minute and peak season;
	// the calculator's precedence picks last-minute.
	now := time.Date(2025, time.December, 20, 12, 0, 0, 0, time.UTC)
	requested := now.Add(24 * time.Hour)

	lastMinute, advance, peak := ClassifyTiming(requested, now)

	assert.True(t, lastMinute)
	assert.False(t, advance)
	assert.True(t, peak)
}
