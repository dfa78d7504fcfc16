package scanner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/consensusbot/internal/scanner"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{"09:00", 9, 0, false},
		{" 23:59 ", 23, 59, false},
		{"0:05", 0, 5, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
		{"12", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := scanner.ParseScheduleTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestCronSpec(t *testing.T) {
	spec, err := scanner.CronSpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "30 9 * * *", spec)
}

func TestShouldRunToday(t *testing.T) {
	h := newHarness(100)
	s := h.scanner(testConfig())

	assert.True(t, s.ShouldRunToday(fixedNow), "nunca corrió")

	s.Scan(context.Background())

	assert.False(t, s.ShouldRunToday(fixedNow.Add(3*time.Hour)))
	assert.True(t, s.ShouldRunToday(fixedNow.Add(24*time.Hour)))
}

func TestShouldRunToday_UsesConfiguredZone(t *testing.T) {
	h := newHarness(100)
	cfg := testConfig()
	// 09:00 UTC son las 23:00 del día anterior en UTC-10
	cfg.Location = time.FixedZone("UTC-10", -10*3600)
	s := h.scanner(cfg)

	signals := s.Scan(context.Background())
	require.Len(t, signals, 1)
	assert.Equal(t, "2026-03-13", signals[0].Day)

	// 11:00 UTC ya es el día siguiente en UTC-10
	assert.True(t, s.ShouldRunToday(fixedNow.Add(2*time.Hour)))
	assert.False(t, s.ShouldRunToday(fixedNow.Add(30*time.Minute)))
}

func TestStartStop(t *testing.T) {
	h := newHarness(100)
	cfg := testConfig()
	cfg.ScheduleTime = "06:15"
	s := h.scanner(cfg)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "segundo Start es inocuo")

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 6, next.In(time.UTC).Hour())
	assert.Equal(t, 15, next.In(time.UTC).Minute())
	assert.True(t, next.After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Nil(t, s.NextRun())
	require.NoError(t, s.Stop(ctx), "Stop sin Start es inocuo")
}

func TestStart_Disabled(t *testing.T) {
	h := newHarness(100)
	cfg := testConfig()
	cfg.Enabled = false
	s := h.scanner(cfg)

	require.NoError(t, s.Start(context.Background()))
	assert.Nil(t, s.NextRun())
	assert.False(t, s.Status().Enabled)
}

func TestStart_InvalidSchedule(t *testing.T) {
	h := newHarness(100)
	cfg := testConfig()
	cfg.ScheduleTime = "25:00"
	s := h.scanner(cfg)

	assert.Error(t, s.Start(context.Background()))
	assert.Nil(t, s.NextRun())
}
