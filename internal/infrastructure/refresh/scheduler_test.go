package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) RefreshDatasets(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{expr: DefaultSchedule},
		{expr: "*/15 * * * *"},
		{expr: "@hourly"},
		{expr: "not a cron", wantErr: true},
		{expr: "61 * * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateSchedule(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(&countingRefresher{}, SchedulerConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.config.Schedule)

	_, err = NewScheduler(&countingRefresher{}, SchedulerConfig{Schedule: "every hour"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestScheduler_RunsOnStart(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("provider down")}
	s, err := NewScheduler(refresher, SchedulerConfig{OnStart: true, Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestScheduler_NoRunWithoutOnStart(t *testing.T) {
	refresher := &countingRefresher{}
	s, err := NewScheduler(refresher, SchedulerConfig{Schedule: "0 0 1 1 *"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	s.Stop(context.Background())

	assert.Equal(t, int32(0), refresher.calls.Load())
}
