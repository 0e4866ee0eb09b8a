package schedsvc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudradrivingschool/rudra-driving-school/apps/container"
	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
	"github.com/rudradrivingschool/rudra-driving-school/tests"
)

type fakeSweeper struct {
	n        int
	err      error
	calls    int32
	deadline bool
}

func (s *fakeSweeper) ReconcileAll(ctx context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	_, s.deadline = ctx.Deadline()
	return s.n, s.err
}

type failingBackfiller struct{}

func (failingBackfiller) Backfill(context.Context) (ride.BackfillResult, error) {
	return ride.BackfillResult{}, errors.New("rides store unavailable")
}

func newConf(schedule string, timeout time.Duration) *core.Config {
	return &core.Config{Reconcile: core.ReconcileConfig{Schedule: schedule, Timeout: timeout}}
}

func TestNew(t *testing.T) {
	logger := testutil.NewLogger()

	_, err := New(newConf("@every 30m", time.Minute), &fakeSweeper{}, logger)
	assert.NoError(t, err)
	_, err = New(newConf("0 3 * * *", 0), &fakeSweeper{}, logger)
	assert.NoError(t, err)

	_, err = New(newConf("lol", time.Minute), &fakeSweeper{}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scheduling reconcile sweep "lol"`)
}

func TestScheduler_Sweep(t *testing.T) {
	tests := []struct {
		name      string
		sweeper   *fakeSweeper
		timeout   time.Duration
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "ok",
			sweeper:   &fakeSweeper{n: 12},
			timeout:   time.Minute,
			wantLevel: "info",
			wantMsg:   "reconcile sweep: 12 admissions reconciled",
		},
		{
			name:      "partial failure",
			sweeper:   &fakeSweeper{n: 11, err: errors.New("1 admission(s) failed to reconcile")},
			wantLevel: "error",
			wantMsg:   "reconcile sweep: 11 admissions processed: 1 admission(s) failed to reconcile",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			s, err := New(newConf("@every 1h", tt.timeout), tt.sweeper, logger)
			require.NoError(t, err)

			s.Sweep()
			assert.EqualValues(t, 1, tt.sweeper.calls)
			assert.Equal(t, tt.timeout > 0, tt.sweeper.deadline)
			require.Len(t, logger.Logs(tt.wantLevel), 1)
			assert.Contains(t, logger.Logs(tt.wantLevel)[0], tt.wantMsg)
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New(newConf("@every 1h", time.Minute), &fakeSweeper{}, testutil.NewLogger())
	require.NoError(t, err)

	s.Start()
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return")
	}
}

func TestScheduler_Sweep_backfill(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		backfill     bool
		wantProgress int
	}{
		{name: "legacy rides are linked first", backfill: true, wantProgress: 3},
		{name: "without backfill the id-only count wins", backfill: false, wantProgress: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			stores := container.InMemStores()
			svcs := container.NewServices(stores, logger)

			adm := testutil.CreateAdmission(t, stores.Admissions, "Jane Doe", 8, 8000)
			for _, date := range []string{"2023-01-02", "2023-01-03", "2023-01-04"} {
				testutil.CreateRide(t, stores.Rides, "", "Jane Doe", "", date, ride.StatusCompleted)
			}
			_, err := stores.Admissions.UpdateRideProgress(ctx, adm.ID, 3, false)
			require.NoError(t, err)

			s, err := New(newConf("@every 30m", time.Minute), svcs.Reconciler, logger)
			require.NoError(t, err)
			if tt.backfill {
				s.WithBackfill(svcs.Ride)
			}
			s.Sweep()

			stored, err := stores.Admissions.GetAdmission(ctx, adm.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProgress, stored.RidesCompleted)
			assert.Empty(t, logger.Logs("error"))
		})
	}

	t.Run("backfill failure does not stop the sweep", func(t *testing.T) {
		logger := testutil.NewLogger()
		sweeper := &fakeSweeper{n: 4}
		s, err := New(newConf("@every 30m", time.Minute), sweeper, logger)
		require.NoError(t, err)

		s.WithBackfill(failingBackfiller{}).Sweep()
		assert.EqualValues(t, 1, sweeper.calls)
		assert.Len(t, logger.Logs("warn"), 1)
		assert.Len(t, logger.Logs("info"), 1)
	})
}
