package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompetitions struct {
	recomputed atomic.Int32
	ended      atomic.Int32
	failEnd    bool
}

func (f *fakeCompetitions) RecomputeActive(context.Context) error {
	f.recomputed.Add(1)
	return nil
}

func (f *fakeCompetitions) EndExpired(context.Context) (int, error) {
	f.ended.Add(1)
	if f.failEnd {
		return 0, errors.New("db down")
	}
	return 1, nil
}

type fakePayments struct{ calls atomic.Int32 }

func (f *fakePayments) ExpirePayments(context.Context) (int64, error) {
	f.calls.Add(1)
	return 2, nil
}

type fakeSweeper struct{ calls atomic.Int32 }

func (f *fakeSweeper) Sweep() int {
	f.calls.Add(1)
	return 3
}

func TestSchedulerRunsJobsOnStart(t *testing.T) {
	comps, pays, sweep := &fakeCompetitions{}, &fakePayments{}, &fakeSweeper{}
	s, err := New(time.UTC, comps, pays, sweep)
	require.NoError(t, err)

	s.Start()
	t.Cleanup(func() { _ = s.Stop() })

	assert.Eventually(t, func() bool {
		return comps.recomputed.Load() >= 1 && pays.calls.Load() >= 1 && sweep.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, comps.ended.Load(), int32(1))
}

func TestCompetitionJobRecomputesAfterEndFailure(t *testing.T) {
	comps := &fakeCompetitions{failEnd: true}
	s, err := New(time.UTC, comps, nil, nil)
	require.NoError(t, err)

	s.runCompetitions(context.Background())
	s.runPaymentExpiry(context.Background())
	s.runSweep(context.Background())

	assert.Equal(t, int32(1), comps.ended.Load())
	assert.Equal(t, int32(1), comps.recomputed.Load())
}
