package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFillsEverySlot(t *testing.T) {
	for _, p := range []Policy{Sequential(), {Workers: 4, FailFast: true}, {Workers: 3}} {
		t.Run(fmt.Sprintf("%+v", p), func(t *testing.T) {
			out := make([]int, 20)
			err := Run(context.Background(), len(out), p, func(_ context.Context, i int) error {
				out[i] = i * i
				return nil
			})
			require.NoError(t, err)
			for i, v := range out {
				assert.Equal(t, i*i, v)
			}
		})
	}
}

func TestRunCollectAllJoinsFailuresInOrder(t *testing.T) {
	var calls atomic.Int32
	err := Run(context.Background(), 5, Policy{Workers: 2}, func(_ context.Context, i int) error {
		calls.Add(1)
		if i%2 == 1 {
			return fmt.Errorf("item %d", i)
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, "item 1\nitem 3", err.Error())
}

func TestRunFailFastReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), 10, Sequential(), func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	err := Run(ctx, 3, Policy{Workers: 1}, func(context.Context, int) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}
