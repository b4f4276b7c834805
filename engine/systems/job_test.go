package systems

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

func TestJobSystem(t *testing.T) {
	js, err := NewJobSystem(context.Background(), 3, 4, core.DiscardLogger())
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
		failed    atomic.Int32
	)
	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, js.Submit(Job{
			Name: "work",
			Run: func(context.Context) error {
				if i%2 == 0 {
					return boom
				}
				return nil
			},
			OnComplete: func() {
				completed.Add(1)
				wg.Done()
			},
			OnFailure: func(err error) {
				assert.ErrorIs(t, err, boom)
				failed.Add(1)
				wg.Done()
			},
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(5), completed.Load())
	assert.Equal(t, int32(5), failed.Load())

	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
	assert.ErrorIs(t, js.Submit(Job{Run: func(context.Context) error { return nil }}), ErrJobSystemClosed)
}

func TestJobSystem_DrainsOnShutdown(t *testing.T) {
	js, err := NewJobSystem(context.Background(), 1, 8, core.DiscardLogger())
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, js.Submit(Job{Run: func(context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(8), ran.Load())
}

func TestJobSystem_Errors(t *testing.T) {
	_, err := NewJobSystem(context.Background(), 0, 1, core.DiscardLogger())
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(context.Background(), 1, -1, core.DiscardLogger())
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}
