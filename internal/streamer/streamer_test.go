package streamer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedarline/schema-propagation/internal/registry"
)

func TestStream_UnknownJob(t *testing.T) {
	s := New(registry.New(), nil)
	_, ok := s.Stream(context.Background(), "nonexistent")
	assert.False(t, ok)
}

func TestStream_EndsAtTerminalState(t *testing.T) {
	reg := registry.New()
	job := reg.Create("v1", 1)
	job.Start()

	s := New(reg, nil).WithInterval(5 * time.Millisecond)
	ch, ok := s.Stream(context.Background(), job.JobID)
	require.True(t, ok)

	go func() {
		time.Sleep(10 * time.Millisecond)
		job.RecordSuccess()
		job.Finish()
	}()

	var last registry.Snapshot
	for snap := range ch {
		last = snap
	}

	assert.True(t, last.Status.IsTerminal())
}

func TestStream_MultipleObserversIndependent(t *testing.T) {
	reg := registry.New()
	job := reg.Create("v1", 1)
	job.Start()
	job.RecordSuccess()
	job.Finish()

	s := New(reg, nil).WithInterval(time.Millisecond)

	ch1, ok1 := s.Stream(context.Background(), job.JobID)
	ch2, ok2 := s.Stream(context.Background(), job.JobID)
	require.True(t, ok1)
	require.True(t, ok2)

	snap1 := <-ch1
	snap2 := <-ch2

	assert.Equal(t, snap1.Status, snap2.Status)
	assert.Equal(t, snap1.Completed, snap2.Completed)
}

func TestStream_ContextCancellationStopsStream(t *testing.T) {
	reg := registry.New()
	job := reg.Create("v1", 5)
	job.Start()

	ctx, cancel := context.WithCancel(context.Background())
	s := New(reg, nil).WithInterval(5 * time.Millisecond)
	ch, ok := s.Stream(ctx, job.JobID)
	require.True(t, ok)

	<-ch
	cancel()

	_, open := <-ch
	assert.False(t, open)
}
