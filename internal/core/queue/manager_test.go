package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"recipe-extractor/internal/core/pipeline"
	"recipe-extractor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	release chan struct{}
	started chan string
	runs    int32
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{release: make(chan struct{}), started: make(chan string, 16)}
}

func (f *fakeRunner) Run(_ context.Context, doc pipeline.Document) pipeline.Result {
	atomic.AddInt32(&f.runs, 1)
	f.started <- doc.RunID
	<-f.release
	return pipeline.Result{OK: true, Status: pipeline.StatusOK, Diagnostics: pipeline.Diagnostics{RunID: doc.RunID}}
}

func TestProcess(t *testing.T) {
	r := newFakeRunner()
	close(r.release)
	m := NewManager(Config{Workers: 2, MaxSize: 4}, r, nil)
	m.Start()
	defer m.Close()

	res, err := m.Process(context.Background(), pipeline.Document{Text: "x", RunID: "abc"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "abc", res.Diagnostics.RunID)

	assert.Eventually(t, func() bool { return m.GetQueueStatus().ProcessedCount == 1 }, time.Second, 5*time.Millisecond)
}

func TestEnqueueFull(t *testing.T) {
	r := newFakeRunner()
	m := NewManager(Config{Workers: 1, MaxSize: 1}, r, nil)
	m.Start()

	first, err := m.Enqueue(context.Background(), pipeline.Document{RunID: "1"})
	require.NoError(t, err)
	<-r.started

	_, err = m.Enqueue(context.Background(), pipeline.Document{RunID: "2"})
	require.NoError(t, err)

	_, err = m.Enqueue(context.Background(), pipeline.Document{RunID: "3"})
	assert.ErrorIs(t, err, common.ErrQueueFull)

	status := m.GetQueueStatus()
	assert.Equal(t, 1, status.QueueLength)
	assert.Equal(t, 1, status.Active)
	assert.True(t, status.Running)

	close(r.release)
	res, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	m.Close()
}

func TestCloseFailsPendingJobs(t *testing.T) {
	r := newFakeRunner()
	m := NewManager(Config{Workers: 1, MaxSize: 2}, r, nil)

	job, err := m.Enqueue(context.Background(), pipeline.Document{RunID: "pending"})
	require.NoError(t, err)

	m.Close()
	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, common.ErrServiceUnavailable)
	assert.Equal(t, "pending", res.Diagnostics.RunID)

	_, err = m.Enqueue(context.Background(), pipeline.Document{})
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	assert.False(t, m.GetQueueStatus().Running)
}

func TestWaitTimeout(t *testing.T) {
	r := newFakeRunner()
	m := NewManager(Config{Workers: 1, MaxSize: 1}, r, nil)
	m.Start()
	defer func() {
		close(r.release)
		m.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Process(ctx, pipeline.Document{})
	assert.ErrorIs(t, err, common.ErrRequestTimeout)
}
