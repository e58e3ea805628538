package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSource struct {
	mu      sync.Mutex
	warmed  []string
	release chan struct{}
}

func (s *recordingSource) Warm(ctx context.Context, fileID string) error {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warmed = append(s.warmed, fileID)
	if fileID == "bad" {
		return errors.New("decode failed")
	}
	return nil
}

func (s *recordingSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.warmed)
}

func TestThumbnailWarmer_ProcessesQueuedFiles(t *testing.T) {
	src := &recordingSource{}
	tw := NewThumbnailWarmer(src, 10, 2)

	tw.Warm("a", "bad", "b")

	require.Eventually(t, func() bool { return src.count() == 3 }, time.Second, 5*time.Millisecond)
	tw.Stop()
	assert.ElementsMatch(t, []string{"a", "bad", "b"}, src.warmed)
}

func TestThumbnailWarmer_DeduplicatesPendingJobs(t *testing.T) {
	src := &recordingSource{release: make(chan struct{})}
	tw := NewThumbnailWarmer(src, 10, 1)

	assert.True(t, tw.QueueJob(ThumbnailJob{FileID: "a"}))
	assert.False(t, tw.QueueJob(ThumbnailJob{FileID: "a"}))

	close(src.release)
	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
	tw.Stop()
}

func TestThumbnailWarmer_DropsWhenQueueFull(t *testing.T) {
	src := &recordingSource{release: make(chan struct{})}
	tw := NewThumbnailWarmer(src, 1, 1)

	// the single worker blocks on the first job, the queue holds one more
	require.True(t, tw.QueueJob(ThumbnailJob{FileID: "a"}))
	require.Eventually(t, func() bool { return len(tw.JobQueue) == 0 }, time.Second, time.Millisecond)
	assert.True(t, tw.QueueJob(ThumbnailJob{FileID: "b"}))
	assert.False(t, tw.QueueJob(ThumbnailJob{FileID: "c"}))

	tw.Mutex.Lock()
	assert.False(t, tw.Pending["c"])
	tw.Mutex.Unlock()

	close(src.release)
	tw.Stop()
}
