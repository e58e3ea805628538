package workers

import (
	"context"
	"log"
	"sync"
	"time"
)

// ThumbnailSource generates and caches the thumbnail of one Drive file.
type ThumbnailSource interface {
	Warm(ctx context.Context, fileID string) error
}

type ThumbnailJob struct {
	FileID string
}

// ThumbnailWarmer pre-generates thumbnails for photos that sync discovered,
// so the first visitor does not pay for the download and resize.
type ThumbnailWarmer struct {
	JobQueue   chan ThumbnailJob
	Source     ThumbnailSource
	JobTimeout time.Duration
	Wg         sync.WaitGroup
	StopChan   chan struct{}
	Pending    map[string]bool
	Mutex      sync.Mutex
}

func NewThumbnailWarmer(source ThumbnailSource, queueSize, numWorkers int) *ThumbnailWarmer {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	tw := &ThumbnailWarmer{
		JobQueue:   make(chan ThumbnailJob, queueSize),
		Source:     source,
		JobTimeout: 2 * time.Minute,
		StopChan:   make(chan struct{}),
		Pending:    make(map[string]bool),
	}

	tw.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go tw.worker(i)
	}
	log.Printf("started %d thumbnail worker(s) with queue size %d", numWorkers, queueSize)

	return tw
}

func (tw *ThumbnailWarmer) worker(id int) {
	defer tw.Wg.Done()
	for {
		select {
		case job := <-tw.JobQueue:
			tw.processJob(job)
			tw.Mutex.Lock()
			delete(tw.Pending, job.FileID)
			tw.Mutex.Unlock()

		case <-tw.StopChan:
			log.Printf("thumbnail worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (tw *ThumbnailWarmer) processJob(job ThumbnailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), tw.JobTimeout)
	defer cancel()

	go func() {
		select {
		case <-tw.StopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := tw.Source.Warm(ctx, job.FileID); err != nil {
		log.Printf("ERROR warming thumbnail for %s: %v", job.FileID, err)
		return
	}
}

// QueueJob enqueues fileID unless it is already pending. It never blocks; a
// full queue drops the job and the thumbnail is generated on first request instead.
func (tw *ThumbnailWarmer) QueueJob(job ThumbnailJob) bool {
	tw.Mutex.Lock()
	if tw.Pending[job.FileID] {
		tw.Mutex.Unlock()
		return false
	}

	tw.Pending[job.FileID] = true
	tw.Mutex.Unlock()

	select {
	case tw.JobQueue <- job:
		return true
	default:
		log.Printf("WARNING: thumbnail job queue full, dropping %s", job.FileID)
		tw.Mutex.Lock()
		delete(tw.Pending, job.FileID)
		tw.Mutex.Unlock()
		return false
	}
}

// Warm queues every file ID; it satisfies the sync service's warmer hook.
func (tw *ThumbnailWarmer) Warm(fileIDs ...string) {
	queued := 0
	for _, id := range fileIDs {
		if tw.QueueJob(ThumbnailJob{FileID: id}) {
			queued++
		}
	}
	log.Printf("queued %d of %d thumbnail(s) for warming", queued, len(fileIDs))
}

// Stop signals the workers and waits for the jobs in flight. Jobs still
// queued are dropped.
func (tw *ThumbnailWarmer) Stop() {
	log.Println("stopping thumbnail warmer...")
	close(tw.StopChan)
	tw.Wg.Wait()
	log.Println("all thumbnail workers stopped")
}
