package curator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/storage"
)

const (
	// activityQueueSize is the buffer size for pending activity entries.
	// A full queue falls back to a synchronous write.
	activityQueueSize = 256

	// activityBatchSize triggers an immediate flush.
	activityBatchSize = 10

	// activityFlushInterval is how often pending entries are written.
	activityFlushInterval = 50 * time.Millisecond

	// activityWriteTimeout bounds one background write.
	activityWriteTimeout = 5 * time.Second
)

// ActivityWriter persists activity-log entries.
type ActivityWriter interface {
	RecordActivity(ctx context.Context, a storage.Activity) error
}

// Recorder writes activity entries in the background so logging never
// delays the caller. Stop drains everything still queued.
type Recorder struct {
	writer   ActivityWriter
	queue    chan storage.Activity
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
	log      zerolog.Logger
}

// NewRecorder starts a recorder.
func NewRecorder(w ActivityWriter) *Recorder {
	r := &Recorder{
		writer:   w,
		queue:    make(chan storage.Activity, activityQueueSize),
		stopChan: make(chan struct{}),
		log:      logging.Component("activity"),
	}

	r.wg.Add(1)
	go r.process()

	return r
}

// Record queues an entry. When the queue is full or the recorder has
// stopped, the entry is written inline.
func (r *Recorder) Record(a storage.Activity) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		r.write([]storage.Activity{a})
		return
	}

	select {
	case r.queue <- a:
	default:
		r.log.Warn().Str("action", a.Action).Msg("Activity queue full, writing inline")
		r.write([]storage.Activity{a})
	}
}

// Stop flushes queued entries and stops the background writer.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()

		close(r.stopChan)
		r.wg.Wait()
	})
}

// Pending returns the number of queued entries.
func (r *Recorder) Pending() int {
	return len(r.queue)
}

func (r *Recorder) process() {
	defer r.wg.Done()

	ticker := time.NewTicker(activityFlushInterval)
	defer ticker.Stop()

	batch := make([]storage.Activity, 0, activityBatchSize)

	for {
		select {
		case a := <-r.queue:
			batch = append(batch, a)
			if len(batch) >= activityBatchSize {
				r.write(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.write(batch)
				batch = batch[:0]
			}

		case <-r.stopChan:
			for {
				select {
				case a := <-r.queue:
					batch = append(batch, a)
				default:
					r.write(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entries []storage.Activity) {
	for _, a := range entries {
		ctx, cancel := context.WithTimeout(context.Background(), activityWriteTimeout)
		if err := r.writer.RecordActivity(ctx, a); err != nil {
			r.log.Warn().Err(err).Str("action", a.Action).Str("user", a.UserID).Msg("Failed to record activity")
		}
		cancel()
	}
}
