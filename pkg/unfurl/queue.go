package unfurl

import (
	"context"
	"errors"
	"sync"

	"github.com/flashmemo/flashmemo/pkg/storage"
)

// Store is the part of the database the enrichment job needs.
type Store interface {
	LookupLink(ctx context.Context, id string) (storage.Link, error)
	UpdateMetadata(ctx context.Context, id string, m storage.Metadata) error
	ListPendingUnfurl(ctx context.Context, limit int) ([]storage.Link, error)
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

const (
	defaultConcurrency = 4
	defaultQueueSize   = 256
)

// QueueOptions configures a Queue.
type QueueOptions struct {
	Concurrency int // defaults to 4 if <= 0
	Size        int // pending jobs buffered before Enqueue drops
	Log         Logger
}

// Queue enriches links in the background. Enqueue never blocks: when the
// buffer is full the job is dropped and left for RunPending.
type Queue struct {
	store    Store
	unfurler Unfurler
	log      Logger

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewQueue(store Store, u Unfurler, opts QueueOptions) *Queue {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	size := opts.Size
	if size <= 0 {
		size = defaultQueueSize
	}
	log := opts.Log
	if log == nil {
		log = nopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:    store,
		unfurler: u,
		log:      log,
		jobs:     make(chan string, size),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < concurrency; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for id := range q.jobs {
				if err := Process(q.ctx, q.store, q.unfurler, id, q.log); err != nil {
					q.log.Warnf("[unfurl] %s: %v", id, err)
				}
			}
		}()
	}
	return q
}

// Enqueue schedules enrichment of the link with the given ID.
func (q *Queue) Enqueue(id string) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.jobs <- id:
	default:
		q.log.Warnf("[unfurl] queue full, deferring %s", id)
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
}

// Process enriches a single link. A link that cannot be fetched is still
// marked as unfurled so it is not retried forever.
func Process(ctx context.Context, store Store, u Unfurler, id string, log Logger) error {
	if log == nil {
		log = nopLogger{}
	}
	link, err := store.LookupLink(ctx, id)
	if err != nil {
		return err
	}

	meta, ferr := u.Unfurl(ctx, link)
	if ferr != nil {
		if errors.Is(ferr, context.Canceled) {
			return ferr
		}
		log.Warnf("[unfurl] could not fetch %s: %v", link.URL, ferr)
		meta = storage.Metadata{}
	}
	if err := store.UpdateMetadata(ctx, id, meta); err != nil {
		return err
	}
	log.Debugf("[unfurl] %s -> %q (%d min)", link.URL, meta.Title, meta.ReadingTime)
	return ferr
}

// Summary reports the outcome of RunPending.
type Summary struct {
	Processed int
	Failed    int
	Errors    []error
}

// RunPending enriches up to limit links that have not been unfurled yet,
// using a pool of concurrency workers.
func RunPending(ctx context.Context, store Store, u Unfurler, concurrency, limit int, log Logger) (*Summary, error) {
	if log == nil {
		log = nopLogger{}
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	links, err := store.ListPendingUnfurl(ctx, limit)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	if len(links) == 0 {
		return summary, nil
	}

	idChan := make(chan string, len(links))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				err := Process(ctx, store, u, id, log)
				mu.Lock()
				summary.Processed++
				if err != nil {
					summary.Failed++
					summary.Errors = append(summary.Errors, err)
				}
				mu.Unlock()
			}
		}()
	}

	for _, l := range links {
		idChan <- l.ID
	}
	close(idChan)
	wg.Wait()

	return summary, nil
}
