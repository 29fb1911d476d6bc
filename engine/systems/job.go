package systems

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/animaview/engine/core"
)

// JobTask is a unit of work run on a worker goroutine. OnComplete and
// OnFailure are called on that same worker; anything that touches loop
// owned state has to be dispatched back to the loop from there.
type JobTask struct {
	Name       string
	OnStart    func(ctx context.Context) (interface{}, error)
	OnComplete func(result interface{})
	OnFailure  func(err error)
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemStopped = errors.New("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for {
				select {
				case <-js.ctx.Done():
					return
				case job := <-js.jobQueue:
					js.run(job)
				}
			}
		}()
	}
}

func (js *JobSystem) run(job JobTask) {
	result, err := job.OnStart(js.ctx)
	if err != nil {
		core.LogDebug("job '%s' failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete(result)
	}
}

/**
 * @brief Shuts the job system down. Running jobs see their context
 * cancelled; queued jobs are dropped.
 */
func (js *JobSystem) Shutdown() error {
	js.cancel()
	js.wg.Wait()
	return nil
}

// AddWorkNonBlocking queues the task from a new goroutine and returns
// immediately. A task submitted after Shutdown fails with
// ErrJobSystemStopped.
func (js *JobSystem) AddWorkNonBlocking(jt JobTask) {
	go func() {
		if err := js.Submit(jt); err != nil && jt.OnFailure != nil {
			jt.OnFailure(err)
		}
	}()
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt JobTask) error {
	if js.ctx.Err() != nil {
		return ErrJobSystemStopped
	}
	select {
	case js.jobQueue <- jt:
		return nil
	case <-js.ctx.Done():
		return ErrJobSystemStopped
	}
}
