package stages

import (
	"fmt"
	"sync"
)

// LoaderFunc produces a resource from an identifier, typically by
// decoding a file. It runs on a background goroutine and is free to
// block and allocate.
type LoaderFunc func(identifier string) (Resource, error)

// loadResult tracks one background load. err is valid once done is
// closed.
type loadResult struct {
	done chan struct{}
	err  error
}

// AsyncLoader runs resource loads for a Swappable stage in the
// background, so the calling context never stalls on file I/O. At
// most one load runs at a time: starting a new one first joins the
// previous, which bounds resource usage without any cancellation
// machinery. A load that fails leaves the stage exactly as it was.
type AsyncLoader struct {
	stage  *Swappable
	loader LoaderFunc

	mu      sync.Mutex
	current *loadResult
}

// NewAsyncLoader creates a loader feeding stage through loader.
func NewAsyncLoader(stage *Swappable, loader LoaderFunc) (*AsyncLoader, error) {
	if stage == nil {
		return nil, fmt.Errorf("stages: async loader needs a stage")
	}
	if loader == nil {
		return nil, fmt.Errorf("stages: async loader needs a load function")
	}
	return &AsyncLoader{stage: stage, loader: loader}, nil
}

// Load starts loading identifier in the background, waiting first for
// any load still in flight. On success the resource is staged on the
// stage; on failure nothing changes. Wait reports the outcome.
func (l *AsyncLoader) Load(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil {
		<-l.current.done
	}

	r := &loadResult{done: make(chan struct{})}
	l.current = r
	go func() {
		defer close(r.done)
		res, err := l.loader(identifier)
		if err != nil {
			r.err = fmt.Errorf("stages: load %q: %w", identifier, err)
			return
		}
		l.stage.Load(res)
	}()
}

// Unload joins any load in flight, then stages removal of the active
// resource. The join keeps a slow success from landing after the
// unload.
func (l *AsyncLoader) Unload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil {
		<-l.current.done
		l.current = nil
	}
	l.stage.Unload()
}

// Wait blocks until the most recently started load has finished and
// returns its error, or nil if no load was started.
func (l *AsyncLoader) Wait() error {
	l.mu.Lock()
	r := l.current
	l.mu.Unlock()

	if r == nil {
		return nil
	}
	<-r.done
	return r.err
}
