// Package worker runs the periodic tasks: polling the downloader for
// completed jobs, rescanning recorded locations, and matching stray files
// back to books. Each task has its own loop and its own configurable
// interval; a task failing one tick never stops its loop.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
)

// TaskFunc is one tick of a periodic task.
type TaskFunc func(ctx context.Context) error

type Worker struct {
	log           logger.Logger
	configService *config.Service

	mu    sync.Mutex
	tasks map[string]TaskFunc
	order []string
	stops map[string]chan struct{}
	wg    sync.WaitGroup
}

func New(configService *config.Service) *Worker {
	return &Worker{
		log:           logger.New(),
		configService: configService,
		tasks:         map[string]TaskFunc{},
		stops:         map[string]chan struct{}{},
	}
}

// Register adds a named task. Must be called before Start.
func (w *Worker) Register(name string, fn TaskFunc) {
	w.tasks[name] = fn
	w.order = append(w.order, name)
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, name := range w.order {
		w.launch(name)
	}
}

// Restart relaunches one task loop so a changed interval takes effect
// immediately. It also revives a loop that exited because its interval was
// set to zero.
func (w *Worker) Restart(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.tasks[name]; !ok {
		return
	}
	if stop, ok := w.stops[name]; ok {
		close(stop)
	}
	w.launch(name)
}

// Shutdown stops every loop and waits for in-flight ticks to finish, so an
// import mid-move reaches its cleanup.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	for name, stop := range w.stops {
		close(stop)
		delete(w.stops, name)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// launch is called with the mutex held.
func (w *Worker) launch(name string) {
	stop := make(chan struct{})
	w.stops[name] = stop
	w.wg.Add(1)
	go w.loop(name, w.tasks[name], stop)
}

func (w *Worker) loop(name string, fn TaskFunc, stop chan struct{}) {
	defer w.wg.Done()

	for {
		// Re-read the interval every cycle so settings changes apply on the
		// next tick without a restart.
		userConfig := w.configService.UserConfig()
		interval := time.Duration(userConfig.JobInterval(name)) * time.Second
		if interval <= 0 {
			w.log.Info("task disabled", logger.Data{"task": name})
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		log := w.log.ID(uuid.New().String()).Root(logger.Data{"task": name})
		ctx := log.WithContext(context.Background())
		if err := fn(ctx); err != nil {
			log.Err(err).Error("task run error")
		}
	}
}
