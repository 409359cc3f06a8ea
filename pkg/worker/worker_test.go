package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workerConfigService(t *testing.T, importInterval int) *config.Service {
	t.Helper()
	userConfig, err := config.DefaultUserConfig()
	require.NoError(t, err)
	userConfig.ImportPollInterval = importInterval
	return config.NewService(&config.Config{UserConfig: userConfig})
}

func TestWorkerRunsTask(t *testing.T) {
	t.Parallel()
	w := New(workerConfigService(t, 1))

	var ticks int64
	w.Register("import", func(_ context.Context) error {
		atomic.AddInt64(&ticks, 1)
		return nil
	})

	w.Start()
	time.Sleep(1500 * time.Millisecond)
	w.Shutdown()

	assert.GreaterOrEqual(t, atomic.LoadInt64(&ticks), int64(1))
}

func TestWorkerDisabledTaskNeverRuns(t *testing.T) {
	t.Parallel()
	w := New(workerConfigService(t, 0))

	var ticks int64
	w.Register("import", func(_ context.Context) error {
		atomic.AddInt64(&ticks, 1)
		return nil
	})

	w.Start()
	time.Sleep(100 * time.Millisecond)
	w.Shutdown()

	assert.Equal(t, int64(0), atomic.LoadInt64(&ticks))
}

func TestWorkerErrorDoesNotStopLoop(t *testing.T) {
	t.Parallel()
	w := New(workerConfigService(t, 1))

	var ticks int64
	w.Register("import", func(_ context.Context) error {
		atomic.AddInt64(&ticks, 1)
		return assert.AnError
	})

	w.Start()
	time.Sleep(2500 * time.Millisecond)
	w.Shutdown()

	assert.GreaterOrEqual(t, atomic.LoadInt64(&ticks), int64(2))
}

func TestWorkerRestartUnknownTask(t *testing.T) {
	t.Parallel()
	w := New(workerConfigService(t, 1))
	w.Restart("nope")
	w.Shutdown()
}
