package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/session"
)

// fakeFactory hands out fakeSessions and can be told to refuse for one site.
type fakeFactory struct {
	mu       sync.Mutex
	refuse   map[string]error
	acquired []string
	sessions map[string]*fakeSession
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		refuse:   map[string]error{},
		sessions: map[string]*fakeSession{},
	}
}

func (f *fakeFactory) Acquire(ctx context.Context, profile session.Profile) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired = append(f.acquired, profile.Site)
	if err := f.refuse[profile.Site]; err != nil {
		return nil, err
	}
	sess := &fakeSession{}
	f.sessions[profile.Site] = sess
	return sess, nil
}

func taskFor(site string, days int) Task {
	return Task{
		Adapter: &scriptedAdapter{site: site, targets: []Target{{Key: "main"}}},
		Profile: session.Profile{Site: site, Family: "document"},
		Sink:    &recordingSink{},
		Days:    days,
	}
}

func TestRunExecutesEverySiteAndSortsResults(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	orch := NewOrchestrator(factory, nil, zap.NewNop())

	results := orch.Run(context.Background(), []Task{
		taskFor("zeroworld", 2),
		taskFor("keyescape", 2),
	})

	require.Len(t, results, 2)
	require.Equal(t, "keyescape", results[0].Site)
	require.Equal(t, "zeroworld", results[1].Site)
	for _, r := range results {
		require.Equal(t, TaskCompleted, r.Status)
		require.NoError(t, r.Err)
		require.NotEmpty(t, r.TaskID)
		require.Equal(t, 2, r.Counters.UnitsAttempted)
	}
	require.NotEqual(t, results[0].TaskID, results[1].TaskID)
}

func TestRunAcquisitionFailureFailsOnlyThatTask(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	factory.refuse["zeroworld"] = errors.New("chrome did not start")
	orch := NewOrchestrator(factory, nil, zap.NewNop())

	results := orch.Run(context.Background(), []Task{
		taskFor("keyescape", 1),
		taskFor("zeroworld", 1),
	})

	require.Len(t, results, 2)
	require.Equal(t, TaskCompleted, results[0].Status)
	require.Equal(t, TaskFailed, results[1].Status)
	require.ErrorContains(t, results[1].Err, "acquire session")
	require.Zero(t, results[1].Counters.UnitsAttempted)
}

func TestRunReleasesSessionOnEveryExitPath(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	orch := NewOrchestrator(factory, nil, zap.NewNop())

	// Completed sweep releases its session.
	orch.Run(context.Background(), []Task{taskFor("keyescape", 1)})
	require.Equal(t, 1, factory.sessions["keyescape"].closed)

	// A sweep cut short by cancellation still releases its session.
	ctx, cancel := context.WithCancel(context.Background())
	task := Task{
		Adapter: &cancellingAdapter{
			scriptedAdapter: scriptedAdapter{site: "beatphobia", targets: []Target{{Key: "main"}}},
			cancelAfter:     1,
			cancel:          cancel,
		},
		Profile: session.Profile{Site: "beatphobia", Family: "document"},
		Sink:    &recordingSink{},
		Days:    5,
	}
	results := orch.Run(ctx, []Task{task})
	require.Equal(t, TaskCompleted, results[0].Status)
	require.Equal(t, 1, factory.sessions["beatphobia"].closed)
}

func TestRunAlreadyCancelledContextFailsTasksWithoutAcquiring(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	factory := newFakeFactory()
	orch := NewOrchestrator(factory, nil, zap.NewNop())

	results := orch.Run(ctx, []Task{taskFor("goldenkey", 1)})

	require.Equal(t, TaskFailed, results[0].Status)
	require.ErrorIs(t, results[0].Err, context.Canceled)
	require.Empty(t, factory.acquired)
}

func TestRunRecordsDurations(t *testing.T) {
	t.Parallel()

	factory := newFakeFactory()
	orch := NewOrchestrator(factory, nil, zap.NewNop())

	results := orch.Run(context.Background(), []Task{taskFor("keyescape", 1)})

	require.GreaterOrEqual(t, results[0].Duration, time.Duration(0))
}
