package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticFetcher is safe for concurrent use
type staticFetcher map[string]string

func (f staticFetcher) EndpointStatus(_ context.Context, name string) (string, string, error) {
	status, ok := f[name]
	if !ok {
		return "", "", errors.New("endpoint not found")
	}
	return status, "", nil
}

func collect(t *testing.T, w *Watcher, n int) map[string]Result {
	t.Helper()
	final := make(map[string]Result)
	for i := 0; i < n; i++ {
		select {
		case r := <-w.Results():
			if r.Status != StatusChecking {
				final[r.EndpointName] = r
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for result %d", i)
		}
	}
	return final
}

func TestWatcherInitialCheck(t *testing.T) {
	fetcher := staticFetcher{
		"recs":   "InService",
		"search": "Creating",
	}
	w := NewWatcher(fetcher, clock.NewMock(), time.Minute, []string{"recs", "search", "gone"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	// One checking result plus one final result per endpoint
	results := collect(t, w, 6)
	cancel()

	require.Len(t, results, 3)
	assert.Equal(t, StatusInService, results["recs"].Status)
	assert.Equal(t, StatusCreating, results["search"].Status)
	assert.Equal(t, StatusUnknown, results["gone"].Status)
	assert.Error(t, results["gone"].Error)

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestWatcherAddEndpoint(t *testing.T) {
	w := NewWatcher(staticFetcher{"a": "InService"}, clock.NewMock(), time.Minute, []string{"a"}, nil)
	w.AddEndpoint("b")
	w.AddEndpoint("a")

	assert.Equal(t, []string{"a", "b"}, w.endpoints)
}
