package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openStore(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	d, err := s.Record(Deployment{
		Endpoint:  "recs",
		Model:     "recs-2024-05-01-12-00",
		Outcome:   "Success",
		StartedAt: start,
		EndedAt:   start.Add(7 * time.Minute),
	})
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)

	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "recs", got.Endpoint)
	assert.Equal(t, 7*time.Minute, got.Duration())

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)

	for _, name := range []string{"first", "second", "third"} {
		_, err := s.Record(Deployment{Endpoint: name})
		require.NoError(t, err)
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Endpoint)
	assert.Equal(t, "first", all[2].Endpoint)

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
