package main

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tablepose/internal/report"
	"github.com/banshee-data/tablepose/internal/storage/sqlite"
	"github.com/banshee-data/tablepose/internal/vision/l5entities"
)

func seedStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "poses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	older := &sqlite.Session{StartedAt: start.Add(-time.Hour), TableWidth: 0.3, TableHeight: 0.3}
	require.NoError(t, store.StartSession(older))

	sess := &sqlite.Session{StartedAt: start, TableWidth: 0.3, TableHeight: 0.3}
	require.NoError(t, store.StartSession(sess))

	for i := 1; i <= 5; i++ {
		res := l5entities.NewResult(uint64(i), start.Add(time.Duration(i)*time.Second))
		res.Add(l5entities.ResolvedPose{EntityID: l5entities.RobotKey, Kind: l5entities.KindRobot, MarkerID: 18, X: 0.05 * float64(i), Y: 0.1})
		res.Add(l5entities.ResolvedPose{EntityID: "3d", Kind: l5entities.KindStation, MarkerID: 20, X: 0.25, Y: 0.25})
		require.NoError(t, store.RecordResult(sess.ID, res))
	}
	require.NoError(t, store.EndSession(sess.ID, start.Add(10*time.Second)))
	require.NoError(t, store.SaveStats(sess.ID, sqlite.SessionStats{Frames: 5, Dispatches: 5}, start.Add(10*time.Second)))
	return store, sess.ID
}

func TestPickSession(t *testing.T) {
	store, id := seedStore(t)

	sess, err := pickSession(store, "")
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID, "defaults to the newest session")

	sess, err = pickSession(store, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)

	_, err = pickSession(store, "missing")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestPickSession_EmptyStore(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = pickSession(store, "")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestLoadTrajectories(t *testing.T) {
	store, id := seedStore(t)

	trs, err := loadTrajectories(store, id, nil)
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Equal(t, "3d", trs[0].EntityID)
	assert.Equal(t, "robot", trs[1].EntityID)
	require.Len(t, trs[1].Samples, 5)
	s := trs[1].Samples[2]
	assert.Equal(t, uint64(3), s.Seq)
	assert.InDelta(t, 0.15, s.X, 1e-12)
	assert.InDelta(t, 0.1, s.Y, 1e-12)

	only, err := loadTrajectories(store, id, []string{"robot"})
	require.NoError(t, err)
	require.Len(t, only, 1)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "png", report.Table{Width: 0.3, Height: 0.3}, trs, report.Options{}))
	_, err = png.Decode(&buf)
	require.NoError(t, err)
}

func TestListSessions(t *testing.T) {
	store, id := seedStore(t)

	var buf bytes.Buffer
	require.NoError(t, listSessions(&buf, store))
	out := buf.String()
	assert.Contains(t, out, id+"  2026-03-01 09:00:00  10s")
	assert.Contains(t, out, "frames=5")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "frames=-")
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		explicit, path, want string
	}{
		{"", "out.png", "png"},
		{"", "out.HTML", "html"},
		{"", "-", "png"},
		{"HTML", "out.png", "html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outputFormat(tt.explicit, tt.path), "%q %q", tt.explicit, tt.path)
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"robot", "3d"}, splitList(" robot, ,3d"))
}
