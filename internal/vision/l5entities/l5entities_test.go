package l5entities

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tablepose/internal/vision"
	"github.com/banshee-data/tablepose/internal/vision/l4pose"
)

func defaultConfig() Config {
	return Config{
		Robot: &EntityConfig{MarkerID: 18, Offset: l4pose.Offset{X: 0.02}},
		Stations: map[string]EntityConfig{
			"3d":    {MarkerID: 20, Label: "3D printer"},
			"laser": {MarkerID: 21, Label: "Laser cutter", Offset: l4pose.Offset{Theta: math.Pi / 2}},
		},
		ReservedIDs: []int{10, 12, 14, 16},
	}
}

func TestNewRegistry_Classify(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(defaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"3d", "laser"}, r.StationKeys())

	tests := []struct {
		id   int
		kind Kind
		key  string
	}{
		{18, KindRobot, "robot"},
		{20, KindStation, "3d"},
		{21, KindStation, "laser"},
		{7, KindUnknown, "unknown_7"},
		{10, KindUnknown, "unknown_10"},
	}
	for _, tt := range tests {
		e := r.Classify(tt.id)
		assert.Equal(t, tt.kind, e.Kind, "id %d", tt.id)
		assert.Equal(t, tt.key, e.Key, "id %d", tt.id)
		assert.Equal(t, tt.id, e.MarkerID)
	}

	assert.True(t, r.Classify(7).Offset.IsZero())
	assert.Equal(t, 0.02, r.Classify(18).Offset.X)

	e, ok := r.Lookup("laser")
	require.True(t, ok)
	assert.Equal(t, "Laser cutter (21)", e.DisplayName())
	_, ok = r.Lookup("unknown_7")
	assert.False(t, ok)
}

func TestNewRegistry_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"station reuses robot id", func(c *Config) {
			c.Stations["3d"] = EntityConfig{MarkerID: 18}
		}},
		{"two stations share an id", func(c *Config) {
			c.Stations["cnc"] = EntityConfig{MarkerID: 21}
		}},
		{"robot on a corner id", func(c *Config) {
			c.Robot = &EntityConfig{MarkerID: 12}
		}},
		{"empty station key", func(c *Config) {
			c.Stations[""] = EntityConfig{MarkerID: 30}
		}},
		{"station named robot", func(c *Config) {
			c.Stations["robot"] = EntityConfig{MarkerID: 30}
		}},
		{"station with unknown prefix", func(c *Config) {
			c.Stations["unknown_30"] = EntityConfig{MarkerID: 30}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			r, err := NewRegistry(cfg)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, vision.ErrConfiguration)
		})
	}
}

func TestNewRegistry_NoRobot(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(Config{Stations: map[string]EntityConfig{"a": {MarkerID: 1}}})
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, r.Classify(18).Kind)
}

func TestResult_Add(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	res := NewResult(3, ts)
	assert.Equal(t, 0, res.Len())
	assert.Nil(t, res.Robot)

	raw := l4pose.MarkerPose{X: 0.1, Y: 0.2, Angle: 0, PixelX: 200, PixelY: 400}
	final := l4pose.ApplyOffset(raw, l4pose.Offset{X: 0.05})

	res.Add(NewResolvedPose(Entity{Kind: KindRobot, Key: RobotKey, MarkerID: 18}, raw, final))
	res.Add(NewResolvedPose(UnknownEntity(7), raw, raw))
	res.Add(NewResolvedPose(Entity{Kind: KindStation, Key: "3d", MarkerID: 20}, raw, raw))

	require.NotNil(t, res.Robot)
	assert.InDelta(t, 0.15, res.Robot.X, 1e-12)
	assert.Equal(t, 200.0, res.Robot.PixelX, "pixel position is taken before the offset")
	assert.Equal(t, 3, res.Len())
	assert.NotContains(t, res.Markers, RobotKey)

	poses := res.Poses()
	require.Len(t, poses, 3)
	assert.Equal(t, "robot", poses[0].EntityID)
	assert.Equal(t, "3d", poses[1].EntityID)
	assert.Equal(t, "unknown_7", poses[2].EntityID)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "robot", KindRobot.String())
	assert.Equal(t, "station", KindStation.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
