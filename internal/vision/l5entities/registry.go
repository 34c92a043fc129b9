package l5entities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/tablepose/internal/vision"
)

// Config describes every tagged entity on the table.
type Config struct {
	// Robot is optional; a nil Robot means no marker is classified as the robot.
	Robot    *EntityConfig
	Stations map[string]EntityConfig
	// ReservedIDs are marker IDs that may not be assigned to an entity,
	// normally the four corner markers.
	ReservedIDs []int
}

// Registry is the precomputed marker ID -> Entity index. It is immutable
// after construction and safe for concurrent reads.
type Registry struct {
	byID  map[int]Entity
	byKey map[string]Entity
	keys  []string
}

// NewRegistry builds the inverse index. It returns an error wrapping
// vision.ErrConfiguration if a marker ID is used twice (including reserved
// IDs) or a station key is empty or collides with a reserved key.
func NewRegistry(cfg Config) (*Registry, error) {
	r := &Registry{
		byID:  make(map[int]Entity, len(cfg.Stations)+1),
		byKey: make(map[string]Entity, len(cfg.Stations)+1),
	}

	reserved := make(map[int]bool, len(cfg.ReservedIDs))
	for _, id := range cfg.ReservedIDs {
		reserved[id] = true
	}

	add := func(e Entity) error {
		if reserved[e.MarkerID] {
			return fmt.Errorf("%w: %s uses reserved marker ID %d", vision.ErrConfiguration, e.Key, e.MarkerID)
		}
		if other, dup := r.byID[e.MarkerID]; dup {
			return fmt.Errorf("%w: marker ID %d assigned to both %q and %q",
				vision.ErrConfiguration, e.MarkerID, other.Key, e.Key)
		}
		r.byID[e.MarkerID] = e
		r.byKey[e.Key] = e
		return nil
	}

	if cfg.Robot != nil {
		if err := add(Entity{
			Kind:     KindRobot,
			Key:      RobotKey,
			MarkerID: cfg.Robot.MarkerID,
			Offset:   cfg.Robot.Offset,
			Label:    cfg.Robot.Label,
		}); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(cfg.Stations))
	for key := range cfg.Stations {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "" || key == RobotKey || strings.HasPrefix(key, unknownPrefix) {
			return nil, fmt.Errorf("%w: invalid station key %q", vision.ErrConfiguration, key)
		}
		sc := cfg.Stations[key]
		if err := add(Entity{
			Kind:     KindStation,
			Key:      key,
			MarkerID: sc.MarkerID,
			Offset:   sc.Offset,
			Label:    sc.Label,
		}); err != nil {
			return nil, err
		}
	}
	r.keys = keys

	return r, nil
}

// Classify returns the entity for a marker ID. Unconfigured IDs classify as
// KindUnknown with key "unknown_<id>" and a zero offset.
func (r *Registry) Classify(id int) Entity {
	if e, ok := r.byID[id]; ok {
		return e
	}
	return UnknownEntity(id)
}

// Lookup returns the configured entity with the given key.
func (r *Registry) Lookup(key string) (Entity, bool) {
	e, ok := r.byKey[key]
	return e, ok
}

// StationKeys returns the configured station keys in sorted order.
func (r *Registry) StationKeys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of configured entities.
func (r *Registry) Len() int {
	return len(r.byID)
}
