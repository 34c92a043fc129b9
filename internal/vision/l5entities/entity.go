package l5entities

import (
	"fmt"

	"github.com/banshee-data/tablepose/internal/vision/l4pose"
)

// RobotKey is the entity key of the robot.
const RobotKey = "robot"

// unknownPrefix prefixes the key of markers that are not configured.
const unknownPrefix = "unknown_"

// Kind tags an Entity.
type Kind int

const (
	KindUnknown Kind = iota
	KindRobot
	KindStation
)

func (k Kind) String() string {
	switch k {
	case KindRobot:
		return "robot"
	case KindStation:
		return "station"
	default:
		return "unknown"
	}
}

// EntityConfig is the static configuration of one tagged entity.
type EntityConfig struct {
	MarkerID int
	Offset   l4pose.Offset
	// Label is a human-readable name, e.g. "3D printer".
	Label string
}

// Entity is the classification of one marker ID.
type Entity struct {
	Kind     Kind
	Key      string
	MarkerID int
	Offset   l4pose.Offset
	Label    string
}

// UnknownEntity returns the pass-through entity for an unconfigured marker.
func UnknownEntity(id int) Entity {
	return Entity{Kind: KindUnknown, Key: fmt.Sprintf("%s%d", unknownPrefix, id), MarkerID: id}
}

// DisplayName returns "Label (id)" or "key (id)" for logs and overlays.
func (e Entity) DisplayName() string {
	name := e.Key
	if e.Label != "" {
		name = e.Label
	}
	return fmt.Sprintf("%s (%d)", name, e.MarkerID)
}
