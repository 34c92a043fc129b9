package robotlink

import (
	"encoding/json"
	"fmt"
)

// Pose2D is a pose in the packet wire format: metres and radians.
type Pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Packet is one navigation update. Robot is only present when the robot
// was seen in the frame that triggered the packet.
type Packet struct {
	Robot     *Pose2D `json:"robot,omitempty"`
	Target    *Pose2D `json:"target,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

// Face values understood by the robot display.
const (
	FaceIdle   = 1
	FaceSpeak  = 2
	FaceListen = 3
)

// FacePacket asks the robot to show an expression.
type FacePacket struct {
	Face int `json:"face"`
}

// FaceForState maps an assistant state to a face value: "listen" and
// "speak" have their own faces, anything else is idle.
func FaceForState(state string) int {
	switch state {
	case "listen":
		return FaceListen
	case "speak":
		return FaceSpeak
	default:
		return FaceIdle
	}
}

// Encode marshals v as compact JSON followed by a NUL terminator.
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}
	return append(data, 0), nil
}
