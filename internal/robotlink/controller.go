package robotlink

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/banshee-data/tablepose/internal/timeutil"
	"github.com/banshee-data/tablepose/internal/vision/l5entities"
)

// ArrivalThreshold is the robot-to-target distance, in metres, under which
// the robot counts as arrived.
const ArrivalThreshold = 0.20

// ErrUnknownTarget is returned by SetTarget for a key that is not a
// configured station.
var ErrUnknownTarget = errors.New("unknown target")

// Table is the working area in metres. Targets closer than OffsetInside
// to an edge are unreachable.
type Table struct {
	Width        float64
	Height       float64
	OffsetInside float64
}

// Contains reports whether (x, y) lies in the reachable area.
func (t Table) Contains(x, y float64) bool {
	return x >= t.OffsetInside && x <= t.Width-t.OffsetInside &&
		y >= t.OffsetInside && y <= t.Height-t.OffsetInside
}

// Controller remembers the latest poses and keeps the robot informed of its
// own pose and its current target. It is safe for concurrent use: the
// pipeline calls HandleResult while an operator may call SetTarget.
type Controller struct {
	sender   Sender
	table    Table
	clock    timeutil.Clock
	stations map[string]string // key -> label

	mu      sync.Mutex
	robot   *l5entities.ResolvedPose
	markers map[string]l5entities.ResolvedPose
	target  string
}

// NewController returns a controller sending through sender. stations maps
// each selectable target key to its display label.
func NewController(sender Sender, table Table, stations map[string]string, clock timeutil.Clock) *Controller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	labels := make(map[string]string, len(stations))
	for k, v := range stations {
		labels[k] = v
	}
	return &Controller{
		sender:   sender,
		table:    table,
		clock:    clock,
		stations: labels,
		markers:  make(map[string]l5entities.ResolvedPose),
	}
}

// HandleResult records the frame's poses and sends an update. The robot
// pose is included only when the robot was seen in this frame.
func (c *Controller) HandleResult(res *l5entities.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Robot != nil {
		robot := *res.Robot
		c.robot = &robot
	}
	for key, pose := range res.Markers {
		c.markers[key] = pose
	}
	return c.sendLocked(res.Robot != nil)
}

// SetTarget selects the station the robot should drive to. An empty key
// clears the target, which sends the robot to the table centre. The update
// is sent immediately without a robot pose.
func (c *Controller) SetTarget(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != "" {
		if _, ok := c.stations[key]; !ok {
			return fmt.Errorf("%w %q", ErrUnknownTarget, key)
		}
	}
	if key != c.target {
		diagf("target changed from %q to %q", c.target, key)
	}
	c.target = key
	return c.sendLocked(false)
}

// Target returns the selected target key.
func (c *Controller) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Compose builds the packet that would be sent now. ok is false when there
// is nothing to send.
func (c *Controller) Compose(robotFresh bool) (Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composeLocked(robotFresh)
}

func (c *Controller) composeLocked(robotFresh bool) (Packet, bool) {
	var p Packet
	if robotFresh && c.robot != nil {
		p.Robot = &Pose2D{X: c.robot.X, Y: c.robot.Y, Theta: c.robot.Angle}
	}

	if c.target != "" {
		if t, ok := c.markers[c.target]; ok {
			if c.table.Contains(t.X, t.Y) {
				p.Target = &Pose2D{X: t.X, Y: t.Y, Theta: t.Angle}
			} else {
				opsf("target %q at (%.3f, %.3f) is outside the reachable area", c.target, t.X, t.Y)
			}
		}
	} else if c.robot != nil {
		p.Target = &Pose2D{X: c.table.Width / 2, Y: c.table.Height / 2, Theta: math.Pi / 2}
	}

	if p.Robot == nil && p.Target == nil {
		return Packet{}, false
	}
	p.Timestamp = timeutil.UnixSeconds(c.clock.Now())
	return p, true
}

func (c *Controller) sendLocked(robotFresh bool) error {
	p, ok := c.composeLocked(robotFresh)
	if !ok {
		tracef("nothing to send")
		return nil
	}
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := c.sender.Send(data); err != nil {
		return fmt.Errorf("send pose update: %w", err)
	}
	return nil
}

// UpdateFace sends the face matching an assistant state.
func (c *Controller) UpdateFace(state string) error {
	data, err := Encode(FacePacket{Face: FaceForState(state)})
	if err != nil {
		return err
	}
	if err := c.sender.Send(data); err != nil {
		return fmt.Errorf("send face update: %w", err)
	}
	return nil
}

// Status describes the robot's distance to every known station and its
// progress towards the target.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	if c.robot == nil {
		b.WriteString("Robot has not been seen yet\n")
	} else {
		keys := make([]string, 0, len(c.markers))
		for k := range c.markers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "Robot is %.1f cm from %q\n", 100*c.distanceLocked(c.markers[k]), k)
		}
	}

	if c.target == "" {
		b.WriteString("No target is set for the robot")
		return b.String()
	}

	label := c.stations[c.target]
	if label == "" {
		label = c.target
	}
	t, seen := c.markers[c.target]
	switch {
	case c.robot == nil || !seen:
		fmt.Fprintf(&b, "Robot is moving towards: %s", label)
	case c.distanceLocked(t) > ArrivalThreshold:
		fmt.Fprintf(&b, "Robot is heading to: %s", label)
	default:
		fmt.Fprintf(&b, "Robot is in front of: %s", label)
	}
	return b.String()
}

func (c *Controller) distanceLocked(p l5entities.ResolvedPose) float64 {
	return math.Hypot(p.X-c.robot.X, p.Y-c.robot.Y)
}
