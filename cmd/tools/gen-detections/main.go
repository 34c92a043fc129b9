// Command gen-detections writes a synthetic JSON Lines detection stream for
// the table described by a tablepose config: the robot drives a circle,
// stations sit along the far edge and corner markers drop out at random.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/tablepose/internal/config"
	"github.com/banshee-data/tablepose/internal/vision/l1markers"
	"github.com/banshee-data/tablepose/internal/vision/synth"
)

// defaultQuad is a camera above the near edge of the table, tilted forward.
const defaultQuad = "180,90,460,95,600,420,40,410"

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "tablepose config describing the table and markers")
	output := flag.String("o", "-", "output path ('-' for stdout)")
	frames := flag.Int("n", 300, "number of frames")
	fps := flag.Float64("fps", 30, "frame rate used for timestamps")
	seed := flag.Uint64("seed", 1, "random seed")
	occlusion := flag.Float64("occlusion", 0.1, "probability that each corner marker is missing from a frame")
	noise := flag.Float64("noise", 0.3, "corner noise standard deviation in pixels")
	quad := flag.String("quad", defaultQuad, "image positions of the TL,TR,BR,BL corner markers as x1,y1,...,x4,y4")
	lap := flag.Int("lap", 150, "frames per robot lap")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	imageQuad, err := parseQuad(*quad)
	if err != nil {
		log.Fatalf("invalid -quad: %v", err)
	}
	if *fps <= 0 {
		log.Fatal("-fps must be positive")
	}

	gen, err := newGenerator(cfg, imageQuad, synth.GeneratorConfig{
		OcclusionProb: *occlusion,
		NoisePx:       *noise,
		Seed:          *seed,
		Start:         time.Now().UTC().Truncate(time.Second),
		Period:        time.Duration(float64(time.Second) / *fps),
	}, *lap)
	if err != nil {
		log.Fatalf("failed to build scene: %v", err)
	}

	var out io.Writer = os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("failed to create %s: %v", *output, err)
		}
		defer f.Close()
		out = f
	}
	bw := bufio.NewWriter(out)

	if err := generate(bw, gen, *frames); err != nil {
		log.Fatalf("failed to write frames: %v", err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("failed to flush output: %v", err)
	}
	if *output != "-" {
		log.Printf("wrote %d frames to %s", *frames, *output)
	}
}

// newGenerator places the robot and stations from cfg onto a scene. All
// lengths are converted to metres.
func newGenerator(cfg *config.Config, imageQuad [4]r2.Point, gc synth.GeneratorConfig, lap int) (*synth.Generator, error) {
	t := cfg.GetTableMetres()
	ids := cfg.Table.CornerMarkers.IDs()
	markerSize := 0.06 * min(t.Width, t.Height)

	scene, err := synth.NewScene(imageQuad, [4]int{ids[0], ids[1], ids[2], ids[3]}, t.Width, t.Height, markerSize)
	if err != nil {
		return nil, err
	}

	if cfg.Robot != nil {
		gc.Robot = &synth.CirclePath{
			ID:           cfg.Robot.MarkerID,
			CX:           t.Width / 2,
			CY:           t.Height / 2,
			Radius:       0.3 * min(t.Width, t.Height),
			FramesPerLap: lap,
		}
	}

	// Stations are spread along the far edge inside the reachable area,
	// facing the robot.
	keys := cfg.StationKeys()
	for i, key := range keys {
		x := t.OffsetInside + (t.Width-2*t.OffsetInside)*float64(i+1)/float64(len(keys)+1)
		gc.Stations = append(gc.Stations, synth.Placement{
			ID:    cfg.Stations[key].MarkerID,
			X:     x,
			Y:     t.Height - t.OffsetInside - markerSize,
			Theta: -math.Pi / 2,
		})
	}
	return synth.NewGenerator(scene, gc), nil
}

func generate(w io.Writer, gen *synth.Generator, frames int) error {
	enc := l1markers.NewWriter(w)
	for i := 0; i < frames; i++ {
		f, err := gen.Next()
		if err != nil {
			return err
		}
		if err := enc.Write(f); err != nil {
			return err
		}
	}
	return nil
}

func parseQuad(s string) ([4]r2.Point, error) {
	var q [4]r2.Point
	parts := strings.Split(s, ",")
	if len(parts) != 8 {
		return q, fmt.Errorf("want 8 comma-separated numbers, got %d", len(parts))
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return q, fmt.Errorf("value %d: %w", i+1, err)
		}
		vals[i] = v
	}
	for i := range q {
		q[i] = r2.Point{X: vals[2*i], Y: vals[2*i+1]}
	}
	return q, nil
}
