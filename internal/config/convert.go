package config

import (
	"github.com/banshee-data/tablepose/internal/units"
	"github.com/banshee-data/tablepose/internal/vision/l3geometry"
	"github.com/banshee-data/tablepose/internal/vision/l4pose"
	"github.com/banshee-data/tablepose/internal/vision/l5entities"
	"github.com/banshee-data/tablepose/internal/vision/pipeline"
)

// TableMetres is the table geometry converted to metres.
type TableMetres struct {
	Width        float64
	Height       float64
	OffsetInside float64
}

// GetTableMetres returns the table size and reachable-area margin in metres.
func (c *Config) GetTableMetres() TableMetres {
	u := c.GetUnits()
	return TableMetres{
		Width:        units.ToMetres(c.Table.Width, u),
		Height:       units.ToMetres(c.Table.Height, u),
		OffsetInside: units.ToMetres(c.GetOffsetInside(), u),
	}
}

// PipelineConfig converts the file configuration into the processor
// configuration (metres and radians).
func (c *Config) PipelineConfig() pipeline.Config {
	t := c.GetTableMetres()
	out := pipeline.Config{
		CornerIDs:      c.Table.CornerMarkers.IDs(),
		TableWidth:     t.Width,
		TableHeight:    t.Height,
		OutputHeightPx: c.GetOutputHeightPx(),
		Entities: l5entities.Config{
			Stations: make(map[string]l5entities.EntityConfig, len(c.Stations)),
		},
	}
	if w := c.GetOutputWidthPx(); w > 0 {
		out.Output = l3geometry.OutputSize{Width: w, Height: c.GetOutputHeightPx()}
	}
	if c.Robot != nil {
		robot := c.entityConfig(*c.Robot)
		out.Entities.Robot = &robot
	}
	for key, sc := range c.Stations {
		out.Entities.Stations[key] = c.entityConfig(sc)
	}
	return out
}

func (c *Config) entityConfig(mc MarkerConfig) l5entities.EntityConfig {
	u := c.GetUnits()
	return l5entities.EntityConfig{
		MarkerID: mc.MarkerID,
		Label:    mc.Text,
		Offset: l4pose.Offset{
			X:     units.ToMetres(mc.XOffset, u),
			Y:     units.ToMetres(mc.YOffset, u),
			Theta: units.DegToRad(mc.ThetaOffsetDeg),
		},
	}
}
