package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/banshee-data/tablepose/internal/units"
	"github.com/banshee-data/tablepose/internal/vision"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/tablepose.defaults.json"

// Transports accepted in link.transport.
const (
	TransportUDP    = "udp"
	TransportSerial = "serial"
	TransportNone   = "none"
)

// Defaults applied by the getters when a field is omitted.
const (
	DefaultOutputHeightPx  = 600
	DefaultOffsetInside    = 0.03 // metres
	DefaultQueueSize       = 64
	DefaultBaudRate        = 115200
	DefaultDropLogInterval = 10 * time.Second
	DefaultStoragePath     = "tablepose.db"
)

// Config is the root tablepose configuration. Lengths are in Table.Units
// (metres when unset) and angles in degrees; PipelineConfig and the
// getters convert to metres and radians.
type Config struct {
	CameraIndex *int `json:"camera_index,omitempty" validate:"omitempty,gte=0"`

	Table    TableConfig             `json:"table"`
	Robot    *MarkerConfig           `json:"robot,omitempty"`
	Stations map[string]MarkerConfig `json:"stations,omitempty" validate:"dive,keys,required,endkeys"`
	Link     LinkConfig              `json:"link"`
	Storage  StorageConfig           `json:"storage"`
}

// TableConfig describes the rectangle spanned by the corner marker centres.
// OutputWidthPx, when set, fixes the output width instead of deriving it
// from the table aspect ratio.
type TableConfig struct {
	Units          string        `json:"units,omitempty" validate:"omitempty,units"`
	Width          float64       `json:"width" validate:"gt=0"`
	Height         float64       `json:"height" validate:"gt=0"`
	OffsetInside   *float64      `json:"offset_inside,omitempty" validate:"omitempty,gte=0"`
	OutputHeightPx *int          `json:"output_height_px,omitempty" validate:"omitempty,gt=0,lte=10000"`
	OutputWidthPx  *int          `json:"output_width_px,omitempty" validate:"omitempty,gt=0,lte=10000"`
	CornerMarkers  CornerMarkers `json:"corner_markers"`
}

// CornerMarkers names the marker ID placed at each table corner.
type CornerMarkers struct {
	TopLeft     int `json:"top_left" validate:"gte=0"`
	TopRight    int `json:"top_right" validate:"gte=0"`
	BottomRight int `json:"bottom_right" validate:"gte=0"`
	BottomLeft  int `json:"bottom_left" validate:"gte=0"`
}

// IDs returns the corner IDs as TL, TR, BR, BL.
func (c CornerMarkers) IDs() []int {
	return []int{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// MarkerConfig is a tagged marker: the robot or a station.
type MarkerConfig struct {
	MarkerID       int     `json:"marker_id" validate:"gte=0"`
	XOffset        float64 `json:"x_offset,omitempty"`
	YOffset        float64 `json:"y_offset,omitempty"`
	ThetaOffsetDeg float64 `json:"theta_offset_deg,omitempty" validate:"gte=-360,lte=360"`
	Text           string  `json:"text,omitempty" validate:"max=64"`
}

// LinkConfig configures the robot link.
type LinkConfig struct {
	Transport       string        `json:"transport,omitempty" validate:"omitempty,oneof=udp serial none"`
	Address         string        `json:"address,omitempty" validate:"omitempty,hostname|ip"`
	Port            int           `json:"port,omitempty" validate:"omitempty,gt=0,lte=65535"`
	QueueSize       *int          `json:"queue_size,omitempty" validate:"omitempty,gt=0,lte=4096"`
	DropLogInterval *string       `json:"drop_log_interval,omitempty"` // duration string like "10s"
	SerialPort      string        `json:"serial_port,omitempty"`
	Serial          *SerialConfig `json:"serial,omitempty"`
}

// SerialConfig mirrors the serial port options used by the robot link.
type SerialConfig struct {
	BaudRate int    `json:"baud_rate,omitempty" validate:"omitempty,gt=0"`
	DataBits int    `json:"data_bits,omitempty" validate:"omitempty,oneof=5 6 7 8"`
	StopBits int    `json:"stop_bits,omitempty" validate:"omitempty,oneof=1 2"`
	Parity   string `json:"parity,omitempty" validate:"omitempty,oneof=N E O M S"`
}

// StorageConfig configures the pose history database.
type StorageConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("units", func(fl validator.FieldLevel) bool {
		return units.IsValid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB. Omitted optional fields fall back to the
// getter defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON config.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/vision/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks field ranges and cross-field rules. Every failure wraps
// vision.ErrConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "units" {
				return fmt.Errorf("%w: %s %q is not a valid unit (valid: %s)",
					vision.ErrConfiguration, fe.Namespace(), fe.Value(), units.GetValidUnitsString())
			}
			return fmt.Errorf("%w: %s failed %q (value %v)", vision.ErrConfiguration, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", vision.ErrConfiguration, err)
	}

	seen := make(map[int]string)
	claim := func(id int, owner string) error {
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("%w: marker ID %d used by both %s and %s", vision.ErrConfiguration, id, prev, owner)
		}
		seen[id] = owner
		return nil
	}

	cm := c.Table.CornerMarkers
	for i, id := range cm.IDs() {
		if err := claim(id, cornerNames[i]+" corner"); err != nil {
			return err
		}
	}
	if c.Robot != nil {
		if err := claim(c.Robot.MarkerID, "robot"); err != nil {
			return err
		}
	}
	for _, key := range c.StationKeys() {
		if key == "robot" {
			return fmt.Errorf("%w: station key %q is reserved", vision.ErrConfiguration, key)
		}
		if err := claim(c.Stations[key].MarkerID, "station "+key); err != nil {
			return err
		}
	}

	inside := c.GetOffsetInside()
	if 2*inside >= c.Table.Width || 2*inside >= c.Table.Height {
		return fmt.Errorf("%w: offset_inside %g leaves no reachable area on a %gx%g table",
			vision.ErrConfiguration, inside, c.Table.Width, c.Table.Height)
	}

	switch c.GetTransport() {
	case TransportUDP:
		if c.Link.Address == "" || c.Link.Port == 0 {
			return fmt.Errorf("%w: udp link needs address and port", vision.ErrConfiguration)
		}
	case TransportSerial:
		if c.Link.SerialPort == "" {
			return fmt.Errorf("%w: serial link needs serial_port", vision.ErrConfiguration)
		}
	}

	if c.Link.DropLogInterval != nil && *c.Link.DropLogInterval != "" {
		if _, err := time.ParseDuration(*c.Link.DropLogInterval); err != nil {
			return fmt.Errorf("%w: invalid drop_log_interval '%s': %v", vision.ErrConfiguration, *c.Link.DropLogInterval, err)
		}
	}

	return nil
}

var cornerNames = [4]string{"top_left", "top_right", "bottom_right", "bottom_left"}

// StationKeys returns the station keys in sorted order.
func (c *Config) StationKeys() []string {
	keys := make([]string, 0, len(c.Stations))
	for k := range c.Stations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetUnits returns the length unit of the file.
func (c *Config) GetUnits() string {
	if c.Table.Units == "" {
		return units.Metres
	}
	return c.Table.Units
}

// GetOffsetInside returns the reachable-area margin in file units.
func (c *Config) GetOffsetInside() float64 {
	if c.Table.OffsetInside == nil {
		return units.FromMetres(DefaultOffsetInside, c.GetUnits())
	}
	return *c.Table.OffsetInside
}

// GetOutputHeightPx returns the rectified output height.
func (c *Config) GetOutputHeightPx() int {
	if c.Table.OutputHeightPx == nil {
		return DefaultOutputHeightPx
	}
	return *c.Table.OutputHeightPx
}

// GetOutputWidthPx returns the explicit output width, or 0 when the width
// follows the table aspect ratio.
func (c *Config) GetOutputWidthPx() int {
	if c.Table.OutputWidthPx == nil {
		return 0
	}
	return *c.Table.OutputWidthPx
}

// GetCameraIndex returns the camera index recorded with each session.
func (c *Config) GetCameraIndex() int {
	if c.CameraIndex == nil {
		return 0
	}
	return *c.CameraIndex
}

// GetTransport returns the link transport, "none" when unset.
func (c *Config) GetTransport() string {
	if c.Link.Transport == "" {
		return TransportNone
	}
	return c.Link.Transport
}

// GetQueueSize returns the link send queue length.
func (c *Config) GetQueueSize() int {
	if c.Link.QueueSize == nil {
		return DefaultQueueSize
	}
	return *c.Link.QueueSize
}

// GetDropLogInterval returns how often dropped link packets are reported.
func (c *Config) GetDropLogInterval() time.Duration {
	if c.Link.DropLogInterval == nil || *c.Link.DropLogInterval == "" {
		return DefaultDropLogInterval
	}
	d, err := time.ParseDuration(*c.Link.DropLogInterval)
	if err != nil {
		return DefaultDropLogInterval
	}
	return d
}

// GetSerial returns serial options with defaults filled in.
func (c *Config) GetSerial() SerialConfig {
	s := SerialConfig{}
	if c.Link.Serial != nil {
		s = *c.Link.Serial
	}
	if s.BaudRate == 0 {
		s.BaudRate = DefaultBaudRate
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
	if s.Parity == "" {
		s.Parity = "N"
	}
	return s
}

// GetStorageEnabled reports whether pose history is recorded.
func (c *Config) GetStorageEnabled() bool {
	if c.Storage.Enabled == nil {
		return true
	}
	return *c.Storage.Enabled
}

// GetStoragePath returns the database path.
func (c *Config) GetStoragePath() string {
	if c.Storage.Path == "" {
		return DefaultStoragePath
	}
	return c.Storage.Path
}
