package app

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"isogrid.org/internal/schedule"
)

// Config is one run's configuration, loaded from a YAML file. A file may
// carry either or both sections; each command validates the section it
// needs before any work dispatches.
type Config struct {
	Merge  *MergeConfig  `yaml:"merge"`
	Access *AccessConfig `yaml:"access"`
}

// MergeConfig drives the GTFS-to-network merge batch.
type MergeConfig struct {
	// Input is a single GTFS archive or a directory of archives.
	Input        string `yaml:"input" validate:"required"`
	VerticesFile string `yaml:"vertices_file" validate:"required"`
	OutputDir    string `yaml:"output_directory" validate:"required"`

	StartingEdgeListID int  `yaml:"starting_edge_list_id" validate:"gte=0"`
	Parallelism        int  `yaml:"parallelism" validate:"gte=0"`
	IgnoreFailures     bool `yaml:"ignore_failures"`
	Overwrite          bool `yaml:"overwrite"`

	// VertexMatchTolerance is in meters. Zero means the default.
	VertexMatchTolerance float64 `yaml:"vertex_match_tolerance" validate:"gte=0"`
	MissingStopLocation  string  `yaml:"missing_stop_location" validate:"omitempty,oneof=fail drop_stop"`

	DateMapping DateMappingConfig `yaml:"date_mapping"`
}

// DefaultVertexMatchTolerance is the snap distance used when none is
// configured, in meters.
const DefaultVertexMatchTolerance = 325.0

// DateMappingConfig selects and parameterizes the date-mapping policy.
type DateMappingConfig struct {
	Policy        string `yaml:"policy" validate:"required,oneof=exact_date exact_range nearest_date nearest_date_time_range"`
	StartDate     string `yaml:"start_date" validate:"required"`
	EndDate       string `yaml:"end_date"`
	DateTolerance int    `yaml:"date_tolerance" validate:"gte=0"`
	MatchWeekday  bool   `yaml:"match_weekday"`
	// TimeStart/TimeEnd bound the optional time-of-day window, as HH:MM.
	TimeStart string `yaml:"time_start"`
	TimeEnd   string `yaml:"time_end"`
}

// AccessConfig drives the grid search run.
type AccessConfig struct {
	QueryFile string `yaml:"query_file" validate:"required"`
	OutputDir string `yaml:"output_directory" validate:"required"`
	// VerticesFile feeds the built-in speed-model searcher.
	VerticesFile string `yaml:"vertices_file" validate:"required"`

	ChunkSize   int `yaml:"chunksize" validate:"gte=0"`
	Parallelism int `yaml:"parallelism" validate:"gte=0"`

	// TimeBins are the isochrone thresholds in minutes.
	TimeBins []int  `yaml:"time_bins" validate:"required,min=1,dive,gt=0"`
	Boundary string `yaml:"boundary" validate:"omitempty,oneof=convex_hull"`
	// Speeds maps mode name to meters per second for the built-in
	// searcher. Empty uses the defaults.
	Speeds map[string]float64 `yaml:"speeds"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	v := validator.New()
	if cfg.Merge != nil {
		if err := v.Struct(cfg.Merge); err != nil {
			return nil, fmt.Errorf("invalid merge config: %w", err)
		}
	}
	if cfg.Access != nil {
		if err := v.Struct(cfg.Access); err != nil {
			return nil, fmt.Errorf("invalid access config: %w", err)
		}
	}
	return &cfg, nil
}

// Policy converts the configuration into the schedule policy variant.
func (c DateMappingConfig) SchedulePolicy() (schedule.Policy, error) {
	kind, err := schedule.ParsePolicyKind(c.Policy)
	if err != nil {
		return schedule.Policy{}, err
	}
	return schedule.Policy{
		Kind:          kind,
		DateTolerance: c.DateTolerance,
		MatchWeekday:  c.MatchWeekday,
	}, nil
}

// Window converts the configured dates and times into a target window.
func (c DateMappingConfig) Window() (schedule.Window, error) {
	start, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return schedule.Window{}, fmt.Errorf("bad start_date: %w", err)
	}
	end := start
	if c.EndDate != "" {
		if end, err = time.Parse("2006-01-02", c.EndDate); err != nil {
			return schedule.Window{}, fmt.Errorf("bad end_date: %w", err)
		}
	}
	w := schedule.Window{Start: start, End: end}

	if c.TimeStart != "" || c.TimeEnd != "" {
		if c.TimeStart == "" || c.TimeEnd == "" {
			return schedule.Window{}, fmt.Errorf("time_start and time_end must be set together")
		}
		t0, err := parseTimeOfDay(c.TimeStart)
		if err != nil {
			return schedule.Window{}, fmt.Errorf("bad time_start: %w", err)
		}
		t1, err := parseTimeOfDay(c.TimeEnd)
		if err != nil {
			return schedule.Window{}, fmt.Errorf("bad time_end: %w", err)
		}
		w.Times = &schedule.TimeRange{Start: t0, End: t1}
	}
	if err := w.Validate(); err != nil {
		return schedule.Window{}, err
	}
	return w, nil
}

func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
