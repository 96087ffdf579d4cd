// Package settings holds the user-configurable editor preferences and their
// YAML file format.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/history"
)

var ErrInvalid = errors.New("settings: invalid")

type Settings struct {
	Grid GridSettings `yaml:"grid"`
	Edit EditSettings `yaml:"edit"`
	Pick PickSettings `yaml:"pick"`
	Draw DrawSettings `yaml:"draw"`
	Log  LogSettings  `yaml:"log"`
}

type GridSettings struct {
	Presets []float32 `yaml:"presets"`
	// Default is the index into Presets selected for new scenes.
	Default int  `yaml:"default"`
	Snap    bool `yaml:"snap"`
}

type EditSettings struct {
	UndoLimit int `yaml:"undo_limit"`
	// MergeDistance is the weld tolerance offered for merge vertices. It
	// must lie in [MinMergeDistance, MaxMergeDistance]; a zero maximum means
	// no upper bound.
	MergeDistance    float32 `yaml:"merge_distance"`
	MinMergeDistance float32 `yaml:"min_merge_distance"`
	MaxMergeDistance float32 `yaml:"max_merge_distance"`
	AutoFlattenUVs   bool    `yaml:"auto_flatten_uvs"`
	ExtrudeDistance  float32 `yaml:"extrude_distance"`
}

type PickSettings struct {
	Epsilon       float32 `yaml:"epsilon"`
	CullBackfaces bool    `yaml:"cull_backfaces"`
}

type DrawSettings struct {
	PaintColor    [4]float32 `yaml:"paint_color,flow"`
	SmoothNormals bool       `yaml:"smooth_normals"`
	// MaxFill caps the tiles one rectangle fill may place.
	MaxFill int `yaml:"max_fill"`
}

type LogSettings struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

func Default() Settings {
	return Settings{
		Grid: GridSettings{
			Presets: slices.Clone(core.DefaultGridPresets),
			Default: core.DefaultGridIndex,
			Snap:    true,
		},
		Edit: EditSettings{
			UndoLimit:        history.DefaultLimit,
			MergeDistance:    0.001,
			MinMergeDistance: 0,
			MaxMergeDistance: 1,
			ExtrudeDistance:  1,
		},
		Pick: PickSettings{
			Epsilon: 1e-4,
		},
		Draw: DrawSettings{
			PaintColor: [4]float32{1, 0, 0, 1},
			MaxFill:    4096,
		},
		Log: LogSettings{
			Prefix: "tilesmith",
		},
	}
}

// Load reads settings from path. Keys missing from the file keep their
// defaults, and a missing file yields Default().
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("settings: load %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("settings: unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Default(), err
	}
	return s, nil
}

// Save writes s to path, creating the directory if needed.
func (s Settings) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings: save %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: save %s: %w", path, err)
	}
	return nil
}

func (s Settings) Validate() error {
	g := s.Grid
	if len(g.Presets) == 0 {
		return fmt.Errorf("%w: grid: no presets", ErrInvalid)
	}
	for i, p := range g.Presets {
		if p <= 0 {
			return fmt.Errorf("%w: grid: preset %d is %v", ErrInvalid, i, p)
		}
	}
	if g.Default < 0 || g.Default >= len(g.Presets) {
		return fmt.Errorf("%w: grid: default %d out of range", ErrInvalid, g.Default)
	}

	e := s.Edit
	if e.UndoLimit <= 0 {
		return fmt.Errorf("%w: edit: undo_limit %d", ErrInvalid, e.UndoLimit)
	}
	if e.MinMergeDistance < 0 || e.MaxMergeDistance < 0 {
		return fmt.Errorf("%w: edit: negative merge bound", ErrInvalid)
	}
	if e.MergeDistance < e.MinMergeDistance || (e.MaxMergeDistance > 0 && e.MergeDistance > e.MaxMergeDistance) {
		return fmt.Errorf("%w: edit: merge_distance %v outside [%v, %v]", ErrInvalid, e.MergeDistance, e.MinMergeDistance, e.MaxMergeDistance)
	}
	if e.ExtrudeDistance == 0 {
		return fmt.Errorf("%w: edit: extrude_distance is zero", ErrInvalid)
	}

	if s.Pick.Epsilon < 0 {
		return fmt.Errorf("%w: pick: epsilon %v", ErrInvalid, s.Pick.Epsilon)
	}
	if s.Draw.MaxFill <= 0 {
		return fmt.Errorf("%w: draw: max_fill %d", ErrInvalid, s.Draw.MaxFill)
	}
	return nil
}

// GridSize is the default preset's cell size.
func (s Settings) GridSize() float32 {
	return s.Grid.Presets[s.Grid.Default]
}
