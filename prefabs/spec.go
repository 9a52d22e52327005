package prefabs

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/handgrab/grab"
)

// GrabPointSpec configures one handle on a grabbable.
type GrabPointSpec struct {
	Search       string     `yaml:"search"` // distance | overlap
	Snap         string     `yaml:"snap"`   // none | position_rotation
	MaxDistance  float64    `yaml:"max_distance"`
	Transferable bool       `yaml:"transferable"`
	Offset       [3]float64 `yaml:"offset"`
}

// ConstraintSpec bounds one local translation axis.
type ConstraintSpec struct {
	Locked bool    `yaml:"locked"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// GrabbableSpec is the yaml tuning for a grabbable.
type GrabbableSpec struct {
	Name                  string          `yaml:"name"`
	Rotation              string          `yaml:"rotation"` // hand | around_pivot
	PivotAxis             [3]float64      `yaml:"pivot_axis"`
	CanThrow              bool            `yaml:"can_throw"`
	ThrowLinearIntensity  float64         `yaml:"throw_linear_intensity"`
	ThrowAngularIntensity float64         `yaml:"throw_angular_intensity"`
	ReleaseDistance       float64         `yaml:"release_distance"`
	ReleaseDistanceDual   float64         `yaml:"release_distance_dual"`
	LerpFactor            float64         `yaml:"lerp_factor"`
	AutoSetPrimaryGrab    bool            `yaml:"auto_set_primary_grab"`
	UseControllerVelocity bool            `yaml:"use_controller_velocity"`
	ConstraintX           *ConstraintSpec `yaml:"constraint_x"`
	ConstraintY           *ConstraintSpec `yaml:"constraint_y"`
	ConstraintZ           *ConstraintSpec `yaml:"constraint_z"`
	GrabPoints            []GrabPointSpec `yaml:"grab_points"`
	Script                string          `yaml:"script"`
}

// InteractorSpec is the yaml tuning for an interactor.
type InteractorSpec struct {
	Hand string `yaml:"hand"` // left | right
}

// LoadSpec reads and unmarshals a yaml spec file.
func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// LoadGrabbableSpec loads one grabbable spec by filename.
func LoadGrabbableSpec(filename string) (GrabbableSpec, error) {
	return LoadSpec[GrabbableSpec](filename)
}

// Config validates the spec and converts it into a grab.Config.
func (s GrabbableSpec) Config() (grab.Config, error) {
	cfg := grab.Config{
		PivotAxis:                 mgl64.Vec3{s.PivotAxis[0], s.PivotAxis[1], s.PivotAxis[2]},
		CanThrow:                  s.CanThrow,
		ThrowLinearIntensity:      s.ThrowLinearIntensity,
		ThrowAngularIntensity:     s.ThrowAngularIntensity,
		ReleaseDistance:           s.ReleaseDistance,
		ReleaseDistanceDual:       s.ReleaseDistanceDual,
		LerpFactor:                s.LerpFactor,
		AutoSetPrimaryGrab:        s.AutoSetPrimaryGrab,
		UseControllerVelocityData: s.UseControllerVelocity,
	}

	switch s.Rotation {
	case "", "hand":
		cfg.Rotation = grab.RotateHand
	case "around_pivot":
		cfg.Rotation = grab.RotateAroundPivot
	default:
		return grab.Config{}, fmt.Errorf("prefabs: grabbable %s: unknown rotation %q", s.Name, s.Rotation)
	}

	for i, c := range []*ConstraintSpec{s.ConstraintX, s.ConstraintY, s.ConstraintZ} {
		if c == nil {
			continue
		}
		cfg.Constraints[i] = grab.AxisConstraint{Locked: c.Locked, Min: c.Min, Max: c.Max}
	}

	for _, ps := range s.GrabPoints {
		pc, err := ps.pointConfig(s.Name)
		if err != nil {
			return grab.Config{}, err
		}
		cfg.Points = append(cfg.Points, pc)
	}

	return cfg, nil
}

func (ps GrabPointSpec) pointConfig(owner string) (grab.PointConfig, error) {
	pc := grab.PointConfig{
		MaxDistance:  ps.MaxDistance,
		Transferable: ps.Transferable,
		LocalOffset:  mgl64.Vec3{ps.Offset[0], ps.Offset[1], ps.Offset[2]},
	}
	switch ps.Search {
	case "", "distance":
		pc.Search = grab.SearchDistance
	case "overlap":
		pc.Search = grab.SearchOverlap
	default:
		return grab.PointConfig{}, fmt.Errorf("prefabs: grabbable %s: unknown search mode %q", owner, ps.Search)
	}
	switch ps.Snap {
	case "", "none":
		pc.Snap = grab.SnapNone
	case "position_rotation":
		pc.Snap = grab.SnapPositionRotation
	default:
		return grab.PointConfig{}, fmt.Errorf("prefabs: grabbable %s: unknown snap mode %q", owner, ps.Snap)
	}
	return pc, nil
}

// HandValue converts the spec's hand string.
func (s InteractorSpec) HandValue() (grab.Handedness, error) {
	switch s.Hand {
	case "", "left":
		return grab.HandLeft, nil
	case "right":
		return grab.HandRight, nil
	default:
		return grab.HandLeft, fmt.Errorf("prefabs: unknown hand %q", s.Hand)
	}
}
