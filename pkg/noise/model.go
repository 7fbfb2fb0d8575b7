// Package noise implements the eight parametrized degradation models
// used to synthesize labeled noisy datasets from clean multiband or RGB
// imagery, together with the level mapper that turns an ordinal
// intensity level into a concrete model parameter.
//
// Every model is applied through the same signature so callers can
// treat them polymorphically. Models never mutate their input and
// always clip results to the legal range of the image's sample type.
// Randomized models build a private generator from the explicit seed,
// so runs are reproducible and concurrent invocations never share
// random state.
package noise

import (
	"errors"
	"fmt"
	"sort"

	"multinoise/pkg/imagery"
)

var (
	// ErrUnknownModel reports a noise model name with no registered model.
	ErrUnknownModel = errors.New("unknown noise model")

	// ErrInvalidLevel reports an intensity level outside [1, maxLevel].
	ErrInvalidLevel = errors.New("invalid noise level")

	// ErrInvalidParameter reports a model parameter outside the declared
	// range. Seeing it means the level mapper (or a caller bypassing it)
	// produced a value the model was never specified for.
	ErrInvalidParameter = errors.New("parameter outside model range")
)

// Descriptor describes one noise model: the name of its parameter and
// the range of legal parameter values.
type Descriptor struct {
	// Name is the model identifier, e.g. "gaussian".
	Name string

	// Description is a short human readable summary.
	Description string

	// ParameterName names the physical parameter, e.g. "sigma".
	ParameterName string

	// Range holds the minimum and maximum legal parameter values.
	Range [2]float64

	// Inverse marks models whose severity decreases as the parameter
	// grows; the level mapper interpolates from Range[1] down to
	// Range[0] so that higher levels still mean stronger degradation.
	// JPEG compression quality is the one such model.
	Inverse bool

	// Randomized marks models that consume the seed argument.
	Randomized bool
}

// Model is a single noise/degradation model. Apply returns a new image
// with the model applied at the given parameter value; the input image
// is never modified.
type Model interface {
	Descriptor() Descriptor
	Apply(img *imagery.Image, parameter float64, seed uint64) (*imagery.Image, error)
}

// checkParameter validates that p lies within the declared range of d.
func checkParameter(d Descriptor, p float64) error {
	lo, hi := d.Range[0], d.Range[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	if p < lo || p > hi {
		return fmt.Errorf("%w: %s %s=%g not in [%g, %g]", ErrInvalidParameter,
			d.Name, d.ParameterName, p, lo, hi)
	}
	return nil
}

// Generator owns the set of configured noise models. Parameter ranges
// come from the configuration passed at construction; nothing consults
// process-wide state.
type Generator struct {
	models map[string]Model
}

// Override adjusts the configurable fields of a model descriptor.
type Override struct {
	Description   string
	ParameterName string
	Range         [2]float64
}

// NewGenerator returns a generator with the default set of eight models.
// overrides, if non-nil, replaces the descriptor fields of the named
// models (unknown names are ignored so a configuration file may carry
// entries for models this build does not know).
func NewGenerator(overrides map[string]Override) *Generator {
	g := &Generator{models: make(map[string]Model)}
	for _, m := range defaultModels() {
		d := m.desc()
		if o, ok := overrides[d.Name]; ok {
			if o.Description != "" {
				d.Description = o.Description
			}
			if o.ParameterName != "" {
				d.ParameterName = o.ParameterName
			}
			if o.Range != [2]float64{} {
				d.Range = o.Range
			}
			m.setDesc(d)
		}
		g.models[d.Name] = m
	}
	return g
}

// Model returns the named model.
func (g *Generator) Model(name string) (Model, error) {
	m, ok := g.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Names returns the registered model names in sorted order.
func (g *Generator) Names() []string {
	names := make([]string, 0, len(g.models))
	for name := range g.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyLevel maps an intensity level onto the named model's parameter
// range and applies the model. This is the entry point batch drivers
// use; the level is never handed to the model directly.
func (g *Generator) ApplyLevel(img *imagery.Image, name string, level, maxLevel int, seed uint64) (*imagery.Image, error) {
	m, err := g.Model(name)
	if err != nil {
		return nil, err
	}
	p, err := MapLevel(m.Descriptor(), level, maxLevel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m.Apply(img, p, seed)
}

// configurable is implemented by the built-in models so NewGenerator
// can install descriptor overrides.
type configurable interface {
	Model
	desc() Descriptor
	setDesc(Descriptor)
}

// baseModel carries the descriptor for the built-in models.
type baseModel struct {
	d Descriptor
}

func (b *baseModel) Descriptor() Descriptor { return b.d }
func (b *baseModel) desc() Descriptor { return b.d }
func (b *baseModel) setDesc(d Descriptor) { b.d = d }

func defaultModels() []configurable {
	return []configurable{
		&gaussianModel{baseModel{Descriptor{
			Name:          "gaussian",
			Description:   "Additive gaussian noise (sensor thermal noise)",
			ParameterName: "sigma",
			Range:         [2]float64{5, 50},
			Randomized:    true,
		}}},
		&saltPepperModel{baseModel{Descriptor{
			Name:          "salt_pepper",
			Description:   "Salt and pepper noise (defective pixels)",
			ParameterName: "probability",
			Range:         [2]float64{0.001, 0.01},
			Randomized:    true,
		}}},
		&poissonModel{baseModel{Descriptor{
			Name:          "poisson",
			Description:   "Poisson noise (sensor shot noise)",
			ParameterName: "scale",
			Range:         [2]float64{0.1, 1.0},
			Randomized:    true,
		}}},
		&speckleModel{baseModel{Descriptor{
			Name:          "speckle",
			Description:   "Multiplicative speckle noise",
			ParameterName: "variance",
			Range:         [2]float64{0.05, 0.5},
			Randomized:    true,
		}}},
		&motionBlurModel{baseModel{Descriptor{
			Name:          "motion_blur",
			Description:   "Directional motion blur",
			ParameterName: "kernel_size",
			Range:         [2]float64{3, 21},
		}}},
		&atmosphericModel{baseModel{Descriptor{
			Name:          "atmospheric",
			Description:   "Atmospheric scattering (haze)",
			ParameterName: "haze_intensity",
			Range:         [2]float64{0.1, 1.0},
		}}},
		&compressionModel{baseModel{Descriptor{
			Name:          "compression",
			Description:   "JPEG compression artifacts",
			ParameterName: "quality",
			Range:         [2]float64{50, 95},
			Inverse:       true,
		}}},
		&isoNoiseModel{baseModel{Descriptor{
			Name:          "iso_noise",
			Description:   "High-ISO luminance and chrominance noise",
			ParameterName: "iso_level",
			Range:         [2]float64{1, 10},
			Randomized:    true,
		}}},
	}
}
