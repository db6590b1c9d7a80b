// Package scene converts variable-length synthesized narration into clamped
// per-scene frame durations that land inside a target total-duration window.
package scene

import "fmt"

// FPS is the composition frame rate all durations are expressed against.
const FPS = 30

// Spec describes one named segment of the output video and its hard timing
// bounds in seconds.
type Spec struct {
	Name       string
	MinSeconds float64
	MaxSeconds float64
	// Narrated scenes derive their duration from synthesized audio.
	Narrated bool
	// Optional scenes with a zero supplied duration are omitted from the
	// composition entirely.
	Optional bool
	// Flexible marks the single scene that absorbs the adjustment delta
	// in AdjustToTarget. Exactly one spec should carry it.
	Flexible bool
}

// Narration is the outcome of synthesizing one scene's voice-over. A failed
// synthesis degrades to the calculator's per-scene default duration.
type Narration struct {
	AudioURL        string
	DurationSeconds float64
	OK              bool
}

// Duration is the resolved timing for one scene.
type Duration struct {
	Name    string
	Seconds float64
	Frames  int
}

// Plan is the ordered set of resolved scene durations for one composition.
type Plan struct {
	Scenes []Duration
}

// TotalSeconds sums all scene durations.
func (p Plan) TotalSeconds() float64 {
	var total float64
	for _, s := range p.Scenes {
		total += s.Seconds
	}
	return total
}

// Calculator holds the tunables shared by every timing computation.
type Calculator struct {
	Specs []Spec
	// PaddingSeconds is added to every successful narration before clamping,
	// leaving breathing room around the voice-over.
	PaddingSeconds float64
	// DefaultSeconds is used for a narrated scene whose audio synthesis
	// failed.
	DefaultSeconds float64
	// TargetSeconds is the ideal composition length.
	TargetSeconds float64
	// ToleranceSeconds is how far off target a plan may be before
	// AdjustToTarget moves the flexible scene.
	ToleranceSeconds float64
	// WindowMinSeconds/WindowMaxSeconds bound acceptable totals.
	WindowMinSeconds float64
	WindowMaxSeconds float64
}

// DefaultSpecs returns the standard short-form ad scene layout.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "intro", MinSeconds: 3, MaxSeconds: 5},
		{Name: "problem", MinSeconds: 8, MaxSeconds: 10, Narrated: true},
		{Name: "features", MinSeconds: 12, MaxSeconds: 30, Narrated: true, Flexible: true},
		{Name: "social_proof", MinSeconds: 8, MaxSeconds: 12, Narrated: true},
		{Name: "cta", MinSeconds: 5, MaxSeconds: 8, Narrated: true},
		{Name: "avatar", MinSeconds: 0, MaxSeconds: 10, Optional: true},
	}
}

// NewCalculator builds a calculator with the standard layout and a 60-75s
// target window.
func NewCalculator() *Calculator {
	return &Calculator{
		Specs:            DefaultSpecs(),
		PaddingSeconds:   1.5,
		DefaultSeconds:   10,
		TargetSeconds:    67.5,
		ToleranceSeconds: 2,
		WindowMinSeconds: 57,
		WindowMaxSeconds: 78,
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func frames(seconds float64) int {
	return int(seconds*FPS + 0.5)
}

// Build resolves a plan from per-scene narration outcomes and fixed
// durations for unnarrated scenes. Optional scenes absent from fixed (or
// supplied as zero) are omitted.
func (c *Calculator) Build(narration map[string]Narration, fixed map[string]float64) Plan {
	var plan Plan
	for _, spec := range c.Specs {
		var seconds float64
		switch {
		case spec.Narrated:
			if n, ok := narration[spec.Name]; ok && n.OK {
				seconds = n.DurationSeconds + c.PaddingSeconds
			} else {
				seconds = c.DefaultSeconds
			}
		default:
			seconds = fixed[spec.Name]
			if spec.Optional && seconds <= 0 {
				continue
			}
			if seconds <= 0 {
				seconds = spec.MinSeconds
			}
		}
		seconds = clamp(seconds, spec.MinSeconds, spec.MaxSeconds)
		plan.Scenes = append(plan.Scenes, Duration{
			Name:    spec.Name,
			Seconds: seconds,
			Frames:  frames(seconds),
		})
	}
	return plan
}

// ValidateTotal flags plans whose total falls outside the acceptance window.
// It is a pure check and never mutates the plan.
func (c *Calculator) ValidateTotal(p Plan) error {
	total := p.TotalSeconds()
	if total < c.WindowMinSeconds {
		return fmt.Errorf("total duration %.1fs below window minimum %.1fs", total, c.WindowMinSeconds)
	}
	if total > c.WindowMaxSeconds {
		return fmt.Errorf("total duration %.1fs above window maximum %.1fs", total, c.WindowMaxSeconds)
	}
	return nil
}

// AdjustToTarget nudges the plan toward the target length. The single
// flexible scene absorbs the entire delta, reclamped to its own bounds; no
// proportional redistribution across scenes. Plans already within tolerance
// are returned unchanged.
func (c *Calculator) AdjustToTarget(p Plan) Plan {
	delta := c.TargetSeconds - p.TotalSeconds()
	if delta > -c.ToleranceSeconds && delta < c.ToleranceSeconds {
		return p
	}
	var flex *Spec
	for i := range c.Specs {
		if c.Specs[i].Flexible {
			flex = &c.Specs[i]
			break
		}
	}
	if flex == nil {
		return p
	}
	adjusted := Plan{Scenes: make([]Duration, len(p.Scenes))}
	copy(adjusted.Scenes, p.Scenes)
	for i := range adjusted.Scenes {
		if adjusted.Scenes[i].Name != flex.Name {
			continue
		}
		seconds := clamp(adjusted.Scenes[i].Seconds+delta, flex.MinSeconds, flex.MaxSeconds)
		adjusted.Scenes[i].Seconds = seconds
		adjusted.Scenes[i].Frames = frames(seconds)
		break
	}
	return adjusted
}
