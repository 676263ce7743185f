package traj

import (
	"math"
)

const (
	// SampleRateHz is the internal sample rate of every trajectory the
	// generator works with, regardless of the source's native rate.
	SampleRateHz = 10
	// SampleDT is the corresponding timestep in seconds.
	SampleDT = 1.0 / SampleRateHz
)

// Trajectory is a fixed-timestep kinematic time series for one aircraft in
// the encounter frame (east/north/up, feet). Geometry finalization mutates
// the intruder's trajectory in place; callers that need the pre-placement
// samples must Clone first. The library source hands out clones for this
// reason.
type Trajectory struct {
	T          []float64 // seconds from start
	East       []float64 // ft
	North      []float64 // ft
	Up         []float64 // ft, altitude above the frame datum
	SpeedFPS   []float64 // ft/s
	HeadingRad []float64 // radians, 0 = north, clockwise
	PitchRad   []float64
	BankRad    []float64
	AccelFPS2  []float64
}

// NewTrajectory returns a trajectory with capacity for n samples.
func NewTrajectory(n int) *Trajectory {
	return &Trajectory{
		T:          make([]float64, 0, n),
		East:       make([]float64, 0, n),
		North:      make([]float64, 0, n),
		Up:         make([]float64, 0, n),
		SpeedFPS:   make([]float64, 0, n),
		HeadingRad: make([]float64, 0, n),
		PitchRad:   make([]float64, 0, n),
		BankRad:    make([]float64, 0, n),
		AccelFPS2:  make([]float64, 0, n),
	}
}

// Append adds one sample to every channel.
func (tr *Trajectory) Append(t, east, north, up, speed, heading, pitch, bank, accel float64) {
	tr.T = append(tr.T, t)
	tr.East = append(tr.East, east)
	tr.North = append(tr.North, north)
	tr.Up = append(tr.Up, up)
	tr.SpeedFPS = append(tr.SpeedFPS, speed)
	tr.HeadingRad = append(tr.HeadingRad, heading)
	tr.PitchRad = append(tr.PitchRad, pitch)
	tr.BankRad = append(tr.BankRad, bank)
	tr.AccelFPS2 = append(tr.AccelFPS2, accel)
}

// Len returns the number of samples.
func (tr *Trajectory) Len() int { return len(tr.T) }

// Duration returns the time of the last sample, 0 for an empty trajectory.
func (tr *Trajectory) Duration() float64 {
	if len(tr.T) == 0 {
		return 0
	}
	return tr.T[len(tr.T)-1]
}

// IndexAtTime returns the sample index nearest to t, or -1 when t falls
// outside the recorded span.
func (tr *Trajectory) IndexAtTime(t float64) int {
	if len(tr.T) == 0 || t < 0 {
		return -1
	}
	i := int(math.Round(t * SampleRateHz))
	if i >= len(tr.T) {
		return -1
	}
	return i
}

// AltitudeAt returns the altitude at time t, or NaN when t is outside the
// trajectory. Short draws legitimately produce NaN here; callers reject
// those trials rather than extrapolating.
func (tr *Trajectory) AltitudeAt(t float64) float64 {
	i := tr.IndexAtTime(t)
	if i < 0 {
		return math.NaN()
	}
	return tr.Up[i]
}

// SpeedAt returns the speed in ft/s at time t, or NaN outside the span.
func (tr *Trajectory) SpeedAt(t float64) float64 {
	i := tr.IndexAtTime(t)
	if i < 0 {
		return math.NaN()
	}
	return tr.SpeedFPS[i]
}

// Clone returns a deep copy.
func (tr *Trajectory) Clone() *Trajectory {
	cp := &Trajectory{}
	cp.T = append([]float64(nil), tr.T...)
	cp.East = append([]float64(nil), tr.East...)
	cp.North = append([]float64(nil), tr.North...)
	cp.Up = append([]float64(nil), tr.Up...)
	cp.SpeedFPS = append([]float64(nil), tr.SpeedFPS...)
	cp.HeadingRad = append([]float64(nil), tr.HeadingRad...)
	cp.PitchRad = append([]float64(nil), tr.PitchRad...)
	cp.BankRad = append([]float64(nil), tr.BankRad...)
	cp.AccelFPS2 = append([]float64(nil), tr.AccelFPS2...)
	return cp
}

// Translate shifts the whole path by the given offsets, in place.
func (tr *Trajectory) Translate(dEast, dNorth, dUp float64) {
	for i := range tr.T {
		tr.East[i] += dEast
		tr.North[i] += dNorth
		tr.Up[i] += dUp
	}
}

// RotateAbout rotates the horizontal path clockwise by angle radians around
// the given east/north center, adjusting headings to match.
func (tr *Trajectory) RotateAbout(eastC, northC, angle float64) {
	sin, cos := math.Sin(angle), math.Cos(angle)
	for i := range tr.T {
		e := tr.East[i] - eastC
		n := tr.North[i] - northC
		// Clockwise rotation in compass convention.
		tr.East[i] = eastC + e*cos + n*sin
		tr.North[i] = northC - e*sin + n*cos
		h := tr.HeadingRad[i] + angle
		h = math.Mod(h, 2*math.Pi)
		if h < 0 {
			h += 2 * math.Pi
		}
		tr.HeadingRad[i] = h
	}
}

// Resample10Hz linearly interpolates a 1 Hz trajectory up to the internal
// 10 Hz rate. The 1 Hz source rate is a structural precondition: library
// recordings are stored at 1 Hz and this is the only resampling the
// generator performs.
func Resample10Hz(src *Trajectory) *Trajectory {
	n := src.Len()
	if n < 2 {
		return src.Clone()
	}
	out := NewTrajectory((n-1)*SampleRateHz + 1)
	for i := 0; i < n-1; i++ {
		for k := 0; k < SampleRateHz; k++ {
			f := float64(k) / SampleRateHz
			out.Append(
				src.T[i]+f,
				lerp(src.East[i], src.East[i+1], f),
				lerp(src.North[i], src.North[i+1], f),
				lerp(src.Up[i], src.Up[i+1], f),
				lerp(src.SpeedFPS[i], src.SpeedFPS[i+1], f),
				lerpAngle(src.HeadingRad[i], src.HeadingRad[i+1], f),
				lerp(src.PitchRad[i], src.PitchRad[i+1], f),
				lerp(src.BankRad[i], src.BankRad[i+1], f),
				lerp(src.AccelFPS2[i], src.AccelFPS2[i+1], f),
			)
		}
	}
	last := n - 1
	out.Append(src.T[last], src.East[last], src.North[last], src.Up[last],
		src.SpeedFPS[last], src.HeadingRad[last], src.PitchRad[last],
		src.BankRad[last], src.AccelFPS2[last])
	return out
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

// lerpAngle interpolates along the shorter arc between two angles.
func lerpAngle(a, b, f float64) float64 {
	d := math.Mod(b-a, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d < -math.Pi {
		d += 2 * math.Pi
	}
	h := math.Mod(a+d*f, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}
