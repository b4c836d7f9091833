package flow

import (
	"errors"
	"math"
)

// FixedPoint summarizes where a trajectory is heading.
type FixedPoint struct {
	Found           bool
	Scale           float64
	MeanNorm        float64
	ContractionRate float64 // geometric mean of successive delta ratios
	Steps           int
}

// AnalyzeFixedPoint estimates the attracting fixed point of a finished
// trajectory. The contraction rate is the geometric mean of successive
// field-delta ratios; a rate below 1 means the flow was contracting toward
// the endpoint.
func AnalyzeFixedPoint(traj []Snapshot, scaleStep float64) (FixedPoint, error) {
	if len(traj) < 3 {
		return FixedPoint{}, errors.New("flow: trajectory too short for fixed-point analysis")
	}

	// field deltas only, with the scale advance removed
	deltas := make([]float64, 0, len(traj)-1)
	for _, s := range traj[1:] {
		d := s.Delta - scaleStep
		if d < 0 {
			d = 0
		}
		deltas = append(deltas, d)
	}

	logSum := 0.0
	ratios := 0
	for i := 1; i < len(deltas); i++ {
		if deltas[i-1] <= 0 || deltas[i] <= 0 {
			continue
		}
		logSum += math.Log(deltas[i] / deltas[i-1])
		ratios++
	}

	last := traj[len(traj)-1]
	fp := FixedPoint{
		Scale:    last.Scale,
		MeanNorm: last.MeanNorm,
		Steps:    len(traj) - 1,
	}
	if ratios == 0 {
		// deltas hit zero, the flow landed exactly
		fp.Found = true
		return fp, nil
	}
	fp.ContractionRate = math.Exp(logSum / float64(ratios))
	fp.Found = fp.ContractionRate < 1
	return fp, nil
}

// MagnitudeTrace extracts the peak-defect series for plotting.
func MagnitudeTrace(traj []Snapshot) []float64 {
	out := make([]float64, len(traj))
	for i, s := range traj {
		out[i] = s.DefectMax
	}
	return out
}

// DeltaTrace extracts the per-step movement series.
func DeltaTrace(traj []Snapshot) []float64 {
	out := make([]float64, len(traj))
	for i, s := range traj {
		out[i] = s.Delta
	}
	return out
}
