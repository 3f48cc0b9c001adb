package geometry

import (
	"gonum.org/v1/gonum/optimize"

	"github.com/sdss-legacy/mirrorctl/mverrors"
)

// minimizerMaxIter and minimizerFuncTol are the solver's stopping
// conditions: function-value tolerance 1e-8, at most 10000 iterations.
// Exceeding either is reported to the caller as a convergence failure, not
// silently accepted.
const (
	minimizerMaxIter = 10000
	minimizerFuncTol = 1e-8
)

// minimizeOrientation solves for the orientation (or the subset of axes
// named by fitAxes, with the rest held at held's values) that makes
// physFromOrient(orient, links) match givenPhys as closely as possible in
// the weighted least-squares sense.
//
// If fitAxes is nil, all six axes are free and init must have six elements.
// Otherwise init must have len(fitAxes) elements, one seed per free axis.
//
// Uses gonum's Nelder-Mead simplex method; the objective is cheap and
// derivative-free, and the weight vector keeps the axes comparably scaled
// (see DESIGN.md "Minimizer choice").
func (m *MirrorModel) minimizeOrientation(
	links []Link, givenPhys []float64, weights []float64,
	fitAxes []int, held Orientation, init []float64,
) (Orientation, error) {
	objective := func(x []float64) float64 {
		orient := held
		if fitAxes == nil {
			copy(orient[:], x)
		} else {
			for i, axis := range fitAxes {
				orient[axis] = x[i]
			}
		}
		phys := m.physFromOrient(orient, links)
		var sum float64
		for i := range phys {
			d := phys[i] - givenPhys[i]
			sum += weights[i] * d * d
		}
		return sum
	}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: minimizerMaxIter,
		FuncEvaluations: minimizerMaxIter * 2,
		Converger: &optimize.FunctionConverge{
			Absolute:   minimizerFuncTol,
			Iterations: 20,
		},
	}

	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if err != nil {
		return Orientation{}, mverrors.NewConvergenceError("orientation solve failed: %v", err)
	}
	if result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit {
		return Orientation{}, mverrors.NewConvergenceError(
			"orientation solve did not converge within %d iterations (status=%s)",
			minimizerMaxIter, result.Status)
	}

	out := held
	if fitAxes == nil {
		copy(out[:], result.X)
	} else {
		for i, axis := range fitAxes {
			out[axis] = result.X[i]
		}
	}
	return out, nil
}
