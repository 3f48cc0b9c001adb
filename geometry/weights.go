package geometry

// perturbation is the fixed small step used to probe each orientation axis
// when computing the minimizer's weight vector: piston and translation axes
// are perturbed by 1e-4 mm, tilt axes by 5e-8 rad, and rotation by 5e-7
// rad. These magnitudes set the relative scale of the weights and must not
// change independently of the fit tolerance.
var perturbation = Orientation{
	AxisPiston: 1e-4,
	AxisTiltX:  5e-8,
	AxisTiltY:  5e-8,
	AxisTransX: 1e-4,
	AxisTransY: 1e-4,
	AxisRotZ:   5e-7,
}

// computePhysMult computes, for the given ordered list of links, a weight
// w_i = 1 / maxPhysErrSq_i such that a unit change in any orientation axis
// contributes comparably to the minimizer's objective sum. It perturbs each
// axis in turn (holding the rest at zero) and sums the squared
// physical-length response across all six perturbations.
func computePhysMult(m *MirrorModel, links []Link) []float64 {
	maxSq := make([]float64, len(links))
	for axis := 0; axis < NumAxes; axis++ {
		var pert Orientation
		pert[axis] = perturbation[axis]
		phys := m.physFromOrient(pert, links)
		for i, p := range phys {
			maxSq[i] += p * p
		}
	}
	mult := make([]float64, len(links))
	for i, sq := range maxSq {
		if sq == 0 {
			// A link utterly insensitive to every perturbed axis (should
			// not occur for a well-formed geometry) would otherwise divide
			// by zero; fall back to an unweighted term rather than produce
			// +Inf and poison the objective sum.
			mult[i] = 1
			continue
		}
		mult[i] = 1 / sq
	}
	return mult
}
