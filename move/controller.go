// Package move implements the iterative convergence loop layered on top of
// a device.Session: given a desired orientation, it commands actuator
// mounts, reads back the encoder-derived actual mount, and nudges the
// command by a damped fraction of the residual until it's within
// tolerance or the iteration budget is spent.
package move

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/sdss-legacy/mirrorctl/device"
	"github.com/sdss-legacy/mirrorctl/geometry"
	"github.com/sdss-legacy/mirrorctl/logging"
	"github.com/sdss-legacy/mirrorctl/mverrors"
)

// dampingFactor is the fraction of each iteration's actuator-mount residual
// fed back into the next commanded mount.
const dampingFactor = 0.9

// defaultMaxIter bounds iteration for mirrors with encoders, which must
// converge within this budget. Mirrors without encoders cannot read back a
// residual at all, so they get exactly one (unverified) iteration.
const defaultMaxIter = 12

// PiezoCorrector is implemented by mirror variants with a central-bearing
// secondary's fine-correction piezo stage. It is never referenced by the
// generic iteration loop except through this interface.
type PiezoCorrector interface {
	// Correct applies one fine-correction move using the signed residual
	// of the first three actuators, once the coarse move has converged.
	Correct(ctx context.Context, actErr []float64) error
}

// Result is the outcome of a converged (or failed) move.
type Result struct {
	Orient         geometry.Orientation
	ModelMount     []float64
	CmdMount       []float64
	DesEncMount    []float64
	ActMount       []float64
	MountErr       []float64
	NetMountOffset []float64
	Iterations     int
}

// Controller runs the iterative move loop for one mirror over one
// device session. Move and Offset serialize on an internal mutex, so at
// most one move is active at a time, and a Controller models exactly that
// one caller's state.
type Controller struct {
	sess   *device.Session
	mirror *geometry.MirrorModel
	log    logging.Logger
	piezo  PiezoCorrector

	mu             sync.Mutex
	haveLast       bool
	lastUserOrient geometry.Orientation
	lastDesOrient  geometry.Orientation
	lastCmdMount   []float64
	lastMoveTime   time.Time
	netMountOffset []float64
}

// New builds a Controller for mirror, commanding sess. piezo may be nil;
// pass a non-nil PiezoCorrector only for mirror variants that have one.
func New(sess *device.Session, mirror *geometry.MirrorModel, log logging.Logger, piezo PiezoCorrector) *Controller {
	n := mirror.NumActuators()
	return &Controller{
		sess:           sess,
		mirror:         mirror,
		log:            log.Sublogger("move"),
		piezo:          piezo,
		netMountOffset: make([]float64, n),
	}
}

func (c *Controller) maxIter() int {
	if !c.mirror.HasEncoders() {
		return 1
	}
	return defaultMaxIter
}

// Move drives the mirror to userOrient, iterating the commanded mount
// against encoder feedback until convergence, a hard range violation, or
// the iteration budget is exhausted.
func (c *Controller) Move(ctx context.Context, userOrient []float64) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moveLocked(ctx, userOrient)
}

// Offset is Move relative to the last commanded orientation: the delta is
// added to the previous desired orientation (or to the device's current
// best-known orientation on a cold start) and the sum is moved to.
func (c *Controller) Offset(ctx context.Context, deltaOrient []float64) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.lastDesOrient
	if !c.haveLast {
		base = c.sess.Status().Orient
		if math.IsNaN(base[0]) {
			base = geometry.ZeroOrientation
		}
	}
	target := base
	for i, d := range deltaOrient {
		if i >= geometry.NumAxes {
			break
		}
		target[i] += d
	}
	return c.moveLocked(ctx, target[:])
}

func (c *Controller) moveLocked(ctx context.Context, userOrient []float64) (*Result, error) {
	if err := c.checkHomed(); err != nil {
		return nil, err
	}

	userOr, err := geometry.OrientationFromValues(userOrient)
	if err != nil {
		return nil, err
	}
	modelMount, adjOrient, err := c.mirror.ActuatorMountFromOrient(userOrient, true)
	if err != nil {
		return nil, mverrors.Wrap(err, "resolving commanded orientation")
	}
	desEncMount, _, err := c.mirror.EncoderMountFromOrient(adjOrient[:], false)
	if err != nil {
		return nil, mverrors.Wrap(err, "deriving desired encoder mount")
	}
	c.sess.Publish("desOrient", device.FormatFloats(adjOrient[:])...)
	c.sess.Publish("modelMount", device.FormatFloats(modelMount)...)
	c.sess.Publish("desEncMount", device.FormatFloats(desEncMount)...)
	c.sess.Publish("netMountOffset", device.FormatFloats(c.netMountOffset)...)
	if c.haveLast {
		c.sess.Publish("desOrientAge", strconv.FormatFloat(time.Since(c.lastMoveTime).Seconds(), 'f', 2, 64))
	}

	pistonOnly := c.pistonOnlyDelta(userOr)
	if pistonOnly {
		// Piston-only re-move: the sticky offset from the previous move is
		// reused as-is and left untouched through convergence, rather than
		// re-derived, since a pure piston change doesn't invalidate it.
		c.log.Debugw("piston-only re-move, preserving netMountOffset")
	}

	cmdMount := addVec(modelMount, c.netMountOffset)

	if c.haveLast && vecEqual(cmdMount, c.lastCmdMount) {
		// Bit-identical commanded mount: no device command is issued, but
		// the move still completes Done.
		c.lastMoveTime = time.Now()
		status := c.sess.Status()
		return &Result{
			Orient:         adjOrient,
			ModelMount:     modelMount,
			CmdMount:       cmdMount,
			DesEncMount:    desEncMount,
			ActMount:       status.ActMount,
			NetMountOffset: c.netMountOffset,
		}, nil
	}

	iter := 1
	for {
		c.sess.SetIterState(iter, c.maxIter())
		c.sess.Publish("cmdMount", device.FormatFloats(cmdMount)...)
		status, err := c.sess.Move(ctx, cmdMount)
		if err != nil {
			return nil, mverrors.Wrap(err, "commanding actuator move")
		}

		if !c.mirror.HasEncoders() {
			// No feedback is ever reported for this mirror; one open-loop
			// move is the whole story.
			c.haveLast = true
			c.lastUserOrient = userOr
			c.lastDesOrient = adjOrient
			c.lastCmdMount = cmdMount
			c.lastMoveTime = time.Now()
			c.publishMountOrient(cmdMount, adjOrient)
			return &Result{
				Orient:         adjOrient,
				ModelMount:     modelMount,
				CmdMount:       cmdMount,
				DesEncMount:    desEncMount,
				NetMountOffset: c.netMountOffset,
				Iterations:     1,
			}, nil
		}

		for i, v := range status.ActMount {
			if math.IsNaN(v) {
				// Without a final-position reading there is no residual to
				// iterate on; this aborts the move rather than degrading to
				// a warning.
				return nil, mverrors.NewDeviceError(nil,
					"no final position reported for actuator %d", i)
			}
		}

		actErr := subVec(modelMount, status.ActMount)
		c.sess.Publish("mountErr", device.FormatFloats(actErr)...)

		minCorr, maxCorr := c.correctionBounds()
		for i, e := range actErr {
			if math.Abs(e) > maxCorr[i] {
				return nil, mverrors.NewConvergenceError(
					"actuator %d residual %.2f exceeds max correction %.2f", i, e, maxCorr[i])
			}
		}

		needsCorrection := false
		for i, e := range actErr {
			if math.Abs(e) > minCorr[i] {
				needsCorrection = true
				break
			}
		}

		if needsCorrection && iter < c.maxIter() {
			for i := range cmdMount {
				cmdMount[i] += dampingFactor * actErr[i]
			}
			if !pistonOnly {
				c.netMountOffset = subVec(cmdMount, modelMount)
			}
			iter++
			continue
		}

		if c.piezo != nil {
			n := 3
			if n > len(actErr) {
				n = len(actErr)
			}
			if err := c.piezo.Correct(ctx, actErr[:n]); err != nil {
				c.log.Warnw("piezo correction failed", "error", err)
			}
		}

		c.haveLast = true
		c.lastUserOrient = userOr
		c.lastDesOrient = adjOrient
		c.lastCmdMount = cmdMount
		c.lastMoveTime = time.Now()
		if !pistonOnly {
			c.netMountOffset = subVec(cmdMount, modelMount)
		}
		c.sess.Publish("netMountOffset", device.FormatFloats(c.netMountOffset)...)
		c.publishMountOrient(cmdMount, adjOrient)

		return &Result{
			Orient:         adjOrient,
			ModelMount:     modelMount,
			CmdMount:       cmdMount,
			DesEncMount:    desEncMount,
			ActMount:       status.ActMount,
			MountErr:       actErr,
			NetMountOffset: c.netMountOffset,
			Iterations:     iter,
		}, nil
	}
}

// checkHomed rejects a move while any actuator is unhomed, before a single
// device line is emitted. A fresh session starts with every axis
// unknown/unhomed; a home (or a status refresh reporting "axis homed")
// clears the gate.
func (c *Controller) checkHomed() error {
	status := c.sess.Status()
	for i := 0; i < c.mirror.NumActuators() && i < len(status.AxisHomed); i++ {
		if !status.AxisHomed[i] {
			return mverrors.NewValidationError("actuator %d is not homed", i)
		}
	}
	return nil
}

// publishMountOrient back-computes the orientation implied by the final
// commanded mount and publishes it; a solve failure here only costs the
// telemetry line, not the move.
func (c *Controller) publishMountOrient(cmdMount []float64, seed geometry.Orientation) {
	mountOrient, err := c.mirror.OrientFromActuatorMount(cmdMount, seed)
	if err != nil {
		c.log.Warnw("orientation solve from commanded mount failed", "error", err)
		return
	}
	c.sess.Publish("mountOrient", device.FormatFloats(mountOrient[:])...)
}

func (c *Controller) correctionBounds() (min, max []float64) {
	n := c.mirror.NumActuators()
	min = make([]float64, n)
	max = make([]float64, n)
	for i := 0; i < n; i++ {
		min[i], max[i] = c.mirror.EncoderMinMaxCorr(i)
	}
	return min, max
}

// pistonOnlyDelta reports whether o differs from the previous move's
// user-commanded orientation only in the piston axis. The comparison is
// against the user values, not the adjusted orientation: resolving the
// constrained axes perturbs them slightly on every solve, which would
// otherwise never let two moves compare as piston-only.
func (c *Controller) pistonOnlyDelta(o geometry.Orientation) bool {
	if !c.haveLast {
		return false
	}
	for axis := 0; axis < geometry.NumAxes; axis++ {
		if axis == geometry.AxisPiston {
			continue
		}
		if o[axis] != c.lastUserOrient[axis] {
			return false
		}
	}
	return o[geometry.AxisPiston] != c.lastUserOrient[geometry.AxisPiston]
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func subVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func vecEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
