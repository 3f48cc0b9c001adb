// Package device implements the Galil line-protocol state machine: one
// session per TCP connection, translating typed commands (move, home, stop,
// reset, status, params, raw) into wire statements and device replies back
// into a Status snapshot, all on a single event-loop goroutine.
package device

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/sdss-legacy/mirrorctl/geometry"
	"github.com/sdss-legacy/mirrorctl/logging"
	"github.com/sdss-legacy/mirrorctl/mverrors"
	"github.com/sdss-legacy/mirrorctl/protocol"
)

// resetTimeout is the short explicit timer that completes a Reset command:
// "RS" is silent on the wire (no OK), so nothing but a timer can mark it
// done.
const resetTimeout = 250 * time.Millisecond

type cmdKind int

const (
	cmdMove cmdKind = iota
	cmdHome
	cmdStop
	cmdReset
	cmdStatus
	cmdParams
	cmdRaw
	cmdPiezo
)

func (k cmdKind) String() string {
	switch k {
	case cmdMove:
		return "move"
	case cmdHome:
		return "home"
	case cmdStop:
		return "stop"
	case cmdReset:
		return "reset"
	case cmdStatus:
		return "status"
	case cmdParams:
		return "params"
	case cmdRaw:
		return "raw"
	case cmdPiezo:
		return "piezo"
	default:
		return "unknown"
	}
}

type request struct {
	kind     cmdKind
	mounts   []float64
	axes     []bool
	raw      string
	gen      int
	resultCh chan requestResult
}

type requestResult struct {
	status *Status
	err    error
}

// inflight tracks the single device command currently awaiting its
// terminal OK. Only one can ever be outstanding, since the event loop
// services requests strictly in order.
type inflight struct {
	kind       cmdKind
	gen        int
	resultCh   chan requestResult
	failing    bool
	failReason string

	// followup marks the status refresh auto-dispatched after a home
	// completes; its result is delivered to the home's caller.
	followup bool
}

// Session is one Galil TCP connection and the single goroutine that owns
// it. All device I/O and status mutation happens on that goroutine; every
// other method communicates with it over channels.
type Session struct {
	conn   *protocol.Conn
	closer io.Closer
	log    logging.Logger
	mirror *geometry.MirrorModel
	nAct   int

	reqCh       chan *request
	lineCh      chan string
	resetDoneCh chan int // carries the generation whose Reset timer fired
	timeoutCh   chan int // carries the generation whose per-line timeout fired

	telemetryCh chan Telemetry

	statusMu sync.Mutex
	status   *Status

	cancel context.CancelFunc
	eg     *errgroup.Group

	// generation increments every time Stop or Reset preempts whatever was
	// in flight, so a timer event belonging to a superseded command is
	// recognizable and dropped rather than misattributed.
	generation   int
	current      *inflight
	timeoutTimer *time.Timer

	// seenKeys records which reply keys arrived for the in-flight command,
	// so a move missing its informational "target position" line can be
	// reported as a warning on completion (a missing "final position" is
	// the move controller's problem and aborts the move instead).
	seenKeys map[string]bool
}

// defaultLineTimeout is the per-device-command timeout before any "time
// for .../sec to .../max sec ..." reply has extended it.
const defaultLineTimeout = 2 * time.Second

// NewSession starts a session over conn (already connected), sized for
// mirror's actuator count, and begins its reader and event-loop goroutines.
// closer, if non-nil, is closed by Close to unblock the reader's blocking
// read.
func NewSession(ctx context.Context, rw io.ReadWriter, closer io.Closer, mirror *geometry.MirrorModel, log logging.Logger) *Session {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)

	nAct := mirror.NumActuators()
	s := &Session{
		conn:        protocol.NewConn(rw),
		closer:      closer,
		log:         log.Sublogger("device"),
		mirror:      mirror,
		nAct:        nAct,
		reqCh:       make(chan *request),
		lineCh:      make(chan string),
		resetDoneCh: make(chan int, 1),
		timeoutCh:   make(chan int, 1),
		telemetryCh: make(chan Telemetry, telemetryBacklog),
		status:      newStatus(nAct),
		cancel:      cancel,
		eg:          eg,
	}

	utils.PanicCapturingGo(s.readLoop)
	eg.Go(func() error { return s.eventLoop(ctx) })
	return s
}

// Close shuts the session down: it cancels the event loop, closes the
// underlying connection to unblock the reader, and waits for both
// goroutines to exit.
func (s *Session) Close() error {
	s.cancel()
	var closeErr error
	if s.closer != nil {
		closeErr = s.closer.Close()
	}
	return multierr.Combine(closeErr, s.eg.Wait())
}

// Status returns a snapshot of the most recently reported device state.
func (s *Session) Status() *Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status.clone()
}

// readLoop blocks on device reads and forwards each line to the event
// loop. It exits when Close closes the underlying connection, which turns
// the blocking read into an error. A line successfully read after the
// event loop has already exited blocks here until the process tears the
// goroutine down with it; Close always closes the connection first so in
// practice the next read (or this pending send) unblocks promptly.
func (s *Session) readLoop() {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			close(s.lineCh)
			return
		}
		s.lineCh <- line
	}
}

func (s *Session) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.failCurrent(mverrors.NewSupersededError("session closed"))
			return nil
		case line, ok := <-s.lineCh:
			if !ok {
				s.failCurrent(mverrors.NewDeviceError(nil, "not connected"))
				return nil
			}
			s.handleLine(line)
		case req := <-s.reqCh:
			s.handleRequest(req)
		case gen := <-s.resetDoneCh:
			if s.current != nil && s.current.kind == cmdReset && s.current.gen == gen {
				s.completeCurrent(nil)
			}
		case gen := <-s.timeoutCh:
			if s.current != nil && s.current.gen == gen {
				s.log.Warnw("device command timed out", "kind", s.current.kind)
				s.failCurrent(mverrors.NewDeviceError(nil, "timed out waiting for %v reply", s.current.kind))
			}
		}
	}
}

func (s *Session) submit(ctx context.Context, req *request) (*Status, error) {
	req.resultCh = make(chan requestResult, 1)
	select {
	case s.reqCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.resultCh:
		return res.status, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Move sends a move-to-mount command for this mirror's actuators. It
// reports only the device's acceptance/completion of the single command;
// iterative convergence across several moves is move.Controller's job.
func (s *Session) Move(ctx context.Context, mounts []float64) (*Status, error) {
	return s.submit(ctx, &request{kind: cmdMove, mounts: mounts})
}

// Home sends a home command for the given axes (nil means all actuators),
// then auto-refreshes status once the home sequence completes, so AxisHomed
// reflects the result before the caller sees it.
func (s *Session) Home(ctx context.Context, axes []bool) (*Status, error) {
	if axes == nil {
		axes = make([]bool, s.nAct)
		for i := range axes {
			axes[i] = true
		}
	}
	return s.submit(ctx, &request{kind: cmdHome, axes: axes})
}

// Stop preempts whatever device command is in flight and sends "ST; XQ #STOP".
func (s *Session) Stop(ctx context.Context) (*Status, error) {
	return s.submit(ctx, &request{kind: cmdStop})
}

// Reset preempts whatever device command is in flight and sends "RS".
func (s *Session) Reset(ctx context.Context) (*Status, error) {
	return s.submit(ctx, &request{kind: cmdReset})
}

// RefreshStatus runs the Galil's status program and parses every line it
// reports into the Status snapshot returned.
func (s *Session) RefreshStatus(ctx context.Context) (*Status, error) {
	return s.submit(ctx, &request{kind: cmdStatus})
}

// Params requests the Galil's configuration parameter dump.
func (s *Session) Params(ctx context.Context) (*Status, error) {
	return s.submit(ctx, &request{kind: cmdParams})
}

// Raw sends stmt verbatim, for diagnostic use.
func (s *Session) Raw(ctx context.Context, stmt string) (*Status, error) {
	return s.submit(ctx, &request{kind: cmdRaw, raw: stmt})
}

// PiezoMove sends the fine-correction move for a central-bearing secondary's
// three piezo actuators. Only meaningful on mirror variants that have them;
// the move package's PiezoCorrector is the only caller, keeping piezo
// concepts out of the generic move path.
func (s *Session) PiezoMove(ctx context.Context, corr [3]float64) (*Status, error) {
	return s.submit(ctx, &request{kind: cmdPiezo, mounts: corr[:]})
}

// markDispatched flips the Moving/Homing visible fields for the command
// about to be written, and clears Failed (a fresh command gets a fresh
// chance), then emits the resulting "state" line.
func (s *Session) markDispatched(req *request) {
	s.statusMu.Lock()
	s.status.Failed = false
	isHome := req.kind == cmdHome
	switch req.kind {
	case cmdMove, cmdPiezo:
		s.status.Moving = true
	case cmdHome:
		for i := range s.status.Homing {
			s.status.Homing[i] = i < len(req.axes) && req.axes[i]
		}
	}
	homing := append([]bool(nil), s.status.Homing...)
	s.statusMu.Unlock()
	if isHome {
		s.Publish("homing", formatBools(homing)...)
	}
	s.publishState()
}

// clearInflightState drops Moving/Homing back to idle once a command has
// reached a terminal state, and records whether it failed.
func (s *Session) clearInflightState(failed bool) {
	s.statusMu.Lock()
	s.status.Moving = false
	wasHoming := false
	for i := range s.status.Homing {
		wasHoming = wasHoming || s.status.Homing[i]
		s.status.Homing[i] = false
	}
	s.status.Failed = failed
	homing := append([]bool(nil), s.status.Homing...)
	s.statusMu.Unlock()
	if wasHoming {
		s.Publish("homing", formatBools(homing)...)
	}
}

func (s *Session) handleRequest(req *request) {
	if req.kind == cmdStop || req.kind == cmdReset {
		s.generation++
		s.failCurrent(mverrors.NewSupersededError("preempted by %v", req.kind))
	} else if s.current != nil {
		req.resultCh <- requestResult{err: mverrors.NewValidationError("busy: %v command in flight", s.current.kind)}
		return
	}

	var stmt string
	var err error
	switch req.kind {
	case cmdMove:
		stmt, err = formatGalilCommand(req.mounts, "XQ #MOVE", s.nAct)
	case cmdHome:
		stmt = formatGalilHome(req.axes, s.nAct)
	case cmdStop:
		// "ST" alone is the immediate all-threads-stop and produces no OK;
		// the "stop" user command appends "XQ #STOP" to the same write so a
		// terminating OK still arrives and status gets refreshed.
		stmt = "ST; XQ #STOP"
	case cmdReset:
		stmt = "RS"
	case cmdStatus:
		stmt = "XQ#STATUS"
	case cmdParams:
		stmt = "XQ#SHOWPAR"
	case cmdRaw:
		stmt = forceOKSuffix(req.raw)
	case cmdPiezo:
		stmt = formatPiezoCommand(req.mounts)
	}
	if err != nil {
		req.resultCh <- requestResult{err: mverrors.NewValidationError("%v", err)}
		return
	}

	s.current = &inflight{kind: req.kind, gen: s.generation, resultCh: req.resultCh}
	s.seenKeys = map[string]bool{}
	s.markDispatched(req)
	if werr := s.conn.WriteLine(stmt); werr != nil {
		s.failCurrent(mverrors.NewDeviceError(werr, "writing %q", stmt))
		return
	}
	if req.kind == cmdReset {
		// "RS" is silent on the wire; nothing but a short timer marks it
		// done.
		gen := s.generation
		utils.PanicCapturingGo(func() {
			time.Sleep(resetTimeout)
			s.resetDoneCh <- gen
		})
		return
	}
	s.armTimeout(s.generation, defaultLineTimeout)
}

// armTimeout (re)starts the per-line timeout for generation gen, firing
// timeoutCh after d unless disarmTimeout runs first. Extending an
// in-flight command's timeout on a "time for ..." reply calls this again
// with a longer d; the stale timer is stopped first.
func (s *Session) armTimeout(gen int, d time.Duration) {
	s.disarmTimeout()
	s.timeoutTimer = time.AfterFunc(d, func() {
		select {
		case s.timeoutCh <- gen:
		default:
		}
	})
}

func (s *Session) disarmTimeout() {
	if s.timeoutTimer != nil {
		s.timeoutTimer.Stop()
		s.timeoutTimer = nil
	}
}

func (s *Session) failCurrent(err error) {
	s.disarmTimeout()
	if s.current == nil {
		return
	}
	cur := s.current
	s.current = nil
	s.clearInflightState(true)
	s.publishState()
	cur.resultCh <- requestResult{status: s.Status(), err: err}
}

func (s *Session) completeCurrent(err error) {
	s.disarmTimeout()
	if s.current == nil {
		return
	}
	cur := s.current
	s.current = nil
	if err == nil && cur.kind == cmdMove &&
		!s.seenKeys["commanded position"] && !s.seenKeys["target position"] {
		s.Publish("Text", "Target actuator positions not received from move")
	}
	if err == nil && cur.kind == cmdHome && !cur.followup {
		// A finished home auto-refreshes status before its caller hears
		// about it, so AxisHomed reflects the home just run.
		s.clearInflightState(false)
		if werr := s.conn.WriteLine("XQ#STATUS"); werr != nil {
			s.publishState()
			cur.resultCh <- requestResult{status: s.Status(), err: mverrors.NewDeviceError(werr, "refreshing status after home")}
			return
		}
		s.current = &inflight{kind: cmdStatus, gen: cur.gen, resultCh: cur.resultCh, followup: true}
		s.armTimeout(cur.gen, defaultLineTimeout)
		return
	}
	s.clearInflightState(err != nil)
	s.publishState()
	cur.resultCh <- requestResult{status: s.Status(), err: err}
}

func (s *Session) handleLine(line string) {
	reply := protocol.ParseReply(line)
	switch reply.Kind {
	case protocol.ReplySoftError:
		s.log.Warnw("full-step error, continuing", "text", reply.Text)
		s.Publish("Text", reply.Text)
	case protocol.ReplyError:
		if s.current != nil {
			s.current.failing = true
			s.current.failReason = reply.Text
		}
		s.log.Warnw("device command failing", "text", reply.Text)
		s.Publish("Text", reply.Text)
	case protocol.ReplyOK:
		if s.current != nil && s.current.failing {
			s.completeCurrent(mverrors.NewDeviceError(nil, "%s", s.current.failReason))
		} else {
			s.completeCurrent(nil)
		}
	case protocol.ReplyEcho:
		// no information
	case protocol.ReplyUnparsed:
		s.log.Debugw("unparsed device line", "line", reply.Raw)
		s.Publish("UnparsedReply", reply.Raw)
	case protocol.ReplyData:
		s.applyData(reply)
	}
}
