// Command mirrorctld is a thin, demonstrative wiring of the mirror
// controller core onto a real TCP connection: it dials the Galil, builds a
// MirrorModel from a named preset, and runs a line-oriented stdin/stdout
// loop translating user command verbs into device.Session/
// move.Controller calls, printing telemetry as it arrives. It is not the
// full command actor the observatory runs (no auth, no multi-client
// fan-out), just enough to exercise the core end to end.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"time"

	"github.com/sdss-legacy/mirrorctl/device"
	"github.com/sdss-legacy/mirrorctl/geometry"
	"github.com/sdss-legacy/mirrorctl/geometry/presets"
	"github.com/sdss-legacy/mirrorctl/logging"
	"github.com/sdss-legacy/mirrorctl/move"
	"github.com/sdss-legacy/mirrorctl/userio"
)

// mirrorPreset pairs a MirrorModel constructor with whether that variant
// carries the central-bearing secondary's piezo fine-correction stage;
// wiring the piezo corrector up is this caller's decision, not the move
// controller's.
type mirrorPreset struct {
	build func() (*geometry.MirrorModel, error)
	piezo bool
}

// presetByName resolves the mirror-specific startup argument to a concrete
// preset.
var presetByName = map[string]mirrorPreset{
	"prim25m":        {build: presets.Mir25mPrimary},
	"sec25m":         {build: presets.Mir25mSecondary, piezo: true},
	"sec35m":         {build: presets.Mir35mSecondary},
	"tert35m":        {build: presets.Mir35mTertiary},
	"tert35m-legacy": {build: presets.Mir35mTertiaryLegacy},
}

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// realMain is factored out of main so it can be exercised by main_test.go
// without process-level side effects.
func realMain(args []string) error {
	fs := flag.NewFlagSet("mirrorctld", flag.ContinueOnError)
	addr := fs.String("addr", "", "host:port of the Galil controller")
	preset := fs.String("mirror", "prim25m", "mirror preset: "+presetNames())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *addr == "" {
		return fmt.Errorf("-addr is required")
	}
	p, ok := presetByName[*preset]
	if !ok {
		return fmt.Errorf("unknown mirror preset %q (want %s)", *preset, presetNames())
	}

	log := logging.NewLogger("mirrorctld")
	defer log.Sync() //nolint:errcheck

	conn, err := net.DialTimeout("tcp", *addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", *addr, err)
	}
	defer conn.Close()

	return run(context.Background(), conn, p, log, os.Stdin, os.Stdout)
}

// run wires one device.Session and move.Controller over conn and services
// user commands read from in until it's exhausted or returns an error.
func run(ctx context.Context, conn net.Conn, p mirrorPreset, log logging.Logger, in *os.File, out *os.File) error {
	mirror, err := p.build()
	if err != nil {
		return fmt.Errorf("building mirror model: %w", err)
	}

	sess := device.NewSession(ctx, conn, conn, mirror, log)
	defer sess.Close() //nolint:errcheck

	var piezo move.PiezoCorrector
	if p.piezo {
		piezo = &move.SessionPiezoCorrector{Session: sess}
	}
	ctrl := move.New(sess, mirror, log, piezo)

	done := make(chan struct{})
	defer close(done)
	go drainTelemetry(sess, out, done)

	fmt.Fprintln(out, "mirrorctld ready; verbs: move/offset/home/stop/reset/status/showparams/galil/init")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := userio.Parse(scanner.Text())
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		if err := dispatch(ctx, sess, ctrl, cmd); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
	return scanner.Err()
}

func drainTelemetry(sess *device.Session, out *os.File, done <-chan struct{}) {
	for {
		select {
		case line := <-sess.Telemetry():
			fmt.Fprintln(out, userio.FormatTelemetry(line))
		case <-done:
			return
		}
	}
}

func dispatch(ctx context.Context, sess *device.Session, ctrl *move.Controller, cmd userio.Command) error {
	switch cmd.Verb {
	case userio.VerbMove:
		_, err := ctrl.Move(ctx, cmd.OrientMM)
		return err
	case userio.VerbOffset:
		_, err := ctrl.Offset(ctx, cmd.OrientMM)
		return err
	case userio.VerbHome:
		_, err := sess.Home(ctx, cmd.Axes)
		return err
	case userio.VerbStop:
		_, err := sess.Stop(ctx)
		return err
	case userio.VerbReset:
		_, err := sess.Reset(ctx)
		return err
	case userio.VerbStatus:
		_, err := sess.RefreshStatus(ctx)
		return err
	case userio.VerbShowParams:
		_, err := sess.Params(ctx)
		return err
	case userio.VerbGalil:
		_, err := sess.Raw(ctx, cmd.Raw)
		return err
	case userio.VerbInit:
		// init is a gentle re-initialization: stop all Galil threads and
		// refresh status, leaving homed state intact (reset wipes it).
		_, err := sess.Stop(ctx)
		return err
	default:
		return fmt.Errorf("unhandled verb %v", cmd.Verb)
	}
}

func presetNames() string {
	names := make([]string, 0, len(presetByName))
	for n := range presetByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}
