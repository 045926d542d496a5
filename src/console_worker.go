package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/affect"
)

// ANSI color codes for highlighting changes
const (
	ansiReset  = "\033[0m"
	ansiYellow = "\033[33m"
)

type consoleAction int

const (
	actionNone consoleAction = iota
	actionInteract
	actionSignal
	actionStatus
	actionReset
	actionWatch
	actionHelp
	actionQuit
)

// consoleCommand is a parsed console line.
type consoleCommand struct {
	Action consoleAction
	Events []affect.InteractionEvent
	Sample affect.Sample
	Watch  bool
}

var centre = affect.Vec2{X: 0.5, Y: 0.5}

func parseUnit(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("%v must be between 0 and 1", v)
	}
	return v, nil
}

func parseMillis(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%q is not a duration in ms", s)
	}
	return v, nil
}

func parsePos(args []string) (affect.Vec2, error) {
	if len(args) == 0 {
		return centre, nil
	}
	if len(args) != 2 {
		return affect.Vec2{}, fmt.Errorf("expected x and y")
	}
	x, err := parseUnit(args[0])
	if err != nil {
		return affect.Vec2{}, err
	}
	y, err := parseUnit(args[1])
	if err != nil {
		return affect.Vec2{}, err
	}
	return affect.Vec2{X: x, Y: y}, nil
}

// parseCommand parses one console line. Positions are normalized.
func parseCommand(line string) (consoleCommand, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return consoleCommand{}, nil
	}
	args := parts[1:]

	switch parts[0] {
	case "press", "drag":
		pos, err := parsePos(args)
		if err != nil {
			return consoleCommand{}, fmt.Errorf("usage: %s [x y]: %w", parts[0], err)
		}
		kind := affect.Press
		if parts[0] == "drag" {
			kind = affect.Drag
		}
		return consoleCommand{Action: actionInteract, Events: []affect.InteractionEvent{{Kind: kind, Pos: pos}}}, nil

	case "release":
		ms := 0.0
		if len(args) > 0 {
			var err error
			if ms, err = parseMillis(args[0]); err != nil {
				return consoleCommand{}, fmt.Errorf("usage: release [ms]: %w", err)
			}
		}
		return consoleCommand{Action: actionInteract, Events: []affect.InteractionEvent{
			{Kind: affect.Release, Pos: centre, GestureDurationMs: ms},
		}}, nil

	case "hold":
		if len(args) != 1 {
			return consoleCommand{}, fmt.Errorf("usage: hold <ms>")
		}
		ms, err := parseMillis(args[0])
		if err != nil {
			return consoleCommand{}, fmt.Errorf("usage: hold <ms>: %w", err)
		}
		return consoleCommand{Action: actionInteract, Events: []affect.InteractionEvent{
			{Kind: affect.Press, Pos: centre},
			{Kind: affect.Release, Pos: centre, GestureDurationMs: ms},
		}}, nil

	case "swipe":
		if len(args) != 1 {
			return consoleCommand{}, fmt.Errorf("usage: swipe <dx>")
		}
		dx, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return consoleCommand{}, fmt.Errorf("usage: swipe <dx>: %q is not a number", args[0])
		}
		if _, ok := affect.SwipeDirection(dx); !ok {
			return consoleCommand{}, fmt.Errorf("swipe needs |dx| > %v", affect.SwipeThresholdPx)
		}
		return consoleCommand{Action: actionInteract, Events: []affect.InteractionEvent{
			{Kind: affect.Press, Pos: centre},
			{Kind: affect.Swipe, Pos: centre, GestureDurationMs: 150, SwipeDeltaPx: dx},
		}}, nil

	case "energy":
		if len(args) < 1 || len(args) > 2 {
			return consoleCommand{}, fmt.Errorf("usage: energy <0-255> [centroid]")
		}
		e, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return consoleCommand{}, fmt.Errorf("usage: energy <0-255> [centroid]: %q is not a number", args[0])
		}
		s := affect.Sample{Energy: e}
		if len(args) == 2 {
			if s.Centroid, err = strconv.ParseFloat(args[1], 64); err != nil {
				return consoleCommand{}, fmt.Errorf("centroid %q is not a number", args[1])
			}
		}
		if !s.Valid() {
			return consoleCommand{}, fmt.Errorf("energy must be within 0-%v", affect.MaxEnergy)
		}
		return consoleCommand{Action: actionSignal, Sample: s}, nil

	case "watch":
		on := true
		if len(args) > 0 {
			switch args[0] {
			case "on":
			case "off":
				on = false
			default:
				return consoleCommand{}, fmt.Errorf("usage: watch [on|off]")
			}
		}
		return consoleCommand{Action: actionWatch, Watch: on}, nil

	case "status":
		return consoleCommand{Action: actionStatus}, nil
	case "reset":
		return consoleCommand{Action: actionReset}, nil
	case "help":
		return consoleCommand{Action: actionHelp}, nil
	case "quit", "exit":
		return consoleCommand{Action: actionQuit}, nil
	default:
		return consoleCommand{}, fmt.Errorf("unknown command: %s (try 'help')", parts[0])
	}
}

// consoleOrb is what the console drives.
type consoleOrb interface {
	orbControl
	Status(ctx context.Context) (OrbStatus, error)
}

// telemetryColumns are the watched fields, in print order.
var telemetryColumns = []string{"mood", "warmth", "calm", "size", "visits", "blinks", "e.min", "e.max"}

func telemetryValues(t Telemetry) []string {
	return []string{
		t.Mood,
		fmt.Sprintf("%.3f", t.Emotion.Warmth),
		fmt.Sprintf("%.3f", t.Emotion.Calm),
		fmt.Sprintf("%.3f", t.Size),
		strconv.Itoa(t.Visits),
		strconv.Itoa(t.Blinks),
		fmt.Sprintf("%.0f", t.EnergyMin),
		fmt.Sprintf("%.0f", t.EnergyMax),
	}
}

// ConsoleState holds watch output state.
type ConsoleState struct {
	out           io.Writer
	rl            *readline.Instance
	watching      bool
	headerPrinted bool
	prevValues    []string
}

func newConsoleState(out io.Writer) *ConsoleState {
	return &ConsoleState{out: out}
}

// print outputs a line, handling readline prompt properly
func (s *ConsoleState) print(format string, args ...any) {
	if s.rl != nil {
		s.rl.Clean()
		defer s.rl.Refresh()
	}
	fmt.Fprintf(s.out, format+"\n", args...)
}

// PrintRow prints the telemetry row when any value changed, highlighting
// the changed ones.
func (s *ConsoleState) PrintRow(t Telemetry) {
	if !s.watching {
		return
	}
	if !s.headerPrinted {
		s.print("%s", strings.Join(padAll(telemetryColumns), " | "))
		s.headerPrinted = true
		s.prevValues = nil
	}

	values := telemetryValues(t)
	parts := make([]string, len(values))
	anyChanged := false
	for i, v := range values {
		cell := fmt.Sprintf("%*s", columnWidth(telemetryColumns[i]), v)
		if s.prevValues == nil || s.prevValues[i] != v {
			anyChanged = true
			cell = ansiYellow + cell + ansiReset
		}
		parts[i] = cell
	}
	if anyChanged {
		s.print("%s", strings.Join(parts, " | "))
		s.prevValues = values
	}
}

func columnWidth(name string) int {
	return max(len(name), 7)
}

func padAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%*s", columnWidth(n), n)
	}
	return out
}

func (s *ConsoleState) printStatus(st OrbStatus) {
	e := st.State
	s.print("up %s  mood %s  warmth %.3f  calm %.3f", st.Elapsed.Truncate(time.Second), st.Mood, e.Emotion.Warmth, e.Emotion.Calm)
	s.print("orb at (%.3f, %.3f) size %.3f target %.3f  resting %v  blinks %d",
		e.Orb.Position.X, e.Orb.Position.Y, e.Orb.Size, e.Orb.TargetSize, e.Resting, e.Blink.Count)
	lastSeen := "never"
	if e.Profile.LastSeen != nil {
		lastSeen = e.Profile.LastSeen.Local().Format(time.DateTime)
	}
	s.print("profile: %d visits, warmth %.2f, last seen %s", e.Profile.Visits, e.Profile.Warmth, lastSeen)
	for _, task := range st.Tasks {
		s.print("  task %-9s every %-6s runs %-8d skipped %d", task.Name, task.Interval, task.Runs, task.Skipped)
	}
}

func (s *ConsoleState) printHelp() {
	s.print("Commands:")
	s.print("  press [x y]            - Press at a normalized position (default centre)")
	s.print("  drag [x y]             - Drag to a normalized position")
	s.print("  release [ms]           - Release after a gesture lasting ms")
	s.print("  hold <ms>              - Press and release; 700ms or more confirms presence")
	s.print("  swipe <dx>             - Press and swipe by dx pixels")
	s.print("  energy <0-255> [cent]  - Inject a signal sample")
	s.print("  watch [on|off]         - Print telemetry rows as they change")
	s.print("  status                 - Show engine state and task stats")
	s.print("  reset                  - Forget the visit profile")
	s.print("  quit                   - Shut down")
}

// handleConsoleCommand applies one console line. It reports whether the
// console should exit.
func handleConsoleCommand(ctx context.Context, line string, state *ConsoleState, orb consoleOrb, sink sampleSink) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		state.print("Error: %v", err)
		return false
	}

	switch cmd.Action {
	case actionInteract:
		for _, ev := range cmd.Events {
			orb.Interact("console", ev)
		}
	case actionSignal:
		sink.Put(cmd.Sample)
	case actionStatus:
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		st, err := orb.Status(callCtx)
		if err != nil {
			state.print("Error: %v", err)
			return false
		}
		state.printStatus(st)
	case actionReset:
		orb.ResetMemory()
	case actionWatch:
		state.watching = cmd.Watch
		state.headerPrinted = false
	case actionHelp:
		state.printHelp()
	case actionQuit:
		return true
	}
	return false
}

// readlineLoop runs the readline loop, sending commands to the channel
func readlineLoop(
	ctx context.Context,
	cancel context.CancelFunc,
	rl *readline.Instance,
	commandChan chan<- string,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			cancel() // Ctrl+C pressed, shutdown the app
			return
		}
		if err != nil {
			return // EOF or other error
		}
		line = strings.TrimSpace(line)
		if line != "" {
			select {
			case commandChan <- line:
			case <-ctx.Done():
				return
			}
		}
	}
}

// consoleWorker provides an interactive console for poking the orb
func consoleWorker(
	ctx context.Context,
	cancel context.CancelFunc,
	historyFile string,
	orb consoleOrb,
	sink sampleSink,
	telemetry <-chan Telemetry,
	logger zerolog.Logger,
) {
	if historyFile != "" {
		_ = os.MkdirAll(filepath.Dir(historyFile), 0o750)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "orb> ",
		HistoryFile: historyFile,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("readline init failed, console disabled")
		return
	}
	defer func() {
		_ = rl.Close()
		rlWriter.setReadline(nil)
	}()

	// Route log output around the prompt
	rlWriter.setReadline(rl)

	state := newConsoleState(os.Stdout)
	state.rl = rl
	logger.Info().Msg("Console started (type 'help' for commands)")

	commandChan := make(chan string, 10)
	go readlineLoop(ctx, cancel, rl, commandChan)

	for {
		select {
		case line := <-commandChan:
			if handleConsoleCommand(ctx, line, state, orb, sink) {
				cancel()
				return
			}
		case t := <-telemetry:
			state.PrintRow(t)
		case <-ctx.Done():
			logger.Info().Msg("Console stopped")
			return
		}
	}
}
