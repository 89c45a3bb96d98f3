// Package console provides the interactive operator prompt.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
)

const (
	PROMPT = "der> "

	invalidArgument = "[ERROR]: Invalid Argument."
)

// Target receives setpoints typed at the prompt.
type Target interface {
	SetImportSetpoint(watts float64)
	SetExportSetpoint(watts float64)
}

// Displayer prints the live control state.
type Displayer interface {
	Display(w io.Writer)
}

type Console struct {
	target          Target
	display         Displayer
	scheduleEnabled *atomic.Bool
	logger          *zap.Logger
}

// New returns a console. scheduleEnabled is shared with the schedule
// operator and may be nil when no schedule is loaded.
func New(target Target, display Displayer, scheduleEnabled *atomic.Bool, logger *zap.Logger) *Console {
	return &Console{
		target:          target,
		display:         display,
		scheduleEnabled: scheduleEnabled,
		logger:          logger,
	}
}

// Run reads commands until q, EOF or ctx is done. cancel is called when the
// operator quits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          PROMPT,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	c.help(rl.Stdout())
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			c.logger.Debug("console closed", zap.Error(err))
			cancel()
			return nil
		}
		if c.Execute(line, rl.Stdout()) {
			cancel()
			return nil
		}
	}
}

// Execute runs one command line and reports whether the operator asked to
// quit.
func (c *Console) Execute(line string, w io.Writer) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]

	switch fields[0] {
	case "q":
		return true
	case "h":
		c.help(w)
	case "i":
		if watts, ok := parseWatts(args); ok {
			c.logger.Info("console: import setpoint", zap.Float64("watts", watts))
			c.target.SetImportSetpoint(watts)
		} else {
			fmt.Fprintln(w, invalidArgument)
		}
	case "e":
		if watts, ok := parseWatts(args); ok {
			c.logger.Info("console: export setpoint", zap.Float64("watts", watts))
			c.target.SetExportSetpoint(watts)
		} else {
			fmt.Fprintln(w, invalidArgument)
		}
	case "d":
		c.display.Display(w)
	case "s":
		c.schedule(args, w)
	default:
		c.help(w)
	}
	return false
}

func (c *Console) schedule(args []string, w io.Writer) {
	if c.scheduleEnabled == nil {
		fmt.Fprintln(w, "no schedule loaded")
		return
	}
	switch {
	case len(args) == 0:
		c.scheduleEnabled.Store(!c.scheduleEnabled.Load())
	case len(args) == 1 && args[0] == "on":
		c.scheduleEnabled.Store(true)
	case len(args) == 1 && args[0] == "off":
		c.scheduleEnabled.Store(false)
	default:
		fmt.Fprintln(w, invalidArgument)
		return
	}
	state := "off"
	if c.scheduleEnabled.Load() {
		state = "on"
	}
	c.logger.Info("console: schedule", zap.String("state", state))
	fmt.Fprintf(w, "schedule %s\n", state)
}

func (c *Console) help(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  q            quit")
	fmt.Fprintln(w, "  h            help")
	fmt.Fprintln(w, "  i <watts>    import setpoint")
	fmt.Fprintln(w, "  e <watts>    export setpoint")
	fmt.Fprintln(w, "  d            display state")
	fmt.Fprintln(w, "  s [on|off]   toggle schedule")
}

// parseWatts accepts exactly one unsigned integer argument.
func parseWatts(args []string) (float64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	v, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return float64(v), true
}
