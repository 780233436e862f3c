// Package console implements the interactive walkthrough REPL for install
// modules.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/ormasoftchile/fomod/pkg/kernel/engine"
)

// Driver performs the state-changing wizard calls issued by the console.
// *engine.Wizard satisfies it; a recorder wraps it to capture a walk.
type Driver interface {
	Toggle(ref engine.OptionRef, selected bool) error
	StepForward() error
	StepBack() error
}

// Console drives a wizard from typed commands.
type Console struct {
	wizard *engine.Wizard
	driver Driver
	output io.Writer
	rl     *readline.Instance
}

// New creates a console over w. A nil out writes to stdout.
func New(w *engine.Wizard, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{wizard: w, driver: w, output: out}
}

// SetDriver routes toggles and navigation through d instead of the wizard.
// d must drive the same wizard the console reads from.
func (c *Console) SetDriver(d Driver) {
	c.driver = d
}

// Run starts the interactive REPL loop.
func (c *Console) Run() error {
	commands := []string{"show", "steps", "toggle", "focus", "next", "back",
		"flags", "image", "plan", "help", "quit"}

	var completer = readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children,
			readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	c.rl = rl
	defer rl.Close()

	mod := c.wizard.Module()
	info := c.wizard.Info()
	title := mod.Name
	if info.Version != "" {
		title += " " + info.Version
	}
	fmt.Fprintf(c.output, "fomod walk: %s, %d steps\n", title, len(mod.Steps))
	fmt.Fprintf(c.output, "Type 'help' for available commands, 'show' to list the current step.\n\n")
	c.handleShow()

	for {
		rl.SetPrompt(c.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		if c.Exec(line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the session should end.
func (c *Console) Exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	parts := strings.Fields(line)

	switch parts[0] {
	case "show", "s":
		c.handleShow()
	case "steps":
		c.handleSteps()
	case "toggle", "t":
		c.handleToggle(parts)
	case "focus", "f":
		c.handleFocus(parts)
	case "next", "n":
		c.report(c.driver.StepForward())
		c.handleShow()
	case "back", "b":
		c.report(c.driver.StepBack())
		c.handleShow()
	case "flags":
		c.handleFlags()
	case "image":
		c.handleImage()
	case "plan", "p":
		c.handlePlan()
	case "help", "?":
		c.handleHelp()
	case "quit", "q":
		fmt.Fprintf(c.output, "Exiting walkthrough.\n")
		return true
	default:
		fmt.Fprintf(c.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
	}
	return false
}

func (c *Console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.output, "Error: %v\n", err)
	}
}

// buildPrompt creates the prompt string: fomod[N/total | step]>
func (c *Console) buildPrompt() string {
	if c.wizard.State() == engine.StateReadyToInstall {
		return "fomod[ready]> "
	}
	step, err := c.wizard.ActiveStep()
	if err != nil {
		return "fomod> "
	}
	return fmt.Sprintf("fomod[%d/%d | %s]> ", c.wizard.Position()+1, len(c.wizard.VisibleStepIndices()), step.Name)
}
