package console

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ormasoftchile/fomod/pkg/kernel/engine"
)

// handleShow lists the active step with numbered groups and options.
func (c *Console) handleShow() {
	if c.wizard.State() == engine.StateReadyToInstall {
		fmt.Fprintf(c.output, "Ready to install. Use 'plan' to review or 'back' to change the selection.\n")
		return
	}
	step, err := c.wizard.ActiveStep()
	if err != nil {
		fmt.Fprintf(c.output, "No visible step.\n")
		return
	}
	fmt.Fprintf(c.output, "Step %d/%d: %s\n", c.wizard.Position()+1, len(c.wizard.VisibleStepIndices()), step.Name)
	active := c.wizard.ActiveOption()
	for gi, g := range step.Groups {
		fmt.Fprintf(c.output, "  %d. %s (%s)\n", gi+1, g.Name, g.Type)
		for oi, o := range g.Options {
			mark := "[ ]"
			if o.Selected {
				mark = "[x]"
			}
			cursor := " "
			if active != nil && *active == o.Ref {
				cursor = ">"
			}
			note := ""
			if !o.Enabled {
				note = " (locked)"
			}
			fmt.Fprintf(c.output, "   %s%d.%d %s %s  %s%s\n", cursor, gi+1, oi+1, mark, o.Name, o.Category, note)
		}
	}
}

// handleSteps lists the visible steps.
func (c *Console) handleSteps() {
	steps, err := c.wizard.VisibleSteps()
	if err != nil {
		c.report(err)
		return
	}
	for i, s := range steps {
		cur := " "
		if i == c.wizard.Position() {
			cur = ">"
		}
		visited := ""
		if s.Visited {
			visited = " (visited)"
		}
		fmt.Fprintf(c.output, "  %s %d. %s%s\n", cur, i+1, s.Name, visited)
	}
}

// lookup resolves 1-based group and option numbers of the active step.
func (c *Console) lookup(parts []string) (engine.OptionView, bool) {
	if len(parts) < 3 {
		fmt.Fprintf(c.output, "Usage: %s <group#> <option#>\n", parts[0])
		return engine.OptionView{}, false
	}
	g, err1 := strconv.Atoi(parts[1])
	o, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		fmt.Fprintf(c.output, "Group and option must be numbers.\n")
		return engine.OptionView{}, false
	}
	step, err := c.wizard.ActiveStep()
	if err != nil {
		c.report(err)
		return engine.OptionView{}, false
	}
	if g < 1 || g > len(step.Groups) || o < 1 || o > len(step.Groups[g-1].Options) {
		fmt.Fprintf(c.output, "No option %d.%d on this step.\n", g, o)
		return engine.OptionView{}, false
	}
	return step.Groups[g-1].Options[o-1], true
}

// handleToggle flips an option, or sets it with an explicit on/off.
func (c *Console) handleToggle(parts []string) {
	opt, ok := c.lookup(parts)
	if !ok {
		return
	}
	want := !opt.Selected
	if len(parts) > 3 {
		switch parts[3] {
		case "on":
			want = true
		case "off":
			want = false
		default:
			fmt.Fprintf(c.output, "Usage: toggle <group#> <option#> [on|off]\n")
			return
		}
	}
	if !opt.Enabled {
		fmt.Fprintf(c.output, "  %s is locked (%s).\n", opt.Name, opt.Category)
		return
	}
	if err := c.driver.Toggle(opt.Ref, want); err != nil {
		c.report(err)
		return
	}
	after, err := c.wizard.Option(opt.Ref)
	if err == nil && after.Selected != want {
		fmt.Fprintf(c.output, "  %s kept by the group rule.\n", opt.Name)
	}
	c.handleShow()
}

// handleFocus shows details of one option and makes it the active option.
func (c *Console) handleFocus(parts []string) {
	opt, ok := c.lookup(parts)
	if !ok {
		return
	}
	if err := c.wizard.SetActiveOption(opt.Ref); err != nil {
		c.report(err)
		return
	}
	fmt.Fprintf(c.output, "  %s [%s]\n", opt.Name, opt.Category)
	if opt.Description != "" {
		fmt.Fprintf(c.output, "  %s\n", opt.Description)
	}
	c.handleImage()
}

// handleFlags prints the effective flag values.
func (c *Console) handleFlags() {
	flags := c.wizard.Flags()
	if len(flags) == 0 {
		fmt.Fprintf(c.output, "No flags set.\n")
		return
	}
	names := make([]string, 0, len(flags))
	for k := range flags {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(c.output, "  %s = %q\n", k, flags[k])
	}
}

func (c *Console) handleImage() {
	img := c.wizard.DisplayImage()
	if img == "" {
		fmt.Fprintf(c.output, "  image: none\n")
		return
	}
	fmt.Fprintf(c.output, "  image: %s\n", img)
}

// handlePlan prints the files the current selection would install.
func (c *Console) handlePlan() {
	plan, err := c.wizard.Plan()
	if err != nil {
		c.report(err)
		return
	}
	if len(plan.Files) == 0 {
		fmt.Fprintf(c.output, "Nothing to install.\n")
		return
	}
	for _, f := range plan.Files {
		from := f.Option
		if from == "" {
			from = "required"
		}
		fmt.Fprintf(c.output, "  %s <- %s  (priority %d, %s)\n", f.Destination, f.Source, f.Priority, from)
	}
}

// handleHelp displays available commands.
func (c *Console) handleHelp() {
	fmt.Fprintln(c.output, "Available commands:")
	fmt.Fprintln(c.output, "  show (s)               List the current step")
	fmt.Fprintln(c.output, "  steps                  List visible steps")
	fmt.Fprintln(c.output, "  toggle (t) G O [on|off] Change option O of group G")
	fmt.Fprintln(c.output, "  focus (f) G O          Show option details and image")
	fmt.Fprintln(c.output, "  next (n)               Go to the next step")
	fmt.Fprintln(c.output, "  back (b)               Go to the previous step")
	fmt.Fprintln(c.output, "  flags                  Show effective flags")
	fmt.Fprintln(c.output, "  image                  Show the image to display")
	fmt.Fprintln(c.output, "  plan (p)               Show the install plan")
	fmt.Fprintln(c.output, "  help (?)               Show this help")
	fmt.Fprintln(c.output, "  quit (q)               Exit walkthrough")
}
