// Package main provides the fomod CLI entrypoint:
//
//	fomod validate <module.yaml>
//	fomod plan <module.yaml>
//	fomod walk <module.yaml>
//	fomod test <module.yaml...>
//	fomod schema module|selection
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ormasoftchile/fomod/pkg/console"
	"github.com/ormasoftchile/fomod/pkg/ecosystem/recorder"
	"github.com/ormasoftchile/fomod/pkg/host"
	"github.com/ormasoftchile/fomod/pkg/kernel/engine"
	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/flags"
	kschema "github.com/ormasoftchile/fomod/pkg/kernel/schema"
	ktesting "github.com/ormasoftchile/fomod/pkg/kernel/testing"
	"github.com/ormasoftchile/fomod/pkg/kernel/trace"
	kvalidate "github.com/ormasoftchile/fomod/pkg/kernel/validate"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fomod",
	Short: "Declarative install-wizard engine",
}

// --- shared wizard flags ---

var (
	infoPath   string
	filesPath  string
	dataDir    string
	tracePath  string
	flagPolicy string
)

func addWizardFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&infoPath, "info", "", "Module info YAML (name, version, author, website)")
	cmd.Flags().StringVar(&filesPath, "files", "", "YAML file of host file states")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory whose files are reported Active")
	cmd.Flags().StringVar(&tracePath, "trace", "", "Write trace to JSONL file")
	cmd.Flags().StringVar(&flagPolicy, "policy", string(flags.DocumentOrder), "Flag tie-break policy: document-order or last-write")
}

// fileQuery builds the host file state source from --files and --data-dir.
// The static list is asked first.
func fileQuery() (eval.FileStateQuery, error) {
	var chain host.Chain
	if filesPath != "" {
		st, err := host.LoadStaticFile(filesPath)
		if err != nil {
			return nil, err
		}
		chain = append(chain, st)
	}
	if dataDir != "" {
		fi, err := os.Stat(dataDir)
		if err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("data dir: %s is not a directory", dataDir)
		}
		chain = append(chain, host.Dir{Root: dataDir})
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

// newWizard loads the module and builds a wizard from the shared flags.
// files overrides the host file source when non-nil.
func newWizard(modulePath, runID string, files eval.FileStateQuery) (*engine.Wizard, error) {
	if !flags.Policy(flagPolicy).Valid() {
		return nil, fmt.Errorf("invalid --policy %q: expected document-order or last-write", flagPolicy)
	}

	mod, err := kschema.LoadFile(modulePath)
	if err != nil {
		return nil, err
	}
	var info *kschema.Info
	if infoPath != "" {
		info, err = kschema.LoadInfoFile(infoPath)
		if err != nil {
			return nil, err
		}
	}
	if files == nil {
		if files, err = fileQuery(); err != nil {
			return nil, err
		}
	}

	var tw *trace.Writer
	if tracePath != "" {
		tw, err = trace.NewFileWriter(tracePath, runID)
		if err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
	}

	w, err := engine.New(mod, info, engine.Config{
		RunID:      runID,
		Trace:      tw,
		Files:      files,
		FlagPolicy: flags.Policy(flagPolicy),
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [module.yaml]",
	Short: "Load a module and run the initial visibility and default pass",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	mod, errs := kvalidate.ValidateFile(args[0])
	errors, warnings := kvalidate.Split(errs)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", w.Phase, w.Message)
		if w.Path != "" {
			fmt.Fprintf(os.Stderr, "    at: %s\n", w.Path)
		}
	}
	if len(errors) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(errors))
		for i, e := range errors {
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("validation failed with %d error(s)", len(errors))
	}

	w, err := engine.New(mod, nil, engine.Config{RunID: "validate"})
	if err != nil {
		return fmt.Errorf("initial pass: %w", err)
	}
	fmt.Printf("✓ %s is valid (%d steps, %d visible)\n", mod.Name, len(mod.Steps), len(w.VisibleStepIndices()))
	return nil
}

// --- plan ---

var (
	planSelect string
	planJSON   bool
)

var planCmd = &cobra.Command{
	Use:   "plan [module.yaml]",
	Short: "Apply a bulk selection and print the install plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	w, err := newWizard(args[0], "plan", nil)
	if err != nil {
		return err
	}

	if planSelect != "" {
		sel, err := kschema.LoadSelectionFile(planSelect)
		if err != nil {
			return err
		}
		if err := w.ApplySelection(*sel); err != nil {
			return fmt.Errorf("apply selection: %w", err)
		}
	}

	plan, err := w.Plan()
	if err != nil {
		return err
	}

	if planJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	printPlan(plan)
	return nil
}

func printPlan(plan *engine.InstallPlan) {
	title := plan.Module
	if plan.Info.Version != "" {
		title += " " + plan.Info.Version
	}
	fmt.Printf("\n  %s\n", title)
	fmt.Printf("\n  options:\n")
	for _, o := range plan.Options {
		fmt.Printf("    [x] %s\n", o)
	}
	fmt.Printf("\n  files:\n")
	for _, f := range plan.Files {
		from := "required"
		if f.Option != "" {
			from = f.Option
		}
		fmt.Printf("    %s <- %s  (priority %d, %s)\n", f.Destination, f.Source, f.Priority, from)
	}
	if len(plan.Flags) > 0 {
		fmt.Printf("\n  flags:\n")
		names := make([]string, 0, len(plan.Flags))
		for n := range plan.Flags {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("    %s = %q\n", n, plan.Flags[n])
		}
	}
	fmt.Printf("\n  %d files\n", len(plan.Files))
}

// --- walk ---

var (
	walkRecord      string
	walkDescription string
)

var walkCmd = &cobra.Command{
	Use:   "walk [module.yaml]",
	Short: "Step through the wizard interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalk,
}

func runWalk(cmd *cobra.Command, args []string) error {
	var log *recorder.FileLog
	var files eval.FileStateQuery
	if walkRecord != "" {
		q, err := fileQuery()
		if err != nil {
			return err
		}
		log = recorder.WatchFiles(q)
		files = log
	}

	w, err := newWizard(args[0], "walk", files)
	if err != nil {
		return err
	}

	c := console.New(w, os.Stdout)
	var rec *recorder.Recorder
	if log != nil {
		rec = recorder.New(w, nil, flags.Policy(flagPolicy))
		rec.UseFileLog(log)
		c.SetDriver(rec)
	}

	if err := c.Run(); err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	sc, err := rec.Scenario(walkDescription)
	if err != nil {
		return fmt.Errorf("record scenario: %w", err)
	}
	if err := recorder.Save(walkRecord, sc); err != nil {
		return err
	}
	fmt.Printf("recorded %d actions to %s\n", len(sc.Actions), filepath.Join(walkRecord, "scenario.yaml"))
	return nil
}

// --- test ---

var (
	testScenario string
	testJSON     bool
	testFailFast bool
	testTraceDir string
)

var testCmd = &cobra.Command{
	Use:   "test [module.yaml...]",
	Short: "Run scenario replay tests with assertions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	runner := &ktesting.Runner{
		FailFast: testFailFast,
		TraceDir: testTraceDir,
	}

	allPassed := true

	for _, filePath := range args {
		var output *ktesting.TestOutput
		var err error

		if testScenario != "" {
			result, e := runner.RunScenario(filePath, testScenario)
			if e != nil {
				return e
			}
			output = &ktesting.TestOutput{
				Module:    filepath.Base(filePath),
				Scenarios: []ktesting.TestResult{*result},
				Summary: ktesting.TestSummary{
					Total: 1,
				},
			}
			switch result.Status {
			case "passed":
				output.Summary.Passed = 1
			case "failed":
				output.Summary.Failed = 1
			case "skipped":
				output.Summary.Skipped = 1
			case "error":
				output.Summary.Errors = 1
			}
		} else {
			output, err = runner.RunAll(filePath)
			if err != nil {
				return err
			}
		}

		if testJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(output)
		} else {
			printTestOutput(output)
		}

		if output.Summary.Failed > 0 || output.Summary.Errors > 0 {
			allPassed = false
		}
	}

	if !allPassed {
		return fmt.Errorf("tests failed")
	}
	return nil
}

func printTestOutput(output *ktesting.TestOutput) {
	fmt.Printf("\n  %s\n", output.Module)
	for _, s := range output.Scenarios {
		icon := "✓"
		switch s.Status {
		case "failed":
			icon = "✗"
		case "error":
			icon = "!"
		case "skipped":
			icon = "○"
		}
		fmt.Printf("    %s %s (%dms)\n", icon, s.ScenarioName, s.DurationMs)
		if s.Error != "" {
			fmt.Printf("      error: %s\n", s.Error)
		}
		for _, a := range s.Assertions {
			if !a.Passed {
				fmt.Printf("      ✗ %s %s: %s\n", a.Type, a.Key, a.Message)
			}
		}
	}
	fmt.Printf("\n  %d passed, %d failed, %d skipped, %d errors (total: %d)\n",
		output.Summary.Passed, output.Summary.Failed, output.Summary.Skipped, output.Summary.Errors, output.Summary.Total)
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export JSON Schema to stdout",
}

var schemaModuleCmd = &cobra.Command{
	Use:   "module",
	Short: "Export the module document JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := kschema.GenerateModuleJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var schemaSelectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Export the bulk selection payload JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := kschema.GenerateSelectionJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fomod %s (%s)\n", version, commit)
	},
}

func init() {
	addWizardFlags(planCmd)
	planCmd.Flags().StringVar(&planSelect, "select", "", "Bulk selection JSON payload to apply")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output the plan as JSON")

	addWizardFlags(walkCmd)
	walkCmd.Flags().StringVar(&walkRecord, "record", "", "Record the walk as a scenario into this directory")
	walkCmd.Flags().StringVar(&walkDescription, "description", "", "Description of the recorded scenario")

	testCmd.Flags().StringVar(&testScenario, "scenario", "", "Run only the named scenario (default: all)")
	testCmd.Flags().BoolVar(&testJSON, "json", false, "Output results as JSON")
	testCmd.Flags().BoolVar(&testFailFast, "fail-fast", false, "Stop after first failure")
	testCmd.Flags().StringVar(&testTraceDir, "trace-dir", "", "Write one JSONL trace per scenario into this directory")

	schemaCmd.AddCommand(schemaModuleCmd)
	schemaCmd.AddCommand(schemaSelectionCmd)

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(walkCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
