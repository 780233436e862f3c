package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ormasoftchile/fomod/pkg/host"
	"github.com/ormasoftchile/fomod/pkg/kernel/engine"
	"github.com/ormasoftchile/fomod/pkg/kernel/flags"
	kschema "github.com/ormasoftchile/fomod/pkg/kernel/schema"
	ktesting "github.com/ormasoftchile/fomod/pkg/kernel/testing"
	kvalidate "github.com/ormasoftchile/fomod/pkg/kernel/validate"
)

// HandleValidate implements the fomod/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	mod, errs := kvalidate.ValidateFile(path)
	if kvalidate.HasErrors(errs) {
		data, _ := json.MarshalIndent(errs, "", "  ")
		return errorResult(string(data)), nil
	}
	w, err := engine.New(mod, nil, engine.Config{RunID: "mcp-validate"})
	if err != nil {
		return errorResult(err.Error()), nil
	}

	text := fmt.Sprintf("✓ %s is valid (%d steps, %d visible)", mod.Name, len(mod.Steps), len(w.VisibleStepIndices()))
	if len(errs) > 0 {
		data, _ := json.MarshalIndent(errs, "", "  ")
		text += "\nwarnings:\n" + string(data)
	}
	return textResult(text), nil
}

// HandleSchema implements the fomod/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	var data []byte
	var err error

	switch schemaType {
	case "module":
		data, err = kschema.GenerateModuleJSONSchema()
	case "selection":
		data, err = kschema.GenerateSelectionJSONSchema()
	default:
		return errorResult(fmt.Sprintf("unknown schema type %q, use 'module' or 'selection'", schemaType)), nil
	}

	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandlePlan implements the fomod/plan MCP tool.
func HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	mod, err := kschema.LoadFile(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	files := host.Static{}
	if raw, ok := args["files"].(map[string]any); ok {
		for p, v := range raw {
			files[p] = kschema.FileState(fmt.Sprint(v))
		}
	}
	policy, _ := args["flag_policy"].(string)

	w, err := engine.New(mod, nil, engine.Config{
		RunID:      "mcp-plan",
		Files:      files,
		FlagPolicy: flags.Policy(policy),
	})
	if err != nil {
		return errorResult(err.Error()), nil
	}

	if raw, _ := args["selection"].(string); raw != "" {
		sel, err := kschema.ParseSelection([]byte(raw))
		if err != nil {
			return errorResult(fmt.Sprintf("selection: %s", err)), nil
		}
		if err := w.ApplySelection(*sel); err != nil {
			return errorResult(fmt.Sprintf("selection: %s", err)), nil
		}
	}

	plan, err := w.Plan()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, _ := json.MarshalIndent(plan, "", "  ")
	return textResult(string(data)), nil
}

// HandleTest implements the fomod/test MCP tool.
func HandleTest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	scenarioName, _ := args["scenario"].(string)

	runner := &ktesting.Runner{FailFast: false}

	var output *ktesting.TestOutput
	var err error

	if scenarioName != "" {
		result, e := runner.RunScenario(path, scenarioName)
		if e != nil {
			return errorResult(fmt.Sprintf("run scenario: %s", e)), nil
		}
		output = &ktesting.TestOutput{
			Module:    filepath.Base(path),
			Scenarios: []ktesting.TestResult{*result},
			Summary:   ktesting.TestSummary{Total: 1},
		}
		switch result.Status {
		case "passed":
			output.Summary.Passed = 1
		case "failed":
			output.Summary.Failed = 1
		case "skipped":
			output.Summary.Skipped = 1
		default:
			output.Summary.Errors = 1
		}
	} else {
		output, err = runner.RunAll(path)
		if err != nil {
			return errorResult(fmt.Sprintf("run tests: %s", err)), nil
		}
	}

	data, _ := json.MarshalIndent(output, "", "  ")

	isErr := output.Summary.Failed > 0 || output.Summary.Errors > 0
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isErr,
	}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
