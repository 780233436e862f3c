// Package validate implements the module lint pipeline:
// structural → semantic → domain.
package validate

import (
	"fmt"

	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// ValidationError represents one error or warning from the validation pipeline.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s at %s", e.Phase, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
}

func errorf(phase, path, msg string, args ...any) *ValidationError {
	return &ValidationError{
		Phase:    phase,
		Path:     path,
		Message:  fmt.Sprintf(msg, args...),
		Severity: "error",
	}
}

func warningf(phase, path, msg string, args ...any) *ValidationError {
	return &ValidationError{
		Phase:    phase,
		Path:     path,
		Message:  fmt.Sprintf(msg, args...),
		Severity: "warning",
	}
}

// ValidateFile runs the full 3-phase pipeline on a module file.
func ValidateFile(path string) (*schema.Module, []*ValidationError) {
	// Phase 1: Structural (strict YAML decode)
	m, err := schema.LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{errorf("structural", "", "failed to load: %s", err)}
	}
	return m, ValidateModule(m)
}

// ValidateModule runs phases 2+3 on an already-loaded module.
func ValidateModule(m *schema.Module) []*ValidationError {
	var errs []*ValidationError
	errs = append(errs, validateSemantic(m)...)
	// Domain rules walk iteration order, which needs valid order values.
	if HasErrors(errs) {
		return errs
	}
	errs = append(errs, validateDomain(m)...)
	return errs
}

// HasErrors reports whether errs holds anything of error severity.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

// Split separates errors from warnings, keeping order.
func Split(errs []*ValidationError) (errors, warnings []*ValidationError) {
	for _, e := range errs {
		if e.Severity == "warning" {
			warnings = append(warnings, e)
		} else {
			errors = append(errors, e)
		}
	}
	return errors, warnings
}

func stepPath(si int) string {
	return fmt.Sprintf("steps[%d]", si)
}

func groupPath(si, gi int) string {
	return fmt.Sprintf("steps[%d].groups[%d]", si, gi)
}

func optionPath(si, gi, oi int) string {
	return fmt.Sprintf("steps[%d].groups[%d].options[%d]", si, gi, oi)
}
