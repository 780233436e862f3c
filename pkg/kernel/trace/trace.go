// Package trace implements the wizard's append-only JSONL event log.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventType enumerates all wizard trace event types.
type EventType string

const (
	EventWizardStart           EventType = "wizard_start"
	EventOptionToggled         EventType = "option_toggled"
	EventConstraintReverted    EventType = "constraint_reverted"
	EventOptionAutoCorrected   EventType = "option_auto_corrected"
	EventStepVisibilityChanged EventType = "step_visibility_changed"
	EventStepEntered           EventType = "step_entered"
	EventReadyToInstall        EventType = "ready_to_install"
	EventSelectionApplied      EventType = "selection_applied"
	EventSelectionSkipped      EventType = "selection_skipped"
	EventPlanBuilt             EventType = "plan_built"
)

// Event is a single trace event written to the JSONL stream.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer writes trace events to an append-only JSONL stream.
// A nil *Writer discards every event.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	runID string
	enc   *json.Encoder
	hook  func(Event)
}

// NewWriter creates a trace writer that writes to the given io.Writer.
func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{
		w:     w,
		runID: runID,
		enc:   json.NewEncoder(w),
	}
}

// NewFileWriter creates a trace writer that appends to a JSONL file.
func NewFileWriter(path, runID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewWriter(f, runID), nil
}

// SetHook registers a function called with every emitted event, after it
// has been written.
func (tw *Writer) SetHook(fn func(Event)) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.hook = fn
}

// Emit writes a single trace event.
func (tw *Writer) Emit(eventType EventType, data map[string]any) error {
	if tw == nil {
		return nil
	}
	tw.mu.Lock()
	evt := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     tw.runID,
		Data:      data,
	}
	err := tw.enc.Encode(evt)
	hook := tw.hook
	tw.mu.Unlock()

	if hook != nil {
		hook(evt)
	}
	return err
}

// EmitWizardStart emits a wizard_start event.
func (tw *Writer) EmitWizardStart(module string, steps, visible int) error {
	return tw.Emit(EventWizardStart, map[string]any{
		"module":        module,
		"steps":         steps,
		"visible_steps": visible,
	})
}

// EmitOptionToggled emits an option_toggled event.
func (tw *Writer) EmitOptionToggled(option string, selected bool) error {
	return tw.Emit(EventOptionToggled, map[string]any{
		"option":   option,
		"selected": selected,
	})
}

// EmitConstraintReverted emits a constraint_reverted event when a group rule
// undid a requested change.
func (tw *Writer) EmitConstraintReverted(option, groupType string, requested bool) error {
	return tw.Emit(EventConstraintReverted, map[string]any{
		"option":     option,
		"group_type": groupType,
		"requested":  requested,
	})
}

// EmitOptionAutoCorrected emits an option_auto_corrected event.
func (tw *Writer) EmitOptionAutoCorrected(option, category string, selected bool) error {
	return tw.Emit(EventOptionAutoCorrected, map[string]any{
		"option":   option,
		"category": category,
		"selected": selected,
	})
}

// EmitStepVisibilityChanged emits a step_visibility_changed event.
func (tw *Writer) EmitStepVisibilityChanged(step string, visible bool) error {
	return tw.Emit(EventStepVisibilityChanged, map[string]any{
		"step":    step,
		"visible": visible,
	})
}

// EmitStepEntered emits a step_entered event.
func (tw *Writer) EmitStepEntered(step string, position, visible int) error {
	return tw.Emit(EventStepEntered, map[string]any{
		"step":          step,
		"position":      position,
		"visible_steps": visible,
	})
}

// EmitReadyToInstall emits a ready_to_install event.
func (tw *Writer) EmitReadyToInstall(selected int) error {
	return tw.Emit(EventReadyToInstall, map[string]any{
		"selected_options": selected,
	})
}

// EmitSelectionApplied emits a selection_applied event.
func (tw *Writer) EmitSelectionApplied(steps, toggles int) error {
	return tw.Emit(EventSelectionApplied, map[string]any{
		"steps":   steps,
		"toggles": toggles,
	})
}

// EmitSelectionSkipped emits a selection_skipped event for a payload entry
// that targeted a disabled option.
func (tw *Writer) EmitSelectionSkipped(option string, selected bool) error {
	return tw.Emit(EventSelectionSkipped, map[string]any{
		"option":   option,
		"selected": selected,
	})
}

// EmitPlanBuilt emits a plan_built event.
func (tw *Writer) EmitPlanBuilt(files int) error {
	return tw.Emit(EventPlanBuilt, map[string]any{
		"files": files,
	})
}
