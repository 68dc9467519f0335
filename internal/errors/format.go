package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser renders an error as a short multi-line message with the
// suggestion (when present) and the code for reference. The debug flag
// adds detail key-values and the underlying cause; plain errors pass
// through unchanged.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}
	se, ok := err.(*SearchError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(se.Message)
	sb.WriteString("\n")
	if se.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(se.Suggestion)
		sb.WriteString("\n")
	}
	if debug {
		for k, v := range se.Details {
			fmt.Fprintf(&sb, "\n%s: %s", k, v)
		}
		if se.Cause != nil {
			fmt.Fprintf(&sb, "\ncause: %s", se.Cause.Error())
		}
	}
	fmt.Fprintf(&sb, "\n[%s]", se.Code)
	return sb.String()
}

// FormatForCLI renders an error in the terse indented shape the CLI
// prints to stderr on a non-zero exit.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	se, ok := err.(*SearchError)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", se.Message)
	if se.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", se.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", se.Code)
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON renders an error for machine consumption.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	se, ok := err.(*SearchError)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	out := jsonError{
		Code:       se.Code,
		Message:    se.Message,
		Category:   string(se.Category),
		Severity:   string(se.Severity),
		Details:    se.Details,
		Suggestion: se.Suggestion,
		Retryable:  se.Retryable,
	}
	if se.Cause != nil {
		out.Cause = se.Cause.Error()
	}
	return json.Marshal(out)
}

// FormatForLog flattens an error into slog-friendly key-value pairs.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}
	se, ok := err.(*SearchError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	attrs := map[string]any{
		"error_code": se.Code,
		"message":    se.Message,
		"category":   string(se.Category),
		"severity":   string(se.Severity),
		"retryable":  se.Retryable,
	}
	if se.Cause != nil {
		attrs["cause"] = se.Cause.Error()
	}
	if se.Suggestion != "" {
		attrs["suggestion"] = se.Suggestion
	}
	for k, v := range se.Details {
		attrs["detail_"+k] = v
	}
	return attrs
}
