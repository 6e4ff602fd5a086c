// ABOUTME: Diagnostics list for program load/link failures
// ABOUTME: Ordered messages with severity, usable as a plain error

package performer

import "strings"

// Severity classifies one diagnostic message.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one message produced while resolving or linking a program.
type Diagnostic struct {
	Severity Severity
	Message  string
}

// Diagnostics collects the messages of one Load or Link attempt in order.
// The zero value is ready to use. It implements error so callers can
// surface a failed attempt directly.
type Diagnostics struct {
	messages []Diagnostic
}

// AddError appends an error-severity message.
func (d *Diagnostics) AddError(msg string) {
	d.messages = append(d.messages, Diagnostic{Severity: SeverityError, Message: msg})
}

// AddWarning appends a warning-severity message.
func (d *Diagnostics) AddWarning(msg string) {
	d.messages = append(d.messages, Diagnostic{Severity: SeverityWarning, Message: msg})
}

// HasErrors reports whether any message is error severity.
func (d *Diagnostics) HasErrors() bool {
	for _, m := range d.messages {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Messages returns the collected messages in arrival order.
func (d *Diagnostics) Messages() []Diagnostic {
	return d.messages
}

// Error renders all messages on one line, severity-prefixed.
func (d *Diagnostics) Error() string {
	if len(d.messages) == 0 {
		return "no diagnostics"
	}
	parts := make([]string, len(d.messages))
	for i, m := range d.messages {
		parts[i] = m.Severity.String() + ": " + m.Message
	}
	return strings.Join(parts, "; ")
}
