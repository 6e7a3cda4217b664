package errors

import (
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitScoreGated = 2
)

// DuplicatePluginError is returned when two plugins with the same name are resolved together.
type DuplicatePluginError struct {
	Name string
}

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("plugin %q is registered more than once", e.Name)
}

// InvalidPluginError reports a malformed plugin declaration.
type InvalidPluginError struct {
	Plugin string
	Reason error
}

func (e *InvalidPluginError) Error() string {
	return fmt.Sprintf("plugin %q is invalid: %v", e.Plugin, e.Reason)
}

func (e *InvalidPluginError) Unwrap() error { return e.Reason }

// RuleError is a runtime failure isolated to one rule invocation.
// File is empty for rules that do not run per file.
type RuleError struct {
	RuleID string
	File   string
	Err    error
}

func (e *RuleError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("rule %q failed: %v", e.RuleID, e.Err)
	}
	return fmt.Sprintf("rule %q failed on %q: %v", e.RuleID, e.File, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// NewRuleError wraps a failure of ruleID on file.
func NewRuleError(ruleID, file string, err error) *RuleError {
	return &RuleError{RuleID: ruleID, File: file, Err: err}
}

// CommandError carries the exit code a command wants the process to end with.
type CommandError struct {
	ExitCode    int
	CommonError string
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError from err.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
	}
}
