package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/backpack/internal/client/api"
	"github.com/dmitrijs2005/backpack/internal/client/services"
	"github.com/dmitrijs2005/backpack/internal/common"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the server or the sync rejected the operation
	ExitCommandError = 2 // bad arguments or configuration
	ExitAuth         = 3 // login required
	ExitOffline      = 4 // the server could not be reached
)

// ExitError is an error with a process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Errors without one are
// classified by their cause.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, common.ErrNotLoggedIn), errors.Is(err, common.ErrReauthorize), errors.Is(err, api.ErrUnauthorized):
		return ExitAuth
	case errors.Is(err, common.ErrOnlineOnly), errors.Is(err, common.ErrOfflineDeclined),
		errors.Is(err, common.ErrSyncInterrupted), api.IsConnectivity(err):
		return ExitOffline
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrorNotFound),
		errors.Is(err, services.ErrTitleRequired), errors.Is(err, common.ErrAttachmentTooBig):
		return ExitCommandError
	default:
		return ExitFailure
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; keeps JSON output on Writer clean
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of CLIResponse.
type CLIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Render writes data as JSON, or calls text for human-readable output.
func (f *OutputFormatter) Render(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Success prints data with its default formatting.
func (f *OutputFormatter) Success(data any) error {
	return f.Render(data, func(w io.Writer) { fmt.Fprintln(w, data) })
}

// Error reports err in the configured format.
func (f *OutputFormatter) Error(err error) error {
	code := GetExitCode(err)

	var details any
	var apiErr *api.Error
	if errors.As(err, &apiErr) && len(apiErr.FieldErrors()) > 0 {
		details = apiErr.FieldErrors()
	}

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: err.Error(), Details: details},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error: %s\n", err)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line in verbose mode.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
