package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/output"
	"featuremap/internal/validation"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatJSON, FormatHuman:
		return OutputFormat(s), nil
	default:
		return "", ferrors.Newf(ferrors.ConfigInvalid, "unsupported format: %s (use json or human)", s)
	}
}

// printResult writes v as deterministic JSON, or through human when the
// human format is selected.
func printResult(w io.Writer, v interface{}, human func(io.Writer)) error {
	if OutputFormat(formatFlag) == FormatHuman && human != nil {
		human(w)
		return nil
	}
	data, err := output.DeterministicEncodeIndented(v, "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// errorResponse is the JSON shape of a failed run.
type errorResponse struct {
	Code           ferrors.ErrorCode   `json:"code"`
	Message        string              `json:"message"`
	Errors         []string            `json:"errors,omitempty"`
	Details        interface{}         `json:"details,omitempty"`
	SuggestedFixes []ferrors.FixAction `json:"suggestedFixes,omitempty"`
}

func toErrorResponse(err error) errorResponse {
	resp := errorResponse{Code: ferrors.InternalError, Message: err.Error()}

	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Code = ferrors.Consistency
		resp.Message = fmt.Sprintf("%d validation errors", len(verr.Errors))
		resp.Errors = verr.Errors
		return resp
	}
	var fe *ferrors.Error
	if errors.As(err, &fe) {
		resp.Code = fe.Code
		resp.Details = fe.Details
		resp.SuggestedFixes = fe.SuggestedFixes
	}
	return resp
}

// printError reports err on w in the selected format.
func printError(w io.Writer, err error, format OutputFormat) {
	resp := toErrorResponse(err)
	if format == FormatJSON {
		data, encErr := output.DeterministicEncodeIndented(map[string]interface{}{"error": resp}, "  ")
		if encErr == nil {
			_, _ = fmt.Fprintln(w, string(data))
			return
		}
	}

	if len(resp.Errors) > 0 {
		_, _ = fmt.Fprintln(w, strings.Join(resp.Errors, "\n\n"))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %s\n", resp.Message)
	for _, fix := range resp.SuggestedFixes {
		switch {
		case fix.Command != "":
			_, _ = fmt.Fprintf(w, "  Try: %s\n", fix.Command)
		case fix.Path != "":
			_, _ = fmt.Fprintf(w, "  Edit: %s (%s)\n", fix.Path, fix.Description)
		}
	}
}
