package drift

import (
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

// Codespace groups the error codes registered by this package.
const Codespace = "drift"

var (
	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errorsmod.Register(Codespace, 2, "schema error")
	// ErrCompute is matched by every *ComputeError.
	ErrCompute = errorsmod.Register(Codespace, 3, "compute error")
	// ErrInput covers unreadable or malformed CSV input.
	ErrInput = errorsmod.Register(Codespace, 4, "input error")
)

// SchemaError reports every required column absent from a table, so the
// caller can fix the file in a single pass.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ComputeError reports a cell that failed to parse or a parameter that
// violates its precondition. Row is the 1-based data row in input order
// (the header is not counted) and is zero for parameter errors.
type ComputeError struct {
	Row    int
	Column string
	Param  string
	Err    error
}

func (e *ComputeError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid parameter %s: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("row %d, column %s: %v", e.Row, e.Column, e.Err)
}

func (e *ComputeError) Unwrap() []error { return []error{ErrCompute, e.Err} }
