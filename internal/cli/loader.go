package cli

import (
	"errors"
	"fmt"
	"os"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/labrun/internal/commandset"
	"github.com/roach88/labrun/internal/dispatch"
	"github.com/roach88/labrun/internal/protocol"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeFormat      = "E003" // Unsupported protocol file extension
	ErrCodeLoadFailed  = "E004" // Protocol could not be decoded
	ErrCodeSchema      = "E005" // No command set for the schema version
	ErrCodeStore       = "E006" // Journal could not be opened or read
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodePreflight   = "E_PREFLIGHT"
	ErrCodeRunFailed   = "E_RUN_FAILED"
	ErrCodeReplay      = "E_REPLAY_MISMATCH"
	ErrCodeTestFailed  = "E_TEST_FAILED"
	ErrCodeRunNotFound = "E_RUN_NOT_FOUND"
)

// LoadError represents an error that occurred while loading a protocol.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult is a decoded protocol plus the registry for its schema version.
type LoadResult struct {
	Document *protocol.Document
	Registry *dispatch.Registry
	Format   protocol.Format
}

// LoadProtocol reads the protocol at path and builds its command registry.
// Every failure is a *LoadError.
func LoadProtocol(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("protocol not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing protocol: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("is a directory: %s", path)}
	}

	format, err := protocol.FormatForPath(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeFormat, Message: err.Error()}
	}

	doc, err := protocol.Load(path)
	if err != nil {
		return nil, convertLoadError(err)
	}

	registry, err := commandset.ForDocument(doc)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: err.Error()}
	}

	return &LoadResult{Document: doc, Registry: registry, Format: format}, nil
}

// convertLoadError keeps the first CUE position when the decoder reports one.
func convertLoadError(err error) *LoadError {
	loadErr := &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// loadErrorCode extracts the CLI code from a loader failure.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
