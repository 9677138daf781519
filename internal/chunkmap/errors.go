package chunkmap

import (
	"errors"

	"infinimap.ai/internal/chunk"
	"infinimap.ai/internal/space"
)

var (
	ErrConfiguration    = errors.New("chunk map configuration")
	ErrEntityNotTracked = errors.New("entity not tracked by map")
	ErrChunkNotLoaded   = errors.New("chunk not loaded")

	ErrCapacityExceeded = chunk.ErrCapacityExceeded
	ErrIndexOutOfRange  = chunk.ErrIndexOutOfRange
	ErrPartialLocation  = chunk.ErrPartialLocation
	ErrInvalidStep      = space.ErrInvalidStep
)

// Code is a stable, machine-readable name for a chunk map failure.
type Code string

const (
	CodeConfiguration    Code = "E_CONFIGURATION"
	CodeCapacityExceeded Code = "E_CAPACITY_EXCEEDED"
	CodeIndexOutOfRange  Code = "E_INDEX_OUT_OF_RANGE"
	CodeEntityNotTracked Code = "E_ENTITY_NOT_TRACKED"
	CodeInvalidStep      Code = "E_INVALID_STEP"
	CodeChunkNotLoaded   Code = "E_CHUNK_NOT_LOADED"
	CodePartialLocation  Code = "E_PARTIAL_LOCATION"
	CodeCallback         Code = "E_CALLBACK"
)

var codeByErr = []struct {
	err  error
	code Code
}{
	{ErrConfiguration, CodeConfiguration},
	{ErrCapacityExceeded, CodeCapacityExceeded},
	{ErrIndexOutOfRange, CodeIndexOutOfRange},
	{ErrEntityNotTracked, CodeEntityNotTracked},
	{ErrInvalidStep, CodeInvalidStep},
	{ErrChunkNotLoaded, CodeChunkNotLoaded},
	{ErrPartialLocation, CodePartialLocation},
	{ErrCallback, CodeCallback},
}

// CodeOf maps err to its Code. Unknown errors map to "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, c := range codeByErr {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
