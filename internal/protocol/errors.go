package protocol

import "infinimap.ai/internal/chunkmap"

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownEntity = "E_UNKNOWN_ENTITY"
	ErrInternal      = "E_INTERNAL"

	// Map engine.
	ErrConfiguration    = string(chunkmap.CodeConfiguration)
	ErrCapacityExceeded = string(chunkmap.CodeCapacityExceeded)
	ErrIndexOutOfRange  = string(chunkmap.CodeIndexOutOfRange)
	ErrEntityNotTracked = string(chunkmap.CodeEntityNotTracked)
	ErrInvalidStep      = string(chunkmap.CodeInvalidStep)
	ErrChunkNotLoaded   = string(chunkmap.CodeChunkNotLoaded)
	ErrPartialLocation  = string(chunkmap.CodePartialLocation)
	ErrCallback         = string(chunkmap.CodeCallback)
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrUnknownEntity:    {},
	ErrInternal:         {},
	ErrConfiguration:    {},
	ErrCapacityExceeded: {},
	ErrIndexOutOfRange:  {},
	ErrEntityNotTracked: {},
	ErrInvalidStep:      {},
	ErrChunkNotLoaded:   {},
	ErrPartialLocation:  {},
	ErrCallback:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps a map engine error to its wire code; anything else is internal.
func CodeFor(err error) string {
	if c := chunkmap.CodeOf(err); c != "" {
		return string(c)
	}
	return ErrInternal
}
