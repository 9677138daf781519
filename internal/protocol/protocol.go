package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"

	TypeGetCell      = "GET_CELL"
	TypeSetCell      = "SET_CELL"
	TypeChunksWithin = "CHUNKS_WITHIN"
	TypePutEntity    = "PUT_ENTITY"
	TypeRemoveEntity = "REMOVE_ENTITY"
	TypeEntitiesAt   = "ENTITIES_AT"
	TypePersist      = "PERSIST"
	TypeUnpersist    = "UNPERSIST"
	TypeUnloadArea   = "UNLOAD_AREA"
	TypeFocus        = "FOCUS"
	TypeFlush        = "FLUSH"
	TypeStats        = "STATS"

	TypeResult = "RESULT"
	TypeError  = "ERROR"
)

var requestTypes = map[string]struct{}{
	TypeGetCell:      {},
	TypeSetCell:      {},
	TypeChunksWithin: {},
	TypePutEntity:    {},
	TypeRemoveEntity: {},
	TypeEntitiesAt:   {},
	TypePersist:      {},
	TypeUnpersist:    {},
	TypeUnloadArea:   {},
	TypeFocus:        {},
	TypeFlush:        {},
	TypeStats:        {},
}

func IsRequestType(t string) bool {
	_, ok := requestTypes[t]
	return ok
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ReqID           string `json:"req_id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
