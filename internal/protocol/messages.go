package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	Dimensions      int    `json:"dimensions"`
	ChunkSize       [3]int `json:"chunk_size"`
	Backend         string `json:"backend"`
}

// Pos is a world-space coordinate. 2D maps require z == 0.
type Pos [3]int64

// Cell is the wire form of a block.
type Cell struct {
	ID       uint16         `json:"id"`
	Meta     uint16         `json:"meta,omitempty"`
	Flags    uint32         `json:"flags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RequestMsg is every client request. Which fields are read depends on Type:
//
//	GET_CELL, ENTITIES_AT, PERSIST, UNPERSIST, FOCUS  pos
//	SET_CELL                                          pos, cell
//	CHUNKS_WITHIN                                     begin, end, create
//	UNLOAD_AREA                                       begin, end, outside
//	PUT_ENTITY                                        pos, entity_id or name/kind
//	REMOVE_ENTITY                                     entity_id
//	FLUSH, STATS                                      -
type RequestMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`

	Pos     *Pos  `json:"pos,omitempty"`
	Begin   *Pos  `json:"begin,omitempty"`
	End     *Pos  `json:"end,omitempty"`
	Create  bool  `json:"create,omitempty"`
	Outside bool  `json:"outside,omitempty"`
	Cell    *Cell `json:"cell,omitempty"`

	EntityID string `json:"entity_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

type ChunkRef struct {
	Coord     Pos  `json:"coord"`
	Origin    Pos  `json:"origin"`
	Persisted bool `json:"persisted,omitempty"`
	Entities  int  `json:"entities,omitempty"`
}

type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
	Pos  *Pos   `json:"pos,omitempty"`
}

type Stats struct {
	ResidentChunks int `json:"resident_chunks"`
	Cells          int `json:"cells"`
	Entities       int `json:"entities"`
	Sessions       int `json:"sessions"`
	Evicted        int `json:"evicted"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ReqID           string      `json:"req_id"`
	Cell            *Cell       `json:"cell,omitempty"`
	Chunks          []ChunkRef  `json:"chunks,omitempty"`
	Entities        []EntityRef `json:"entities,omitempty"`
	Entity          *EntityRef  `json:"entity,omitempty"`
	Evicted         *int        `json:"evicted,omitempty"`
	Stats           *Stats      `json:"stats,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewResult(reqID string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ReqID: reqID}
}

func NewError(reqID, code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ReqID: reqID, Code: code, Message: msg}
}
