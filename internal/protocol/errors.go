package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Rule/action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownID     = "E_UNKNOWN_ID"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNoFunds       = "E_NO_FUNDS"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrNoStorage     = "E_NO_STORAGE"
	ErrOutOfSeason   = "E_OUT_OF_SEASON"
	ErrLevelLocked   = "E_LEVEL_LOCKED"
	ErrNotReady      = "E_NOT_READY"
	ErrQueueFull     = "E_QUEUE_FULL"
	ErrBlocked       = "E_BLOCKED"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownID:       {},
	ErrInvalidTarget:   {},
	ErrNoFunds:         {},
	ErrNoResource:      {},
	ErrNoStorage:       {},
	ErrOutOfSeason:     {},
	ErrLevelLocked:     {},
	ErrNotReady:        {},
	ErrQueueFull:       {},
	ErrBlocked:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
