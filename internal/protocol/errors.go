package protocol

const (
	// Transport/envelope validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Coordinator rejections. These are soft outcomes, not faults: the
	// operation returns false and the caller is expected to adapt.
	ErrAtCapacity     = "E_AT_CAPACITY"
	ErrDuplicateBot   = "E_DUPLICATE_BOT"
	ErrUnknownBot     = "E_UNKNOWN_BOT"
	ErrUnknownKey     = "E_UNKNOWN_KEY"
	ErrAlreadyClaimed = "E_ALREADY_CLAIMED"
	ErrPathConflict   = "E_PATH_CONFLICT"
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrAtCapacity:      {},
	ErrDuplicateBot:    {},
	ErrUnknownBot:      {},
	ErrUnknownKey:      {},
	ErrAlreadyClaimed:  {},
	ErrPathConflict:    {},
	ErrBadRequest:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
