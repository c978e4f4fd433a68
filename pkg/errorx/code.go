package errorx

type Code int

var Unknown = Error{Code: 100000, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010

	// State-conflict codes. The request was well-formed but the current
	// record or chain state forbids the operation.
	StateConflict         Code = 200001
	InsufficientSupply    Code = 200002
	InsufficientInventory Code = 200003

	// Chain-interaction codes. ChainUnknownOutcome means no receipt was
	// observed in time; the write may still land and must not be retried
	// blindly.
	ChainReverted       Code = 300001
	ChainUnknownOutcome Code = 300002
	ChainLedgerDiverged Code = 300003
)
