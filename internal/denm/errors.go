package denm

import "errors"

var (
	// ErrInvalidField marks a value outside its ASN.1 constraint range.
	ErrInvalidField = errors.New("denm: field out of range")
	// ErrTimestampBeforeEpoch marks a wall-clock time before 2004-01-01 UTC.
	ErrTimestampBeforeEpoch = errors.New("denm: timestamp before ITS epoch (2004-01-01)")
	// ErrWrongMessageType marks a decoded PDU whose messageID is not DENM.
	ErrWrongMessageType = errors.New("denm: wrong message type")
	// ErrDecodeFailed marks any malformed UPER payload.
	ErrDecodeFailed = errors.New("denm: UPER decode failed")
	// ErrMissingRequired marks JSON input lacking a mandatory field.
	ErrMissingRequired = errors.New("denm: missing required field")
)
