package protocol

import "errors"

var (
	ErrFrameTruncated  = errors.New("protocol: frame truncated")
	ErrFrameMalformed  = errors.New("protocol: malformed frame")
	ErrFrameCorrupt    = errors.New("protocol: frame corrupt")
	ErrCrcMismatch     = errors.New("protocol: crc mismatch")
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
	ErrInvalidTag      = errors.New("protocol: invalid tlv tag")
	ErrInvalidLength   = errors.New("protocol: invalid tlv length")
	ErrTLVTruncated    = errors.New("protocol: truncated tlv")
	ErrKindMismatch    = errors.New("protocol: tlv kind mismatch")
)
