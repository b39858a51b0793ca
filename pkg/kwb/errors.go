package kwb

import "errors"

var (
	ErrConnection     = errors.New("kwb: connection error")
	ErrTimeout        = errors.New("kwb: timeout")
	ErrMalformedFrame = errors.New("kwb: malformed frame")
	ErrChecksum       = errors.New("kwb: checksum mismatch")
	ErrUnknownSource  = errors.New("kwb: unknown signal source")
	ErrNoData         = errors.New("kwb: no data decoded")
)
