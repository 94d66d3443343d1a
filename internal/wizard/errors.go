package wizard

import "errors"

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrCameraUnavailable   = errors.New("camera unavailable")
	ErrQRDisabled          = errors.New("qr registration disabled")
	ErrSelfieRequired      = errors.New("selfie required")
	ErrBusy                = errors.New("registration already in progress")
	ErrWrongStep           = errors.New("action not allowed in current step")
	ErrInvalidType         = errors.New("invalid record type")
	ErrCancelled           = errors.New("registration cancelled")
	ErrNotDelivered        = errors.New("record not delivered")
)
