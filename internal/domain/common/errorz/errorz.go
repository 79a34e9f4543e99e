package errorz

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInactive          = errors.New("qr code is inactive")
	ErrInvalidShortCode  = errors.New("invalid short code")
	ErrInvalidURL        = errors.New("invalid destination url")
	ErrLogoTooLarge      = errors.New("logo exceeds size limit")
	ErrUnsupportedLogo   = errors.New("unsupported logo reference")
	ErrLogoHostDenied    = errors.New("logo host is not allowed")
	InvalidCommandFormat = errors.New("invalid command format")
	Forbidden            = errors.New("forbidden")
)
