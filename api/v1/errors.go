package v1

import "errors"

var (
	ErrInviteCtx   = errors.New("invitation missing in context")
	ErrActionCtx   = errors.New("action missing in context")
	ErrActionJSON  = errors.New("action is required")
	ErrContentType = errors.New("Content-Type must be application/json")
)
