package domain

import "errors"

// Errors returned by the chat relay and the widget registry
var (
	ErrRateLimited     = errors.New("too many messages, slow down")
	ErrTurnInFlight    = errors.New("a reply is already being prepared for this session")
	ErrEmptyReply      = errors.New("assistant returned an empty reply")
	ErrWidgetNotFound  = errors.New("widget not found")
	ErrTooManyWidgets  = errors.New("widget capacity reached")
	ErrMissingHostPage = errors.New("attributes or html is required")
)
