package entity

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrTransport marks failures of the queue or the storage backends.
	ErrTransport = errors.New("transport error")

	ErrMalformedMessage = errors.New("malformed purchase message")

	// ErrInvalidRecipient is returned by e-mail senders for an address that
	// can never be delivered to.
	ErrInvalidRecipient = errors.New("invalid recipient")
)
