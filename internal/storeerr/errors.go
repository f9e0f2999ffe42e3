// Package storeerr defines the domain error taxonomy. Services wrap these
// sentinels with context via fmt.Errorf("%w: ..."); the API layer maps them
// to HTTP status codes with errors.Is.
package storeerr

import "errors"

var (
	// ErrNotFound reports a product, cart item, order, address or review
	// lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports malformed input such as a non-positive
	// quantity or price.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock reports a reserve request exceeding the
	// product's current stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrIllegalTransition reports an order status change the lifecycle
	// state machine forbids.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrEmptyOrder reports an order or checkout attempt with no line items.
	ErrEmptyOrder = errors.New("order has no items")

	// ErrConflict reports a uniqueness violation, e.g. a duplicate email,
	// category name or per-user product review.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized reports a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden reports an authenticated caller acting outside their
	// ownership scope or privilege level.
	ErrForbidden = errors.New("forbidden")
)
