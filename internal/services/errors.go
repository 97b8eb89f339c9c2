// internal/services/errors.go
package services

import "errors"

// Engine errors. Handlers map these onto HTTP status codes; the services
// themselves only ever return one of these (wrapped where context helps)
// or a database error.
var (
	ErrUnauthorized          = errors.New("caller is not authorized for this operation")
	ErrNotFound              = errors.New("record not found")
	ErrNotListed             = errors.New("no active listing for this asset")
	ErrAlreadyListed         = errors.New("asset already has an active listing")
	ErrUnsupportedCollection = errors.New("collection is not supported by the market")
	ErrInvalidPrice          = errors.New("price must be greater than zero")
	ErrInvalidPayment        = errors.New("payment amount does not match the listing price")
	ErrStaleListing          = errors.New("seller no longer owns the listed asset")
	ErrFeeOutOfRange         = errors.New("fee basis points outside the allowed range")
	ErrInsufficientFunds     = errors.New("insufficient balance")
	ErrDuplicateSlug         = errors.New("collection slug already in use")
)
