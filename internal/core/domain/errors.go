package domain

import "errors"

// Not-found errors abort a validate call entirely; they are input errors,
// never alerts. Handlers map them to 404 responses.
var (
	ErrClientNotFound = errors.New("client not found")
	ErrFoodNotFound   = errors.New("food not found")
)
