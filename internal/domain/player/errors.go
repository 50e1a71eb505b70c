package player

import "errors"

// Sentinel kinds for player errors.
var (
	ErrInvalidPlayer = errors.New("invalid player")
)
