package app

import "github.com/google/uuid"

// newGameID returns a random UUIDv4 used in game URLs.
func newGameID() string { return uuid.NewString() }

// NewPlayerID returns an identifier for a browser or terminal player.
func NewPlayerID() string { return uuid.NewString() }
