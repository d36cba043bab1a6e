package id

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New generates a ULID string. ULIDs sort lexicographically by creation time,
// so message and call ids double as an ordering key.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewConnID identifies one realtime connection. Connections have no ordering
// requirement, so a random UUID is enough.
func NewConnID() string {
	return uuid.NewString()
}
