// Package id generates compact, URL-safe identifiers.
package id

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// encoding is unpadded base32 so ids stay fixed-width and copy-paste safe.
var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random 26-character lowercase base32 identifier.
//
// The underlying bytes are a UUIDv4, so ids keep standard collision
// guarantees while staying free of dashes and mixed case in URLs,
// audit entries, and logs.
func NewID() string {
	value := uuid.New()
	return strings.ToLower(encoding.EncodeToString(value[:]))
}
