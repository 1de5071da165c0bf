// Package idgen generates component IDs.
//
// The canvas never reuses an ID, including across paste operations, so every
// strategy here must be collision-free for the lifetime of a document.
package idgen

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Composite returns a Generator producing "<base36 unix millis>-<random>"
// IDs, with randLen base-36 random characters.
func Composite(randLen int) Generator {
	return func() string {
		buf := make([]byte, randLen)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + string(buf)
	}
}

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Sequence returns a deterministic Generator: prefix-1, prefix-2, ...
// Intended for tests and fixtures.
func Sequence(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// ByName returns the generator configured as name: "composite" (the
// default) or "uuid7".
func ByName(name string) (Generator, error) {
	switch name {
	case "", "composite":
		return Composite(9), nil
	case "uuid7":
		return UUIDv7(), nil
	}
	return nil, fmt.Errorf("unknown id generator %q (want composite or uuid7)", name)
}

// Default is the timestamp+random composite used by the editor.
var Default Generator = Composite(9)

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
