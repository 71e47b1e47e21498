// Package buildid identifies the running binary so staged artifacts written
// by a different build can be recognised as stale.
package buildid

import (
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mensylisir/xmrecipe/file"
)

// Length is the number of hex characters kept from the binary hash.
const Length = 12

// ID is a per-build identifier. It carries no security meaning.
type ID string

func (id ID) String() string { return string(id) }

// Compute hashes the current executable. When the executable cannot be read
// it falls back to a random value, which makes every staged entry a miss for
// this process.
func Compute() ID {
	if exe, err := os.Executable(); err == nil {
		if sum, err := file.FileMD5(exe); err == nil && len(sum) >= Length {
			return ID(sum[:Length])
		}
	}
	return Random()
}

// Random returns a fresh identifier not tied to any binary.
func Random() ID {
	return ID(strings.ReplaceAll(uuid.NewString(), "-", "")[:Length])
}
