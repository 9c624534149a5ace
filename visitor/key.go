package visitor

import (
	"strconv"
	"strings"

	"github.com/imlitech/split/types"
)

// Key is the parsed form of a per-visitor key.
//
// The string layout is "<base>[:<version>][:finished]".
type Key struct {
	Base       string
	Version    int
	HasVersion bool
	Finished   bool
}

// ParseKey splits a visitor key into its parts.
//
// A trailing ":finished" is stripped first, then a trailing all-digit
// segment is taken as the version.
func ParseKey(raw string) Key {
	var k Key

	if base, ok := strings.CutSuffix(raw, ":"+types.FinishedSuffix); ok {
		k.Finished = true
		raw = base
	}

	if i := strings.LastIndexByte(raw, ':'); i >= 0 && isDigits(raw[i+1:]) {
		if v, err := strconv.Atoi(raw[i+1:]); err == nil {
			k.Version = v
			k.HasVersion = true
			raw = raw[:i]
		}
	}
	k.Base = raw

	return k
}

// KeyFor returns the assignment key of exp's current version.
func KeyFor(exp *types.Experiment) Key {
	return Key{Base: exp.Name, Version: exp.Version, HasVersion: exp.Version > 0}
}

// String renders the key in its external layout.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Base)
	if k.HasVersion {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(k.Version))
	}
	if k.Finished {
		b.WriteByte(':')
		b.WriteString(types.FinishedSuffix)
	}

	return b.String()
}

// Assignment returns the assignment key this key belongs to.
func (k Key) Assignment() Key {
	k.Finished = false

	return k
}

// FinishedFlag returns the completion flag key of this assignment.
func (k Key) FinishedFlag() Key {
	k.Finished = true

	return k
}

// SameVersion reports whether k addresses exp's current version.
// An unversioned key matches only an experiment that was never re-versioned.
func (k Key) SameVersion(exp *types.Experiment) bool {
	if !k.HasVersion {
		return exp.Version == 0
	}

	return k.Version == exp.Version
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
