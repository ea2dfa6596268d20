// Package perms models POSIX permission changes as the symbolic mode
// strings handed to a remote recursive chmod.
package perms

import (
	"errors"
	"strings"
)

// Change selects how a permission set is applied to the current mode.
type Change int

const (
	// Add grants the permissions in addition to the current mode.
	Add Change = iota
	// Remove revokes the permissions from the current mode.
	Remove
	// Set replaces the current mode with exactly the given permissions.
	Set
)

// Perm is a single POSIX permission bit.
type Perm int

const (
	OwnerRead Perm = iota
	OwnerWrite
	OwnerExecute
	GroupRead
	GroupWrite
	GroupExecute
	OthersRead
	OthersWrite
	OthersExecute
)

var ErrEmptyPermissions = errors.New("empty permission set")

type class struct {
	who   byte
	read  Perm
	write Perm
	exec  Perm
}

var classes = []class{
	{'u', OwnerRead, OwnerWrite, OwnerExecute},
	{'g', GroupRead, GroupWrite, GroupExecute},
	{'o', OthersRead, OthersWrite, OthersExecute},
}

// Mode renders a chmod symbolic mode for the change and permission set,
// e.g. Add + {OwnerRead, OwnerWrite, GroupRead} -> "u+rw,g+r".
// Set always emits all three classes so unlisted bits are cleared.
// Add and Remove with an empty set have no effect and are rejected.
func Mode(change Change, perms []Perm) (string, error) {
	set := make(map[Perm]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}

	var op byte
	switch change {
	case Add:
		op = '+'
	case Remove:
		op = '-'
	case Set:
		op = '='
	default:
		return "", errors.New("unknown permission change")
	}

	var clauses []string
	for _, c := range classes {
		var bits []byte
		if set[c.read] {
			bits = append(bits, 'r')
		}
		if set[c.write] {
			bits = append(bits, 'w')
		}
		if set[c.exec] {
			bits = append(bits, 'x')
		}
		if len(bits) == 0 && change != Set {
			continue
		}
		clauses = append(clauses, string(c.who)+string(op)+string(bits))
	}

	if change != Set && len(clauses) == 0 {
		return "", ErrEmptyPermissions
	}
	return strings.Join(clauses, ","), nil
}
