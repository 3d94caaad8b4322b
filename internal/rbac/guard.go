package rbac

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrForbidden = errors.New("forbidden")

type Mode int

const (
	All Mode = iota
	Any
)

func hasWildcard(granted []string) bool {
	return slices.Contains(granted, Wildcard)
}

// RequireAll is true when every required permission is granted or the wildcard is held.
func RequireAll(granted, required []string) bool {
	if hasWildcard(granted) {
		return true
	}
	for _, r := range required {
		if !slices.Contains(granted, r) {
			return false
		}
	}
	return true
}

// RequireAny is true when at least one required permission is granted or the wildcard is held.
// An empty required set is never satisfied without the wildcard.
func RequireAny(granted, required []string) bool {
	if hasWildcard(granted) {
		return true
	}
	for _, r := range required {
		if slices.Contains(granted, r) {
			return true
		}
	}
	return false
}

func Authorize(granted []string, mode Mode, required ...string) error {
	var ok bool
	switch mode {
	case Any:
		ok = RequireAny(granted, required)
	default:
		ok = RequireAll(granted, required)
	}
	if !ok {
		return fmt.Errorf("%w: requires %s", ErrForbidden, strings.Join(required, ", "))
	}
	return nil
}
