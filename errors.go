package main

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds for requests the hub refuses.
type errorKind uint

const (
	// Missing or malformed input: required fields, bad slug, bad JSON.
	InvalidInput errorKind = iota
	// Missing, malformed or unrecognized credential.
	Unauthorized
	// Credential recognized but its tier cannot write.
	Forbidden
	// No channel with the requested slug.
	NotFound
	// A channel with the slug already exists.
	Conflict
	// Anything else; never shown to callers in detail.
	Internal
)

func (k errorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	default:
		return "internal error"
	}
}

func (k errorKind) status() int {
	switch k {
	case InvalidInput:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type hubError struct {
	kind errorKind
	msg  string
}

func (e *hubError) Error() string {
	return e.msg
}

func newError(kind errorKind, format string, args ...interface{}) error {
	return &hubError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// kindOf reports the kind of err, Internal for errors the hub did not create.
func kindOf(err error) errorKind {
	var he *hubError
	if errors.As(err, &he) {
		return he.kind
	}
	return Internal
}

var errChannelNotFound = newError(NotFound, "Channel not found")
