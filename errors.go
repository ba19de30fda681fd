// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package bbsmech

import (
	"fmt"

	"github.com/pkg/errors"
)

// CredentialErrorKind identifies which step of credential derivation failed.
type CredentialErrorKind uint8

const (
	// FetchFailed means the landing page could not be retrieved: transport
	// failure, or a non-2xx response.
	FetchFailed CredentialErrorKind = iota + 1

	// ElementNotFound means the landing page had no BBS iframe. The page
	// shape has probably changed.
	ElementNotFound

	// MalformedURL means the iframe was there, but its src attribute was
	// missing or wasn't a URL.
	MalformedURL

	// MissingCredential means the iframe URL had no query parameters.
	MissingCredential
)

func (k CredentialErrorKind) String() string {
	switch k {
	case FetchFailed:
		return "fetch failed"
	case ElementNotFound:
		return "element not found"
	case MalformedURL:
		return "malformed url"
	case MissingCredential:
		return "missing credential"
	default:
		return fmt.Sprintf("CredentialErrorKind(%d)", uint8(k))
	}
}

// CredentialError is returned when a posting credential can't be derived from
// the board's landing page.
type CredentialError struct {
	Kind CredentialErrorKind
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Err == nil {
		return "credential: " + e.Kind.String()
	}

	return "credential: " + e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CredentialError) Unwrap() error { return e.Err }

// Cause satisfies the github.com/pkg/errors causer interface.
func (e *CredentialError) Cause() error { return e.Err }

// TransportError is returned by Submit when the post could not be made. This
// includes failing to derive a credential: from the caller's point of view
// both mean "could not post". Use errors.As to get at a *CredentialError.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// Cause satisfies the github.com/pkg/errors causer interface.
func (e *TransportError) Cause() error { return e.Err }

// IsCredentialError reports whether err, or anything it wraps, is a
// *CredentialError of the given kind.
func IsCredentialError(err error, kind CredentialErrorKind) bool {
	var ce *CredentialError
	return errors.As(err, &ce) && ce.Kind == kind
}
