package jwtx

import "errors"

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and wrong
	// signing methods. Callers should not distinguish further.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	// ErrExpired reports a token past its exp (or before its nbf) claim.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrIssuer reports an issuer mismatch.
	ErrIssuer = errors.New("jwtx: unexpected issuer")

	// ErrKind reports a token presented as the wrong kind, e.g. an access
	// token offered to the refresh endpoint.
	ErrKind = errors.New("jwtx: unexpected token kind")

	// ErrWeakKey reports a signing secret below the minimum length.
	ErrWeakKey = errors.New("jwtx: signing secret too short")
)
