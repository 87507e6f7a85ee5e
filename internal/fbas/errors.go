package fbas

import "errors"

// ErrMaxDepthExceeded reports quorum-set nesting beyond QuorumSetMaxDepth.
var ErrMaxDepthExceeded = errors.New("maximum quorum set depth exceeded")

// ParseError reports a malformed quorum-set declaration.
type ParseError string

func (e ParseError) Error() string { return "parse error: " + string(e) }

// XdrDecodingError reports an undecodable XDR buffer.
type XdrDecodingError string

func (e XdrDecodingError) Error() string { return "xdr decoding error: " + string(e) }

// InternalError reports an impossible state, i.e. a bug.
type InternalError string

func (e InternalError) Error() string { return "internal error (likely a bug): " + string(e) }
