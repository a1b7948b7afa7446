package foedb

import (
	"errors"
	"fmt"
)

// Sentinel errors for the store client. Callers match with errors.Is.
var (
	// ErrStoreUnavailable is fatal to the client instance: the version
	// listing was empty, unreachable, or malformed.
	ErrStoreUnavailable = errors.New("foedb: store unavailable")

	// ErrNotBootstrapped means a resolution call ran before Bootstrap.
	ErrNotBootstrapped = errors.New("foedb: client not bootstrapped")

	// ErrIndexNotFound means the requested index name is absent from the
	// store metadata. Caller error, never retried.
	ErrIndexNotFound = errors.New("foedb: index not found")

	// ErrRecordOutOfRange means a sort id outside [0, total_records).
	ErrRecordOutOfRange = errors.New("foedb: record out of range")

	// ErrIndexValueNotFound means a loaded index has no entry for the
	// requested categorical value.
	ErrIndexValueNotFound = errors.New("foedb: index value not found")

	// ErrChunkFetchFailed means the transport exhausted retries fetching a
	// chunk document. Fatal to the single Resolve call; the cache is left
	// untouched.
	ErrChunkFetchFailed = errors.New("foedb: chunk fetch failed")
)

// DecodeError reports a malformed embedded related-publication row.
type DecodeError struct {
	Reason string
	Row    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("foedb: decode related publication: %s", e.Reason)
}
