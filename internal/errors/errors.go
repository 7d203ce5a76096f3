package errors

import "errors"

// Orchestration errors.
var (
	ErrSyncInProgress  = errors.New("a sync run is already in progress")
	ErrMissingIdentity = errors.New("no user identity configured")
)

// Server/transport errors.
var (
	ErrAPIRequest  = errors.New("API request failed")
	ErrAPIResponse = errors.New("unexpected API response")
)
