package errors

import "github.com/pkg/errors"

var (
	// connection errors
	ErrNoConnection     = errors.New("no active connection")
	ErrConnectionFailed = errors.New("connection failed")

	// sync errors
	ErrSyncInProgress  = errors.New("sync already in progress")
	ErrAccountNotFound = errors.New("account not found")

	// message errors
	ErrFetchFailed = errors.New("message fetch failed")
	ErrStoreFailed = errors.New("message store failed")
)
