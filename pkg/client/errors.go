package client

import (
	"errors"
	"fmt"

	"github.com/politusanalytics/hdfs/pkg/protocol"
)

// Sentinel errors for local failure conditions.
var (
	// ErrUnreachable means every configured name-node candidate failed.
	ErrUnreachable = errors.New("all name-nodes unreachable")

	// ErrProtocol means the service answered with something that is not a
	// well-formed WebHDFS response.
	ErrProtocol = errors.New("malformed WebHDFS response")

	// ErrInvalidPath means a user-supplied path resolves outside the
	// client root.
	ErrInvalidPath = errors.New("path resolves outside client root")

	// ErrInvalidArgument means a call-site usage error, e.g. uploading a
	// directory without the recursive option.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAborted marks transfer plan entries that were never dispatched
	// because an earlier entry failed hard or the context was cancelled.
	ErrAborted = errors.New("transfer aborted")
)

// AuthError means credentials were rejected and re-negotiation (where the
// strategy supports it) did not help.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed: %s: %v", e.Reason, e.Err)
	}
	return "auth failed: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RemoteError is a semantic error reported by the service, decoded from a
// RemoteException body.
type RemoteError struct {
	Class   string // remote exception class, e.g. FileNotFoundException
	Message string
	Status  int // HTTP status of the response
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// AsRemote checks if an error is a RemoteError and returns it.
func AsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsNotFound reports whether err is a remote missing-path error.
func IsNotFound(err error) bool {
	re, ok := AsRemote(err)
	return ok && (re.Class == protocol.ExceptionFileNotFound || re.Status == 404)
}

// IsFileExists reports whether err is a remote overwrite-conflict error.
func IsFileExists(err error) bool {
	re, ok := AsRemote(err)
	return ok && re.Class == protocol.ExceptionFileAlreadyExists
}
