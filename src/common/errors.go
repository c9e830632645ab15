package common

import "fmt"

// StoreErrType enumerates the reasons a windowed map or an event store can
// refuse an operation.
type StoreErrType uint32

const (
	// KeyNotFound ...
	KeyNotFound StoreErrType = iota
	// TooLate is returned when an item is older than the current window.
	TooLate
	// UnknownParticipant ...
	UnknownParticipant
	// Empty ...
	Empty
	// KeyAlreadyExists ...
	KeyAlreadyExists
	// Corrupted is returned when a persisted item cannot be decoded.
	Corrupted
	// Closed is returned by stores that have already been closed.
	Closed
)

// StoreErr ...
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case TooLate:
		m = "Too Late"
	case UnknownParticipant:
		m = "Unknown Participant"
	case Empty:
		m = "Empty"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Corrupted:
		m = "Corrupted"
	case Closed:
		m = "Closed"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code. Wrapped errors are unwrapped.
func IsStore(err error, t StoreErrType) bool {
	for err != nil {
		if storeErr, ok := err.(StoreErr); ok {
			return storeErr.errType == t
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
