package ipcproto

import "fmt"

// StatusCode is the server-side result code carried on every Response,
// independent of the transport-level error taxonomy in ipcerr (which covers
// failures the Response never arrives to report).
type StatusCode int32

const (
	StatusOK                StatusCode = 0
	StatusInvalidArgument    StatusCode = 2
	StatusNotFound           StatusCode = 5
	StatusPermissionOrPath   StatusCode = 7
	StatusFailedPrecondition StatusCode = 9
	StatusInternal           StatusCode = 13
)

var statusNames = map[StatusCode]string{
	StatusOK:                 "OK",
	StatusInvalidArgument:    "INVALID_ARGUMENT",
	StatusNotFound:           "NOT_FOUND",
	StatusPermissionOrPath:   "PERMISSION_OR_PATH",
	StatusFailedPrecondition: "FAILED_PRECONDITION",
	StatusInternal:           "INTERNAL",
}

func (s StatusCode) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("StatusCode(%d)", int32(s))
}
