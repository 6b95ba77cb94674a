package relay

import "fmt"

// Code is a process exit code. The values (and the negative-integer
// convention) are part of the CLI contract.
type Code int

const (
	CodeOK             Code = 0
	CodeSyntax         Code = -1
	CodeNoDevices      Code = -2
	CodeBadSerial      Code = -3
	CodeDriverInit     Code = -4
	CodeInvalidChannel Code = -5
)

// Error is a user-facing failure carrying its exit code. The message is
// printed as a single line on stderr.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrSyntax         = &Error{Code: CodeSyntax, Message: "Syntax error"}
	ErrNoDevices      = &Error{Code: CodeNoDevices, Message: "No devices found"}
	ErrDriverInit     = &Error{Code: CodeDriverInit, Message: "Driver did not initialize"}
	ErrInvalidChannel = &Error{Code: CodeInvalidChannel, Message: "Invalid channel specified"}
)

// BadSerial reports a resolved serial number that is not present in the
// current enumeration.
func BadSerial(serial string) *Error {
	return &Error{Code: CodeBadSerial, Message: fmt.Sprintf("Serial number %s not found", serial)}
}
