package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures raised anywhere in the message pipeline
type ErrorKind string

const (
	KindUnsupportedMediaType  ErrorKind = "UNSUPPORTED_MEDIA_TYPE"
	KindMalformedPayload      ErrorKind = "MALFORMED_PAYLOAD"
	KindMissingSignaturePart  ErrorKind = "MISSING_SIGNATURE_PART"
	KindInvalidSignature      ErrorKind = "INVALID_SIGNATURE"
	KindMissingFspCode        ErrorKind = "MISSING_FSP_CODE"
	KindMissingHeaderField    ErrorKind = "MISSING_HEADER_FIELD"
	KindUnexpectedMessageType ErrorKind = "UNEXPECTED_MESSAGE_TYPE"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindUnauthorizedSender    ErrorKind = "UNAUTHORIZED_SENDER"
	KindInvalidTenure         ErrorKind = "INVALID_TENURE"
	KindDuplicateApplication  ErrorKind = "DUPLICATE_APPLICATION"
	KindDuplicateMessage      ErrorKind = "DUPLICATE_MESSAGE"
	KindUnauthorized          ErrorKind = "UNAUTHORIZED"
	KindStoreFailure          ErrorKind = "STORE_FAILURE"
)

var kindStatus = map[ErrorKind]int{
	KindUnsupportedMediaType:  http.StatusUnsupportedMediaType,
	KindMalformedPayload:      http.StatusBadRequest,
	KindMissingSignaturePart:  http.StatusBadRequest,
	KindInvalidSignature:      http.StatusUnauthorized,
	KindMissingFspCode:        http.StatusBadRequest,
	KindMissingHeaderField:    http.StatusBadRequest,
	KindUnexpectedMessageType: http.StatusBadRequest,
	KindNotFound:              http.StatusNotFound,
	KindUnauthorizedSender:    http.StatusForbidden,
	KindInvalidTenure:         http.StatusUnprocessableEntity,
	KindDuplicateApplication:  http.StatusConflict,
	KindDuplicateMessage:      http.StatusConflict,
	KindUnauthorized:          http.StatusUnauthorized,
	KindStoreFailure:          http.StatusInternalServerError,
}

// Error is the gateway error carried to the endpoint boundary. Status is the
// HTTP status the failure response should use.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Status:  kindStatus[kind],
		Err:     err,
	}
}

// IsKind reports whether err (or anything it wraps) is a gateway error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind == kind
	}
	return false
}

// HTTPStatus returns the status the error asks for, defaulting to 500 when the
// error carries none or a non-positive one.
func HTTPStatus(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Status > 0 {
		return gwErr.Status
	}
	return http.StatusInternalServerError
}

// Wrap classifies an existing error under kind, keeping its message
func Wrap(kind ErrorKind, err error) *Error {
	return newError(kind, err, "%v", err)
}

func UnsupportedMediaType(contentType string) *Error {
	return newError(KindUnsupportedMediaType, nil, "unsupported content type %q: expected application/xml, text/xml or application/json", contentType)
}

func MalformedPayload(err error) *Error {
	return newError(KindMalformedPayload, err, "malformed payload: %v", err)
}

func MissingDetailField(messageType MessageType, field string) *Error {
	return newError(KindMalformedPayload, nil, "%s: MessageDetails.%s is required", messageType, field)
}

func InvalidDetailField(messageType MessageType, field string, err error) *Error {
	return newError(KindMalformedPayload, err, "%s: MessageDetails.%s is invalid: %v", messageType, field, err)
}

func MissingSignaturePart(part string) *Error {
	return newError(KindMissingSignaturePart, nil, "signed envelope is missing the %s element", part)
}

func InvalidSignature(fspCode string, err error) *Error {
	if err != nil {
		return newError(KindInvalidSignature, err, "signature verification failed for FSP %s: %v", fspCode, err)
	}
	return newError(KindInvalidSignature, nil, "signature verification failed for FSP %s", fspCode)
}

func MissingFspCode() *Error {
	return newError(KindMissingFspCode, nil, "Header.FSPCode is required")
}

func MissingHeaderField(name string) *Error {
	return newError(KindMissingHeaderField, nil, "Header.%s is required", name)
}

func UnexpectedMessageType(got MessageType, expected ...MessageType) *Error {
	return newError(KindUnexpectedMessageType, nil, "unexpected message type %s: endpoint accepts %v", got, expected)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func UnauthorizedSender(sender string, messageType MessageType) *Error {
	return newError(KindUnauthorizedSender, nil, "sender %s is not allowed to send %s", sender, messageType)
}

func InvalidTenure(tenure int) *Error {
	return newError(KindInvalidTenure, nil, "tenure must be greater than zero, got %d", tenure)
}

func DuplicateApplication(applicationNumber string) *Error {
	return newError(KindDuplicateApplication, nil, "loan application %s already exists", applicationNumber)
}

func DuplicateMessage(fspCode, msgID, reason string) *Error {
	return newError(KindDuplicateMessage, nil, "message %s from FSP %s %s", msgID, fspCode, reason)
}

func Unauthorized(reason string) *Error {
	return newError(KindUnauthorized, nil, "%s", reason)
}

func StoreFailure(op string, err error) *Error {
	return newError(KindStoreFailure, err, "%s: %v", op, err)
}
