package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures produced at the HTTP boundary.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindUnauthorized  Kind = "unauthorized"
	KindRefreshFailed Kind = "refresh_failed"
	KindNotFound      Kind = "not_found"
	KindClient        Kind = "client"
	KindServer        Kind = "server"
	KindDecode        Kind = "decode"
)

// Error is the only error type returned by Client methods. Message
// describes the failure for logs; ServerMessage is set only from a response
// body and is what users get to see.
type Error struct {
	Kind          Kind
	Message       string
	ServerMessage string
	HTTPStatus    int // 0 when no response was received
	Err           error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " (http %d)", e.HTTPStatus)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message != e.Err.Error() {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsAuthError reports whether err means the session is no longer usable.
func IsAuthError(err error) bool {
	return IsKind(err, KindUnauthorized) || IsKind(err, KindRefreshFailed)
}

// Message returns a human-readable reason for err: the server-supplied
// message when there is one, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.ServerMessage != "" {
		return apiErr.ServerMessage
	}
	return fallback
}

func kindForStatus(status int) Kind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// errorBody matches the JSON error envelope of the booking API. The message
// is either a string or a list of validation messages.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func parseErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if len(eb.Message) > 0 {
		var s string
		if err := json.Unmarshal(eb.Message, &s); err == nil && s != "" {
			return s
		}
		var list []string
		if err := json.Unmarshal(eb.Message, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return eb.Error
}

func newStatusError(status int, body []byte) *Error {
	server := parseErrorMessage(body)
	msg := server
	if msg == "" {
		msg = fmt.Sprintf("http %d", status)
	}
	return &Error{Kind: kindForStatus(status), Message: msg, ServerMessage: server, HTTPStatus: status}
}
