// Package msg implements the browser native-messaging wire protocol: each
// message is a 4-byte little-endian length prefix followed by that many
// bytes of JSON, capped at 1 MB. Requests come from the extension on
// stdin; responses go back on stdout.
package msg

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxMessageSize caps a single framed message body.
const MaxMessageSize = 1_000_000

// ErrMessageTooLarge is returned when a frame's declared length exceeds
// MaxMessageSize. The stream is unrecoverable after this; the caller
// should stop reading.
var ErrMessageTooLarge = errors.New("message too large")

// Type discriminates requests.
type Type string

const (
	TypeInit              Type = "init"
	TypeWrite             Type = "write"
	TypeRead              Type = "read"
	TypeSync              Type = "sync"
	TypeAuth              Type = "auth"
	TypeStatus            Type = "status"
	TypeEnableEncryption  Type = "enable_encryption"
	TypeDisableEncryption Type = "disable_encryption"
)

// AuthMethod selects how an auth request supplies credentials.
type AuthMethod string

const (
	// AuthOAuth starts the OAuth device flow; no token accompanies the
	// request.
	AuthOAuth AuthMethod = "oauth"

	// AuthPAT supplies a personal access token directly.
	AuthPAT AuthMethod = "pat"
)

// Request is a decoded extension message. Type selects which of the
// remaining fields are meaningful; the rest stay at their zero values.
type Request struct {
	Type Type `json:"type"`

	// Init.
	RepoPath string `json:"repo_path,omitempty"`
	RepoURL  string `json:"repo_url,omitempty"`

	// Write. Kept raw so parse failures can be reported with the proper
	// error code instead of failing the frame decode.
	Data json.RawMessage `json:"data,omitempty"`

	// Auth.
	Method AuthMethod `json:"method,omitempty"`
	Token  string     `json:"token,omitempty"`
}

// Validate checks that the request type is known and its required fields
// are present.
func (r *Request) Validate() error {
	switch r.Type {
	case TypeInit, TypeRead, TypeSync, TypeStatus, TypeEnableEncryption, TypeDisableEncryption:
		return nil
	case TypeWrite:
		if len(r.Data) == 0 {
			return errors.New("write request has no data")
		}
		return nil
	case TypeAuth:
		if r.Method != AuthOAuth && r.Method != AuthPAT {
			return fmt.Errorf("unknown auth method %q", r.Method)
		}
		return nil
	default:
		return fmt.Errorf("unknown message type %q", r.Type)
	}
}

// Response kinds.
const (
	KindSuccess  = "success"
	KindError    = "error"
	KindAuthFlow = "authflow"
)

// Response is what goes back to the extension. Exactly one kind is set in
// Type; unused fields are omitted from the JSON.
type Response struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`

	// Device-flow fields for authflow responses.
	UserCode        string `json:"user_code,omitempty"`
	VerificationURI string `json:"verification_uri,omitempty"`
	DeviceCode      string `json:"device_code,omitempty"`
}

// Success builds a success response. data may be nil.
func Success(message string, data any) Response {
	return Response{Type: KindSuccess, Message: message, Data: data}
}

// Error builds an error response with a stable code the extension can
// branch on.
func Error(code, message string) Response {
	return Response{Type: KindError, Message: message, Code: code}
}

// AuthFlow builds the device-flow handoff response. The extension shows
// the user code and verification URI to the user.
func AuthFlow(userCode, verificationURI, deviceCode string) Response {
	return Response{
		Type:            KindAuthFlow,
		UserCode:        userCode,
		VerificationURI: verificationURI,
		DeviceCode:      deviceCode,
	}
}
