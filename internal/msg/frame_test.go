package msg

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

// frame wraps a JSON body in the length-prefixed wire format.
func frame(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(body)))
	buf.Write(prefix[:])
	buf.WriteString(body)
	return buf.Bytes()
}

func TestReadRequestInit(t *testing.T) {
	input := frame(t, `{"type":"init","repo_path":"/tmp/test"}`)
	req, err := ReadRequest(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRequest() failed: %v", err)
	}
	if req.Type != TypeInit {
		t.Errorf("Type = %q, want %q", req.Type, TypeInit)
	}
	if req.RepoPath != "/tmp/test" {
		t.Errorf("RepoPath = %q", req.RepoPath)
	}
	if req.RepoURL != "" {
		t.Errorf("RepoURL = %q, want empty", req.RepoURL)
	}
}

func TestReadRequestWrite(t *testing.T) {
	input := frame(t, `{"type":"write","data":{"jsonapi":{"version":"1.1"},"data":[]}}`)
	req, err := ReadRequest(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRequest() failed: %v", err)
	}
	if req.Type != TypeWrite {
		t.Errorf("Type = %q, want %q", req.Type, TypeWrite)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(req.Data, &payload); err != nil {
		t.Fatalf("Data is not valid JSON: %v", err)
	}
	if _, ok := payload["jsonapi"]; !ok {
		t.Error("Data lost the jsonapi member")
	}
}

func TestReadRequestAuth(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		meth  AuthMethod
		token string
	}{
		{"oauth", `{"type":"auth","method":"oauth"}`, AuthOAuth, ""},
		{"pat", `{"type":"auth","method":"pat","token":"ghp_test123"}`, AuthPAT, "ghp_test123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ReadRequest(bytes.NewReader(frame(t, tc.body)))
			if err != nil {
				t.Fatalf("ReadRequest() failed: %v", err)
			}
			if req.Method != tc.meth {
				t.Errorf("Method = %q, want %q", req.Method, tc.meth)
			}
			if req.Token != tc.token {
				t.Errorf("Token = %q, want %q", req.Token, tc.token)
			}
		})
	}
}

func TestReadRequestTooLarge(t *testing.T) {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], 2_000_000)
	_, err := ReadRequest(bytes.NewReader(prefix[:]))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ReadRequest() error = %v, want ErrMessageTooLarge", err)
	}
}

func TestReadRequestInvalidJSON(t *testing.T) {
	if _, err := ReadRequest(bytes.NewReader(frame(t, "not valid json"))); err == nil {
		t.Error("expected error for invalid JSON body")
	}
}

func TestReadRequestCleanEOF(t *testing.T) {
	_, err := ReadRequest(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("ReadRequest() on empty stream = %v, want io.EOF", err)
	}
}

func TestReadRequestTruncatedBody(t *testing.T) {
	input := frame(t, `{"type":"status"}`)
	_, err := ReadRequest(bytes.NewReader(input[:len(input)-5]))
	if err == nil || err == io.EOF {
		t.Errorf("ReadRequest() on truncated frame = %v, want a framing error", err)
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, Success("Bookmarks saved and synced", nil)); err != nil {
		t.Fatalf("WriteResponse() failed: %v", err)
	}

	out := buf.Bytes()
	length := binary.LittleEndian.Uint32(out[:4])
	if int(length) != len(out)-4 {
		t.Errorf("length prefix = %d, body is %d bytes", length, len(out)-4)
	}

	var resp Response
	if err := json.Unmarshal(out[4:], &resp); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if resp.Type != KindSuccess {
		t.Errorf("Type = %q, want %q", resp.Type, KindSuccess)
	}
	if resp.Message != "Bookmarks saved and synced" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestWriteResponseOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, Error("ERR_GIT_PUSH", "Failed to push")); err != nil {
		t.Fatalf("WriteResponse() failed: %v", err)
	}
	body := string(buf.Bytes()[4:])
	for _, field := range []string{"data", "user_code", "verification_uri", "device_code"} {
		if strings.Contains(body, field) {
			t.Errorf("error response %q should omit %q", body, field)
		}
	}
	if !strings.Contains(body, `"code":"ERR_GIT_PUSH"`) {
		t.Errorf("error response %q missing code", body)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	original := AuthFlow("ABCD-1234", "https://github.com/login/device", "device123")

	var buf bytes.Buffer
	if err := WriteResponse(&buf, original); err != nil {
		t.Fatalf("WriteResponse() failed: %v", err)
	}

	var got Response
	if err := json.Unmarshal(buf.Bytes()[4:], &got); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if got.Type != KindAuthFlow || got.UserCode != "ABCD-1234" || got.DeviceCode != "device123" {
		t.Errorf("round trip = %+v", got)
	}
	if got.VerificationURI != "https://github.com/login/device" {
		t.Errorf("VerificationURI = %q", got.VerificationURI)
	}
}

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"init", Request{Type: TypeInit}, false},
		{"read", Request{Type: TypeRead}, false},
		{"sync", Request{Type: TypeSync}, false},
		{"status", Request{Type: TypeStatus}, false},
		{"enable encryption", Request{Type: TypeEnableEncryption}, false},
		{"disable encryption", Request{Type: TypeDisableEncryption}, false},
		{"write with data", Request{Type: TypeWrite, Data: json.RawMessage(`{}`)}, false},
		{"write without data", Request{Type: TypeWrite}, true},
		{"auth oauth", Request{Type: TypeAuth, Method: AuthOAuth}, false},
		{"auth pat", Request{Type: TypeAuth, Method: AuthPAT, Token: "t"}, false},
		{"auth unknown method", Request{Type: TypeAuth, Method: "password"}, true},
		{"unknown type", Request{Type: "restart"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
