package httputil

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
)

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:    "valid base64",
			input:   "SGVsbG8gV29ybGQ=",
			want:    "Hello World",
			wantErr: false,
		},
		{
			name:    "invalid base64",
			input:   "not-base64!@#",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			want:    "",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeBase64() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("DecodeBase64() = %v, want %v", string(got), tt.want)
			}
		})
	}
}

func TestEncodeBase64(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "simple string",
			input: []byte("Hello World"),
			want:  "SGVsbG8gV29ybGQ=",
		},
		{
			name:  "empty bytes",
			input: []byte{},
			want:  "",
		},
		{
			name:  "binary data",
			input: []byte{0, 1, 2, 3, 4},
			want:  "AAECAwQ=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeBase64(tt.input); got != tt.want {
				t.Errorf("EncodeBase64() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryParam(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		key          string
		defaultValue string
		want         string
	}{
		{
			name:         "param exists",
			url:          "http://example.com?key=value",
			key:          "key",
			defaultValue: "default",
			want:         "value",
		},
		{
			name:         "param missing",
			url:          "http://example.com",
			key:          "key",
			defaultValue: "default",
			want:         "default",
		},
		{
			name:         "empty param",
			url:          "http://example.com?key=",
			key:          "key",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if got := QueryParam(req, tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("QueryParam() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *int
		wantErr bool
	}{
		{name: "valid integer", url: "http://example.com?queue-length=5", want: intPtr(5)},
		{name: "negative integer", url: "http://example.com?queue-length=-3", want: intPtr(-3)},
		{name: "missing param", url: "http://example.com"},
		{name: "empty param", url: "http://example.com?queue-length="},
		{name: "invalid integer", url: "http://example.com?queue-length=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			got, err := QueryInt(req, "queue-length")
			if (err != nil) != tt.wantErr {
				t.Fatalf("QueryInt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !relayerrors.IsValidation(err) {
					t.Errorf("expected validation error, got %T", err)
				}
				return
			}
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("QueryInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com?queue-policy=drop-new&empty=", nil)
	if got := QueryString(req, "queue-policy"); got == nil || *got != "drop-new" {
		t.Errorf("QueryString(queue-policy) = %v", got)
	}
	if got := QueryString(req, "empty"); got == nil || *got != "" {
		t.Errorf("QueryString(empty) = %v, want pointer to empty string", got)
	}
	if got := QueryString(req, "missing"); got != nil {
		t.Errorf("QueryString(missing) = %v, want nil", *got)
	}
}

func TestQueryBool(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		defaultValue bool
		want         bool
		wantErr      bool
	}{
		{name: "true value", url: "http://example.com?enabled=true", want: true},
		{name: "false value", url: "http://example.com?enabled=false", defaultValue: true, want: false},
		{name: "1 value", url: "http://example.com?enabled=1", want: true},
		{name: "missing param", url: "http://example.com", defaultValue: true, want: true},
		{name: "invalid value", url: "http://example.com?enabled=maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			got, err := QueryBool(req, "enabled", tt.defaultValue)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QueryBool() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("QueryBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxBytes int64
		want     string
		wantErr  error
	}{
		{name: "normal read", body: "Hello World", maxBytes: 1024, want: "Hello World"},
		{name: "exact limit", body: "Hello", maxBytes: 5, want: "Hello"},
		{name: "over limit", body: "Hello World", maxBytes: 5, wantErr: ErrBodyTooLarge},
		{name: "empty body", body: "", maxBytes: 1024, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			got, err := ReadBody(req, tt.maxBytes)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadBody() error = %v, want %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("ReadBody() = %v, want %v", string(got), tt.want)
			}
		})
	}
}

func intPtr(i int) *int { return &i }
