package httpjson

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusConflict, ErrorBody{Code: "duplicate_name", Message: "taken"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	want := `{"error":{"code":"duplicate_name","message":"taken"}}` + "\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"Alice"}`},
		{name: "unknown field", body: `{"name":"Alice","extra":1}`, wantErr: true},
		{name: "not json", body: `name=Alice`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v struct {
				Name string `json:"name"`
			}
			err := Decode(r, &v)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedBody) {
					t.Fatalf("Decode() error = %v, want ErrMalformedBody", err)
				}
				return
			}
			if err != nil || v.Name != "Alice" {
				t.Fatalf("Decode() = %+v, %v", v, err)
			}
		})
	}
}
