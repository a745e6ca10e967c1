package httputil

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestGetDecodesBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") == "" {
			t.Error("missing Accept-Encoding header")
		}
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte("<html>ok</html>"))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := Get(context.Background(), NewHTTPClient(nil, 0), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "<html>ok</html>" {
		t.Fatalf("body = %q", body)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), srv.Client(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want StatusError 503", err)
	}
}

func TestPostJSONRedactsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), srv.Client(), srv.URL+"/botSECRET/sendMessage", map[string]string{"a": "b"}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v", err)
	}
	if bytes.Contains([]byte(se.Error()), []byte("SECRET")) {
		t.Fatalf("token leaked: %v", se)
	}
}
