package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// uploadFixture wires the three upload legs onto one router: the API
// reservation, the storage POST, and the API confirmation hit after the
// storage redirect.
func uploadFixture(t *testing.T, redirect bool) *httptest.Server {
	t.Helper()
	var base string
	r := chi.NewRouter()

	r.Post("/api/v1/folders/{folderID}/files", func(w http.ResponseWriter, req *http.Request) {
		checkAuth(t, req)
		var body struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("decode reservation: %v", err)
		}
		if body.Name != "hw3.pdf" || body.Size != 13 {
			t.Errorf("reservation = %+v", body)
		}
		writeJSON(t, w, map[string]any{
			"upload_url":    base + "/storage",
			"upload_params": map[string]string{"key": "abc123", "policy": "signed"},
		})
	})

	r.Post("/storage", func(w http.ResponseWriter, req *http.Request) {
		// The storage leg must not see the API token.
		if got := req.Header.Get("Authorization"); got != "" {
			t.Errorf("storage leg got authorization %q", got)
		}
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if req.FormValue("key") != "abc123" || req.FormValue("policy") != "signed" {
			t.Errorf("upload params = %v", req.MultipartForm.Value)
		}
		file, header, err := req.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "hw3.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.4 fake" {
			t.Errorf("file bytes = %q", data)
		}

		if redirect {
			w.Header().Set("Location", base+"/api/v1/files/55/confirm")
			w.WriteHeader(http.StatusMovedPermanently)
			return
		}
		writeJSON(t, w, File{ID: 55, UUID: "u-55", DisplayName: "hw3.pdf", Size: 13})
	})

	r.Get("/api/v1/files/{fileID}/confirm", func(w http.ResponseWriter, req *http.Request) {
		// The confirmation leg is back on the API and needs the token again.
		checkAuth(t, req)
		writeJSON(t, w, File{ID: 55, UUID: "u-55", DisplayName: "hw3.pdf", Size: 13})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	base = srv.URL
	return srv
}

func TestUploadFile(t *testing.T) {
	srv := uploadFixture(t, false)

	c := New(srv.URL, testToken)
	content := []byte("%PDF-1.4 fake")
	f, err := c.UploadFile(context.Background(), 5, "hw3.pdf", bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if f.ID != 55 || f.UUID != "u-55" || f.DisplayName != "hw3.pdf" {
		t.Errorf("file = %+v", f)
	}
}

func TestUploadFileRedirectConfirm(t *testing.T) {
	srv := uploadFixture(t, true)

	c := New(srv.URL, testToken)
	content := []byte("%PDF-1.4 fake")
	f, err := c.UploadFile(context.Background(), 5, "hw3.pdf", bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("UploadFile via redirect: %v", err)
	}
	if f.ID != 55 {
		t.Errorf("file = %+v", f)
	}
}

func TestUploadFileNoTicket(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/folders/{folderID}/files", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(t, w, map[string]any{})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(srv.URL, testToken)
	_, err := c.UploadFile(context.Background(), 5, "hw3.pdf", strings.NewReader("x"), 1)
	if err == nil || !strings.Contains(err.Error(), "no upload URL") {
		t.Errorf("expected missing-ticket error, got %v", err)
	}
}
