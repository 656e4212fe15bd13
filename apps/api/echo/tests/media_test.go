package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kelasku/kelasku/core"
)

func Test_mediaApi_upload(t *testing.T) {
	app := setup(t)

	t.Run("file required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "a file is required", Code: "bad_request"}),
		}
		req, rec := newMultipartRequest(t, "/api/media/upload", nil)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("file too large", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: `file "big.bin" exceeds the 10MB size limit`, Code: "bad_request"}),
		}
		req, rec := newMultipartRequest(t, "/api/media/upload", nil,
			formFile{field: "file", name: "big.bin", contentType: "application/octet-stream", content: bytes.Repeat([]byte("x"), 10<<20+1)})
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
		if len(mediaSvc.Uploads) != 0 {
			t.Errorf("uploads = %d; want 0", len(mediaSvc.Uploads))
		}
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/media/upload", nil,
			formFile{field: "file", name: "notes.pdf", contentType: "application/pdf", content: []byte("pdfdata")})
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		var up core.MediaUpload
		if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if up.URL == "" || up.PublicID == "" {
			t.Errorf("incomplete upload result: %+v", up)
		}
		if len(mediaSvc.Uploads) != 1 {
			t.Errorf("uploads = %d; want 1", len(mediaSvc.Uploads))
		}
	})
}

func Test_mediaApi_delete(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name: "publicId required", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "publicId is required", Code: "bad_request"}),
		},
		{
			name: "ok", body: []byte(`{"publicId":"uploads/1-notes.pdf","resourceType":"raw"}`),
			wantCode: http.StatusOK, wantData: []byte(`{"message":"media deleted"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodDelete, "/api/media/delete", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	if len(mediaSvc.Deleted) != 1 || mediaSvc.Deleted[0] != "uploads/1-notes.pdf" {
		t.Errorf("deleted = %v", mediaSvc.Deleted)
	}
}
