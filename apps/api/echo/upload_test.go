package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tulongph/tulong/core/user"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func newUploadRequest(t *testing.T, token, field, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		if err := w.WriteField("field", field); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func Test_uploadApi_create(t *testing.T) {
	resident := makeUser(t, "Juan Dela Cruz", "juandc1", user.RoleResident, true)
	svc := newFakeUserSvc(resident)

	conf := testServerConfig()
	conf.UploadDir = t.TempDir()
	conf.MaxUploadSize = 1024
	app := setupServer(t, ServerDeps{Conf: conf, UserSvc: svc})
	token := getToken(t, resident, conf)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newUploadRequest(t, "", "valid_id", "id.png", pngBytes)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("Bad field name", func(t *testing.T) {
		req, rec := newUploadRequest(t, token, "Valid ID", "id.png", pngBytes)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"field": "must be a lowercase identifier"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("File required", func(t *testing.T) {
		req, rec := newUploadRequest(t, token, "valid_id", "", nil)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"file": "file is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("File too large", func(t *testing.T) {
		big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2048)...)
		req, rec := newUploadRequest(t, token, "valid_id", "id.png", big)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rec.Body.String(), "byte limit") {
			t.Errorf("failed! body = %v; want a size limit error", rec.Body.String())
		}
	})

	t.Run("Disallowed content type", func(t *testing.T) {
		req, rec := newUploadRequest(t, token, "valid_id", "id.txt", []byte("just some text"))
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"file": "only JPEG, PNG and PDF files are allowed"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Stored", func(t *testing.T) {
		req, rec := newUploadRequest(t, token, "valid_id", "id.png", pngBytes)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var resp UploadResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling UploadResponse failed: %v", err)
		}
		if filepath.Dir(resp.Path) != "valid_id" || filepath.Ext(resp.Path) != ".png" {
			t.Errorf("stored path = %v; want valid_id/<uuid>.png", resp.Path)
		}
		data, err := os.ReadFile(filepath.Join(conf.UploadDir, resp.Path))
		if err != nil {
			t.Fatalf("reading stored file failed: %v", err)
		}
		if !bytes.Equal(data, pngBytes) {
			t.Error("stored file does not match the uploaded content")
		}
	})
}
