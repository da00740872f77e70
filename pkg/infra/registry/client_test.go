package registry_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/riccamini/shipper/pkg/domain/model"
	"github.com/riccamini/shipper/pkg/domain/types"
	"github.com/riccamini/shipper/pkg/infra/registry"
)

// writeDistFile creates a distribution file under dir and returns its path
func writeDistFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestClient_Publish_Success(t *testing.T) {
	dir := t.TempDir()
	whl := writeDistFile(t, dir, "koheesio-1.2.0-py3-none-any.whl", "wheel bytes")
	sdist := writeDistFile(t, dir, "koheesio-1.2.0.tar.gz", "sdist bytes")

	type upload struct {
		action   string
		name     string
		version  string
		filename string
		content  string
		user     string
		token    string
	}
	var uploads []upload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodPost)

		user, token, ok := r.BasicAuth()
		gt.Value(t, ok).Equal(true)

		gt.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("content")
		gt.NoError(t, err)
		defer file.Close()
		body, err := io.ReadAll(file)
		gt.NoError(t, err)

		uploads = append(uploads, upload{
			action:   r.FormValue(":action"),
			name:     r.FormValue("name"),
			version:  r.FormValue("version"),
			filename: header.Filename,
			content:  string(body),
			user:     user,
			token:    token,
		})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := registry.NewClient(server.URL, "__token__", "pypi-secret")
	receipt, err := client.Publish(context.Background(), &model.PublishRequest{
		ID:      "req-1",
		AppName: "koheesio",
		Version: "v1.2.0",
		Files:   []string{whl, sdist},
	})

	gt.NoError(t, err)
	gt.Value(t, receipt.Registry).Equal(server.URL)
	gt.Value(t, receipt.Files).Equal([]string{
		"koheesio-1.2.0-py3-none-any.whl",
		"koheesio-1.2.0.tar.gz",
	})

	gt.Number(t, len(uploads)).Equal(2)
	gt.Value(t, uploads[0].action).Equal("file_upload")
	gt.Value(t, uploads[0].name).Equal("koheesio")
	gt.Value(t, uploads[0].version).Equal("v1.2.0")
	gt.Value(t, uploads[0].filename).Equal("koheesio-1.2.0-py3-none-any.whl")
	gt.Value(t, uploads[0].content).Equal("wheel bytes")
	gt.Value(t, uploads[0].user).Equal("__token__")
	gt.Value(t, uploads[0].token).Equal("pypi-secret")
	gt.Value(t, uploads[1].filename).Equal("koheesio-1.2.0.tar.gz")
}

func TestClient_Publish_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
	}{
		{
			name:     "Unauthorized maps to auth error",
			status:   http.StatusUnauthorized,
			expected: types.ErrRegistryAuth,
		},
		{
			name:     "Forbidden maps to auth error",
			status:   http.StatusForbidden,
			expected: types.ErrRegistryAuth,
		},
		{
			name:     "Bad request maps to rejection",
			status:   http.StatusBadRequest,
			expected: types.ErrRegistryRejected,
		},
		{
			name:     "Conflict maps to rejection",
			status:   http.StatusConflict,
			expected: types.ErrRegistryRejected,
		},
		{
			name:     "Server error maps to transient failure",
			status:   http.StatusServiceUnavailable,
			expected: types.ErrRegistryTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeDistFile(t, dir, "koheesio-1.2.0.tar.gz", "sdist bytes")

			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("registry says no"))
			}))
			defer server.Close()

			client := registry.NewClient(server.URL, "__token__", "pypi-secret")
			_, err := client.Publish(context.Background(), &model.PublishRequest{
				AppName: "koheesio",
				Version: "v1.2.0",
				Files:   []string{path},
			})

			gt.Error(t, err)
			gt.Value(t, errors.Is(err, tt.expected)).Equal(true)

			// The error is forwarded as-is: no retry
			gt.Number(t, calls).Equal(1)
		})
	}
}

func TestClient_Publish_StopsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	first := writeDistFile(t, dir, "koheesio-1.2.0-py3-none-any.whl", "wheel bytes")
	second := writeDistFile(t, dir, "koheesio-1.2.0.tar.gz", "sdist bytes")

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := registry.NewClient(server.URL, "__token__", "pypi-secret")
	_, err := client.Publish(context.Background(), &model.PublishRequest{
		AppName: "koheesio",
		Version: "v1.2.0",
		Files:   []string{first, second},
	})

	gt.Error(t, err)
	gt.Number(t, calls).Equal(1)
}

func TestClient_Publish_MissingFile(t *testing.T) {
	client := registry.NewClient("https://registry.example/legacy/", "__token__", "secret")
	_, err := client.Publish(context.Background(), &model.PublishRequest{
		AppName: "koheesio",
		Version: "v1.2.0",
		Files:   []string{"/nonexistent/koheesio-1.2.0.tar.gz"},
	})
	gt.Error(t, err)
}
