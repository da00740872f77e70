package registry

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/riccamini/shipper/pkg/domain/interfaces"
	"github.com/riccamini/shipper/pkg/domain/model"
	"github.com/riccamini/shipper/pkg/domain/types"
)

type client struct {
	endpoint   string
	username   string
	token      string
	httpClient *http.Client
}

// NewClient creates a new registry publisher for a PyPI-compatible upload
// endpoint (e.g. https://upload.pypi.org/legacy/)
func NewClient(endpoint, username, token string) interfaces.RegistryPublisher {
	return &client{
		endpoint:   endpoint,
		username:   username,
		token:      token,
		httpClient: http.DefaultClient,
	}
}

// Publish uploads every file of the request to the registry. Files are
// uploaded sequentially; the first failure aborts the attempt and is
// returned as-is, with no retry.
func (c *client) Publish(ctx context.Context, req *model.PublishRequest) (*model.PublishReceipt, error) {
	uploaded := make([]string, 0, len(req.Files))
	for _, path := range req.Files {
		if err := c.uploadFile(ctx, req, path); err != nil {
			return nil, err
		}
		uploaded = append(uploaded, filepath.Base(path))
	}

	return &model.PublishReceipt{
		Registry: c.endpoint,
		Files:    uploaded,
	}, nil
}

// uploadFile sends one distribution file via the legacy file_upload form
func (c *client) uploadFile(ctx context.Context, req *model.PublishRequest, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return goerr.Wrap(err, "failed to open distribution file", goerr.V("path", path))
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		":action":          "file_upload",
		"protocol_version": "1",
		"name":             req.AppName,
		"version":          req.Version,
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return goerr.Wrap(err, "failed to write form field", goerr.V("field", key))
		}
	}

	part, err := form.CreateFormFile("content", filepath.Base(path))
	if err != nil {
		return goerr.Wrap(err, "failed to create form file")
	}
	if _, err := io.Copy(part, file); err != nil {
		return goerr.Wrap(err, "failed to copy file into form", goerr.V("path", path))
	}
	if err := form.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize form")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return goerr.Wrap(err, "failed to create upload request", goerr.V("endpoint", c.endpoint))
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.SetBasicAuth(c.username, c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return goerr.Wrap(types.ErrRegistryTransient, "upload request failed",
			goerr.V("file", filepath.Base(path)),
			goerr.V("cause", err.Error()),
		)
	}
	defer resp.Body.Close()

	return classifyStatus(resp, filepath.Base(path))
}

// classifyStatus maps the registry's HTTP status to an error kind
func classifyStatus(resp *http.Response, filename string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Registries return the rejection reason in the body; keep a snippet
	// for the surfaced error.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	values := []goerr.Option{
		goerr.V("status", resp.StatusCode),
		goerr.V("file", filename),
		goerr.V("body", string(snippet)),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return goerr.Wrap(types.ErrRegistryAuth, "upload not authorized", values...)
	case resp.StatusCode >= 500:
		return goerr.Wrap(types.ErrRegistryTransient, "registry unavailable", values...)
	default:
		return goerr.Wrap(types.ErrRegistryRejected, "upload rejected", values...)
	}
}
