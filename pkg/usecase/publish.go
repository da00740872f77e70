package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/riccamini/shipper/pkg/domain/interfaces"
	"github.com/riccamini/shipper/pkg/domain/model"
)

type publisherUseCase struct {
	gate         *Gate
	artifacts    interfaces.ArtifactSource
	registry     interfaces.RegistryPublisher
	appName      string
	artifactName string
}

// NewPublisher creates a new instance of ReleasePublisher
func NewPublisher(gate *Gate, artifacts interfaces.ArtifactSource, registry interfaces.RegistryPublisher, appName, artifactName string) interfaces.ReleasePublisher {
	return &publisherUseCase{
		gate:         gate,
		artifacts:    artifacts,
		registry:     registry,
		appName:      appName,
		artifactName: artifactName,
	}
}

// HandleRunCompletion evaluates the event, admits it into its concurrency
// group, downloads the distribution bundle, and issues at most one registry
// upload. The attempt is cancellable until the upload begins; after that it
// runs to completion.
func (uc *publisherUseCase) HandleRunCompletion(ctx context.Context, event *model.ReleaseEvent) error {
	logger := ctxlog.From(ctx)

	decision := uc.gate.Evaluate(event)
	if !decision.Accepted {
		logger.Info("Release event rejected",
			"workflow", event.WorkflowName,
			"run_id", event.RunID,
			"ref", event.Ref,
			"reason", decision.Reason,
		)
		return nil
	}

	group := model.NewConcurrencyGroup(event.WorkflowName, event.Ref, event.RunID)
	adm := uc.gate.Admit(ctx, group, event.RunID)
	if adm.Superseded {
		logger.Info("Release event superseded by in-flight upload",
			"group", group,
			"run_id", event.RunID,
			"holder_run_id", adm.HolderRunID,
		)
		return nil
	}
	defer uc.gate.Complete(group, event.RunID)

	runID, err := strconv.ParseInt(event.RunID, 10, 64)
	if err != nil {
		return goerr.Wrap(err, "invalid run identifier", goerr.V("run_id", event.RunID))
	}

	logger.Info("Publish attempt admitted",
		"group", group,
		"run_id", event.RunID,
		"tag", event.TagName(),
	)

	// Pre-upload phase: both the download and the extraction run under the
	// admission context and may be abandoned when a newer attempt takes
	// over the key.
	data, err := uc.artifacts.DownloadArtifact(adm.Ctx, event.Owner, event.Repo, runID, uc.artifactName)
	if err != nil {
		if adm.Ctx.Err() != nil {
			logger.Info("Publish attempt cancelled during artifact download",
				"group", group,
				"run_id", event.RunID,
			)
			return nil
		}
		return goerr.Wrap(err, "failed to download artifact",
			goerr.V("artifact", uc.artifactName),
			goerr.V("run_id", event.RunID),
		)
	}

	bundle, err := uc.extractBundle(adm.Ctx, data)
	if err != nil {
		if adm.Ctx.Err() != nil {
			logger.Info("Publish attempt cancelled during extraction",
				"group", group,
				"run_id", event.RunID,
			)
			return nil
		}
		return goerr.Wrap(err, "failed to extract artifact bundle")
	}
	defer func() {
		if removeErr := os.RemoveAll(bundle.Dir); removeErr != nil {
			logger.Warn("Failed to clean up temporary directory",
				"temp_dir", bundle.Dir,
				"error", removeErr,
			)
		}
	}()

	files := distributionFiles(bundle)
	if len(files) == 0 {
		return goerr.New("no distribution files in artifact bundle",
			goerr.V("artifact", uc.artifactName),
			goerr.V("file_count", len(bundle.Files)),
		)
	}

	if !uc.gate.BeginUpload(group, event.RunID) {
		logger.Info("Publish attempt cancelled before upload",
			"group", group,
			"run_id", event.RunID,
		)
		return nil
	}

	req := &model.PublishRequest{
		ID:           uuid.NewString(),
		AppName:      uc.appName,
		Version:      event.TagName(),
		ArtifactName: uc.artifactName,
		BundlePath:   bundle.Dir,
		Files:        files,
	}

	// The registry upload is not safely abortable once started, so it is
	// detached from the admission context and runs to completion.
	receipt, err := uc.registry.Publish(context.WithoutCancel(ctx), req)
	if err != nil {
		return goerr.Wrap(err, "failed to publish release",
			goerr.V("app", req.AppName),
			goerr.V("version", req.Version),
			goerr.V("request_id", req.ID),
		)
	}

	logger.Info("Published release",
		"app", req.AppName,
		"version", req.Version,
		"registry", receipt.Registry,
		"file_count", len(receipt.Files),
		"request_id", req.ID,
	)

	return nil
}

// distributionFiles selects the uploadable distribution files from the
// bundle and returns their absolute paths
func distributionFiles(bundle *model.ArtifactBundle) []string {
	var files []string
	for _, name := range bundle.Files {
		if strings.HasSuffix(name, ".whl") || strings.HasSuffix(name, ".tar.gz") {
			files = append(files, filepath.Join(bundle.Dir, name))
		}
	}
	return files
}

// extractBundle extracts the artifact zip to a temporary directory
func (uc *publisherUseCase) extractBundle(ctx context.Context, zipData []byte) (*model.ArtifactBundle, error) {
	logger := ctxlog.From(ctx)

	tempDir, err := os.MkdirTemp("", "shipper-bundle-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temporary directory")
	}
	if err := os.Chmod(tempDir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to set directory permissions", goerr.V("temp_dir", tempDir))
	}

	logger.Debug("Created temporary directory", "temp_dir", tempDir)

	zipReader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zip reader")
	}

	var extractedFiles []string
	var totalSize int64

	for _, file := range zipReader.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := extractFile(file, tempDir); err != nil {
			return nil, goerr.Wrap(err, "failed to extract file", goerr.V("name", file.Name))
		}
		if !file.FileInfo().IsDir() {
			extractedFiles = append(extractedFiles, file.Name)
			totalSize += int64(file.UncompressedSize64)
		}
	}

	return &model.ArtifactBundle{
		Dir:   tempDir,
		Files: extractedFiles,
		Size:  totalSize,
	}, nil
}

// extractFile extracts a single file from the zip to the destination
// directory, rejecting entries that escape it
func extractFile(file *zip.File, destDir string) error {
	destPath := filepath.Join(destDir, file.Name)
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return goerr.New("invalid file path in archive",
			goerr.V("name", file.Name),
			goerr.V("dest", destPath),
		)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, file.FileInfo().Mode())
	}

	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip")
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories")
	}

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.FileInfo().Mode())
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file")
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, rc); err != nil {
		return goerr.Wrap(err, "failed to copy file content")
	}

	return nil
}
