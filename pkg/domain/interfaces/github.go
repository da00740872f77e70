package interfaces

import "context"

// ArtifactSource defines operations against the CI host that stores the
// build artifacts produced by the upstream workflow
type ArtifactSource interface {
	// ResolveRef resolves a bare branch or tag name to a fully qualified
	// git ref (refs/tags/... or refs/heads/...)
	ResolveRef(ctx context.Context, owner, repo, name string) (string, error)

	// DownloadArtifact downloads the named artifact of a workflow run as a
	// zip archive
	DownloadArtifact(ctx context.Context, owner, repo string, runID int64, name string) ([]byte, error)
}
