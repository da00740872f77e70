package model

// PublishRequest is the outbound action derived from an accepted
// ReleaseEvent. It is created only on acceptance, never mutated, and
// terminal once the registry call returns.
type PublishRequest struct {
	ID           string   // Correlation identifier for this attempt
	AppName      string   // Logical release identifier (registry package name)
	Version      string   // Release version derived from the tag
	ArtifactName string   // Name of the workflow artifact that held the bundle
	BundlePath   string   // Directory holding the extracted distribution files
	Files        []string // Absolute paths of the files to upload
}

// PublishReceipt is the registry's confirmation for a completed publish
type PublishReceipt struct {
	Registry string   // Registry endpoint the files were uploaded to
	Files    []string // Base names of the uploaded files
}

// ArtifactBundle represents an extracted artifact archive
type ArtifactBundle struct {
	Dir   string   // Path to temporary directory
	Files []string // List of extracted files, relative to Dir
	Size  int64    // Total size in bytes
}
