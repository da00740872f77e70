package types

import "github.com/m-mizutani/goerr/v2"

// Configuration errors are fatal before any publish attempt starts.
var ErrConfig = goerr.New("invalid configuration")

// Artifact store error kinds. Neither is retried by this service.
var (
	ErrArtifactNotFound  = goerr.New("artifact not found")
	ErrArtifactTransient = goerr.New("transient artifact store failure")
)

// Registry error kinds. Publishing is treated as non-idempotent, so all of
// these are surfaced as-is and never retried.
var (
	ErrRegistryAuth      = goerr.New("registry authentication failed")
	ErrRegistryRejected  = goerr.New("registry rejected the upload")
	ErrRegistryTransient = goerr.New("transient registry failure")
)
