package github

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/riccamini/shipper/pkg/domain/interfaces"
	"github.com/riccamini/shipper/pkg/domain/types"
)

type client struct {
	githubClient *github.Client
}

// NewClient creates a new artifact source with GitHub App authentication
func NewClient(appID, installationID int64, privateKey []byte) (interfaces.ArtifactSource, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}

	return &client{
		githubClient: github.NewClient(&http.Client{Transport: itr}),
	}, nil
}

// NewClientWithHTTP creates an artifact source on top of a pre-configured
// GitHub client. Used by tests.
func NewClientWithHTTP(githubClient *github.Client) interfaces.ArtifactSource {
	return &client{githubClient: githubClient}
}

// ResolveRef resolves a bare branch or tag name to a fully qualified git
// ref. Tags are checked first so that a tag and branch sharing a name
// resolve to the tag, matching the upstream trigger's intent.
func (c *client) ResolveRef(ctx context.Context, owner, repo, name string) (string, error) {
	_, resp, err := c.githubClient.Git.GetRef(ctx, owner, repo, "tags/"+name)
	if err == nil {
		return "refs/tags/" + name, nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return "", fmt.Errorf("failed to resolve ref %q for %s/%s: %w", name, owner, repo, err)
	}

	_, resp, err = c.githubClient.Git.GetRef(ctx, owner, repo, "heads/"+name)
	if err == nil {
		return "refs/heads/" + name, nil
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("no tag or branch named %q in %s/%s", name, owner, repo)
	}
	return "", fmt.Errorf("failed to resolve ref %q for %s/%s: %w", name, owner, repo, err)
}

// DownloadArtifact downloads the named artifact of a workflow run as a zip
// archive
func (c *client) DownloadArtifact(ctx context.Context, owner, repo string, runID int64, name string) ([]byte, error) {
	artifactID, err := c.findArtifact(ctx, owner, repo, runID, name)
	if err != nil {
		return nil, err
	}

	// Get download URL for the artifact archive
	url, _, err := c.githubClient.Actions.DownloadArtifact(ctx, owner, repo, artifactID, 3) // Follow up to 3 redirects
	if err != nil {
		return nil, goerr.Wrap(types.ErrArtifactTransient, "failed to get artifact download URL",
			goerr.V("artifact", name),
			goerr.V("run_id", runID),
			goerr.V("cause", err.Error()),
		)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request for %s: %w", url.String(), err)
	}

	// Use the same client transport for authentication
	httpClient := &http.Client{Transport: c.githubClient.Client().Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(types.ErrArtifactTransient, "failed to download artifact",
			goerr.V("url", url.String()),
			goerr.V("cause", err.Error()),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.Wrap(types.ErrArtifactTransient, "unexpected status code on artifact download",
			goerr.V("status", resp.StatusCode),
			goerr.V("url", url.String()),
		)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(types.ErrArtifactTransient, "failed to read artifact body",
			goerr.V("cause", err.Error()),
		)
	}

	return data, nil
}

// findArtifact locates the artifact ID for the given name within a run
func (c *client) findArtifact(ctx context.Context, owner, repo string, runID int64, name string) (int64, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		list, resp, err := c.githubClient.Actions.ListWorkflowRunArtifacts(ctx, owner, repo, runID, opts)
		if err != nil {
			return 0, fmt.Errorf("failed to list artifacts for %s/%s run %d: %w", owner, repo, runID, err)
		}
		for _, a := range list.Artifacts {
			if a.GetName() == name {
				return a.GetID(), nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return 0, goerr.Wrap(types.ErrArtifactNotFound, "no artifact with the requested name in run",
		goerr.V("artifact", name),
		goerr.V("run_id", runID),
	)
}
