package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/riccamini/shipper/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub App configuration
type GitHub struct {
	WebhookSecret  string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("SHIPPER_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("SHIPPER_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("SHIPPER_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "Path to the GitHub App private key file",
			Destination: &c.PrivateKeyPath,
			Sources:     cli.EnvVars("SHIPPER_GITHUB_PRIVATE_KEY"),
		},
	}
}

// PrivateKey loads the App private key, validating the App identity first
func (c *GitHub) PrivateKey() ([]byte, error) {
	if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKeyPath == "" {
		return nil, goerr.Wrap(types.ErrConfig, "GitHub App ID, installation ID and private key are required")
	}

	key, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfig, "failed to read GitHub App private key",
			goerr.V("path", c.PrivateKeyPath),
		)
	}
	return key, nil
}
