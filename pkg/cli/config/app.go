package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/riccamini/shipper/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// App holds the release identity: which package this service publishes
// and which workflow artifact carries its distribution bundle.
type App struct {
	ConfigPath      string
	Name            string
	DistributionURL string
	ArtifactName    string
}

// appFile is the TOML representation of the release identity block
type appFile struct {
	Name            string `toml:"name"`
	DistributionURL string `toml:"distribution_url"`
	ArtifactName    string `toml:"artifact_name"`
}

// Flags returns CLI flags for app configuration
func (c *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to a TOML file with the release identity",
			Destination: &c.ConfigPath,
			Sources:     cli.EnvVars("SHIPPER_CONFIG"),
		},
		&cli.StringFlag{
			Name:        "app-name",
			Usage:       "Logical release identifier (registry package name)",
			Destination: &c.Name,
			Sources:     cli.EnvVars("SHIPPER_APP_NAME"),
		},
		&cli.StringFlag{
			Name:        "distribution-url",
			Usage:       "Public distribution URL (informational)",
			Destination: &c.DistributionURL,
			Sources:     cli.EnvVars("SHIPPER_DISTRIBUTION_URL"),
		},
		&cli.StringFlag{
			Name:        "artifact-name",
			Usage:       "Name of the workflow artifact holding the distribution bundle",
			Value:       "dist",
			Destination: &c.ArtifactName,
			Sources:     cli.EnvVars("SHIPPER_ARTIFACT_NAME"),
		},
	}
}

// Load merges the optional TOML file into the config. Flags and env vars
// take precedence over file values.
func (c *App) Load() error {
	if c.ConfigPath != "" {
		data, err := os.ReadFile(c.ConfigPath)
		if err != nil {
			return goerr.Wrap(types.ErrConfig, "failed to read config file",
				goerr.V("path", c.ConfigPath),
			)
		}

		var file appFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return goerr.Wrap(types.ErrConfig, "failed to parse config file",
				goerr.V("path", c.ConfigPath),
				goerr.V("cause", err.Error()),
			)
		}

		if c.Name == "" {
			c.Name = file.Name
		}
		if c.DistributionURL == "" {
			c.DistributionURL = file.DistributionURL
		}
		// The flag default is indistinguishable from an explicit "dist",
		// so the file value wins over the default.
		if (c.ArtifactName == "" || c.ArtifactName == "dist") && file.ArtifactName != "" {
			c.ArtifactName = file.ArtifactName
		}
	}

	if c.Name == "" {
		return goerr.Wrap(types.ErrConfig, "app name is required")
	}
	return nil
}
