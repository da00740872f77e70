package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/riccamini/shipper/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Registry holds package registry configuration
type Registry struct {
	Endpoint string
	Username string
	Token    string `masq:"secret"`
}

// Flags returns CLI flags for registry configuration
func (c *Registry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "registry-url",
			Usage:       "Package registry upload endpoint",
			Value:       "https://upload.pypi.org/legacy/",
			Destination: &c.Endpoint,
			Sources:     cli.EnvVars("SHIPPER_REGISTRY_URL"),
		},
		&cli.StringFlag{
			Name:        "registry-username",
			Usage:       "Registry username",
			Value:       "__token__",
			Destination: &c.Username,
			Sources:     cli.EnvVars("SHIPPER_REGISTRY_USERNAME"),
		},
		&cli.StringFlag{
			Name:        "registry-token",
			Usage:       "Registry API token",
			Destination: &c.Token,
			Sources:     cli.EnvVars("SHIPPER_REGISTRY_TOKEN"),
		},
	}
}

// Validate checks that a publish attempt could ever succeed with this
// configuration. A missing credential is fatal before serving starts.
func (c *Registry) Validate() error {
	if c.Endpoint == "" {
		return goerr.Wrap(types.ErrConfig, "registry endpoint is required")
	}
	if c.Token == "" {
		return goerr.Wrap(types.ErrConfig, "registry token is required")
	}
	return nil
}
