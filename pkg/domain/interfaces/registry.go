package interfaces

import (
	"context"

	"github.com/riccamini/shipper/pkg/domain/model"
)

// RegistryPublisher defines the outbound publish operation against a
// package registry. Errors are forwarded to the caller and never retried.
type RegistryPublisher interface {
	Publish(ctx context.Context, req *model.PublishRequest) (*model.PublishReceipt, error)
}
