package http

import (
	"context"

	"macropulse/internal/config"
	"macropulse/internal/services"
)

// DataServiceInterface is the service contract the data handler consumes,
// defined here so handler tests can substitute a mock.
type DataServiceInterface interface {
	GetTable(ctx context.Context, req services.TableRequest) (*services.Result, error)
	Catalog() []config.SeriesSpec
}
