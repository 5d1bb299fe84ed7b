// Package factory builds the configured provider.Provider.
package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/naclonts/marketstream/pkg/config"
	"github.com/naclonts/marketstream/pkg/provider"
	"github.com/naclonts/marketstream/pkg/provider/polygon"
	"github.com/naclonts/marketstream/pkg/provider/yahoo"
)

func New(cfg config.ProviderConfig, logger *zap.Logger) (provider.Provider, error) {
	switch cfg.Name {
	case "", "yahoo":
		logger.Info("Using Yahoo Finance provider", zap.String("base_url", cfg.BaseURL))
		return yahoo.New(yahoo.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		}), nil
	case "polygon":
		logger.Info("Using Polygon provider")
		return polygon.New(polygon.Config{
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, cfg.Name)
	}
}
