package gateway

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/artshop/internal/config"
	"github.com/polkiloo/artshop/internal/pkg/digest"
)

// Module exposes the gateway registry to fx graph.
var Module = fx.Provide(newRegistry)

type registryParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newRegistry(p registryParams) (*Registry, error) {
	var gateways []Gateway

	if p.Config.GPWebpay.Enabled() {
		gp, err := newGPWebpayFromConfig(p.Config, p.Logger)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, gp)
	}

	if p.Config.Comgate.Enabled() {
		cg, err := NewComgate(ComgateOptions{
			URL:      p.Config.Comgate.URL,
			Merchant: p.Config.Comgate.Merchant,
			Secret:   p.Config.Comgate.Secret,
			Test:     p.Config.Comgate.Test,
			Timeout:  p.Config.GatewayTimeout,
		}, p.Logger)
		if err != nil {
			return nil, err
		}
		gateways = append(gateways, cg)
	}

	registry, err := NewRegistry(p.Config.DefaultGateway, gateways...)
	if err != nil {
		return nil, err
	}
	if len(gateways) == 0 {
		p.Logger.Warn("no payment gateway configured, checkout is disabled")
	} else {
		p.Logger.Info("payment gateways enabled", slog.Any("gateways", registry.Names()), slog.String("default", registry.Default()))
	}
	return registry, nil
}

func newGPWebpayFromConfig(cfg *config.Config, logger *slog.Logger) (*GPWebpay, error) {
	hash, err := digest.ParseHash(cfg.GPWebpay.DigestHash)
	if err != nil {
		return nil, fmt.Errorf("gpwebpay digest hash: %w", err)
	}
	signer := digest.NewSigner(
		digest.NewFilePrivateKeySource(cfg.GPWebpay.PrivateKeyPath, cfg.GPWebpay.KeyPassword),
		digest.GPWebpayRequestOrder,
		hash,
	)
	verifier := digest.NewVerifier(
		digest.NewFilePublicKeySource(cfg.GPWebpay.PublicKeyPath),
		digest.GPWebpayResponseOrder,
		hash,
	)
	return NewGPWebpay(GPWebpayOptions{
		URL:            cfg.GPWebpay.URL,
		MerchantNumber: cfg.GPWebpay.MerchantNumber,
		CallbackURL:    cfg.PublicBaseURL + "/api/payments/" + GPWebpayName + "/callback",
		ResultRedirect: cfg.GPWebpay.ResultRedirect,
	}, signer, verifier, logger)
}
