// Package providers contains the payment gateway stand-ins. Each gateway
// synthesizes a provider-style reference and redirect URL without any network
// call. This boundary is the seam where real provider SDKs plug in later.
package providers

import (
	"context"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/apperr"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

// DispatchRequest carries what a gateway needs to start a checkout session.
type DispatchRequest struct {
	Reference string // our payment reference
	Amount    int64  // whole CFA francs
	BuyerID   string
}

// DispatchResult is the provider's answer: their reference for the session
// and the URL the buyer is redirected to.
type DispatchResult struct {
	ProviderRef string
	PaymentURL  string
}

// Gateway initiates a checkout session with one payment provider.
type Gateway interface {
	Name() models.PaymentProvider
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error)
}

// Registry routes dispatch calls to the gateway registered for a provider.
type Registry struct {
	gateways map[models.PaymentProvider]Gateway
}

// NewRegistry builds a registry from the given gateways.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[models.PaymentProvider]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

// NewDefaultRegistry builds a registry with all supported gateways.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		NewWaveGateway(),
		NewOrangeMoneyGateway(),
		NewPayTechGateway(),
		NewCardGateway(),
	)
}

// Dispatch routes to the gateway for the given provider. Unknown providers
// fail with an UnsupportedProvider error.
func (r *Registry) Dispatch(ctx context.Context, provider models.PaymentProvider, req DispatchRequest) (*DispatchResult, error) {
	gateway, ok := r.gateways[provider]
	if !ok {
		return nil, apperr.UnsupportedProvider(string(provider))
	}
	return gateway.Dispatch(ctx, req)
}

// Supports reports whether a gateway is registered for the provider.
func (r *Registry) Supports(provider models.PaymentProvider) bool {
	_, ok := r.gateways[provider]
	return ok
}
