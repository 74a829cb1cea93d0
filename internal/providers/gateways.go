package providers

import (
	"context"
	"fmt"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/utils"
)

// waveGateway simulates the Wave mobile-money checkout flow.
type waveGateway struct{}

// NewWaveGateway returns the Wave stand-in gateway.
func NewWaveGateway() Gateway { return &waveGateway{} }

func (g *waveGateway) Name() models.PaymentProvider { return models.ProviderWave }

func (g *waveGateway) Dispatch(_ context.Context, req DispatchRequest) (*DispatchResult, error) {
	providerRef := utils.NewProviderReference("WAVE")
	return &DispatchResult{
		ProviderRef: providerRef,
		PaymentURL:  fmt.Sprintf("https://pay.wave.ci/c/%s?amount=%d&ref=%s", providerRef, req.Amount, req.Reference),
	}, nil
}

// orangeMoneyGateway simulates the Orange Money web payment flow.
type orangeMoneyGateway struct{}

// NewOrangeMoneyGateway returns the Orange Money stand-in gateway.
func NewOrangeMoneyGateway() Gateway { return &orangeMoneyGateway{} }

func (g *orangeMoneyGateway) Name() models.PaymentProvider { return models.ProviderOrangeMoney }

func (g *orangeMoneyGateway) Dispatch(_ context.Context, req DispatchRequest) (*DispatchResult, error) {
	providerRef := utils.NewProviderReference("OM")
	return &DispatchResult{
		ProviderRef: providerRef,
		PaymentURL:  fmt.Sprintf("https://webpayment.orange-money.com/pay/%s?amount=%d&ref=%s", providerRef, req.Amount, req.Reference),
	}, nil
}

// payTechGateway simulates the PayTech aggregator checkout flow.
type payTechGateway struct{}

// NewPayTechGateway returns the PayTech stand-in gateway.
func NewPayTechGateway() Gateway { return &payTechGateway{} }

func (g *payTechGateway) Name() models.PaymentProvider { return models.ProviderPayTech }

func (g *payTechGateway) Dispatch(_ context.Context, req DispatchRequest) (*DispatchResult, error) {
	providerRef := utils.NewProviderReference("PAYTECH")
	return &DispatchResult{
		ProviderRef: providerRef,
		PaymentURL:  fmt.Sprintf("https://paytech.sn/payment/%s?amount=%d&ref=%s", providerRef, req.Amount, req.Reference),
	}, nil
}

// cardGateway simulates a hosted card checkout page.
type cardGateway struct{}

// NewCardGateway returns the card stand-in gateway.
func NewCardGateway() Gateway { return &cardGateway{} }

func (g *cardGateway) Name() models.PaymentProvider { return models.ProviderCard }

func (g *cardGateway) Dispatch(_ context.Context, req DispatchRequest) (*DispatchResult, error) {
	providerRef := utils.NewProviderReference("CARD")
	return &DispatchResult{
		ProviderRef: providerRef,
		PaymentURL:  fmt.Sprintf("https://checkout.fotoloudiay.sn/card/%s?amount=%d&ref=%s", providerRef, req.Amount, req.Reference),
	}, nil
}
