package providers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/apperr"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

func TestDefaultRegistry_SupportsAllProviders(t *testing.T) {
	r := NewDefaultRegistry()
	for _, p := range []models.PaymentProvider{
		models.ProviderWave,
		models.ProviderOrangeMoney,
		models.ProviderPayTech,
		models.ProviderCard,
	} {
		assert.True(t, r.Supports(p), "registry should support %s", p)
	}
	assert.False(t, r.Supports(models.PaymentProvider("BITCOIN")))
}

func TestRegistry_UnknownProviderFailsDispatch(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Dispatch(context.Background(), "BITCOIN", DispatchRequest{Reference: "PAY-1-ABCDEF", Amount: 100})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnsupportedProvider, apperr.KindOf(err))
}

func TestGateways_DispatchShape(t *testing.T) {
	req := DispatchRequest{Reference: "PAY-1-ABCDEF", Amount: 10000, BuyerID: "buyer-1"}

	cases := []struct {
		provider  models.PaymentProvider
		refPrefix string
		urlHost   string
	}{
		{models.ProviderWave, "WAVE-", "wave.ci"},
		{models.ProviderOrangeMoney, "OM-", "orange-money.com"},
		{models.ProviderPayTech, "PAYTECH-", "paytech.sn"},
		{models.ProviderCard, "CARD-", "checkout.fotoloudiay.sn"},
	}

	r := NewDefaultRegistry()
	for _, tc := range cases {
		t.Run(string(tc.provider), func(t *testing.T) {
			result, err := r.Dispatch(context.Background(), tc.provider, req)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(result.ProviderRef, tc.refPrefix),
				"provider ref %q should start with %q", result.ProviderRef, tc.refPrefix)
			assert.Contains(t, result.PaymentURL, tc.urlHost)
			assert.Contains(t, result.PaymentURL, result.ProviderRef)
			assert.Contains(t, result.PaymentURL, fmt.Sprintf("amount=%d", req.Amount))
			assert.Contains(t, result.PaymentURL, "ref="+req.Reference)
		})
	}
}
