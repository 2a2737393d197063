package stub

import (
	"context"
	"testing"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

func TestStubAdaptersReportNotSupported(t *testing.T) {
	adapters := map[enums.PaymentProvider]*Adapter{
		enums.ProviderMercadoPago: NewMercadoPago(),
		enums.ProviderPagarme:     NewPagarme(),
		enums.ProviderPagseguro:   NewPagseguro(),
	}
	for want, adapter := range adapters {
		if adapter.Name() != want {
			t.Fatalf("name: got %s, want %s", adapter.Name(), want)
		}
		if err := adapter.Initialize(payments.Config{}); err != nil {
			t.Fatalf("initialize %s: %v", want, err)
		}
		result := adapter.CreateCheckoutSession(context.Background(), payments.CheckoutParams{})
		if result.Success || result.Code != payments.ErrNotSupportedByProvider {
			t.Fatalf("%s checkout: expected NOT_SUPPORTED_BY_PROVIDER, got %+v", want, result)
		}
		if adapter.VerifyWebhook(nil, "sig", "secret") {
			t.Fatalf("%s must not verify webhooks", want)
		}
	}
}

func TestStubAdapterSatisfiesProviderContract(t *testing.T) {
	var _ payments.Provider = NewMercadoPago()
}
