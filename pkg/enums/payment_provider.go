package enums

import "fmt"

// PaymentProvider names a payment vendor adapter.
type PaymentProvider string

const (
	ProviderStripe      PaymentProvider = "stripe"
	ProviderRevenueCat  PaymentProvider = "revenuecat"
	ProviderMercadoPago PaymentProvider = "mercadopago"
	ProviderPagarme     PaymentProvider = "pagarme"
	ProviderPagseguro   PaymentProvider = "pagseguro"
)

var validPaymentProviders = []PaymentProvider{
	ProviderStripe,
	ProviderRevenueCat,
	ProviderMercadoPago,
	ProviderPagarme,
	ProviderPagseguro,
}

func (p PaymentProvider) String() string {
	return string(p)
}

func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
