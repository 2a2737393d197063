package stripeadapter

import "strings"

// checkoutLocales is the subset of Stripe-hosted checkout locales the product
// ships in. Anything else falls back to browser detection.
var checkoutLocales = map[string]string{
	"en":    "en",
	"pt":    "pt",
	"pt-br": "pt-BR",
	"es":    "es",
	"es-mx": "es",
}

func checkoutLocale(locale string) string {
	if mapped, ok := checkoutLocales[strings.ToLower(strings.TrimSpace(locale))]; ok {
		return mapped
	}
	return "auto"
}
