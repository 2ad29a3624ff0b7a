// Package feed implements the upstream price-feed client: connection
// lifecycle, subscription, tick normalization, and the optional Kafka tick
// journal.
package feed

// providerSymbols maps canonical symbols to the provider's wire format.
// The table is static; provider reconnects never change it.
var providerSymbols = map[string]string{
	"NIFTY":     "NSE:NIFTY50-INDEX",
	"BANKNIFTY": "NSE:NIFTYBANK-INDEX",
}

// canonicalSymbols is the reverse lookup, built once at init.
var canonicalSymbols = func() map[string]string {
	m := make(map[string]string, len(providerSymbols))
	for canonical, provider := range providerSymbols {
		m[provider] = canonical
	}
	return m
}()

// ToProvider maps a canonical symbol to the provider wire symbol. Unknown
// symbols pass through unchanged so the provider can reject them.
func ToProvider(canonical string) string {
	if provider, ok := providerSymbols[canonical]; ok {
		return provider
	}
	return canonical
}

// ToCanonical maps a provider wire symbol back to the canonical symbol.
func ToCanonical(provider string) (string, bool) {
	canonical, ok := canonicalSymbols[provider]
	return canonical, ok
}
