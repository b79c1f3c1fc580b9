package models

import "strings"

// Pair identifies a tradeable quote pair from the fixed supported set.
type Pair string

const (
	PairEURBTC Pair = "EUR/BTC"
	PairUSDBTC Pair = "USD/BTC"
	PairCZKBTC Pair = "CZK/BTC"
)

// AllPairs returns every supported pair in a stable order.
func AllPairs() []Pair {
	return []Pair{PairEURBTC, PairUSDBTC, PairCZKBTC}
}

// IsValidPair returns true if p is a supported pair.
func IsValidPair(p Pair) bool {
	switch p {
	case PairEURBTC, PairUSDBTC, PairCZKBTC:
		return true
	default:
		return false
	}
}

// ProviderSymbol maps a pair to the external ticker symbol.
func ProviderSymbol(p Pair) (string, bool) {
	switch p {
	case PairEURBTC:
		return "BTCEUR", true
	case PairUSDBTC:
		return "BTCUSD", true
	case PairCZKBTC:
		return "BTCCZK", true
	default:
		return "", false
	}
}

// PairForProviderSymbol maps a ticker symbol back to its pair.
func PairForProviderSymbol(sym string) (Pair, bool) {
	switch sym {
	case "BTCEUR":
		return PairEURBTC, true
	case "BTCUSD":
		return PairUSDBTC, true
	case "BTCCZK":
		return PairCZKBTC, true
	default:
		return "", false
	}
}

// ParsePair converts a raw string to a supported pair. The URL-safe
// dashed spelling ("EUR-BTC") is accepted alongside the canonical one.
func ParsePair(s string) (Pair, bool) {
	p := Pair(s)
	if IsValidPair(p) {
		return p, true
	}
	p = Pair(strings.ReplaceAll(s, "-", "/"))
	if IsValidPair(p) {
		return p, true
	}
	return "", false
}
