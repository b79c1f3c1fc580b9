package models

import "testing"

func TestProviderSymbolRoundTrip(t *testing.T) {
	for _, pair := range AllPairs() {
		sym, ok := ProviderSymbol(pair)
		if !ok {
			t.Fatalf("no symbol for %s", pair)
		}
		back, ok := PairForProviderSymbol(sym)
		if !ok || back != pair {
			t.Fatalf("round trip %s -> %s -> %s", pair, sym, back)
		}
	}
}

func TestParsePair(t *testing.T) {
	if p, ok := ParsePair("EUR/BTC"); !ok || p != PairEURBTC {
		t.Fatalf("expected EUR/BTC, got %q ok=%v", p, ok)
	}
	if p, ok := ParsePair("EUR-BTC"); !ok || p != PairEURBTC {
		t.Fatalf("dashed spelling should parse, got %q ok=%v", p, ok)
	}
	for _, bad := range []string{"", "eur/btc", "BTC/EUR", "BTCEUR", "XRP/BTC"} {
		if _, ok := ParsePair(bad); ok {
			t.Fatalf("%q should not parse", bad)
		}
	}
}

func TestPairForUnknownSymbol(t *testing.T) {
	if _, ok := PairForProviderSymbol("BTCXYZ"); ok {
		t.Fatal("unknown symbol should not map")
	}
}
