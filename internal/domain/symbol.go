package domain

// fxSymbolSuffix marks a synthesized FX cross instrument.
const fxSymbolSuffix = "=X"

// FXSymbol encodes a currency pair as the market-data symbol of its FX cross,
// e.g. FXSymbol("USD", "EUR") == "USDEUR=X".
//
// The caller guarantees base and quote are non-empty and different.
func FXSymbol(base, quote string) string {
	return base + quote + fxSymbolSuffix
}

// NeedsFXSymbol reports whether an activity in activityCurrency held in an
// account settled in accountCurrency needs an FX cross to be valued.
func NeedsFXSymbol(accountCurrency, activityCurrency string) bool {
	return activityCurrency != "" && accountCurrency != "" && activityCurrency != accountCurrency
}
