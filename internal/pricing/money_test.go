package pricing_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

func TestMoneyJSONUsesTwoDecimals(t *testing.T) {
	out, err := json.Marshal(map[string]pricing.Money{"a": 21000, "b": 14175, "c": 0, "d": 5})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":210.00,"b":141.75,"c":0.00,"d":0.05}`, string(out))
	require.Contains(t, string(out), `"a":210.00`)
}

func TestMoneyUnmarshalRounds(t *testing.T) {
	var m pricing.Money
	require.NoError(t, json.Unmarshal([]byte(`12.345`), &m))
	require.Equal(t, pricing.Money(1235), m)

	require.NoError(t, json.Unmarshal([]byte(`"99.9"`), &m))
	require.Equal(t, pricing.Money(9990), m)

	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	require.Equal(t, pricing.Money(0), m)

	require.Error(t, json.Unmarshal([]byte(`"abc"`), &m))
}

func TestPercentConversions(t *testing.T) {
	p := pricing.PercentFromDecimal(decimal.RequireFromString("12.5"))
	require.Equal(t, pricing.Percent(1250), p)
	require.Equal(t, "12.5", p.String())

	var parsed pricing.Percent
	require.NoError(t, json.Unmarshal([]byte(`5`), &parsed))
	require.Equal(t, pricing.Percent(500), parsed)
}

func TestPercentKeepsTwoDecimalPlaces(t *testing.T) {
	require.Equal(t, pricing.Percent(713), pricing.PercentFromDecimal(decimal.RequireFromString("7.125")))
	require.Equal(t, pricing.Percent(712), pricing.PercentFromDecimal(decimal.RequireFromString("7.124")))
	require.Equal(t, pricing.Percent(1100), pricing.PercentFromDecimal(decimal.RequireFromString("11")))
	require.Equal(t, "7.13", pricing.PercentFromDecimal(decimal.RequireFromString("7.125")).String())
}
