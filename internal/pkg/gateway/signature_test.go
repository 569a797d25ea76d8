package gateway

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	data := map[string]interface{}{
		"orderCode":   json.Number("123"),
		"amount":      json.Number("3000"),
		"description": "VQRIO123",
		"reference":   nil,
		"flag":        true,
		"tags":        []interface{}{"a", "b"},
	}

	got, err := canonicalize(data)
	require.NoError(t, err)
	assert.Equal(t, `amount=3000&description=VQRIO123&flag=true&orderCode=123&reference=&tags=["a","b"]`, got)
}

func TestSignPaymentRequest(t *testing.T) {
	req := PaymentRequest{
		OrderCode:   123,
		Amount:      2000,
		Description: "DH 123",
		ReturnURL:   "https://a/ok",
		CancelURL:   "https://a/cancel",
	}
	want := sign("key", "amount=2000&cancelUrl=https://a/cancel&description=DH 123&orderCode=123&returnUrl=https://a/ok")

	assert.Equal(t, want, SignPaymentRequest("key", req))
	assert.NotEqual(t, want, SignPaymentRequest("other", req))
}

func TestVerifyData(t *testing.T) {
	data := map[string]interface{}{"orderCode": json.Number("1"), "amount": json.Number("10")}
	sig, err := SignData("key", data)
	require.NoError(t, err)

	assert.True(t, VerifyData("key", data, sig))
	assert.True(t, VerifyData("key", data, strings.ToUpper(sig)))

	last := "0"
	if strings.HasSuffix(sig, "0") {
		last = "1"
	}
	assert.False(t, VerifyData("key", data, sig[:len(sig)-1]+last))
	assert.False(t, VerifyData("wrong", data, sig))
}

func TestDecodeData_PreservesLargeNumbers(t *testing.T) {
	data, err := decodeData(json.RawMessage(`{"orderCode":9007199254740993}`))
	require.NoError(t, err)

	s, err := formatValue(data["orderCode"])
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", s)
}
