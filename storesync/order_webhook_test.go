package storesync

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestUsableLines_SkipsEmptySkuAndNonPositiveQty(t *testing.T) {
	order := &OrderWebhook{
		OrderId: "ord-1",
		LineItems: []OrderLineItem{
			{Sku: "X", Quantity: decimal.NewFromInt(2)},
			{Sku: "", Quantity: decimal.NewFromInt(5)},
			{Sku: "Y", Quantity: decimal.Zero},
			{Sku: "Z", Quantity: decimal.NewFromInt(-1)},
			{Sku: "  ", Quantity: decimal.NewFromInt(3)},
		},
	}

	lines := usableLines(order)
	if len(lines) != 1 {
		t.Fatalf("expected 1 usable line, got %d", len(lines))
	}
	if lines[0].Sku != "X" || !lines[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected line %+v", lines[0])
	}
}

func TestUsableLines_MergesRepeatedSkus(t *testing.T) {
	order := &OrderWebhook{
		LineItems: []OrderLineItem{
			{Sku: "X", Quantity: decimal.NewFromInt(2)},
			{Sku: "X ", Quantity: decimal.NewFromInt(3)},
			{Sku: "Y", Quantity: decimal.NewFromInt(1)},
		},
	}

	lines := usableLines(order)
	if len(lines) != 2 {
		t.Fatalf("expected 2 merged lines, got %d", len(lines))
	}
	if !lines[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected merged quantity 5, got %s", lines[0].Quantity)
	}
}

func TestRemainingAfter_ClampsAtZero(t *testing.T) {
	cases := []struct {
		current, deduct, expected int64
	}{
		{10, 3, 7},
		{3, 3, 0},
		{2, 5, 0},
		{0, 1, 0},
	}
	for _, tc := range cases {
		got := remainingAfter(decimal.NewFromInt(tc.current), decimal.NewFromInt(tc.deduct))
		if !got.Equal(decimal.NewFromInt(tc.expected)) {
			t.Fatalf("%d - %d: expected %d, got %s", tc.current, tc.deduct, tc.expected, got)
		}
	}
}

func TestOrderWebhook_ParsesStorefrontPayload(t *testing.T) {
	payload := []byte(`{
		"orderId": "10023",
		"storeId": "store-77",
		"lineItems": [
			{"sku": "X", "name": "Item X", "quantity": 2},
			{"sku": "Y", "name": "Item Y", "quantity": "1.5"}
		]
	}`)

	var order OrderWebhook
	if err := json.Unmarshal(payload, &order); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if order.StoreId != "store-77" {
		t.Fatalf("unexpected store id %q", order.StoreId)
	}
	if len(order.LineItems) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.LineItems))
	}
	if !order.LineItems[1].Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("string quantities should parse, got %s", order.LineItems[1].Quantity)
	}
}
