package workflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the engine
// semantics over in-memory snapshots: traffic-light classification,
// auto-ticket creation with dedup, and idempotence of repeated evaluation.
// Full DB integration lives in the models package regression test.

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func twoWarehouseSnapshot(refQty, bQty int64) InventorySnapshot {
	return InventorySnapshot{
		Warehouses: []SnapshotWarehouse{
			{ID: 1, Name: "Main Warehouse", IsMain: true},
			{ID: 2, Name: "Warehouse B"},
		},
		Items: []SnapshotItem{
			{ItemId: "X", Name: "Item X", WarehouseId: 1, Quantity: qty(refQty)},
			{ItemId: "X", Name: "Item X", WarehouseId: 2, Quantity: qty(bQty)},
		},
	}
}

func statusFor(t *testing.T, result HealthResult, itemId string, warehouseId int) StatusEntry {
	t.Helper()
	for _, s := range result.Statuses {
		if s.ItemId == itemId && s.WarehouseId == warehouseId {
			return s
		}
	}
	t.Fatalf("no status entry for item %s warehouse %d", itemId, warehouseId)
	return StatusEntry{}
}

func TestEvaluate_RedCreatesUrgentTicket(t *testing.T) {
	result := Evaluate(twoWarehouseSnapshot(100, 5), DefaultHealthPolicy(), testNow)

	entry := statusFor(t, result, "X", 2)
	if entry.Status != StatusRed {
		t.Fatalf("expected red at 5%%, got %s", entry.Status)
	}
	if len(result.Tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(result.Tickets))
	}
	ticket := result.Tickets[0]
	if !ticket.Urgent {
		t.Fatal("5% of reference should open an urgent ticket")
	}
	if ticket.FromWarehouseId != 1 || ticket.ToWarehouseId != 2 {
		t.Fatalf("ticket should run reference->B, got %d->%d", ticket.FromWarehouseId, ticket.ToWarehouseId)
	}
	if !ticket.Quantity.Equal(qty(100)) {
		t.Fatalf("full policy should request the reference quantity, got %s", ticket.Quantity)
	}
	if got := ticket.CollectDate.Sub(ticket.RequestDate); got != 5*24*time.Hour {
		t.Fatalf("collect date should trail request date by 5 days, got %s", got)
	}
}

func TestEvaluate_OrangeCreatesPendingTicket(t *testing.T) {
	result := Evaluate(twoWarehouseSnapshot(100, 50), DefaultHealthPolicy(), testNow)

	if entry := statusFor(t, result, "X", 2); entry.Status != StatusOrange {
		t.Fatalf("expected orange at 50%%, got %s", entry.Status)
	}
	if len(result.Tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(result.Tickets))
	}
	if result.Tickets[0].Urgent {
		t.Fatal("50% should open a pending ticket, not urgent")
	}
}

func TestEvaluate_GreenCreatesNoTicket(t *testing.T) {
	result := Evaluate(twoWarehouseSnapshot(100, 80), DefaultHealthPolicy(), testNow)

	if entry := statusFor(t, result, "X", 2); entry.Status != StatusGreen {
		t.Fatalf("expected green at 80%%, got %s", entry.Status)
	}
	if len(result.Tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(result.Tickets))
	}
}

func TestEvaluate_OpenTicketSuppressesDuplicate(t *testing.T) {
	snap := twoWarehouseSnapshot(100, 5)
	snap.OpenTickets = []SnapshotTicket{
		{Kind: KindReplenishment, ItemId: "X", ToWarehouseId: 2, Open: true},
	}

	result := Evaluate(snap, DefaultHealthPolicy(), testNow)

	if len(result.Tickets) != 0 {
		t.Fatalf("open ticket should suppress recreation, got %d tickets", len(result.Tickets))
	}
	if result.DuplicatesSuppressed != 1 {
		t.Fatalf("expected 1 suppressed duplicate, got %d", result.DuplicatesSuppressed)
	}
	// status computation is unaffected by suppression
	if entry := statusFor(t, result, "X", 2); entry.Status != StatusRed {
		t.Fatalf("expected red, got %s", entry.Status)
	}
}

func TestEvaluate_TerminalTicketDoesNotSuppress(t *testing.T) {
	snap := twoWarehouseSnapshot(100, 5)
	// closed tickets come through as Open=false
	snap.OpenTickets = []SnapshotTicket{
		{Kind: KindReplenishment, ItemId: "X", ToWarehouseId: 2, Open: false},
	}

	result := Evaluate(snap, DefaultHealthPolicy(), testNow)

	if len(result.Tickets) != 1 {
		t.Fatalf("terminal ticket must not block a new one, got %d tickets", len(result.Tickets))
	}
}

func TestEvaluate_DedupMatchesWarehouseIdentityNotName(t *testing.T) {
	snap := twoWarehouseSnapshot(100, 5)
	// same item, different destination warehouse
	snap.OpenTickets = []SnapshotTicket{
		{Kind: KindReplenishment, ItemId: "X", ToWarehouseId: 3, Open: true},
	}

	result := Evaluate(snap, DefaultHealthPolicy(), testNow)

	if len(result.Tickets) != 1 {
		t.Fatalf("ticket for another destination must not suppress, got %d tickets", len(result.Tickets))
	}
}

func TestEvaluate_NoReferenceWarehouseIsInert(t *testing.T) {
	snap := InventorySnapshot{
		Warehouses: []SnapshotWarehouse{
			{ID: 1, Name: "North"},
			{ID: 2, Name: "South"},
		},
		Items: []SnapshotItem{
			{ItemId: "X", WarehouseId: 1, Quantity: qty(100)},
			{ItemId: "X", WarehouseId: 2, Quantity: qty(5)},
		},
	}

	result := Evaluate(snap, DefaultHealthPolicy(), testNow)

	if result.ReferenceWarehouseId != 0 {
		t.Fatalf("expected no reference, got warehouse %d", result.ReferenceWarehouseId)
	}
	if len(result.Tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(result.Tickets))
	}
	for _, s := range result.Statuses {
		if s.Status != StatusUnknown {
			t.Fatalf("expected unknown for all rows, got %s", s.Status)
		}
	}
}

func TestEvaluate_ReferenceResolvedByNameMarker(t *testing.T) {
	snap := twoWarehouseSnapshot(100, 5)
	snap.Warehouses[0].IsMain = false // falls back to "Main Warehouse" by name

	result := Evaluate(snap, DefaultHealthPolicy(), testNow)

	if result.ReferenceWarehouseId != 1 {
		t.Fatalf("expected marker match on warehouse 1, got %d", result.ReferenceWarehouseId)
	}
	if len(result.Tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(result.Tickets))
	}
}

func TestEvaluate_InclusiveBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		bQty   int64
		status StockStatus
		urgent *bool // nil: no ticket expected
	}{
		{"exactly 10 percent is red", 10, StatusRed, boolPtr(true)},
		{"just above 10 percent is orange", 11, StatusOrange, boolPtr(true)},
		{"exactly 20 percent is still urgent", 20, StatusOrange, boolPtr(true)},
		{"just above 20 percent is pending", 21, StatusOrange, boolPtr(false)},
		{"exactly 60 percent is orange", 60, StatusOrange, boolPtr(false)},
		{"just above 60 percent is green", 61, StatusGreen, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Evaluate(twoWarehouseSnapshot(100, tc.bQty), DefaultHealthPolicy(), testNow)
			if entry := statusFor(t, result, "X", 2); entry.Status != tc.status {
				t.Fatalf("qty %d: expected %s, got %s", tc.bQty, tc.status, entry.Status)
			}
			if tc.urgent == nil {
				if len(result.Tickets) != 0 {
					t.Fatalf("qty %d: expected no ticket", tc.bQty)
				}
				return
			}
			if len(result.Tickets) != 1 {
				t.Fatalf("qty %d: expected 1 ticket, got %d", tc.bQty, len(result.Tickets))
			}
			if result.Tickets[0].Urgent != *tc.urgent {
				t.Fatalf("qty %d: expected urgent=%v", tc.bQty, *tc.urgent)
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestEvaluate_ZeroReferenceQuantityIsUnknown(t *testing.T) {
	result := Evaluate(twoWarehouseSnapshot(0, 5), DefaultHealthPolicy(), testNow)

	if entry := statusFor(t, result, "X", 2); entry.Status != StatusUnknown {
		t.Fatalf("zero reference quantity must classify unknown, got %s", entry.Status)
	}
	if len(result.Tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(result.Tickets))
	}
}

func TestEvaluate_MissingCounterpartIsUnknown(t *testing.T) {
	snap := InventorySnapshot{
		Warehouses: []SnapshotWarehouse{
			{ID: 1, Name: "Main Warehouse", IsMain: true},
			{ID: 2, Name: "Warehouse B"},
		},
		Items: []SnapshotItem{
			// item Y only exists at warehouse B
			{ItemId: "Y", Name: "Item Y", WarehouseId: 2, Quantity: qty(5)},
		},
	}

	result := Evaluate(snap, DefaultHealthPolicy(), testNow)

	if entry := statusFor(t, result, "Y", 2); entry.Status != StatusUnknown {
		t.Fatalf("expected unknown without a reference counterpart, got %s", entry.Status)
	}
	if len(result.Tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(result.Tickets))
	}
}

func TestEvaluate_ReferenceRowAlwaysGreenByDefault(t *testing.T) {
	// even a zero quantity at the reference warehouse stays green when no
	// baseline is configured
	result := Evaluate(twoWarehouseSnapshot(0, 5), DefaultHealthPolicy(), testNow)

	if entry := statusFor(t, result, "X", 1); entry.Status != StatusGreen {
		t.Fatalf("reference row should default to green, got %s", entry.Status)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	snap := InventorySnapshot{
		Warehouses: []SnapshotWarehouse{
			{ID: 1, Name: "Main Warehouse", IsMain: true},
			{ID: 2, Name: "Warehouse B"},
			{ID: 3, Name: "Warehouse C"},
		},
		Items: []SnapshotItem{
			{ItemId: "X", WarehouseId: 1, Quantity: qty(100)},
			{ItemId: "X", WarehouseId: 2, Quantity: qty(5)},
			{ItemId: "X", WarehouseId: 3, Quantity: qty(50)},
			{ItemId: "Y", WarehouseId: 1, Quantity: qty(40)},
			{ItemId: "Y", WarehouseId: 2, Quantity: qty(4)},
		},
	}

	first := Evaluate(snap, DefaultHealthPolicy(), testNow)
	if len(first.Tickets) != 3 {
		t.Fatalf("expected 3 tickets on first run, got %d", len(first.Tickets))
	}

	// feed the first run's tickets back as open tickets
	for _, spec := range first.Tickets {
		snap.OpenTickets = append(snap.OpenTickets, SnapshotTicket{
			Kind:          spec.Kind,
			ItemId:        spec.ItemId,
			ToWarehouseId: spec.ToWarehouseId,
			Open:          true,
		})
	}

	second := Evaluate(snap, DefaultHealthPolicy(), testNow.Add(time.Minute))
	if len(second.Tickets) != 0 {
		t.Fatalf("second run must be a no-op, got %d tickets", len(second.Tickets))
	}
	if second.DuplicatesSuppressed != 3 {
		t.Fatalf("expected 3 suppressed duplicates, got %d", second.DuplicatesSuppressed)
	}
}

func TestEvaluate_BaselineModeClassifiesReference(t *testing.T) {
	policy := DefaultHealthPolicy()
	policy.ReferenceBaseline = qty(200)

	// 5/200 = 2.5% -> red at the reference itself
	result := Evaluate(twoWarehouseSnapshot(5, 3), policy, testNow)

	entry := statusFor(t, result, "X", 1)
	if entry.Status != StatusRed {
		t.Fatalf("expected red reference row against baseline, got %s", entry.Status)
	}

	var production *TicketSpec
	for i := range result.Tickets {
		if result.Tickets[i].Kind == KindProduction {
			production = &result.Tickets[i]
		}
	}
	if production == nil {
		t.Fatal("red reference row should raise a production ticket")
	}
	if production.ToWarehouseId != 0 {
		t.Fatalf("production tickets carry no destination, got %d", production.ToWarehouseId)
	}
	if !production.Quantity.Equal(qty(5)) {
		t.Fatalf("production ticket should carry current reference quantity, got %s", production.Quantity)
	}
}

func TestEvaluate_OpenProductionTicketSuppressesEscalation(t *testing.T) {
	policy := DefaultHealthPolicy()
	policy.ReferenceBaseline = qty(200)

	snap := twoWarehouseSnapshot(5, 300)
	snap.OpenTickets = []SnapshotTicket{
		{Kind: KindProduction, ItemId: "X", Open: true},
	}

	result := Evaluate(snap, policy, testNow)
	for _, spec := range result.Tickets {
		if spec.Kind == KindProduction {
			t.Fatal("open production ticket should suppress another")
		}
	}
	if result.DuplicatesSuppressed != 1 {
		t.Fatalf("expected 1 suppressed duplicate, got %d", result.DuplicatesSuppressed)
	}
}

func TestEvaluate_ReplenishmentPolicies(t *testing.T) {
	cases := []struct {
		name     string
		policy   ReplenishPolicy
		fixed    int64
		expected int64
	}{
		{"full takes reference quantity", ReplenishFull, 0, 95},
		{"fixed takes configured quantity", ReplenishFixed, 40, 40},
		{"tenth takes ceil of a tenth", ReplenishTenth, 0, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := DefaultHealthPolicy()
			policy.ReplenishQuantity = tc.policy
			policy.FixedQuantity = qty(tc.fixed)

			result := Evaluate(twoWarehouseSnapshot(95, 5), policy, testNow)
			if len(result.Tickets) != 1 {
				t.Fatalf("expected 1 ticket, got %d", len(result.Tickets))
			}
			if !result.Tickets[0].Quantity.Equal(qty(tc.expected)) {
				t.Fatalf("expected quantity %d, got %s", tc.expected, result.Tickets[0].Quantity)
			}
		})
	}
}

func TestEvaluate_DeterministicOrder(t *testing.T) {
	snap := InventorySnapshot{
		Warehouses: []SnapshotWarehouse{
			{ID: 1, Name: "Main Warehouse", IsMain: true},
			{ID: 2, Name: "B"},
			{ID: 3, Name: "C"},
		},
		Items: []SnapshotItem{
			{ItemId: "X", WarehouseId: 1, Quantity: qty(100)},
			{ItemId: "X", WarehouseId: 2, Quantity: qty(5)},
			{ItemId: "X", WarehouseId: 3, Quantity: qty(5)},
		},
	}

	first := Evaluate(snap, DefaultHealthPolicy(), testNow)
	for i := 0; i < 20; i++ {
		again := Evaluate(snap, DefaultHealthPolicy(), testNow)
		if len(again.Tickets) != len(first.Tickets) {
			t.Fatal("ticket count changed between runs")
		}
		for j := range again.Tickets {
			if again.Tickets[j].ToWarehouseId != first.Tickets[j].ToWarehouseId {
				t.Fatal("ticket order changed between runs")
			}
		}
	}
}
