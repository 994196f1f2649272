package workflow

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stock health evaluation. Pure functions over an in-memory snapshot; the
// models layer owns loading the snapshot and persisting the resulting
// tickets. Evaluate never returns an error: degraded input (no reference
// warehouse, missing counterpart rows, zero reference quantity) degrades to
// unknown statuses and zero tickets.

type StockStatus string

const (
	StatusGreen   StockStatus = "green"
	StatusOrange  StockStatus = "orange"
	StatusRed     StockStatus = "red"
	StatusUnknown StockStatus = "unknown"
)

type TicketKind string

const (
	KindReplenishment TicketKind = "R"
	KindProduction    TicketKind = "P"
)

type ReplenishPolicy string

const (
	// full reference warehouse quantity
	ReplenishFull ReplenishPolicy = "full"
	// fixed quantity from configuration
	ReplenishFixed ReplenishPolicy = "fixed"
	// ceil(reference quantity / 10), the storefront sync convention
	ReplenishTenth ReplenishPolicy = "tenth"
)

type HealthPolicy struct {
	// substring used once to find the reference warehouse by name when no
	// is_main flag is present in the snapshot
	ReferenceMarker string

	// classification thresholds, inclusive, checked red then orange
	RedPercent    decimal.Decimal
	OrangePercent decimal.Decimal
	// at or below this a new ticket opens as Urgent instead of Pending
	UrgentPercent decimal.Decimal

	// days between request_date and collect_date on new tickets
	LeadTimeDays int

	// zero: the reference warehouse's own rows are always green.
	// positive: reference rows are classified against this fixed baseline
	// with the same thresholds, and red reference rows raise Production
	// tickets.
	ReferenceBaseline decimal.Decimal

	ReplenishQuantity ReplenishPolicy
	FixedQuantity     decimal.Decimal
}

func DefaultHealthPolicy() HealthPolicy {
	return HealthPolicy{
		ReferenceMarker:   "main",
		RedPercent:        decimal.NewFromInt(10),
		OrangePercent:     decimal.NewFromInt(60),
		UrgentPercent:     decimal.NewFromInt(20),
		LeadTimeDays:      5,
		ReplenishQuantity: ReplenishFull,
	}
}

type SnapshotWarehouse struct {
	ID     int
	Name   string
	IsMain bool
}

type SnapshotItem struct {
	ItemId      string
	Name        string
	WarehouseId int
	Quantity    decimal.Decimal
}

type SnapshotTicket struct {
	Kind          TicketKind
	ItemId        string
	ToWarehouseId int
	Open          bool
}

type InventorySnapshot struct {
	Warehouses  []SnapshotWarehouse
	Items       []SnapshotItem
	OpenTickets []SnapshotTicket
}

type StatusEntry struct {
	ItemId            string
	ItemName          string
	WarehouseId       int
	WarehouseName     string
	Quantity          decimal.Decimal
	ReferenceQuantity decimal.Decimal
	Percent           decimal.Decimal
	Status            StockStatus
}

type TicketSpec struct {
	Kind            TicketKind
	ItemId          string
	ItemName        string
	FromWarehouseId int
	ToWarehouseId   int
	Quantity        decimal.Decimal
	Urgent          bool
	RequestDate     time.Time
	CollectDate     time.Time
}

type HealthResult struct {
	ReferenceWarehouseId int
	Statuses             []StatusEntry
	Tickets              []TicketSpec
	DuplicatesSuppressed int
}

var oneHundred = decimal.NewFromInt(100)

func (p HealthPolicy) normalized() HealthPolicy {
	def := DefaultHealthPolicy()
	if p.ReferenceMarker == "" {
		p.ReferenceMarker = def.ReferenceMarker
	}
	if p.RedPercent.IsZero() {
		p.RedPercent = def.RedPercent
	}
	if p.OrangePercent.IsZero() {
		p.OrangePercent = def.OrangePercent
	}
	if p.UrgentPercent.IsZero() {
		p.UrgentPercent = def.UrgentPercent
	}
	if p.LeadTimeDays <= 0 {
		p.LeadTimeDays = def.LeadTimeDays
	}
	if p.ReplenishQuantity == "" {
		p.ReplenishQuantity = def.ReplenishQuantity
	}
	return p
}

// classify maps a stock percentage onto a traffic light. Boundaries are
// inclusive: exactly RedPercent is red, exactly OrangePercent is orange.
func (p HealthPolicy) classify(percent decimal.Decimal) StockStatus {
	if percent.LessThanOrEqual(p.RedPercent) {
		return StatusRed
	}
	if percent.LessThanOrEqual(p.OrangePercent) {
		return StatusOrange
	}
	return StatusGreen
}

// ResolveReference picks the reference warehouse from the snapshot: the
// first flagged warehouse wins, then the first whose name contains the
// marker. Returns nil when neither matches.
func (p HealthPolicy) ResolveReference(warehouses []SnapshotWarehouse) *SnapshotWarehouse {
	for i := range warehouses {
		if warehouses[i].IsMain {
			return &warehouses[i]
		}
	}
	marker := strings.ToLower(p.ReferenceMarker)
	for i := range warehouses {
		if strings.Contains(strings.ToLower(warehouses[i].Name), marker) {
			return &warehouses[i]
		}
	}
	return nil
}

func (p HealthPolicy) replenishQuantity(referenceQty decimal.Decimal) decimal.Decimal {
	switch p.ReplenishQuantity {
	case ReplenishFixed:
		return p.FixedQuantity
	case ReplenishTenth:
		return referenceQty.Div(decimal.NewFromInt(10)).Ceil()
	default:
		return referenceQty
	}
}

type dedupKey struct {
	kind          TicketKind
	itemId        string
	toWarehouseId int
}

// Evaluate runs the classification and ticket decision over one snapshot.
// Deterministic: output order follows snapshot input order. Running the
// result's tickets back in as open snapshot tickets produces zero new
// tickets; dedup is the sole idempotence guard.
func Evaluate(snap InventorySnapshot, policy HealthPolicy, now time.Time) HealthResult {
	policy = policy.normalized()

	var result HealthResult

	warehouseNames := make(map[int]string, len(snap.Warehouses))
	for _, w := range snap.Warehouses {
		warehouseNames[w.ID] = w.Name
	}

	reference := policy.ResolveReference(snap.Warehouses)
	if reference == nil {
		// inert: everything unknown, no tickets
		for _, item := range snap.Items {
			result.Statuses = append(result.Statuses, StatusEntry{
				ItemId:        item.ItemId,
				ItemName:      item.Name,
				WarehouseId:   item.WarehouseId,
				WarehouseName: warehouseNames[item.WarehouseId],
				Quantity:      item.Quantity,
				Status:        StatusUnknown,
			})
		}
		return result
	}
	result.ReferenceWarehouseId = reference.ID

	// reference quantities per item code
	referenceQty := make(map[string]decimal.Decimal)
	for _, item := range snap.Items {
		if item.WarehouseId == reference.ID {
			referenceQty[item.ItemId] = item.Quantity
		}
	}

	open := make(map[dedupKey]bool, len(snap.OpenTickets))
	for _, t := range snap.OpenTickets {
		if !t.Open {
			continue
		}
		key := dedupKey{kind: t.Kind, itemId: t.ItemId, toWarehouseId: t.ToWarehouseId}
		if t.Kind == KindProduction {
			key.toWarehouseId = 0
		}
		open[key] = true
	}

	baselineMode := policy.ReferenceBaseline.IsPositive()
	requestDate := now
	collectDate := now.AddDate(0, 0, policy.LeadTimeDays)

	for _, item := range snap.Items {
		entry := StatusEntry{
			ItemId:        item.ItemId,
			ItemName:      item.Name,
			WarehouseId:   item.WarehouseId,
			WarehouseName: warehouseNames[item.WarehouseId],
			Quantity:      item.Quantity,
		}

		if item.WarehouseId == reference.ID {
			if baselineMode {
				entry.ReferenceQuantity = policy.ReferenceBaseline
				entry.Percent = item.Quantity.Div(policy.ReferenceBaseline).Mul(oneHundred)
				entry.Status = policy.classify(entry.Percent)

				if entry.Status == StatusRed {
					key := dedupKey{kind: KindProduction, itemId: item.ItemId}
					if open[key] {
						result.DuplicatesSuppressed++
					} else {
						open[key] = true
						result.Tickets = append(result.Tickets, TicketSpec{
							Kind:            KindProduction,
							ItemId:          item.ItemId,
							ItemName:        item.Name,
							FromWarehouseId: reference.ID,
							Quantity:        item.Quantity,
							Urgent:          entry.Percent.LessThanOrEqual(policy.UrgentPercent),
							RequestDate:     requestDate,
							CollectDate:     collectDate,
						})
					}
				}
			} else {
				// the reference stock is the yardstick, not a consumer
				entry.ReferenceQuantity = item.Quantity
				entry.Percent = oneHundred
				entry.Status = StatusGreen
			}
			result.Statuses = append(result.Statuses, entry)
			continue
		}

		refQty, hasReference := referenceQty[item.ItemId]
		if !hasReference || !refQty.IsPositive() {
			entry.Status = StatusUnknown
			result.Statuses = append(result.Statuses, entry)
			continue
		}

		entry.ReferenceQuantity = refQty
		entry.Percent = item.Quantity.Div(refQty).Mul(oneHundred)
		entry.Status = policy.classify(entry.Percent)
		result.Statuses = append(result.Statuses, entry)

		// replenishment decision
		if entry.Percent.GreaterThan(policy.OrangePercent) {
			continue
		}
		key := dedupKey{kind: KindReplenishment, itemId: item.ItemId, toWarehouseId: item.WarehouseId}
		if open[key] {
			result.DuplicatesSuppressed++
			continue
		}
		open[key] = true
		result.Tickets = append(result.Tickets, TicketSpec{
			Kind:            KindReplenishment,
			ItemId:          item.ItemId,
			ItemName:        item.Name,
			FromWarehouseId: reference.ID,
			ToWarehouseId:   item.WarehouseId,
			Quantity:        policy.replenishQuantity(refQty),
			Urgent:          entry.Percent.LessThanOrEqual(policy.UrgentPercent),
			RequestDate:     requestDate,
			CollectDate:     collectDate,
		})
	}

	return result
}
