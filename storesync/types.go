package storesync

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type ConnectRequest struct {
	StoreId          string `json:"storeId"`
	StoreName        string `json:"storeName"`
	SalesWarehouseId int    `json:"salesWarehouseId"`
}

type ConnectionResponse struct {
	Status           string `json:"status"`
	StoreId          string `json:"storeId,omitempty"`
	StoreName        string `json:"storeName,omitempty"`
	SalesWarehouseId int    `json:"salesWarehouseId,omitempty"`
}

type StatusResponse struct {
	Connection        ConnectionResponse `json:"connection"`
	LastSyncAt        *string            `json:"lastSyncAt,omitempty"`
	LastSuccessSyncAt *string            `json:"lastSuccessSyncAt,omitempty"`
}

// OrderWebhook is the storefront's order-paid event. Line items reference
// stock by SKU.
type OrderWebhook struct {
	OrderId   string          `json:"orderId"`
	StoreId   string          `json:"storeId"`
	LineItems []OrderLineItem `json:"lineItems"`
}

type OrderLineItem struct {
	Sku      string          `json:"sku"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
}

type storeProductsResponse struct {
	Products []json.RawMessage `json:"products"`
	Items    []json.RawMessage `json:"items"`
}
