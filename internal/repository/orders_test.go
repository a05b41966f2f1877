package repository

import (
	"errors"
	"testing"

	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/model"
)

func testProducts() map[int64]lockedProduct {
	return map[int64]lockedProduct{
		1: {id: 1, name: "Berço Colonial", price: 10000, stock: 10, available: true},
		2: {id: 2, name: "Cômoda Retrô", price: 34990, stock: 3, available: true},
		3: {id: 3, name: "Poltrona Amamentação", price: 129900, stock: 5, available: false},
	}
}

func TestPriceOrderItems_Total(t *testing.T) {
	total, lineItems, err := priceOrderItems(testProducts(), []model.OrderItemRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("priceOrderItems error: %v", err)
	}

	// 2*100.00 + 3*349.90 = 1249.70
	if total != 124970 {
		t.Fatalf("total = %d, want 124970", total)
	}
	if len(lineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(lineItems))
	}
	if lineItems[0].PriceCents != 10000 || lineItems[1].PriceCents != 34990 {
		t.Fatalf("frozen prices not captured: %+v", lineItems)
	}
}

func TestPriceOrderItems_FrozenPriceIndependentOfCatalog(t *testing.T) {
	products := testProducts()

	_, lineItems, err := priceOrderItems(products, []model.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("priceOrderItems error: %v", err)
	}

	// Изменение каталожной цены после расчёта не влияет на позицию
	p := products[1]
	p.price = 99999
	products[1] = p

	if lineItems[0].PriceCents != 10000 {
		t.Fatalf("line item price = %d, want 10000", lineItems[0].PriceCents)
	}
}

func TestPriceOrderItems_Errors(t *testing.T) {
	tests := []struct {
		name    string
		items   []model.OrderItemRequest
		wantErr error
	}{
		{
			name:    "unknown product",
			items:   []model.OrderItemRequest{{ProductID: 9999, Quantity: 1}},
			wantErr: ErrProductNotFound,
		},
		{
			name:    "unavailable product",
			items:   []model.OrderItemRequest{{ProductID: 3, Quantity: 1}},
			wantErr: ErrProductUnavailable,
		},
		{
			name:    "insufficient stock",
			items:   []model.OrderItemRequest{{ProductID: 2, Quantity: 4}},
			wantErr: ErrInsufficientStock,
		},
		{
			name: "valid item does not mask invalid one",
			items: []model.OrderItemRequest{
				{ProductID: 1, Quantity: 1},
				{ProductID: 9999, Quantity: 1},
			},
			wantErr: ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, lineItems, err := priceOrderItems(testProducts(), tt.items)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if total != 0 || lineItems != nil {
				t.Fatalf("expected no result on error, got total=%d items=%v", total, lineItems)
			}
		})
	}
}

func TestPriceOrderItems_StockBoundary(t *testing.T) {
	total, _, err := priceOrderItems(testProducts(), []model.OrderItemRequest{
		{ProductID: 2, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("quantity equal to stock must be allowed: %v", err)
	}
	if total != 104970 {
		t.Fatalf("total = %d, want 104970", total)
	}
}
