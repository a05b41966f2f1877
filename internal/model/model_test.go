package model

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{
			name:    "pending to paid",
			from:    OrderStatusPending,
			to:      OrderStatusPaid,
			allowed: true,
		},
		{
			name:    "pending to canceled",
			from:    OrderStatusPending,
			to:      OrderStatusCanceled,
			allowed: true,
		},
		{
			name:    "paid to canceled",
			from:    OrderStatusPaid,
			to:      OrderStatusCanceled,
			allowed: true,
		},
		{
			name:    "pending to shipped skips payment",
			from:    OrderStatusPending,
			to:      OrderStatusShipped,
			allowed: false,
		},
		{
			name:    "shipped to canceled",
			from:    OrderStatusShipped,
			to:      OrderStatusCanceled,
			allowed: false,
		},
		{
			name:    "delivered is terminal",
			from:    OrderStatusDelivered,
			to:      OrderStatusPending,
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.CanTransitionTo(tt.to)
			if got != tt.allowed {
				t.Fatalf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("IN_PRODUCTION")
	if err != nil {
		t.Fatalf("ParseOrderStatus error: %v", err)
	}
	if status != OrderStatusInProduction {
		t.Fatalf("status = %s, want %s", status, OrderStatusInProduction)
	}

	if _, err := ParseOrderStatus("REFUNDED"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
