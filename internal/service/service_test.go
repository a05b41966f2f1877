package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/freight"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/model"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/repository"
)

type stubRepo struct {
	products    []model.Product
	productsErr error

	product    *model.Product
	productErr error

	createOrderCalled bool
	createOrderItems  []model.OrderItemRequest
	createOrderResp   *model.Order
	createOrderErr    error

	orders    []model.Order
	ordersErr error

	addresses    []model.Address
	addressesErr error

	canceledCount int64
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) GetProducts(ctx context.Context, category string) ([]model.Product, error) {
	return s.products, s.productsErr
}

func (s *stubRepo) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubRepo) UpdateProduct(ctx context.Context, id int64, upd repository.ProductUpdate) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubRepo) CreateAddress(ctx context.Context, a model.Address) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetAddressesByCustomer(ctx context.Context, customerID int64) ([]model.Address, error) {
	return s.addresses, s.addressesErr
}

func (s *stubRepo) CreateOrder(ctx context.Context, customerID, addressID int64, items []model.OrderItemRequest) (*model.Order, error) {
	s.createOrderCalled = true
	s.createOrderItems = items
	return s.createOrderResp, s.createOrderErr
}

func (s *stubRepo) GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubRepo) GetOrderByID(ctx context.Context, customerID, orderID int64) (*model.Order, error) {
	if len(s.orders) == 0 {
		return nil, repository.ErrOrderNotFound
	}
	return &s.orders[0], nil
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, customerID, orderID int64, next model.OrderStatus) error {
	return nil
}

func (s *stubRepo) CancelStaleOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.canceledCount, nil
}

func (s *stubRepo) CreateContactMessage(ctx context.Context, m model.ContactMessage) (int64, error) {
	return 1, nil
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)

	_, err := svc.PlaceOrder(context.Background(), 1, 1, nil)
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("err = %v, want ErrNoItems", err)
	}
	if repo.createOrderCalled {
		t.Fatalf("repository must not be touched for an empty order")
	}
}

func TestPlaceOrder_NonPositiveQuantity(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)

	_, err := svc.PlaceOrder(context.Background(), 1, 1, []model.OrderItemRequest{
		{ProductID: 1, Quantity: 0},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("err = %v, want ErrInvalidQuantity", err)
	}
	if repo.createOrderCalled {
		t.Fatalf("repository must not be touched for invalid quantity")
	}
}

func TestPlaceOrder_MergesDuplicateProducts(t *testing.T) {
	repo := &stubRepo{
		createOrderResp: &model.Order{ID: 7},
	}
	svc := NewService(repo, nil)

	_, err := svc.PlaceOrder(context.Background(), 1, 1, []model.OrderItemRequest{
		{ProductID: 10, Quantity: 2},
		{ProductID: 20, Quantity: 1},
		{ProductID: 10, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}

	want := []model.OrderItemRequest{
		{ProductID: 10, Quantity: 5},
		{ProductID: 20, Quantity: 1},
	}
	if len(repo.createOrderItems) != len(want) {
		t.Fatalf("merged items = %+v, want %+v", repo.createOrderItems, want)
	}
	for i := range want {
		if repo.createOrderItems[i] != want[i] {
			t.Fatalf("merged items = %+v, want %+v", repo.createOrderItems, want)
		}
	}
}

func TestPlaceOrder_PropagatesStockError(t *testing.T) {
	repo := &stubRepo{
		createOrderErr: repository.ErrInsufficientStock,
	}
	svc := NewService(repo, nil)

	_, err := svc.PlaceOrder(context.Background(), 1, 1, []model.OrderItemRequest{
		{ProductID: 1, Quantity: 2},
	})
	if !errors.Is(err, repository.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestUpdateProduct_RejectsNegativeValues(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	price := int64(-1)
	if _, err := svc.UpdateProduct(context.Background(), 1, repository.ProductUpdate{PriceCents: &price}); err == nil {
		t.Fatalf("expected error for negative price")
	}

	stock := int32(-5)
	if _, err := svc.UpdateProduct(context.Background(), 1, repository.ProductUpdate{Stock: &stock}); err == nil {
		t.Fatalf("expected error for negative stock")
	}
}

func TestQuoteFreight_NoClient(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	_, err := svc.QuoteFreight(context.Background(), "01310-100", 1)
	if !errors.Is(err, ErrFreightUnavailable) {
		t.Fatalf("err = %v, want ErrFreightUnavailable", err)
	}
}

func TestQuoteFreight_ConvertsToCents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := freight.Quote{
			CEP:          "01310-100",
			Price:        45.9,
			DeliveryDays: 7,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	svc := NewService(&stubRepo{}, freight.NewClient(ts.URL))

	quote, err := svc.QuoteFreight(context.Background(), "01310-100", 2)
	if err != nil {
		t.Fatalf("QuoteFreight error: %v", err)
	}
	if quote.PriceCents != 4590 {
		t.Fatalf("PriceCents = %d, want 4590", quote.PriceCents)
	}
	if quote.DeliveryDays != 7 {
		t.Fatalf("DeliveryDays = %d, want 7", quote.DeliveryDays)
	}
}

func TestQuoteFreight_NoCoverage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	svc := NewService(&stubRepo{}, freight.NewClient(ts.URL))

	_, err := svc.QuoteFreight(context.Background(), "99999-999", 1)
	if !errors.Is(err, ErrFreightUnavailable) {
		t.Fatalf("err = %v, want ErrFreightUnavailable", err)
	}
}

func TestStartOrderCleanup_ReturnsImmediately(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.StartOrderCleanup(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartOrderCleanup must not block the caller")
	}
}
