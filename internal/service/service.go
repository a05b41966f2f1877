// Package service реализует бизнес-логику магазина мебели.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/freight"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/model"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetProducts(ctx context.Context, category string) ([]model.Product, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd repository.ProductUpdate) (*model.Product, error)
	CreateAddress(ctx context.Context, a model.Address) (int64, error)
	GetAddressesByCustomer(ctx context.Context, customerID int64) ([]model.Address, error)
	CreateOrder(ctx context.Context, customerID, addressID int64, items []model.OrderItemRequest) (*model.Order, error)
	GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	GetOrderByID(ctx context.Context, customerID, orderID int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, customerID, orderID int64, next model.OrderStatus) error
	CancelStaleOrders(ctx context.Context, cutoff time.Time) (int64, error)
	CreateContactMessage(ctx context.Context, m model.ContactMessage) (int64, error)
}

// ErrNoItems возвращается при попытке оформить заказ без позиций.
var (
	ErrNoItems = errors.New("order must contain at least one item")
	// ErrInvalidQuantity возвращается, если количество в позиции не положительно.
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	// ErrFreightUnavailable возвращается, если сервис доставки недоступен или не обслуживает CEP.
	ErrFreightUnavailable = errors.New("freight service unavailable")
)

const (
	// pendingOrderTTL — срок, после которого неоплаченный заказ отменяется.
	pendingOrderTTL = 72 * time.Hour
	cleanupInterval = 24 * time.Hour
)

// Service содержит бизнес-логику магазина мебели.
type Service struct {
	repo          Repository
	freightClient *freight.Client
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом сервиса доставки.
func NewService(repo Repository, freightClient *freight.Client) *Service {
	return &Service{
		repo:          repo,
		freightClient: freightClient,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// GetProducts возвращает товары каталога, опционально отфильтрованные по категории.
func (s *Service) GetProducts(ctx context.Context, category string) ([]model.Product, error) {
	return s.repo.GetProducts(ctx, category)
}

// GetProductByID возвращает товар по идентификатору.
func (s *Service) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// UpdateProduct применяет частичное обновление товара.
func (s *Service) UpdateProduct(ctx context.Context, id int64, upd repository.ProductUpdate) (*model.Product, error) {
	if upd.PriceCents != nil && *upd.PriceCents < 0 {
		return nil, errors.New("price must not be negative")
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, errors.New("stock must not be negative")
	}
	return s.repo.UpdateProduct(ctx, id, upd)
}

// CreateAddress сохраняет новый адрес доставки покупателя.
func (s *Service) CreateAddress(ctx context.Context, a model.Address) (int64, error) {
	return s.repo.CreateAddress(ctx, a)
}

// GetAddressesByCustomer возвращает адреса доставки покупателя.
func (s *Service) GetAddressesByCustomer(ctx context.Context, customerID int64) ([]model.Address, error) {
	return s.repo.GetAddressesByCustomer(ctx, customerID)
}

// PlaceOrder оформляет заказ покупателя. Повторяющиеся позиции одного товара
// объединяются до передачи в транзакцию.
func (s *Service) PlaceOrder(ctx context.Context, customerID, addressID int64, items []model.OrderItemRequest) (*model.Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	merged, err := mergeOrderItems(items)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateOrder(ctx, customerID, addressID, merged)
}

// mergeOrderItems суммирует количества по каждому товару, сохраняя порядок
// первого упоминания.
func mergeOrderItems(items []model.OrderItemRequest) ([]model.OrderItemRequest, error) {
	merged := make([]model.OrderItemRequest, 0, len(items))
	index := make(map[int64]int, len(items))

	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}

	return merged, nil
}

// GetOrdersByCustomer возвращает заказы покупателя.
func (s *Service) GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByCustomer(ctx, customerID)
}

// GetOrderByID возвращает заказ покупателя с позициями.
func (s *Service) GetOrderByID(ctx context.Context, customerID, orderID int64) (*model.Order, error) {
	return s.repo.GetOrderByID(ctx, customerID, orderID)
}

// UpdateOrderStatus выполняет переход статуса заказа покупателя.
func (s *Service) UpdateOrderStatus(ctx context.Context, customerID, orderID int64, next model.OrderStatus) error {
	return s.repo.UpdateOrderStatus(ctx, customerID, orderID, next)
}

// CreateContactMessage сохраняет сообщение из формы обратной связи.
func (s *Service) CreateContactMessage(ctx context.Context, m model.ContactMessage) (int64, error) {
	return s.repo.CreateContactMessage(ctx, m)
}

// FreightQuote содержит стоимость доставки в центаво и срок в днях.
type FreightQuote struct {
	CEP          string
	PriceCents   int64
	DeliveryDays int
}

// QuoteFreight запрашивает стоимость доставки у внешнего сервиса.
func (s *Service) QuoteFreight(ctx context.Context, cep string, items int) (*FreightQuote, error) {
	if s.freightClient == nil {
		return nil, ErrFreightUnavailable
	}

	quote, _, _, err := s.freightClient.GetQuote(ctx, cep, items)
	if err != nil {
		return nil, ErrFreightUnavailable
	}
	// 429 и 204 приходят без котировки
	if quote == nil {
		return nil, ErrFreightUnavailable
	}

	return &FreightQuote{
		CEP:          quote.CEP,
		PriceCents:   int64(math.Round(quote.Price * 100)),
		DeliveryDays: quote.DeliveryDays,
	}, nil
}

// StartOrderCleanup запускает фоновый процесс отмены просроченных неоплаченных заказов.
func (s *Service) StartOrderCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-pendingOrderTTL)
				_, _ = s.repo.CancelStaleOrders(ctx, cutoff)
			}
		}
	}()
}
