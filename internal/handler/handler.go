// Package handler содержит HTTP-обработчики API магазина мебели.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/middleware"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/model"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/repository"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/service"
	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	GetProducts(ctx context.Context, category string) ([]model.Product, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd repository.ProductUpdate) (*model.Product, error)
	CreateAddress(ctx context.Context, a model.Address) (int64, error)
	GetAddressesByCustomer(ctx context.Context, customerID int64) ([]model.Address, error)
	PlaceOrder(ctx context.Context, customerID, addressID int64, items []model.OrderItemRequest) (*model.Order, error)
	GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	GetOrderByID(ctx context.Context, customerID, orderID int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, customerID, orderID int64, next model.OrderStatus) error
	QuoteFreight(ctx context.Context, cep string, items int) (*service.FreightQuote, error)
	CreateContactMessage(ctx context.Context, m model.ContactMessage) (int64, error)
}

// Handler реализует HTTP-обработчики API магазина мебели.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// centsToDecimal переводит центаво в десятичную денежную величину для API.
func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// decimalToCents переводит денежную величину API в центаво. Суммы с долями
// центаво отклоняются.
func decimalToCents(d decimal.Decimal) (int64, bool) {
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, false
	}
	return shifted.IntPart(), true
}

type productResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock"`
	Available   bool            `json:"available"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       centsToDecimal(p.PriceCents),
		Stock:       p.Stock,
		Available:   p.Available,
	}
}

// GetProducts возвращает товары каталога, опционально по категории.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("get products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetProduct возвращает один товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toProductResponse(*product)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type productUpdateRequest struct {
	Price     *decimal.Decimal `json:"price,omitempty"`
	Stock     *int32           `json:"stock,omitempty"`
	Available *bool            `json:"available,omitempty"`
}

// UpdateProduct применяет частичное обновление товара: незаполненные поля не меняются.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req productUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	upd := repository.ProductUpdate{
		Stock:     req.Stock,
		Available: req.Available,
	}
	if req.Price != nil {
		cents, ok := decimalToCents(*req.Price)
		if !ok || cents < 0 {
			http.Error(w, "invalid price", http.StatusBadRequest)
			return
		}
		upd.PriceCents = &cents
	}

	product, err := h.service.UpdateProduct(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("update product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toProductResponse(*product)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type addressRequest struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	CEP        string `json:"cep"`
}

type addressResponse struct {
	ID         int64  `json:"id"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	CEP        string `json:"cep"`
}

// CreateAddress сохраняет новый адрес доставки текущего покупателя.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Street == "" || req.Number == "" || req.District == "" || req.City == "" || req.State == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCEP(req.CEP) {
		http.Error(w, "invalid cep", http.StatusUnprocessableEntity)
		return
	}

	id, err := h.service.CreateAddress(r.Context(), model.Address{
		CustomerID: customerID,
		Street:     req.Street,
		Number:     req.Number,
		Complement: req.Complement,
		District:   req.District,
		City:       req.City,
		State:      req.State,
		CEP:        req.CEP,
	})
	if err != nil {
		h.logger.Error("create address error", zap.Error(err), zap.Int64("customerID", customerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(addressResponse{
		ID:         id,
		Street:     req.Street,
		Number:     req.Number,
		Complement: req.Complement,
		District:   req.District,
		City:       req.City,
		State:      req.State,
		CEP:        req.CEP,
	}); err != nil {
		h.logger.Error("encode address error", zap.Error(err))
		return
	}
}

// GetAddresses возвращает адреса доставки текущего покупателя.
func (h *Handler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	addresses, err := h.service.GetAddressesByCustomer(r.Context(), customerID)
	if err != nil {
		h.logger.Error("get addresses error", zap.Error(err), zap.Int64("customerID", customerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]addressResponse, 0, len(addresses))
	for _, a := range addresses {
		resp = append(resp, addressResponse{
			ID:         a.ID,
			Street:     a.Street,
			Number:     a.Number,
			Complement: a.Complement,
			District:   a.District,
			City:       a.City,
			State:      a.State,
			CEP:        a.CEP,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type orderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type placeOrderRequest struct {
	AddressID int64              `json:"address_id"`
	Items     []orderItemRequest `json:"items"`
}

type orderItemResponse struct {
	ProductID int64           `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	AddressID int64               `json:"address_id"`
	Status    string              `json:"status"`
	Total     decimal.Decimal     `json:"total"`
	Items     []orderItemResponse `json:"items"`
	CreatedAt string              `json:"created_at"`
}

func toOrderResponse(o model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			Price:     centsToDecimal(li.PriceCents),
		})
	}

	return orderResponse{
		ID:        o.ID,
		AddressID: o.AddressID,
		Status:    string(o.Status),
		Total:     centsToDecimal(o.TotalCents),
		Items:     items,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
}

// PlaceOrder оформляет заказ текущего покупателя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.AddressID <= 0 || len(req.Items) == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	items := make([]model.OrderItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.OrderItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	order, err := h.service.PlaceOrder(r.Context(), customerID, req.AddressID, items)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoItems) || errors.Is(err, service.ErrInvalidQuantity):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, repository.ErrInvalidAddress) || errors.Is(err, repository.ErrProductNotFound):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrProductUnavailable) || errors.Is(err, repository.ErrInsufficientStock):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("place order error", zap.Error(err), zap.Int64("customerID", customerID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toOrderResponse(*order)); err != nil {
		h.logger.Error("encode order error", zap.Error(err))
		return
	}
}

// GetOrders возвращает список заказов текущего покупателя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("customerID", customerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetOrder возвращает один заказ текущего покупателя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrderByID(r.Context(), customerID, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.Int64("orderID", orderID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toOrderResponse(*order)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus выполняет переход статуса заказа текущего покупателя.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.GetCustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	next, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateOrderStatus(r.Context(), customerID, orderID, next); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrInvalidStatusChange):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.Int64("orderID", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type freightQuoteRequest struct {
	CEP   string `json:"cep"`
	Items int    `json:"items"`
}

type freightQuoteResponse struct {
	CEP          string          `json:"cep"`
	Price        decimal.Decimal `json:"price"`
	DeliveryDays int             `json:"delivery_days"`
}

// QuoteFreight возвращает стоимость доставки для указанного CEP.
func (h *Handler) QuoteFreight(w http.ResponseWriter, r *http.Request) {
	var req freightQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCEP(req.CEP) {
		http.Error(w, "invalid cep", http.StatusUnprocessableEntity)
		return
	}
	if req.Items <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := h.service.QuoteFreight(r.Context(), req.CEP, req.Items)
	if err != nil {
		if errors.Is(err, service.ErrFreightUnavailable) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		h.logger.Error("freight quote error", zap.Error(err), zap.String("cep", req.CEP))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(freightQuoteResponse{
		CEP:          quote.CEP,
		Price:        centsToDecimal(quote.PriceCents),
		DeliveryDays: quote.DeliveryDays,
	}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// CreateContact сохраняет сообщение из формы обратной связи.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Email == "" || req.Message == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.service.CreateContactMessage(r.Context(), model.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	}); err != nil {
		h.logger.Error("create contact error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
