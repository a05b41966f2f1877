// Package model содержит доменные сущности магазина мебели.
package model

import (
	"fmt"
	"time"
)

// Product представляет товар каталога. Цена хранится в центаво (минорных единицах).
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Stock       int32
	Available   bool
	CreatedAt   time.Time
}

// Address представляет адрес доставки, принадлежащий покупателю.
type Address struct {
	ID         int64
	CustomerID int64
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	CEP        string
	CreatedAt  time.Time
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "PENDING"
	OrderStatusPaid         OrderStatus = "PAID"
	OrderStatusCanceled     OrderStatus = "CANCELED"
	OrderStatusInProduction OrderStatus = "IN_PRODUCTION"
	OrderStatusShipped      OrderStatus = "SHIPPED"
	OrderStatusDelivered    OrderStatus = "DELIVERED"
)

var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:      {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:         {OrderStatusInProduction, OrderStatusCanceled},
	OrderStatusInProduction: {OrderStatusShipped},
	OrderStatusShipped:      {OrderStatusDelivered},
}

// ParseOrderStatus преобразует строку в OrderStatus, проверяя допустимость значения.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(s); status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCanceled,
		OrderStatusInProduction, OrderStatusShipped, OrderStatusDelivered:
		return status, nil
	}
	return "", fmt.Errorf("unknown order status: %q", s)
}

// CanTransitionTo сообщает, допустим ли переход из текущего статуса в указанный.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order описывает заказ покупателя. Итог заказа фиксируется при создании
// и никогда не пересчитывается.
type Order struct {
	ID         int64
	CustomerID int64
	AddressID  int64
	Status     OrderStatus
	TotalCents int64
	Items      []OrderItem
	CreatedAt  time.Time
}

// OrderItem описывает одну позицию заказа с ценой, зафиксированной
// в момент оформления.
type OrderItem struct {
	ProductID  int64
	Quantity   int32
	PriceCents int64
}

// OrderItemRequest описывает позицию, запрошенную покупателем при оформлении заказа.
type OrderItemRequest struct {
	ProductID int64
	Quantity  int32
}

// ContactMessage представляет сообщение из формы обратной связи.
type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Message   string
	CreatedAt time.Time
}
