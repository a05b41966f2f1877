package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/model"
)

// lockedProduct хранит состояние товара, зафиксированное блокировкой строки
// на время транзакции оформления заказа.
type lockedProduct struct {
	id        int64
	name      string
	price     int64
	stock     int32
	available bool
}

// priceOrderItems проверяет запрошенные позиции по заблокированному состоянию товаров
// и вычисляет зафиксированные цены позиций и итог заказа в центаво.
func priceOrderItems(products map[int64]lockedProduct, items []model.OrderItemRequest) (int64, []model.OrderItem, error) {
	var total int64
	lineItems := make([]model.OrderItem, 0, len(items))

	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return 0, nil, fmt.Errorf("%w: %d", ErrProductNotFound, it.ProductID)
		}
		if !p.available {
			return 0, nil, fmt.Errorf("%w: %s", ErrProductUnavailable, p.name)
		}
		if p.stock < it.Quantity {
			return 0, nil, fmt.Errorf("%w: %s (stock %d)", ErrInsufficientStock, p.name, p.stock)
		}

		total += p.price * int64(it.Quantity)
		lineItems = append(lineItems, model.OrderItem{
			ProductID:  p.id,
			Quantity:   it.Quantity,
			PriceCents: p.price,
		})
	}

	return total, lineItems, nil
}

// CreateOrder атомарно оформляет заказ: проверяет принадлежность адреса,
// валидирует товары под блокировкой строк, фиксирует цены, создаёт заказ
// с позициями и списывает остатки. Любая ошибка откатывает все изменения.
func (r *PostgresRepository) CreateOrder(ctx context.Context, customerID, addressID int64, items []model.OrderItemRequest) (*model.Order, error) {
	var order *model.Order

	err := r.withRetry(ctx, func() error {
		o, err := r.createOrderTx(ctx, customerID, addressID, items)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *PostgresRepository) createOrderTx(ctx context.Context, customerID, addressID int64, items []model.OrderItemRequest) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var one int
	err = tx.QueryRow(ctx,
		`SELECT 1 FROM addresses WHERE id = $1 AND customer_id = $2`,
		addressID, customerID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidAddress, addressID)
		}
		return nil, fmt.Errorf("check address: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	// Блокируем строки товаров в порядке возрастания id, чтобы параллельные
	// оформления не могли ни переплести блокировки, ни продать остаток дважды.
	rows, err := tx.Query(ctx,
		`SELECT id, name, price, stock, available
		 FROM products
		 WHERE id = ANY($1)
		 ORDER BY id
		 FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	products := make(map[int64]lockedProduct, len(ids))
	for rows.Next() {
		var p lockedProduct
		if err := rows.Scan(&p.id, &p.name, &p.price, &p.stock, &p.available); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.id] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	total, lineItems, err := priceOrderItems(products, items)
	if err != nil {
		return nil, err
	}

	var (
		orderID   int64
		createdAt time.Time
	)
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (customer_id, address_id, status, total)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		customerID, addressID, string(model.OrderStatusPending), total,
	).Scan(&orderID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, li := range lineItems {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4)`,
			orderID, li.ProductID, li.Quantity, li.PriceCents,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}

		// Списание выполняется только при достаточном остатке
		cmdTag, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
			li.ProductID, li.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			p := products[li.ProductID]
			return nil, fmt.Errorf("%w: %s (stock %d)", ErrInsufficientStock, p.name, p.stock)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &model.Order{
		ID:         orderID,
		CustomerID: customerID,
		AddressID:  addressID,
		Status:     model.OrderStatusPending,
		TotalCents: total,
		Items:      lineItems,
		CreatedAt:  createdAt,
	}, nil
}

// GetOrdersByCustomer возвращает заказы покупателя вместе с позициями.
func (r *PostgresRepository) GetOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_id, address_id, status, total, created_at
		 FROM orders
		 WHERE customer_id = $1
		 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o      model.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.AddressID, &status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	orderIDs := make([]int64, 0, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, quantity, price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID int64
			li      model.OrderItem
		)
		if err := itemRows.Scan(&orderID, &li.ProductID, &li.Quantity, &li.PriceCents); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, li)
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetOrderByID возвращает заказ покупателя с позициями.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, customerID, orderID int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, address_id, status, total, created_at
		 FROM orders
		 WHERE id = $1 AND customer_id = $2`,
		orderID, customerID,
	)

	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.AddressID, &status, &o.TotalCents, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Status = model.OrderStatus(status)

	itemRows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity, price
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var li model.OrderItem
		if err := itemRows.Scan(&li.ProductID, &li.Quantity, &li.PriceCents); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, li)
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &o, nil
}

// UpdateOrderStatus выполняет переход статуса заказа. Отмена заказа,
// ещё не ушедшего в производство, возвращает остатки на склад.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, customerID, orderID int64, next model.OrderStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1 AND customer_id = $2 FOR UPDATE`,
		orderID, customerID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("lock order: %w", err)
	}

	if !model.OrderStatus(current).CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, current, next)
	}

	if next == model.OrderStatusCanceled {
		if err := restockOrder(ctx, tx, orderID); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		orderID, string(next),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// CancelStaleOrders отменяет все заказы в статусе PENDING, созданные до cutoff,
// возвращая их остатки на склад. Возвращает число отменённых заказов.
func (r *PostgresRepository) CancelStaleOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id FROM orders
		 WHERE status = $1 AND created_at < $2
		 ORDER BY id
		 FOR UPDATE`,
		string(model.OrderStatusPending), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("select stale orders: %w", err)
	}

	var staleIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan order id: %w", err)
		}
		staleIDs = append(staleIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows error: %w", err)
	}

	if len(staleIDs) == 0 {
		return 0, nil
	}

	for _, id := range staleIDs {
		if err := restockOrder(ctx, tx, id); err != nil {
			return 0, err
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = ANY($1)`,
		staleIDs, string(model.OrderStatusCanceled),
	)
	if err != nil {
		return 0, fmt.Errorf("cancel stale orders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return int64(len(staleIDs)), nil
}

func restockOrder(ctx context.Context, tx pgx.Tx, orderID int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE products p
		 SET stock = p.stock + oi.quantity
		 FROM order_items oi
		 WHERE oi.order_id = $1 AND oi.product_id = p.id`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("restock order %d: %w", orderID, err)
	}
	return nil
}
