// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/EduardoLovo/Inphantil-Moveis-sub001/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrInvalidAddress возвращается, если адрес не найден или принадлежит другому покупателю.
var (
	ErrInvalidAddress = errors.New("address not found or owned by another customer")
	// ErrProductNotFound возвращается, если запрошенный товар не существует.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductUnavailable возвращается, если товар снят с продажи.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrInsufficientStock возвращается, если запрошенное количество превышает остаток на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNotFound возвращается, если заказ не найден у данного покупателя.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatusChange возвращается при недопустимом переходе статуса заказа.
	ErrInvalidStatusChange = errors.New("invalid order status change")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при ошибках сериализации, дедлоках и сетевых сбоях.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Ошибки контекста не ретраим
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Бизнес-ошибки валидации заказа ретраить бессмысленно
		if errors.Is(err, ErrInvalidAddress) || errors.Is(err, ErrProductNotFound) ||
			errors.Is(err, ErrProductUnavailable) || errors.Is(err, ErrInsufficientStock) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetProducts возвращает товары каталога, опционально отфильтрованные по категории.
func (r *PostgresRepository) GetProducts(ctx context.Context, category string) ([]model.Product, error) {
	query := `SELECT id, name, description, category, price, stock, available, created_at
	          FROM products`
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category,
			&p.PriceCents, &p.Stock, &p.Available, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// GetProductByID возвращает товар по идентификатору.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, category, price, stock, available, created_at
		 FROM products
		 WHERE id = $1`,
		id,
	)

	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category,
		&p.PriceCents, &p.Stock, &p.Available, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// ProductUpdate описывает частичное обновление товара. Поля-указатели,
// равные nil, не изменяются.
type ProductUpdate struct {
	PriceCents *int64
	Stock      *int32
	Available  *bool
}

// UpdateProduct применяет частичное обновление товара и возвращает его новое состояние.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE products
		 SET price = COALESCE($2, price),
		     stock = COALESCE($3, stock),
		     available = COALESCE($4, available)
		 WHERE id = $1
		 RETURNING id, name, description, category, price, stock, available, created_at`,
		id, upd.PriceCents, upd.Stock, upd.Available,
	)

	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category,
		&p.PriceCents, &p.Stock, &p.Available, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return &p, nil
}

// CreateAddress сохраняет новый адрес доставки покупателя.
func (r *PostgresRepository) CreateAddress(ctx context.Context, a model.Address) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO addresses (customer_id, street, number, complement, district, city, state, cep)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		a.CustomerID, a.Street, a.Number, a.Complement, a.District, a.City, a.State, a.CEP,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create address: %w", err)
	}
	return id, nil
}

// GetAddressesByCustomer возвращает адреса доставки покупателя.
func (r *PostgresRepository) GetAddressesByCustomer(ctx context.Context, customerID int64) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_id, street, number, complement, district, city, state, cep, created_at
		 FROM addresses
		 WHERE customer_id = $1
		 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select addresses: %w", err)
	}
	defer rows.Close()

	var addresses []model.Address
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Street, &a.Number, &a.Complement,
			&a.District, &a.City, &a.State, &a.CEP, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return addresses, nil
}

// CreateContactMessage сохраняет сообщение из формы обратной связи.
func (r *PostgresRepository) CreateContactMessage(ctx context.Context, m model.ContactMessage) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (name, email, phone, message)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		m.Name, m.Email, m.Phone, m.Message,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create contact message: %w", err)
	}
	return id, nil
}
