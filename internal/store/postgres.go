package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"table-orders/internal/config"
	"table-orders/internal/logger"
	"table-orders/internal/models"
)

// orderChannel is the pg_notify channel carrying order change events. The
// notification payload is the device id of the changed order.
const orderChannel = "order_changes"

// Postgres backs the order, catalog and session stores with PostgreSQL.
// Live snapshot subscriptions are driven by LISTEN/NOTIFY: a trigger on the
// orders table notifies with the device id, and each subscription re-reads
// that device's full order set.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgres creates a new database-backed store.
func NewPostgres(cfg *config.Config, log *logger.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	var pool *pgxpool.Pool
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = pool.Ping(ctx)
			cancel()
			if err == nil {
				break
			}
			pool.Close()
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			log.Error("db_connection_failed",
				fmt.Sprintf("Failed to connect to database, retrying in %v", waitTime),
				"startup", err, nil)
			time.Sleep(waitTime)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	return &Postgres{
		pool:   pool,
		logger: log,
	}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Ping tests the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Create(ctx context.Context, order *models.Order) (string, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order items: %w", err)
	}

	var id string
	err = p.pool.QueryRow(ctx, insertOrderSQL,
		order.DeviceID,
		order.TableNumber,
		items,
		order.Total,
		order.Status,
		order.CreatedAt,
		nullable(string(order.PaymentMethod)),
		order.PaymentStatus,
		nullable(order.PaymentProof),
		order.OrderNumber,
	).Scan(&id)
	if err != nil {
		return "", &StoreError{Op: "create", Err: err}
	}

	return id, nil
}

func (p *Postgres) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	// Deterministic column order keeps the statement stable across calls.
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if _, ok := updatableColumns[key]; !ok {
			return fmt.Errorf("unknown order field: %s", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		set  []string
		args []interface{}
	)
	for _, key := range keys {
		args = append(args, fields[key])
		set = append(set, fmt.Sprintf("%s = $%d", updatableColumns[key], len(args)))
	}
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return &StoreError{Op: "update", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*models.Order, error) {
	order, err := scanOrder(p.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "get", Err: err}
	}
	return order, nil
}

func (p *Postgres) ListByDevice(ctx context.Context, deviceID string) ([]models.Order, error) {
	return p.listOrders(ctx, listOrdersByDeviceSQL, deviceID)
}

func (p *Postgres) ListPendingByDevice(ctx context.Context, deviceID string) ([]models.Order, error) {
	return p.listOrders(ctx, listPendingOrdersByDeviceSQL, deviceID)
}

func (p *Postgres) listOrders(ctx context.Context, sql, deviceID string) ([]models.Order, error) {
	rows, err := p.pool.Query(ctx, sql, deviceID)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return orders, nil
}

// Subscribe holds a dedicated connection on LISTEN and re-reads the
// device's order set on every matching notification. The initial snapshot
// is delivered immediately after subscribing.
func (p *Postgres) Subscribe(ctx context.Context, deviceID string) (<-chan []models.Order, func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	conn, err := p.pool.Acquire(subCtx)
	if err != nil {
		cancel()
		return nil, nil, &StoreError{Op: "subscribe", Err: err}
	}

	if _, err := conn.Exec(subCtx, "LISTEN "+orderChannel); err != nil {
		conn.Release()
		cancel()
		return nil, nil, &StoreError{Op: "subscribe", Err: err}
	}

	ch := make(chan []models.Order, 16)

	go func() {
		defer close(ch)
		defer conn.Release()

		push := func() {
			orders, err := p.ListByDevice(subCtx, deviceID)
			if err != nil {
				p.logger.Error("snapshot_query_failed", "Failed to load order snapshot", "", err, map[string]interface{}{
					"device_id": deviceID,
				})
				return
			}
			select {
			case ch <- orders:
			case <-subCtx.Done():
			}
		}

		push()

		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					p.logger.Error("subscription_failed", "Order subscription lost", "", err, map[string]interface{}{
						"device_id": deviceID,
					})
				}
				return
			}
			if notification.Payload == deviceID {
				push()
			}
		}
	}()

	return ch, cancel, nil
}

func (p *Postgres) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := p.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, &StoreError{Op: "list_categories", Err: err}
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, &StoreError{Op: "list_categories", Err: err}
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (p *Postgres) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := p.pool.Query(ctx, listMenuItemsSQL)
	if err != nil {
		return nil, &StoreError{Op: "list_menu_items", Err: err}
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var (
			item     models.MenuItem
			imageURL *string
			options  []byte
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &imageURL, &options); err != nil {
			return nil, &StoreError{Op: "list_menu_items", Err: err}
		}
		if imageURL != nil {
			item.ImageURL = *imageURL
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &item.Options); err != nil {
				return nil, fmt.Errorf("failed to unmarshal menu options: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (p *Postgres) GetGCashPayee(ctx context.Context, docID string) (*models.GCashPayee, error) {
	var payee models.GCashPayee
	err := p.pool.QueryRow(ctx, getGCashPayeeSQL, docID).Scan(&payee.FullName, &payee.PhoneNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "get_payee", Err: err}
	}
	return &payee, nil
}

func (p *Postgres) SaveTableBinding(ctx context.Context, deviceID string, tableNumber int) error {
	if _, err := p.pool.Exec(ctx, saveTableBindingSQL, deviceID, tableNumber); err != nil {
		return &StoreError{Op: "save_binding", Err: err}
	}
	return nil
}

func (p *Postgres) LoadTableBinding(ctx context.Context, deviceID string) (int, error) {
	var tableNumber int
	err := p.pool.QueryRow(ctx, loadTableBindingSQL, deviceID).Scan(&tableNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, &StoreError{Op: "load_binding", Err: err}
	}
	return tableNumber, nil
}

// scanOrder scans one order row from either a Row or Rows.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order         models.Order
		items         []byte
		paymentMethod *string
		paymentProof  *string
	)
	err := row.Scan(
		&order.ID,
		&order.DeviceID,
		&order.TableNumber,
		&items,
		&order.Total,
		&order.Status,
		&order.CreatedAt,
		&paymentMethod,
		&order.PaymentStatus,
		&paymentProof,
		&order.OrderNumber,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	if paymentMethod != nil {
		order.PaymentMethod = models.PaymentMethod(*paymentMethod)
	}
	if paymentProof != nil {
		order.PaymentProof = *paymentProof
	}
	return &order, nil
}

// nullable maps an empty string onto SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
