// Package postgres is the Ledger Store backed by PostgreSQL through database/sql and pgx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/samber/mo"

	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store on a *sql.DB.
type Store struct {
	db *sql.DB
	collections
}

// New wraps db. The store owns db and closes it on Close.
func New(db *sql.DB) *Store {
	return &Store{db: db, collections: collections{q: db}}
}

// Atomic runs fn inside a database transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Collections) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	if err := fn(ctx, collections{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type collections struct {
	q queryer
}

func (c collections) Producers() store.Collection[models.Producer] {
	return &ProducerRepository{q: c.q}
}

func (c collections) Consumers() store.RemovableCollection[models.Consumer] {
	return &ConsumerRepository{q: c.q}
}

func (c collections) Transactions() store.Collection[models.Transaction] {
	return &TransactionRepository{q: c.q}
}

// ProducerRepository persists producers.
type ProducerRepository struct {
	q queryer
}

// Get loads a producer by id.
func (r *ProducerRepository) Get(ctx context.Context, id string) (mo.Option[models.Producer], error) {
	const query = `
		SELECT id, name, energy_capacity, price_per_kwh, available_energy, created_at, updated_at
		FROM producers
		WHERE id = $1
	`
	p, err := scanProducer(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[models.Producer](), nil
	}
	if err != nil {
		return mo.None[models.Producer](), fmt.Errorf("postgres: get producer: %w", err)
	}
	return mo.Some(p), nil
}

// Insert upserts a producer. created_at is kept from the first insert.
func (r *ProducerRepository) Insert(ctx context.Context, id string, p models.Producer) error {
	const query = `
		INSERT INTO producers (id, name, energy_capacity, price_per_kwh, available_energy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			energy_capacity = EXCLUDED.energy_capacity,
			price_per_kwh = EXCLUDED.price_per_kwh,
			available_energy = EXCLUDED.available_energy,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.q.ExecContext(ctx, query,
		id,
		p.Name,
		p.EnergyCapacity,
		p.PricePerKWh,
		p.AvailableEnergy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert producer: %w", err)
	}
	return nil
}

// Values lists producers in registration order.
func (r *ProducerRepository) Values(ctx context.Context) ([]models.Producer, error) {
	const query = `
		SELECT id, name, energy_capacity, price_per_kwh, available_energy, created_at, updated_at
		FROM producers
		ORDER BY seq
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list producers: %w", err)
	}
	defer rows.Close()

	var producers []models.Producer
	for rows.Next() {
		p, err := scanProducer(rows)
		if err != nil {
			return nil, err
		}
		producers = append(producers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return producers, nil
}

// ConsumerRepository persists consumers.
type ConsumerRepository struct {
	q queryer
}

// Get loads a consumer by id.
func (r *ConsumerRepository) Get(ctx context.Context, id string) (mo.Option[models.Consumer], error) {
	const query = `
		SELECT id, name, energy_need, budget, created_at, updated_at
		FROM consumers
		WHERE id = $1
	`
	c, err := scanConsumer(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[models.Consumer](), nil
	}
	if err != nil {
		return mo.None[models.Consumer](), fmt.Errorf("postgres: get consumer: %w", err)
	}
	return mo.Some(c), nil
}

// Insert upserts a consumer.
func (r *ConsumerRepository) Insert(ctx context.Context, id string, c models.Consumer) error {
	const query = `
		INSERT INTO consumers (id, name, energy_need, budget, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			energy_need = EXCLUDED.energy_need,
			budget = EXCLUDED.budget,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.q.ExecContext(ctx, query, id, c.Name, c.EnergyNeed, c.Budget, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert consumer: %w", err)
	}
	return nil
}

// Remove deletes a consumer. Removing an absent id is a no-op.
func (r *ConsumerRepository) Remove(ctx context.Context, id string) error {
	const query = `DELETE FROM consumers WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("postgres: delete consumer: %w", err)
	}
	return nil
}

// Values lists consumers in registration order.
func (r *ConsumerRepository) Values(ctx context.Context) ([]models.Consumer, error) {
	const query = `
		SELECT id, name, energy_need, budget, created_at, updated_at
		FROM consumers
		ORDER BY seq
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list consumers: %w", err)
	}
	defer rows.Close()

	var consumers []models.Consumer
	for rows.Next() {
		c, err := scanConsumer(rows)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return consumers, nil
}

// TransactionRepository persists the append-only ledger.
type TransactionRepository struct {
	q queryer
}

// Get loads a ledger entry by id.
func (r *TransactionRepository) Get(ctx context.Context, id string) (mo.Option[models.Transaction], error) {
	const query = `
		SELECT id, producer_id, consumer_id, energy_amount, price_per_kwh, total_price, created_at
		FROM transactions
		WHERE id = $1
	`
	t, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return mo.None[models.Transaction](), nil
	}
	if err != nil {
		return mo.None[models.Transaction](), fmt.Errorf("postgres: get transaction: %w", err)
	}
	return mo.Some(t), nil
}

// Insert appends a ledger entry. Entries are immutable, so a repeated id is ignored.
func (r *TransactionRepository) Insert(ctx context.Context, id string, t models.Transaction) error {
	const query = `
		INSERT INTO transactions (id, producer_id, consumer_id, energy_amount, price_per_kwh, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.q.ExecContext(ctx, query,
		id,
		t.ProducerID,
		t.ConsumerID,
		t.EnergyAmount,
		t.PricePerKWh,
		t.TotalPrice,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert transaction: %w", err)
	}
	return nil
}

// Values lists the ledger in settlement order.
func (r *TransactionRepository) Values(ctx context.Context) ([]models.Transaction, error) {
	const query = `
		SELECT id, producer_id, consumer_id, energy_amount, price_per_kwh, total_price, created_at
		FROM transactions
		ORDER BY seq
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProducer(row scanner) (models.Producer, error) {
	var p models.Producer
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.EnergyCapacity,
		&p.PricePerKWh,
		&p.AvailableEnergy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanConsumer(row scanner) (models.Consumer, error) {
	var c models.Consumer
	err := row.Scan(&c.ID, &c.Name, &c.EnergyNeed, &c.Budget, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanTransaction(row scanner) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.ProducerID,
		&t.ConsumerID,
		&t.EnergyAmount,
		&t.PricePerKWh,
		&t.TotalPrice,
		&t.CreatedAt,
	)
	return t, err
}
