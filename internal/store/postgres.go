package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fintrade/portfolio-engine/internal/model"
)

// uniqueViolation is the PostgreSQL error code raised by the unique index
// on positions(owner, symbol).
const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const positionColumns = `id, owner, symbol, company_name,
	quantity::TEXT, average_cost::TEXT, market_price::TEXT,
	market_value::TEXT, cost_basis::TEXT, unrealized_pnl::TEXT,
	unrealized_pnl_pct::TEXT,
	created_at, updated_at`

func (s *PostgresStore) SavePosition(ctx context.Context, p *model.Position) (*model.Position, error) {
	saved := *p
	now := time.Now().UTC()

	var pct *string
	if saved.UnrealizedPnLPct.Valid {
		v := saved.UnrealizedPnLPct.Decimal.String()
		pct = &v
	}

	if saved.ID == "" {
		saved.ID = uuid.New().String()
		saved.CreatedAt = now
		saved.UpdatedAt = now

		_, err := s.pool.Exec(ctx,
			`INSERT INTO positions (id, owner, symbol, company_name,
			        quantity, average_cost, market_price,
			        market_value, cost_basis, unrealized_pnl, unrealized_pnl_pct,
			        created_at, updated_at)
			 VALUES ($1, $2, $3, $4,
			         $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
			         $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11::NUMERIC,
			         $12, $13)`,
			saved.ID, saved.Owner, saved.Symbol, saved.CompanyName,
			saved.Quantity.String(), saved.AverageCost.String(), saved.MarketPrice.String(),
			saved.MarketValue.String(), saved.CostBasis.String(), saved.UnrealizedPnL.String(), pct,
			saved.CreatedAt, saved.UpdatedAt,
		)
		if err != nil {
			return nil, positionSaveError(err, saved.Owner, saved.Symbol)
		}
		return &saved, nil
	}

	saved.UpdatedAt = now
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions
		 SET symbol = $2, company_name = $3,
		     quantity = $4::NUMERIC, average_cost = $5::NUMERIC, market_price = $6::NUMERIC,
		     market_value = $7::NUMERIC, cost_basis = $8::NUMERIC,
		     unrealized_pnl = $9::NUMERIC, unrealized_pnl_pct = $10::NUMERIC,
		     updated_at = $11
		 WHERE id = $1`,
		saved.ID, saved.Symbol, saved.CompanyName,
		saved.Quantity.String(), saved.AverageCost.String(), saved.MarketPrice.String(),
		saved.MarketValue.String(), saved.CostBasis.String(), saved.UnrealizedPnL.String(), pct,
		saved.UpdatedAt,
	)
	if err != nil {
		return nil, positionSaveError(err, saved.Owner, saved.Symbol)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: position %s", model.ErrNotFound, saved.ID)
	}
	return &saved, nil
}

func positionSaveError(err error, owner, symbol string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: position for %s/%s already exists", model.ErrConflict, owner, symbol)
	}
	return err
}

func (s *PostgresStore) GetPosition(ctx context.Context, owner, symbol string) (*model.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE owner = $1 AND symbol = $2`,
		owner, symbol)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: position %s/%s", model.ErrNotFound, owner, symbol)
		}
		return nil, fmt.Errorf("get position %s/%s: %w", owner, symbol, err)
	}
	return p, nil
}

func (s *PostgresStore) GetPositionByID(ctx context.Context, id string) (*model.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: position %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get position %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListPositions(ctx context.Context, owner string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE owner = $1 ORDER BY symbol ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

func (s *PostgresStore) SearchPositions(ctx context.Context, owner, symbol string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionColumns+`
		 FROM positions
		 WHERE owner = $1 AND symbol ILIKE '%' || $2 || '%'
		 ORDER BY symbol ASC`, owner, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

func (s *PostgresStore) DeletePosition(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: position %s", model.ErrNotFound, id)
	}
	return nil
}

const ledgerColumns = `id, owner, symbol, company_name, side,
	quantity::TEXT, price::TEXT, commission::TEXT, total_amount::TEXT,
	notes, occurred_at, created_at, updated_at`

func (s *PostgresStore) SaveLedgerEntry(ctx context.Context, e *model.LedgerEntry) (*model.LedgerEntry, error) {
	saved := *e
	now := time.Now().UTC()

	if saved.ID == "" {
		saved.ID = uuid.New().String()
		saved.CreatedAt = now
		saved.UpdatedAt = now
		if saved.OccurredAt.IsZero() {
			saved.OccurredAt = now
		}

		_, err := s.pool.Exec(ctx,
			`INSERT INTO ledger_entries (id, owner, symbol, company_name, side,
			        quantity, price, commission, total_amount, notes,
			        occurred_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5,
			         $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10,
			         $11, $12, $13)`,
			saved.ID, saved.Owner, saved.Symbol, saved.CompanyName, saved.Side,
			saved.Quantity.String(), saved.Price.String(), saved.Commission.String(),
			saved.TotalAmount.String(), saved.Notes,
			saved.OccurredAt, saved.CreatedAt, saved.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		return &saved, nil
	}

	saved.UpdatedAt = now
	tag, err := s.pool.Exec(ctx,
		`UPDATE ledger_entries
		 SET symbol = $2, company_name = $3, side = $4,
		     quantity = $5::NUMERIC, price = $6::NUMERIC, commission = $7::NUMERIC,
		     total_amount = $8::NUMERIC, notes = $9, occurred_at = $10, updated_at = $11
		 WHERE id = $1`,
		saved.ID, saved.Symbol, saved.CompanyName, saved.Side,
		saved.Quantity.String(), saved.Price.String(), saved.Commission.String(),
		saved.TotalAmount.String(), saved.Notes, saved.OccurredAt, saved.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: ledger entry %s", model.ErrNotFound, saved.ID)
	}
	return &saved, nil
}

func (s *PostgresStore) GetLedgerEntry(ctx context.Context, id string) (*model.LedgerEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1`, id)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: ledger entry %s", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get ledger entry %s: %w", id, err)
	}
	return e, nil
}

func (s *PostgresStore) ListLedgerEntries(ctx context.Context, owner string, filter LedgerFilter) ([]model.LedgerEntry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE owner = $1`)
	args := []any{owner}

	if filter.Symbol != "" {
		args = append(args, filter.Symbol)
		fmt.Fprintf(&sb, ` AND symbol ILIKE '%%' || $%d || '%%'`, len(args))
	}
	if filter.Side != "" {
		args = append(args, filter.Side)
		fmt.Fprintf(&sb, ` AND side = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		fmt.Fprintf(&sb, ` AND occurred_at >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		fmt.Fprintf(&sb, ` AND occurred_at <= $%d`, len(args))
	}
	sb.WriteString(` ORDER BY occurred_at DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) DeleteLedgerEntry(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: ledger entry %s", model.ErrNotFound, id)
	}
	return nil
}

// --- Row scanning ---

type row interface {
	Scan(dest ...interface{}) error
}

func scanPosition(r row) (*model.Position, error) {
	var p model.Position
	var qty, avgCost, mktPrice, mktValue, costBasis, pnl string
	var pct *string

	if err := r.Scan(&p.ID, &p.Owner, &p.Symbol, &p.CompanyName,
		&qty, &avgCost, &mktPrice,
		&mktValue, &costBasis, &pnl, &pct,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Quantity, _ = decimal.NewFromString(qty)
	p.AverageCost, _ = decimal.NewFromString(avgCost)
	p.MarketPrice, _ = decimal.NewFromString(mktPrice)
	p.MarketValue, _ = decimal.NewFromString(mktValue)
	p.CostBasis, _ = decimal.NewFromString(costBasis)
	p.UnrealizedPnL, _ = decimal.NewFromString(pnl)
	if pct != nil {
		d, _ := decimal.NewFromString(*pct)
		p.UnrealizedPnLPct = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	return &p, nil
}

func scanPositions(rows pgx.Rows) ([]model.Position, error) {
	var positions []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func scanLedgerEntry(r row) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var qty, price, commission, total string

	if err := r.Scan(&e.ID, &e.Owner, &e.Symbol, &e.CompanyName, &e.Side,
		&qty, &price, &commission, &total,
		&e.Notes, &e.OccurredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}

	e.Quantity, _ = decimal.NewFromString(qty)
	e.Price, _ = decimal.NewFromString(price)
	e.Commission, _ = decimal.NewFromString(commission)
	e.TotalAmount, _ = decimal.NewFromString(total)

	return &e, nil
}
