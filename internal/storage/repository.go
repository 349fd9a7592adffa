package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
)

const (
	insertMovementSQL = `INSERT INTO movimientos (tipo, concepto, monto, fecha) VALUES (?, ?, ?, ?) RETURNING id`
	selectMovementSQL = `SELECT * FROM movimientos WHERE id = ?`
	updateMovementSQL = `UPDATE movimientos SET tipo = ?, concepto = ?, monto = ?, fecha = ? WHERE id = ?`
	deleteMovementSQL = `DELETE FROM movimientos WHERE id = ?`
	listMovementsSQL  = `SELECT * FROM movimientos`
	recentSQL         = `SELECT * FROM movimientos ORDER BY fecha DESC, id DESC LIMIT ?`
	balanceSQL        = `SELECT tipo, COALESCE(SUM(monto), 0) AS total FROM movimientos WHERE tipo IN (?, ?, ?, ?) GROUP BY tipo`
	countSQL          = `SELECT COUNT(*) AS total FROM movimientos`
	pingSQL           = `SELECT 1 AS ok`

	listOrder = ` ORDER BY fecha DESC, id DESC`
)

// MovementRepository reads and writes movements on whichever engine the
// provider selected. Every operation acquires its own connection and releases
// it before returning.
type MovementRepository struct {
	provider *Provider
	dialect  Dialect
}

func NewMovementRepository(p *Provider) *MovementRepository {
	return &MovementRepository{
		provider: p,
		dialect:  p.Dialect(),
	}
}

// Engine returns the engine backing the repository.
func (r *MovementRepository) Engine() Engine {
	return r.provider.Engine()
}

func (r *MovementRepository) withConn(ctx context.Context, op string, fn func(*sqlx.Conn) error) error {
	start := time.Now()
	err := func() error {
		conn, err := r.provider.Open(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		return fn(conn)
	}()
	metrics.ObserveQuery(op, r.Engine().String(), err, time.Since(start))
	return queryErr(op, err)
}

func (r *MovementRepository) query(ctx context.Context, conn *sqlx.Conn, q string, args ...any) ([]Row, error) {
	rows, err := conn.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// Create inserts m and returns the id assigned by the engine. m.ID is ignored.
func (r *MovementRepository) Create(ctx context.Context, m core.Movement) (int64, error) {
	var id int64
	err := r.withConn(ctx, log.OpCreate, func(conn *sqlx.Conn) error {
		return conn.QueryRowxContext(ctx, r.dialect.Rebind(insertMovementSQL),
			string(m.Type), m.Concept, m.Amount.Float64(), m.Date.String()).Scan(&id)
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Movement saved",
		log.FieldEngine, r.Engine(),
		log.FieldMovementID, id,
		log.FieldType, m.Type,
		log.FieldAmount, m.Amount.String(),
		log.FieldDate, m.Date.String())
	return id, nil
}

// Get returns the movement with the given id, or ErrNotFound.
func (r *MovementRepository) Get(ctx context.Context, id int64) (core.Movement, error) {
	var m core.Movement
	err := r.withConn(ctx, log.OpRead, func(conn *sqlx.Conn) error {
		rows, err := r.query(ctx, conn, r.dialect.Rebind(selectMovementSQL), id)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNotFound
		}
		m, err = movementFromRow(rows[0])
		return err
	})
	return m, err
}

// Update rewrites the business fields of m.ID. The id itself never changes.
func (r *MovementRepository) Update(ctx context.Context, m core.Movement) error {
	return r.withConn(ctx, log.OpUpdate, func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx, r.dialect.Rebind(updateMovementSQL),
			string(m.Type), m.Concept, m.Amount.Float64(), m.Date.String(), m.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes the movement with the given id. Unknown ids are a no-op.
func (r *MovementRepository) Delete(ctx context.Context, id int64) error {
	return r.withConn(ctx, log.OpDelete, func(conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, r.dialect.Rebind(deleteMovementSQL), id)
		return err
	})
}

// List returns the movements matching f, newest first.
func (r *MovementRepository) List(ctx context.Context, f Filter) ([]core.Movement, error) {
	where, args := BuildFilter(r.dialect, f)
	var out []core.Movement
	err := r.withConn(ctx, log.OpList, func(conn *sqlx.Conn) error {
		rows, err := r.query(ctx, conn, listMovementsSQL+where+listOrder, args...)
		if err != nil {
			return err
		}
		out, err = movementsFromRows(rows)
		return err
	})
	return out, err
}

// Recent returns the newest limit movements by date.
func (r *MovementRepository) Recent(ctx context.Context, limit int) ([]core.Movement, error) {
	var out []core.Movement
	err := r.withConn(ctx, log.OpList, func(conn *sqlx.Conn) error {
		rows, err := r.query(ctx, conn, r.dialect.Rebind(recentSQL), limit)
		if err != nil {
			return err
		}
		out, err = movementsFromRows(rows)
		return err
	})
	return out, err
}

// Balance sums income and expense amounts, counting rows still holding the
// legacy ingreso/gasto names. An empty table yields zeros.
func (r *MovementRepository) Balance(ctx context.Context) (core.Balance, error) {
	var b core.Balance
	err := r.withConn(ctx, log.OpBalance, func(conn *sqlx.Conn) error {
		rows, err := r.query(ctx, conn, r.dialect.Rebind(balanceSQL),
			string(core.Income), string(core.Expense), "ingreso", "gasto")
		if err != nil {
			return err
		}
		for _, row := range rows {
			typ, err := row.String("tipo")
			if err != nil {
				return err
			}
			total, err := row.Money("total")
			if err != nil {
				return err
			}
			switch core.NormalizeType(typ) {
			case core.Income:
				b.Income.Cents += total.Cents
			case core.Expense:
				b.Expense.Cents += total.Cents
			}
		}
		return nil
	})
	return b, err
}

// Count returns the number of stored movements.
func (r *MovementRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.withConn(ctx, log.OpCount, func(conn *sqlx.Conn) error {
		rows, err := r.query(ctx, conn, countSQL)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		n, err = rows[0].Int64("total")
		return err
	})
	return n, err
}

// Ping performs a trivial round trip through the pool.
func (r *MovementRepository) Ping(ctx context.Context) error {
	return r.withConn(ctx, log.OpPing, func(conn *sqlx.Conn) error {
		rows, err := r.query(ctx, conn, pingSQL)
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return fmt.Errorf("ping returned %d rows", len(rows))
		}
		return nil
	})
}

func movementsFromRows(rows []Row) ([]core.Movement, error) {
	out := make([]core.Movement, 0, len(rows))
	for _, row := range rows {
		m, err := movementFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func movementFromRow(row Row) (core.Movement, error) {
	var (
		m   core.Movement
		err error
	)
	if m.ID, err = row.Int64("id"); err != nil {
		return m, err
	}
	typ, err := row.String("tipo")
	if err != nil {
		return m, err
	}
	m.Type = core.NormalizeType(typ)
	if m.Concept, err = row.String("concepto"); err != nil {
		return m, err
	}
	if m.Amount, err = row.Money("monto"); err != nil {
		return m, err
	}
	if m.Date, err = row.Date("fecha"); err != nil {
		return m, err
	}
	return m, nil
}
