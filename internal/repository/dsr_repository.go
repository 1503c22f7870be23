package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/dsr-service/internal/model"
)

const dsrColumns = "id,user_id,project,date,estimated_hour,description,created_at,updated_at"

// DSRRepo provides data access to the dsrs table.  Every read and write is
// scoped by user_id; a row owned by someone else behaves as if it did not
// exist.
type DSRRepo struct {
	db *sql.DB
}

// NewDSRRepo returns a new DSRRepo bound to the provided database.
func NewDSRRepo(db *sql.DB) *DSRRepo { return &DSRRepo{db: db} }

// DSRQuery defines filters and pagination for listing a user's reports.
// The date range applies only when both bounds are set.
type DSRQuery struct {
	UserID uint64
	Start  *model.Date
	End    *model.Date
	Page   int // 1-based
	Limit  int
}

// CreateWithinDailyLimit inserts rec after checking that the owner's total
// for rec.Date stays within model.MaxDailyHours.  The owner's users row is
// locked for the duration of the transaction, so concurrent creations for
// the same user serialize and cannot both pass the check.  On success rec
// is filled with the stored row.
func (r *DSRRepo) CreateWithinDailyLimit(ctx context.Context, rec *model.DSR) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := lockUserTx(ctx, tx, rec.UserID); err != nil {
		return err
	}
	existing, err := sumHoursTx(ctx, tx, rec.UserID, rec.Date, 0)
	if err != nil {
		return err
	}
	if model.OverDailyCap(existing + rec.EstimatedHour) {
		return ErrDailyLimit
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO dsrs (user_id, project, date, estimated_hour, description) VALUES (?,?,?,?,?)",
		rec.UserID, rec.Project, rec.Date.Time, rec.EstimatedHour, rec.Description)
	if err != nil {
		return fmt.Errorf("insert dsr: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert dsr: %w", err)
	}
	stored, err := scanDSR(tx.QueryRowContext(ctx,
		"SELECT "+dsrColumns+" FROM dsrs WHERE id=?", uint64(id)))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	*rec = stored
	return nil
}

// GetForUser returns the report with the given id if it belongs to userID.
func (r *DSRRepo) GetForUser(ctx context.Context, userID, id uint64) (model.DSR, error) {
	return scanDSR(r.db.QueryRowContext(ctx,
		"SELECT "+dsrColumns+" FROM dsrs WHERE id=? AND user_id=? LIMIT 1", id, userID))
}

// Update overwrites estimated_hour and description of a report owned by
// userID, leaving project and date untouched.  With enforceDailyCap set the
// new value is checked against the sum of the other reports of the same
// day under the same user-row lock CreateWithinDailyLimit takes.
func (r *DSRRepo) Update(ctx context.Context, userID, id uint64, hours float64, description string, enforceDailyCap bool) (model.DSR, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.DSR{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if enforceDailyCap {
		if err := lockUserTx(ctx, tx, userID); err != nil {
			return model.DSR{}, err
		}
	}
	current, err := scanDSR(tx.QueryRowContext(ctx,
		"SELECT "+dsrColumns+" FROM dsrs WHERE id=? AND user_id=? FOR UPDATE", id, userID))
	if err != nil {
		return model.DSR{}, err
	}
	if enforceDailyCap {
		siblings, err := sumHoursTx(ctx, tx, userID, current.Date, id)
		if err != nil {
			return model.DSR{}, err
		}
		if model.OverDailyCap(siblings + hours) {
			return model.DSR{}, ErrDailyLimit
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE dsrs SET estimated_hour=?, description=? WHERE id=? AND user_id=?",
		hours, description, id, userID); err != nil {
		return model.DSR{}, fmt.Errorf("update dsr: %w", err)
	}
	updated, err := scanDSR(tx.QueryRowContext(ctx,
		"SELECT "+dsrColumns+" FROM dsrs WHERE id=?", id))
	if err != nil {
		return model.DSR{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.DSR{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return updated, nil
}

// List returns one page of the user's reports ordered by date descending,
// plus the total number of rows matching the filter.
func (r *DSRRepo) List(ctx context.Context, q DSRQuery) ([]model.DSR, int64, error) {
	cond := "user_id=?"
	args := []any{q.UserID}
	if q.Start != nil && q.End != nil {
		cond += " AND date BETWEEN ? AND ?"
		args = append(args, q.Start.Time, q.End.Time)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM dsrs WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dsrs: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+dsrColumns+" FROM dsrs WHERE "+cond+" ORDER BY date DESC, id DESC LIMIT ? OFFSET ?",
		append(args, q.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list dsrs: %w", err)
	}
	defer rows.Close()

	items := make([]model.DSR, 0, q.Limit)
	for rows.Next() {
		d, err := scanDSR(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list dsrs: %w", err)
	}
	return items, total, nil
}

// lockUserTx takes a row lock on the owner so report writes for one user
// run one at a time.
func lockUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? FOR UPDATE", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

// sumHoursTx totals the user's hours on date, skipping excludeID when it is
// non-zero.
func sumHoursTx(ctx context.Context, tx *sql.Tx, userID uint64, date model.Date, excludeID uint64) (float64, error) {
	var sum float64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(estimated_hour), 0) FROM dsrs WHERE user_id=? AND date=? AND id<>?",
		userID, date.Time, excludeID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum hours: %w", err)
	}
	return sum, nil
}

func scanDSR(row rowScanner) (model.DSR, error) {
	var (
		d    model.DSR
		date time.Time
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Project, &date, &d.EstimatedHour, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DSR{}, ErrNotFound
	}
	if err != nil {
		return model.DSR{}, fmt.Errorf("scan dsr: %w", err)
	}
	d.Date = model.DateOf(date)
	return d, nil
}
