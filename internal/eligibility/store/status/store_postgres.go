package status

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// PostgresStore persists eligibility statuses in PostgreSQL. The primary key
// on (customer_id, target_type, target_code) plus row locking serializes
// concurrent upserts of the same pair.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed status store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const statusColumns = `
	customer_id, target_type, target_code,
	is_eligible, is_activated, score, progress,
	conditions_met, conditions_missing, estimated_days, auto_activate,
	last_evaluated_at, eligible_since, activated_at, created_at, updated_at`

// Get returns the stored status, or nil when the pair was never evaluated.
func (s *PostgresStore) Get(ctx context.Context, customerID domain.CustomerID, target domain.Target) (*eligibility.Status, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+statusColumns+`
		FROM eligibility_status
		WHERE customer_id = $1 AND target_type = $2 AND target_code = $3`,
		uuid.UUID(customerID), string(target.Type), string(target.Code),
	)
	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get eligibility status: %w", err)
	}
	return st, nil
}

// List returns every stored status for a customer.
func (s *PostgresStore) List(ctx context.Context, customerID domain.CustomerID) ([]eligibility.Status, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statusColumns+`
		FROM eligibility_status
		WHERE customer_id = $1
		ORDER BY target_type, target_code`,
		uuid.UUID(customerID),
	)
	if err != nil {
		return nil, fmt.Errorf("list eligibility statuses: %w", err)
	}
	defer rows.Close()

	var out []eligibility.Status
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eligibility status: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// Upsert creates or refreshes the record inside one transaction and reports
// the transition. A duplicate-key race on insert is retried once as an
// update instead of surfacing a conflict.
func (s *PostgresStore) Upsert(ctx context.Context, req eligibility.UpsertRequest) (*eligibility.Status, eligibility.Transition, error) {
	st, transition, err := s.upsertOnce(ctx, req)
	if isUniqueViolation(err) {
		st, transition, err = s.upsertOnce(ctx, req)
	}
	return st, transition, err
}

func (s *PostgresStore) upsertOnce(ctx context.Context, req eligibility.UpsertRequest) (*eligibility.Status, eligibility.Transition, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eligibility.Transition{}, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT `+statusColumns+`
		FROM eligibility_status
		WHERE customer_id = $1 AND target_type = $2 AND target_code = $3
		FOR UPDATE`,
		uuid.UUID(req.CustomerID), string(req.Target.Type), string(req.Target.Code),
	)

	existing, err := scanStatus(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = nil
	case err != nil:
		return nil, eligibility.Transition{}, fmt.Errorf("lock eligibility status: %w", err)
	}

	var transition eligibility.Transition
	st := existing
	if st == nil {
		st = &eligibility.Status{
			CustomerID:   req.CustomerID,
			Target:       req.Target,
			AutoActivate: req.AutoActivate,
			CreatedAt:    req.EvaluatedAt,
		}
	} else {
		prevEligible := st.Eligible
		prevScore := st.Score
		transition.PrevEligible = &prevEligible
		transition.PrevScore = &prevScore
	}

	wasEligible := st.Eligible
	applyResult(st, req.Result, req.EvaluatedAt)
	transition.BecameEligible = !wasEligible && st.Eligible
	transition.BecameIneligible = wasEligible && !st.Eligible
	if transition.BecameEligible {
		since := req.EvaluatedAt
		st.EligibleSince = &since
	}

	met, missing, err := marshalConditions(st)
	if err != nil {
		return nil, eligibility.Transition{}, err
	}

	if existing == nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO eligibility_status (`+statusColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			uuid.UUID(st.CustomerID), string(st.Target.Type), string(st.Target.Code),
			st.Eligible, st.Activated, st.Score, st.Progress,
			met, missing, st.EstimatedDays, st.AutoActivate,
			st.LastEvaluatedAt, st.EligibleSince, st.ActivatedAt, st.CreatedAt, st.UpdatedAt,
		)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE eligibility_status
			SET is_eligible = $4, score = $5, progress = $6,
			    conditions_met = $7, conditions_missing = $8, estimated_days = $9,
			    last_evaluated_at = $10, eligible_since = $11, updated_at = $12
			WHERE customer_id = $1 AND target_type = $2 AND target_code = $3`,
			uuid.UUID(st.CustomerID), string(st.Target.Type), string(st.Target.Code),
			st.Eligible, st.Score, st.Progress,
			met, missing, st.EstimatedDays,
			st.LastEvaluatedAt, st.EligibleSince, st.UpdatedAt,
		)
	}
	if err != nil {
		return nil, eligibility.Transition{}, fmt.Errorf("write eligibility status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, eligibility.Transition{}, fmt.Errorf("commit upsert tx: %w", err)
	}
	return st, transition, nil
}

// MarkActivated flips the activation flag via a conditional update; the
// WHERE clause makes the flip at-most-once under races.
func (s *PostgresStore) MarkActivated(ctx context.Context, customerID domain.CustomerID, target domain.Target, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE eligibility_status
		SET is_activated = true, activated_at = $4, updated_at = $4
		WHERE customer_id = $1 AND target_type = $2 AND target_code = $3
		  AND is_activated = false`,
		uuid.UUID(customerID), string(target.Type), string(target.Code), at,
	)
	if err != nil {
		return false, fmt.Errorf("mark activated: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark activated rows: %w", err)
	}
	return n == 1, nil
}

// ListEligibleUnactivated returns auto-activate rows awaiting the
// reconciliation sweep.
func (s *PostgresStore) ListEligibleUnactivated(ctx context.Context, limit int) ([]eligibility.Status, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statusColumns+`
		FROM eligibility_status
		WHERE is_eligible = true AND auto_activate = true AND is_activated = false
		ORDER BY eligible_since NULLS LAST
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending activations: %w", err)
	}
	defer rows.Close()

	var out []eligibility.Status
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending activation: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*eligibility.Status, error) {
	var (
		st                     eligibility.Status
		customerID             uuid.UUID
		targetType, targetCode string
		met, missing           []byte
	)
	err := row.Scan(
		&customerID, &targetType, &targetCode,
		&st.Eligible, &st.Activated, &st.Score, &st.Progress,
		&met, &missing, &st.EstimatedDays, &st.AutoActivate,
		&st.LastEvaluatedAt, &st.EligibleSince, &st.ActivatedAt, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.CustomerID = domain.CustomerID(customerID)
	st.Target = domain.Target{Type: domain.TargetType(targetType), Code: domain.TargetCode(targetCode)}
	if err := json.Unmarshal(met, &st.Met); err != nil {
		return nil, fmt.Errorf("decode conditions_met: %w", err)
	}
	if err := json.Unmarshal(missing, &st.Missing); err != nil {
		return nil, fmt.Errorf("decode conditions_missing: %w", err)
	}
	return &st, nil
}

func marshalConditions(st *eligibility.Status) ([]byte, []byte, error) {
	met, err := json.Marshal(st.Met)
	if err != nil {
		return nil, nil, fmt.Errorf("encode conditions_met: %w", err)
	}
	missing, err := json.Marshal(st.Missing)
	if err != nil {
		return nil, nil, fmt.Errorf("encode conditions_missing: %w", err)
	}
	return met, missing, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
