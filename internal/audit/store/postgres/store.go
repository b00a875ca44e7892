// Package postgres persists the evaluation log using the transactional
// outbox pattern: every append writes the log row and an outbox row in one
// transaction, and the relay publishes outbox rows to Kafka.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// Store implements the engine's AuditLog port on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates the PostgreSQL evaluation log.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// payload is the JSON published to Kafka for one evaluation.
type payload struct {
	ID              string                        `json:"id"`
	CustomerID      string                        `json:"customer_id"`
	TargetType      string                        `json:"target_type"`
	TargetCode      string                        `json:"target_code"`
	PrevEligibility *bool                         `json:"previous_eligibility,omitempty"`
	NewEligibility  bool                          `json:"new_eligibility"`
	PrevScore       *float64                      `json:"previous_score,omitempty"`
	NewScore        float64                       `json:"new_score"`
	Conditions      []eligibility.ConditionResult `json:"conditions_evaluated"`
	Trigger         string                        `json:"trigger_event"`
	Action          string                        `json:"action_taken"`
	EvaluatedAt     string                        `json:"evaluated_at"`
}

// Append writes the evaluation row and its outbox entry atomically.
func (s *Store) Append(ctx context.Context, rec eligibility.EvaluationRecord) error {
	conditions, err := json.Marshal(rec.Conditions)
	if err != nil {
		return fmt.Errorf("encode conditions snapshot: %w", err)
	}

	body, err := json.Marshal(payload{
		ID:              rec.ID.String(),
		CustomerID:      rec.CustomerID.String(),
		TargetType:      string(rec.Target.Type),
		TargetCode:      string(rec.Target.Code),
		PrevEligibility: rec.PrevEligibility,
		NewEligibility:  rec.NewEligibility,
		PrevScore:       rec.PrevScore,
		NewScore:        rec.NewScore,
		Conditions:      rec.Conditions,
		Trigger:         string(rec.Trigger),
		Action:          string(rec.Action),
		EvaluatedAt:     rec.EvaluatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO evaluation_log (
			id, customer_id, target_type, target_code,
			previous_eligibility, new_eligibility, previous_score, new_score,
			conditions_evaluated, trigger_event, action_taken, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(rec.ID), uuid.UUID(rec.CustomerID),
		string(rec.Target.Type), string(rec.Target.Code),
		rec.PrevEligibility, rec.NewEligibility, rec.PrevScore, rec.NewScore,
		conditions, string(rec.Trigger), string(rec.Action), rec.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation log: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, 'customer', $2, 'evaluation_logged', $3, $4)`,
		uuid.New(), rec.CustomerID.String(), body, rec.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

// ListByCustomer returns a customer's evaluation history, oldest first.
func (s *Store) ListByCustomer(ctx context.Context, customerID domain.CustomerID) ([]eligibility.EvaluationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, target_type, target_code,
		       previous_eligibility, new_eligibility, previous_score, new_score,
		       conditions_evaluated, trigger_event, action_taken, evaluated_at
		FROM evaluation_log
		WHERE customer_id = $1
		ORDER BY evaluated_at`,
		uuid.UUID(customerID),
	)
	if err != nil {
		return nil, fmt.Errorf("list evaluation log: %w", err)
	}
	defer rows.Close()

	var out []eligibility.EvaluationRecord
	for rows.Next() {
		var (
			rec                    eligibility.EvaluationRecord
			id, customer           uuid.UUID
			targetType, targetCode string
			conditions             []byte
			trigger, action        string
		)
		err := rows.Scan(
			&id, &customer, &targetType, &targetCode,
			&rec.PrevEligibility, &rec.NewEligibility, &rec.PrevScore, &rec.NewScore,
			&conditions, &trigger, &action, &rec.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation log: %w", err)
		}
		if err := json.Unmarshal(conditions, &rec.Conditions); err != nil {
			return nil, fmt.Errorf("decode conditions snapshot: %w", err)
		}
		rec.ID = domain.EvaluationID(id)
		rec.CustomerID = domain.CustomerID(customer)
		rec.Target = domain.Target{Type: domain.TargetType(targetType), Code: domain.TargetCode(targetCode)}
		rec.Trigger = eligibility.TriggerEvent(trigger)
		rec.Action = eligibility.ActionTaken(action)
		out = append(out, rec)
	}
	return out, rows.Err()
}
