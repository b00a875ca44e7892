package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// PostgresCatalog reads condition specs from the eligibility_conditions
// table owned by the admin workflow.
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog.
func NewPostgres(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// ActiveConditions returns the active specs for a target in display order.
func (c *PostgresCatalog) ActiveConditions(ctx context.Context, target domain.Target) ([]eligibility.ConditionSpec, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, target_type, target_code, condition_key, condition_type,
		       operator, required_value, weight, is_mandatory, display_order,
		       description, created_at
		FROM eligibility_conditions
		WHERE target_type = $1 AND target_code = $2 AND is_active = true
		ORDER BY display_order, condition_key`,
		string(target.Type), string(target.Code),
	)
	if err != nil {
		return nil, fmt.Errorf("query condition specs: %w", err)
	}
	defer rows.Close()

	var out []eligibility.ConditionSpec
	for rows.Next() {
		var (
			spec                   eligibility.ConditionSpec
			id                     uuid.UUID
			targetType, targetCode string
			required               []byte
			description            sql.NullString
		)
		err := rows.Scan(
			&id, &targetType, &targetCode, &spec.Key, &spec.Type,
			&spec.Operator, &required, &spec.Weight, &spec.Mandatory,
			&spec.DisplayOrder, &description, &spec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan condition spec: %w", err)
		}
		if err := json.Unmarshal(required, &spec.Required); err != nil {
			return nil, fmt.Errorf("decode required_value for %s: %w", spec.Key, err)
		}
		spec.ID = id
		spec.Target = domain.Target{Type: domain.TargetType(targetType), Code: domain.TargetCode(targetCode)}
		spec.Active = true
		spec.Description = description.String
		out = append(out, spec)
	}
	return out, rows.Err()
}
