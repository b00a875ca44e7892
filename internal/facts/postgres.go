package facts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// PostgresProvider resolves facts from the back-office schema. Per-key
// failures are logged and the key omitted; only a completely unreachable
// database fails the snapshot.
type PostgresProvider struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed fact provider.
func NewPostgres(db *sql.DB, logger *slog.Logger) *PostgresProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProvider{db: db, logger: logger}
}

// Snapshot resolves the requested keys for one customer.
func (p *PostgresProvider) Snapshot(ctx context.Context, customerID domain.CustomerID, keys []string) (eligibility.FactSnapshot, error) {
	if err := p.db.PingContext(ctx); err != nil {
		return eligibility.FactSnapshot{}, fmt.Errorf("fact source unreachable: %w", err)
	}

	snapshot := eligibility.FactSnapshot{
		CustomerID: customerID,
		TakenAt:    time.Now(),
		Values:     make(map[string]eligibility.FactValue, len(keys)),
	}
	for _, key := range keys {
		value, found, err := p.resolve(ctx, customerID, key)
		if err != nil {
			p.logger.WarnContext(ctx, "fact lookup failed",
				"customer_id", customerID,
				"key", key,
				"error", err,
			)
			continue
		}
		if found {
			snapshot.Values[key] = value
		}
	}
	return snapshot, nil
}

func (p *PostgresProvider) resolve(ctx context.Context, customerID domain.CustomerID, key string) (eligibility.FactValue, bool, error) {
	if account, currency, ok := balanceKey(key); ok {
		return p.balance(ctx, customerID, account, currency)
	}
	if account, ok := accountAgeKey(key); ok {
		return p.accountAge(ctx, customerID, account)
	}

	switch key {
	case KeyDepositStreak:
		return p.intFact(ctx, customerID, `
			SELECT current_streak_days FROM deposit_streaks WHERE customer_id = $1`)
	case KeyRepaymentStreak:
		return p.intFact(ctx, customerID, `
			SELECT current_streak FROM repayment_streaks WHERE customer_id = $1`)
	case KeyPaymentDefaults:
		return p.intFact(ctx, customerID, `
			SELECT COUNT(*) FROM payment_defaults WHERE customer_id = $1`)
	case KeyKYCTier:
		var tier string
		err := p.db.QueryRowContext(ctx, `
			SELECT kyc_tier FROM customers WHERE id = $1`, uuid.UUID(customerID),
		).Scan(&tier)
		if errors.Is(err, sql.ErrNoRows) {
			return eligibility.FactValue{}, false, nil
		}
		if err != nil {
			return eligibility.FactValue{}, false, err
		}
		return eligibility.Text(tier), true, nil
	case KeyGroups:
		rows, err := p.db.QueryContext(ctx, `
			SELECT group_code FROM group_members WHERE customer_id = $1`, uuid.UUID(customerID))
		if err != nil {
			return eligibility.FactValue{}, false, err
		}
		defer rows.Close()
		var groups []string
		for rows.Next() {
			var g string
			if err := rows.Scan(&g); err != nil {
				return eligibility.FactValue{}, false, err
			}
			groups = append(groups, g)
		}
		if err := rows.Err(); err != nil {
			return eligibility.FactValue{}, false, err
		}
		return eligibility.Set(groups...), true, nil
	}

	// Unknown key: configuration problem upstream, not a lookup error.
	return eligibility.FactValue{}, false, nil
}

func (p *PostgresProvider) balance(ctx context.Context, customerID domain.CustomerID, account, currency string) (eligibility.FactValue, bool, error) {
	var (
		amount float64
		cur    string
		err    error
	)
	if currency == "" {
		err = p.db.QueryRowContext(ctx, `
			SELECT balance, currency FROM account_balances
			WHERE customer_id = $1 AND account_code = $2 AND is_primary = true`,
			uuid.UUID(customerID), account,
		).Scan(&amount, &cur)
	} else {
		cur = currency
		err = p.db.QueryRowContext(ctx, `
			SELECT balance FROM account_balances
			WHERE customer_id = $1 AND account_code = $2 AND currency = $3`,
			uuid.UUID(customerID), account, currency,
		).Scan(&amount)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return eligibility.FactValue{}, false, nil
	}
	if err != nil {
		return eligibility.FactValue{}, false, err
	}
	return eligibility.Amount(amount, cur), true, nil
}

func (p *PostgresProvider) accountAge(ctx context.Context, customerID domain.CustomerID, account string) (eligibility.FactValue, bool, error) {
	var openedAt time.Time
	err := p.db.QueryRowContext(ctx, `
		SELECT opened_at FROM accounts
		WHERE customer_id = $1 AND account_code = $2`,
		uuid.UUID(customerID), account,
	).Scan(&openedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return eligibility.FactValue{}, false, nil
	}
	if err != nil {
		return eligibility.FactValue{}, false, err
	}
	days := math.Floor(time.Since(openedAt).Hours() / 24)
	return eligibility.Number(days), true, nil
}

func (p *PostgresProvider) intFact(ctx context.Context, customerID domain.CustomerID, query string) (eligibility.FactValue, bool, error) {
	var n float64
	err := p.db.QueryRowContext(ctx, query, uuid.UUID(customerID)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return eligibility.FactValue{}, false, nil
	}
	if err != nil {
		return eligibility.FactValue{}, false, err
	}
	return eligibility.Number(n), true, nil
}
