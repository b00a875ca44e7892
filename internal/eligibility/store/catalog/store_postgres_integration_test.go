//go:build integration

package catalog_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"mosolo/internal/eligibility"
	"mosolo/internal/eligibility/store/catalog"
	"mosolo/pkg/domain"
	"mosolo/pkg/testutil/containers"
)

// =============================================================================
// Postgres Catalog Integration Suite
// =============================================================================

type PostgresCatalogSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	catalog  *catalog.PostgresCatalog
}

func TestPostgresCatalogSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCatalogSuite))
}

func (s *PostgresCatalogSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.catalog = catalog.NewPostgres(s.postgres.DB)
}

func (s *PostgresCatalogSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "eligibility_conditions"))
}

func (s *PostgresCatalogSuite) seed(target domain.Target, key string, required string, active bool, order int) uuid.UUID {
	id := uuid.New()
	_, err := s.postgres.DB.ExecContext(context.Background(), `
		INSERT INTO eligibility_conditions (
			id, target_type, target_code, condition_key, condition_type,
			operator, required_value, weight, is_mandatory, is_active, display_order
		) VALUES ($1, $2, $3, $4, 'BALANCE', 'GREATER_THAN_OR_EQUAL', $5, 50, true, $6, $7)`,
		id, string(target.Type), string(target.Code), key, required, active, order,
	)
	s.Require().NoError(err)
	return id
}

func (s *PostgresCatalogSuite) TestActiveConditions() {
	target := domain.Target{Type: domain.TargetAccount, Code: domain.AccountS02}
	other := domain.Target{Type: domain.TargetService, Code: domain.ServiceBombe}

	second := s.seed(target, "deposit_streak", `{"amount": 30}`, true, 2)
	first := s.seed(target, "balance:S01:USD", `{"amount": 100, "currency": "USD"}`, true, 1)
	s.seed(target, "kyc_tier", `{"text": "TIER_2"}`, false, 3)
	s.seed(other, "repayment_streak", `{"amount": 3}`, true, 1)

	specs, err := s.catalog.ActiveConditions(context.Background(), target)
	s.Require().NoError(err)
	s.Require().Len(specs, 2)

	// Display order, inactive rows filtered, other targets excluded.
	s.Equal(first, specs[0].ID)
	s.Equal(second, specs[1].ID)

	s.Equal("balance:S01:USD", specs[0].Key)
	s.Equal(eligibility.TypeBalance, specs[0].Type)
	s.Equal(eligibility.OpGreaterThanOrEqual, specs[0].Operator)
	s.Require().NotNil(specs[0].Required.Amount)
	s.Equal(100.0, *specs[0].Required.Amount)
	s.Equal("USD", specs[0].Required.Currency)
	s.True(specs[0].Mandatory)
	s.True(specs[0].Active)
	s.Equal(target, specs[0].Target)
}

func (s *PostgresCatalogSuite) TestEmptyCatalogIsNotAnError() {
	specs, err := s.catalog.ActiveConditions(context.Background(),
		domain.Target{Type: domain.TargetService, Code: domain.ServiceVimbisa})
	s.Require().NoError(err)
	s.Empty(specs)
}
