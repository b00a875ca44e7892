// Package domain holds the typed identifiers and target registry shared by
// every module. IDs are distinct uuid-backed types so the compiler rejects
// cross-assignment between them.
package domain

import (
	"github.com/google/uuid"

	dErrors "mosolo/pkg/domain-errors"
)

// CustomerID identifies a customer across the back office.
type CustomerID uuid.UUID

// NotificationID identifies one notification row.
type NotificationID uuid.UUID

// EvaluationID identifies one appended evaluation log row.
type EvaluationID uuid.UUID

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseCustomerID validates and returns a CustomerID.
func ParseCustomerID(s string) (CustomerID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CustomerID{}, err
	}
	return CustomerID(u), nil
}

// NewCustomerID returns a fresh random CustomerID. Production customer IDs
// come from the core banking system; this is for tests and seeds.
func NewCustomerID() CustomerID { return CustomerID(uuid.New()) }

// ParseNotificationID validates and returns a NotificationID.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return NotificationID{}, err
	}
	return NotificationID(u), nil
}

// NewNotificationID returns a fresh random NotificationID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// NewEvaluationID returns a fresh random EvaluationID.
func NewEvaluationID() EvaluationID { return EvaluationID(uuid.New()) }

func (id CustomerID) String() string     { return uuid.UUID(id).String() }
func (id CustomerID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id NotificationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EvaluationID) String() string   { return uuid.UUID(id).String() }
