package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnitStatus represents the availability of a firefighter unit.
type UnitStatus string

// Unit statuses.
const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusDeployed  UnitStatus = "deployed"
)

// IsValid checks if the unit status is valid.
func (s UnitStatus) IsValid() bool {
	return s == UnitStatusAvailable || s == UnitStatusDeployed
}

// FirefighterUnit is a deployable unit owned by a department.
// A deployed unit references exactly one active incident.
type FirefighterUnit struct {
	ID              uuid.UUID  `json:"id"`
	DepartmentID    uuid.UUID  `json:"department_id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Status          UnitStatus `json:"status"`
	IncidentID      *uuid.UUID `json:"incident_id,omitempty"`
	Specializations []string   `json:"specializations,omitempty"`
	LastStatusAt    time.Time  `json:"last_status_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
