package registry

import "errors"

// Registry service errors.
var (
	ErrDepartmentNotFound  = errors.New("department not found")
	ErrDepartmentExists    = errors.New("department with this name or email already exists")
	ErrFirefighterNotFound = errors.New("firefighter unit not found")
	ErrFirefighterExists   = errors.New("firefighter unit with this email already exists")
	ErrFirefighterDeployed = errors.New("firefighter unit is deployed on an incident")
	ErrInvalidCoordinates  = errors.New("coordinates out of range")
	ErrNameRequired        = errors.New("name is required")
	ErrNotDepartmentMember = errors.New("firefighter unit belongs to another department")
)
