package model

import (
	"strings"

	"github.com/google/uuid"
)

const (
	RoleForwarderAdmin   = "FORWARDER_ADMIN"
	RoleForwarderManager = "FORWARDER_MANAGER"
	RoleCustomerAdmin    = "CUSTOMER_ADMIN"
	RoleCustomerManager  = "CUSTOMER_MANAGER"
	RoleDriver           = "DRIVER"
)

// Principal is the caller identity established by the access token.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      string
}

func (p Principal) IsForwarder() bool {
	return strings.HasPrefix(p.Role, "FORWARDER_")
}

func (p Principal) HasRole(roles ...string) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}
