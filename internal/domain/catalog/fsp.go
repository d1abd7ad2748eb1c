// Package catalog holds the financial service providers and the loan products
// they publish to the gateway.
package catalog

import (
	"time"
)

// FSP is a registered financial service provider
type FSP struct {
	ID        int64     `json:"id"`
	Code      string    `json:"fsp_code"`
	Name      string    `json:"name"`
	PublicKey string    `json:"-"` // PEM encoded, used for signature verification
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFSP creates an active provider record. An empty name keeps the stored
// name of a known provider and names a new one after its code.
func NewFSP(code, name string) *FSP {
	now := time.Now().UTC()
	return &FSP{
		Code:      code,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
