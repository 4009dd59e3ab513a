package models

import (
	"time"
)

// Provider identifies the external calendar service a connection points at
type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderApple   Provider = "apple"
	ProviderOutlook Provider = "outlook"
	ProviderOther   Provider = "other"
)

// Valid reports whether the provider is one of the known values
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderApple, ProviderOutlook, ProviderOther:
		return true
	}
	return false
}

// CalendarConnection links one user to one external calendar account.
// Token acquisition and refresh happen outside this subsystem; the tokens
// stored here are whatever the OAuth flow handed over.
type CalendarConnection struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Provider       Provider  `json:"provider"`
	ProviderID     string    `json:"provider_id,omitempty"`
	CalendarID     string    `json:"calendar_id,omitempty"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	SyncEnabled    bool      `json:"sync_enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
