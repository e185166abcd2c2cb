// Package types defines the core types shared across the Defender console client
package types

import (
	"encoding/json"
)

// AppKind identifies which of the two co-deployed console apps a client
// instance is acting for. The admin console and the guard gatekeeper app
// share one backend API and one origin but are mounted under different
// path prefixes.
type AppKind string

const (
	AppAdmin AppKind = "admin"
	AppGuard AppKind = "guard"
)

// Valid reports whether the app kind is one of the two known apps.
func (k AppKind) Valid() bool {
	return k == AppAdmin || k == AppGuard
}

// UserInfo is the identity record returned by the login endpoints and
// persisted alongside the session token.
type UserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Envelope is the uniform response wrapper every backend endpoint uses.
// Code 0 signals application-level success regardless of HTTP status;
// Data carries the payload and is only meaningful on success.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// FailureMessage resolves the human-readable failure text for a non-zero
// envelope: error field first, then message, then the generic fallback.
func (e *Envelope) FailureMessage() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "Request failed"
}

// LoginRequest is the body of POST /admin-login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AdminLoginResponse is the payload of POST /admin-login. Exactly one of
// the two outcomes is populated: a completed login carries Token and User;
// a second-factor requirement carries RequiresTwoFactor and ChallengeToken.
type AdminLoginResponse struct {
	RequiresTwoFactor bool      `json:"requires_two_factor"`
	ChallengeToken    string    `json:"challenge_token,omitempty"`
	Token             string    `json:"token,omitempty"`
	User              *UserInfo `json:"user"`
}

// TwoFactorRequest is the body of POST /admin-login/2fa.
type TwoFactorRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"required"`
}

// TwoFactorResponse is the payload of POST /admin-login/2fa.
type TwoFactorResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// SystemMode distinguishes the two deployment modes of the firewall.
type SystemMode string

const (
	// ModeAuthRequest is the nginx auth_request-style deployment, and the
	// fallback when the settings endpoint cannot be reached.
	ModeAuthRequest SystemMode = "auth_request"
	// ModeReverseProxy is the full reverse-proxy deployment.
	ModeReverseProxy SystemMode = "reverse_proxy"
)

// SystemSettings is the payload of GET /system/settings. The client only
// consumes the mode; the remaining fields pass through to screens.
type SystemSettings struct {
	Mode SystemMode `json:"mode"`
}
