// Package auth orchestrates login, second-factor verification and logout
// for the console apps. It owns the only code paths that mutate the
// session store, and exposes the three-state machine the presentation
// layer switches views on: Anonymous, ChallengePending, Authenticated.
package auth

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/flmelody/defender-console-go/pkg/client"
	"github.com/flmelody/defender-console-go/pkg/errors"
	"github.com/flmelody/defender-console-go/pkg/interfaces"
	"github.com/flmelody/defender-console-go/pkg/session"
	"github.com/flmelody/defender-console-go/pkg/types"
)

// Backend endpoints.
const (
	LoginEndpoint     = "/admin-login"
	TwoFactorEndpoint = "/admin-login/2fa"
)

// State is the auth flow state derived from the session store.
type State string

const (
	StateAnonymous        State = "anonymous"
	StateChallengePending State = "challenge_pending"
	StateAuthenticated    State = "authenticated"
)

// Controller drives the authentication flow against the request pipeline.
type Controller struct {
	client   *client.Client
	session  *session.Store
	logger   interfaces.Logger
	validate *validator.Validate
}

// NewController creates an auth flow controller. The initial state comes
// from whatever Hydrate restored into the session store.
func NewController(c *client.Client, s *session.Store, logger interfaces.Logger) *Controller {
	return &Controller{
		client:   c,
		session:  s,
		logger:   logger,
		validate: validator.New(),
	}
}

// State reports the current flow state. An in-progress challenge takes
// precedence over a token restored from a previous session, so a login
// attempt that hit the second-factor branch presents the challenge view.
func (ac *Controller) State() State {
	if ac.session.RequiresSecondFactor() {
		return StateChallengePending
	}
	if ac.session.IsAuthenticated() {
		return StateAuthenticated
	}
	return StateAnonymous
}

// Login attempts primary authentication. The returned flag is true when
// the server requires a second factor: the session then holds a pending
// challenge token and no new session token. Otherwise a completed login
// installed the token and user. Logging in while already authenticated is
// deliberately allowed and applies whatever the server returns, which may
// re-authenticate as a different user.
func (ac *Controller) Login(ctx context.Context, username, password string) (requiresSecondFactor bool, err error) {
	req := types.LoginRequest{Username: username, Password: password}
	if err := ac.validate.Struct(req); err != nil {
		return false, errors.NewValidationError("username and password are required")
	}

	var res types.AdminLoginResponse
	if err := ac.client.Post(ctx, LoginEndpoint, req, &res); err != nil {
		return false, err
	}

	if res.RequiresTwoFactor {
		ac.session.BeginChallenge(res.ChallengeToken)
		ac.logger.Info("second factor required", map[string]interface{}{"username": username})
		return true, nil
	}

	if res.Token != "" {
		ac.session.CompleteAuthentication(res.Token, res.User)
		ac.logger.Info("login completed", map[string]interface{}{"username": username})
	}
	return false, nil
}

// VerifySecondFactor completes a pending challenge with a one-time code.
// A failed attempt leaves the challenge state untouched so the operator
// can retry another code against the same challenge token.
func (ac *Controller) VerifySecondFactor(ctx context.Context, code string) error {
	if ac.State() != StateChallengePending {
		return errors.New(errors.ErrorTypeAuth, errors.ErrCodeNoChallenge, "no second-factor challenge in progress")
	}

	req := types.TwoFactorRequest{
		ChallengeToken: ac.session.ChallengeToken(),
		Code:           code,
	}
	if err := ac.validate.Struct(req); err != nil {
		return errors.NewValidationError("verification code is required")
	}

	var res types.TwoFactorResponse
	if err := ac.client.Post(ctx, TwoFactorEndpoint, req, &res); err != nil {
		return err
	}

	ac.session.CompleteAuthentication(res.Token, res.User)
	ac.logger.Info("second factor verified")
	return nil
}

// Cancel abandons a pending challenge without contacting the server. Any
// token from a previous session stays intact.
func (ac *Controller) Cancel() {
	ac.session.CancelChallenge()
}

// Logout terminates the session locally. Valid from any state; no server
// round-trip is needed for the client to consider the session gone.
func (ac *Controller) Logout() {
	ac.session.Clear()
	ac.logger.Info("logged out")
}
