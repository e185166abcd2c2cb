// Package client implements the HTTP request pipeline shared by the admin
// and guard console apps: one resty client per app that attaches the
// session credential on the way out, unwraps the backend's response
// envelope on the way in, and reacts to authorization failures by
// invalidating the session and forcing navigation to the login route.
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/flmelody/defender-console-go/pkg/config"
	"github.com/flmelody/defender-console-go/pkg/errors"
	"github.com/flmelody/defender-console-go/pkg/interfaces"
	"github.com/flmelody/defender-console-go/pkg/session"
	"github.com/flmelody/defender-console-go/pkg/types"
)

// AuthorizationHeader is the custom bearer credential header the backend
// expects on every authenticated request.
const AuthorizationHeader = "Defender-Authorization"

// DefaultTimeout matches the request timeout both apps shipped with.
const DefaultTimeout = 5 * time.Second

// NetworkErrorMessage is the transport-level fallback when the server
// returned no parseable failure text.
const NetworkErrorMessage = "Network error"

// Options configures a pipeline client.
type Options struct {
	App     types.AppKind
	Config  *config.AppConfig
	Session *session.Store
	Logger  interfaces.Logger

	// Notifier receives every pipeline-level failure message; nil disables
	// notification (the guard app runs without one).
	Notifier interfaces.Notifier

	// Navigator is invoked with the app's login route when an
	// authorization failure forces the current view to be abandoned. Nil
	// disables forced navigation.
	Navigator interfaces.Navigator

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// Client is the request pipeline. The stages are composed once at
// construction; ordering is fixed: credential injection before dispatch,
// authorization handling before envelope unwrapping after receipt.
type Client struct {
	http      *resty.Client
	app       types.AppKind
	cfg       *config.AppConfig
	session   *session.Store
	notifier  interfaces.Notifier
	navigator interfaces.Navigator
	logger    interfaces.Logger
}

// New builds the pipeline client for one app.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := resty.New()
	hc.SetBaseURL(opts.Config.BaseURL)
	hc.SetTimeout(timeout)
	hc.SetHeader("Content-Type", "application/json")
	hc.SetHeader("User-Agent", "defender-console/"+string(opts.App))

	c := &Client{
		http:      hc,
		app:       opts.App,
		cfg:       opts.Config,
		session:   opts.Session,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		logger:    opts.Logger,
	}

	hc.OnBeforeRequest(c.requestStage)
	hc.OnAfterResponse(c.responseStage)

	return c
}

// requestStage attaches the bearer credential when a token exists and tags
// the request for log correlation. Requests never queue awaiting a token;
// public endpoints go out uncredentialed.
func (c *Client) requestStage(_ *resty.Client, req *resty.Request) error {
	if token := c.session.Token(); token != "" {
		req.SetHeader(AuthorizationHeader, "Bearer "+token)
	}
	req.SetHeader("X-Request-ID", uuid.NewString())
	return nil
}

// responseStage normalizes transport-level failures. A 401 outside the
// login endpoints is fatal to the session: the store is cleared (persisted
// and in-memory state together) and the navigator is pointed at the app's
// login route. A 401 from the login endpoints only reports the failure, so
// wrong credentials cannot cause a redirect loop.
func (c *Client) responseStage(_ *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	msg := failureMessage(resp.Body())

	if resp.StatusCode() == http.StatusUnauthorized && !isLoginEndpoint(resp.Request.URL) {
		c.logger.Warn("authorization failure, invalidating session", map[string]interface{}{
			"url": resp.Request.URL,
		})
		c.session.Clear()
		if c.navigator != nil {
			c.navigator.NavigateTo(c.cfg.LoginPath(c.app))
		}
		c.notifyError(msg)
		return errors.NewUnauthorizedError(msg)
	}

	c.notifyError(msg)
	if resp.StatusCode() == http.StatusUnauthorized {
		return errors.NewUnauthorizedError(msg)
	}
	return errors.New(errors.ErrorTypeTransport, errors.ErrCodeNetwork, msg)
}

// isLoginEndpoint reports whether the URL targets one of the login
// endpoints (/login, /admin-login, /admin-login/2fa).
func isLoginEndpoint(url string) bool {
	return strings.Contains(url, "login")
}

// failureMessage resolves the failure text of a non-2xx response body:
// envelope error, then message, then the transport fallback.
func failureMessage(body []byte) string {
	var env types.Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return NetworkErrorMessage
}

func (c *Client) notifyError(message string) {
	if c.notifier != nil {
		c.notifier.NotifyError(message)
	}
}

// Do executes one request through the pipeline and decodes the payload
// into out (when non-nil). Bodies carrying the backend envelope are
// unwrapped: code 0 yields only the data member; any other code is a
// failure with the error/message/fallback precedence. Bodies without an
// envelope decode as-is.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		var derr *errors.DefenderError
		if stderrors.As(err, &derr) {
			return derr
		}
		c.notifyError(NetworkErrorMessage)
		return errors.NewNetworkError(NetworkErrorMessage, err)
	}

	raw := resp.Body()

	var probe map[string]json.RawMessage
	if json.Unmarshal(raw, &probe) == nil {
		if codeRaw, hasCode := probe["code"]; hasCode {
			var env types.Envelope
			if err := json.Unmarshal(raw, &env); err == nil && isNumeric(codeRaw) {
				if env.Code != 0 {
					msg := env.FailureMessage()
					c.notifyError(msg)
					return errors.NewRequestFailedError(msg)
				}
				if out != nil && len(env.Data) > 0 {
					if err := json.Unmarshal(env.Data, out); err != nil {
						return errors.Wrap(errors.ErrorTypeInternal, errors.ErrCodeInvalidInput, "failed to decode response data", err)
					}
				}
				return nil
			}
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrap(errors.ErrorTypeInternal, errors.ErrCodeInvalidInput, "failed to decode response body", err)
		}
	}
	return nil
}

func isNumeric(raw json.RawMessage) bool {
	var n json.Number
	return json.Unmarshal(raw, &n) == nil
}

// Get issues a GET request through the pipeline.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request through the pipeline.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request through the pipeline.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request through the pipeline.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}
