// Package client talks to the resource endpoints of the admin API: create,
// update and delete records and navigate between named routes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vulca/torneos/urls"
)

const (
	// Сообщения, которые видит пользователь при неудаче без ошибок по полям.
	MessageSaveFailed   = "No se pudo guardar. Inténtalo de nuevo."
	MessageDeleteFailed = "No se pudo eliminar el registro."
	MessageActionFailed = "No se pudo completar la acción."

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 1 << 20
)

var (
	ErrRequestFailed = errors.New("request failed")
	ErrNoNavigator   = errors.New("no navigator configured")
	ErrClosed        = errors.New("client is closed")
)

// Payload is a statically typed form body.
type Payload interface {
	Values() url.Values
}

// Notifier shows a message to the user. Any non-blocking surface will do.
type Notifier interface {
	Notify(message string)
}

type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Navigator performs a full navigation to an already resolved URL.
type Navigator interface {
	Navigate(target string)
}

type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// StatusError is a non-validation failure reported by the server.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d", e.Status)
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrRequestFailed }

// Response is a successful reply. Bodies use the {"<resource>": {...}} envelope.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the envelope member key into dst.
func (r *Response) Decode(key string, dst any) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	raw, ok := env[key]
	if !ok {
		return fmt.Errorf("response has no %q member", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return nil
}

type SuccessFunc func(resp *Response)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token is sent as a bearer token on every request.
	Token         string
	Logger        *slog.Logger
	Notifier      Notifier
	Navigator     Navigator
	OnFieldErrors func(FieldErrors)
}

// Client performs the remote operations for one resource ("games",
// "tournaments", "registrations"). Route names are <resource>.store,
// <resource>.update and <resource>.destroy.
type Client struct {
	resource      string
	baseURL       *url.URL
	httpClient    *http.Client
	token         string
	logger        *slog.Logger
	notifier      Notifier
	navigator     Navigator
	onFieldErrors func(FieldErrors)

	base   context.Context
	cancel context.CancelFunc
	busy   atomic.Int32
}

func New(resource string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	for _, action := range []string{"store", "update", "destroy"} {
		if _, err := urls.Lookup(resource + "." + action); err != nil {
			return nil, fmt.Errorf("resource %q: %w", resource, err)
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		resource:      resource,
		baseURL:       base,
		httpClient:    httpClient,
		token:         opts.Token,
		logger:        logger.With(slog.String("resource", resource)),
		notifier:      opts.Notifier,
		navigator:     opts.Navigator,
		onFieldErrors: opts.OnFieldErrors,
		base:          ctx,
		cancel:        cancel,
	}, nil
}

// Busy reports whether an operation is in flight.
func (c *Client) Busy() bool {
	return c.busy.Load() > 0
}

// Close aborts every in-flight request. Callbacks of aborted requests are
// not invoked and no notice is shown.
func (c *Client) Close() {
	c.cancel()
}

// Create submits payload to the collection route.
func (c *Client) Create(ctx context.Context, payload Payload, onSuccess SuccessFunc) error {
	return c.submit(ctx, c.resource+".store", nil, payload, onSuccess)
}

// Update submits payload to the item route as a partial update.
func (c *Client) Update(ctx context.Context, id int, payload Payload, onSuccess SuccessFunc) error {
	return c.submit(ctx, c.resource+".update", urls.Params{"id": id}, payload, onSuccess)
}

// Destroy deletes the record. Failures, 422 included, are reported with one
// generic message.
func (c *Client) Destroy(ctx context.Context, id int, onSuccess SuccessFunc) error {
	resp, err := c.send(ctx, c.resource+".destroy", urls.Params{"id": id}, nil)
	return c.finish(ctx, resp, err, MessageDeleteFailed, onSuccess)
}

// Action runs a quick action on one record, e.g. a payment status change.
func (c *Client) Action(ctx context.Context, routeName string, id int, payload Payload, onSuccess SuccessFunc) error {
	resp, err := c.send(ctx, routeName, urls.Params{"id": id}, payload)
	return c.finish(ctx, resp, err, MessageActionFailed, onSuccess)
}

// NavigateTo resolves a named route and hands the URL to the navigator.
func (c *Client) NavigateTo(routeName string, params urls.Params) error {
	if c.navigator == nil {
		return ErrNoNavigator
	}
	target, err := c.resolve(routeName, params)
	if err != nil {
		c.logger.Error("failed to resolve navigation target", slog.String("route", routeName), slog.Any("error", err))
		return err
	}
	c.navigator.Navigate(target)
	return nil
}

func (c *Client) submit(ctx context.Context, routeName string, params urls.Params, payload Payload, onSuccess SuccessFunc) error {
	resp, err := c.send(ctx, routeName, params, payload)
	var fieldErrs FieldErrors
	if errors.As(err, &fieldErrs) && c.base.Err() == nil && ctx.Err() == nil {
		c.logger.Warn("validation failed", slog.String("route", routeName), slog.Any("fields", fieldErrs.Keys()))
		if c.onFieldErrors != nil {
			c.onFieldErrors(fieldErrs)
		}
		c.notify(fieldErrs.Report())
		return err
	}
	return c.finish(ctx, resp, err, MessageSaveFailed, onSuccess)
}

func (c *Client) finish(ctx context.Context, resp *Response, err error, message string, onSuccess SuccessFunc) error {
	if c.base.Err() != nil {
		return ErrClosed
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		c.logger.Error("request failed", slog.Any("error", err))
		c.notify(message)
		return err
	}
	if onSuccess != nil {
		onSuccess(resp)
	}
	return nil
}

// send performs one round trip. Verbs other than GET and POST travel as POST
// with a _method field.
func (c *Client) send(ctx context.Context, routeName string, params urls.Params, payload Payload) (*Response, error) {
	c.busy.Add(1)
	defer c.busy.Add(-1)

	if c.base.Err() != nil {
		return nil, ErrClosed
	}
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.base, cancel)
	defer stop()

	route, err := urls.Lookup(routeName)
	if err != nil {
		return nil, err
	}
	target, err := c.resolve(routeName, params)
	if err != nil {
		return nil, err
	}

	var values url.Values
	if payload != nil {
		values = payload.Values()
	}
	if values == nil {
		values = url.Values{}
	}
	method := route.Method
	if method != http.MethodGet && method != http.MethodPost {
		values.Set("_method", method)
		method = http.MethodPost
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(values.Encode())
	}
	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, route.Method, route.Pattern, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return &Response{Status: res.StatusCode, Body: data}, nil
	}
	return nil, decodeError(res.StatusCode, data)
}

func (c *Client) resolve(routeName string, params urls.Params) (string, error) {
	path, err := urls.Path(routeName, params)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid route path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) notify(message string) {
	if c.notifier != nil && message != "" {
		c.notifier.Notify(message)
	}
}

// decodeError turns {"error": ...} into FieldErrors on 422 or a StatusError.
func decodeError(status int, data []byte) error {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if len(bytes.TrimSpace(data)) > 0 {
		_ = json.Unmarshal(data, &env)
	}

	if status == http.StatusUnprocessableEntity {
		var fields map[string]string
		if err := json.Unmarshal(env.Error, &fields); err == nil && len(fields) > 0 {
			return FieldErrors(fields)
		}
	}

	var message string
	if err := json.Unmarshal(env.Error, &message); err != nil {
		message = http.StatusText(status)
	}
	return &StatusError{Status: status, Message: message}
}
