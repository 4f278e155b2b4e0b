// Package client is a Go client for the messaging REST API. Besides the
// request methods it provides ConversationView, which drives the polling
// delivery protocol for one open conversation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"workmatch/internal/domain"
)

const defaultRetryDelay = 300 * time.Millisecond

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// StatusOf returns the HTTP status carried by err, or 0 if err is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client calls the API on behalf of one bearer token.
type Client struct {
	baseURL    string
	token      string
	http       *http.Client
	log        *zap.Logger
	retryDelay time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRetryDelay sets the pause before the single retry of a transient failure.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        zap.NewNop(),
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type findOrCreateResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Created      bool                 `json:"created"`
}

// Me returns the caller's directory entry.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers pages through the directory. An empty role lets the server pick
// the caller's counterpart role; other empty fields do not filter.
func (c *Client) ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	q := url.Values{}
	if f.Role != "" {
		q.Set("role", string(f.Role))
	}
	if f.Specialty != "" {
		q.Set("specialty", f.Specialty)
	}
	if f.Governorate != "" {
		q.Set("governorate", f.Governorate)
	}
	if f.District != "" {
		q.Set("district", f.District)
	}
	if f.Available != nil {
		q.Set("available", strconv.FormatBool(*f.Available))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var users []*domain.User
	if _, err := c.do(ctx, http.MethodGet, withQuery("/api/users", q), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) SetAvailability(ctx context.Context, available bool) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodPatch, "/api/me/availability", map[string]bool{"is_available": available}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) SetNeededSpecialists(ctx context.Context, names []string) (*domain.User, error) {
	if names == nil {
		names = []string{}
	}
	var u domain.User
	if _, err := c.do(ctx, http.MethodPatch, "/api/me/needed-specialists", map[string][]string{"needed_specialists": names}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindOrCreate returns the conversation with participantID and whether this
// call created it.
func (c *Client) FindOrCreate(ctx context.Context, participantID int64) (*domain.Conversation, bool, error) {
	var resp findOrCreateResponse
	body := map[string]int64{"participant_id": participantID}
	if _, err := c.do(ctx, http.MethodPost, "/api/conversations", body, &resp); err != nil {
		return nil, false, err
	}
	return resp.Conversation, resp.Created, nil
}

func (c *Client) Conversations(ctx context.Context) ([]*domain.ConversationSummary, error) {
	var list []*domain.ConversationSummary
	if _, err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Messages lists a conversation's messages with id greater than afterID.
// A zero limit leaves the page size to the server.
func (c *Client) Messages(ctx context.Context, conversationID, afterID int64, limit int) ([]*domain.Message, error) {
	q := url.Values{}
	if afterID > 0 {
		q.Set("after", strconv.FormatInt(afterID, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := withQuery(fmt.Sprintf("/api/conversations/%d/messages", conversationID), q)
	var msgs []*domain.Message
	if _, err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Send appends a message. clientID makes the call idempotent: the server
// answers a repeated clientID with the message it already stored.
func (c *Client) Send(ctx context.Context, conversationID int64, body, clientID string) (*domain.Message, error) {
	req := map[string]any{
		"conversation_id": conversationID,
		"body":            body,
	}
	if clientID != "" {
		req["client_id"] = clientID
	}
	var msg domain.Message
	if _, err := c.do(ctx, http.MethodPost, "/api/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead marks the whole conversation read and returns the number of new read marks.
func (c *Client) MarkRead(ctx context.Context, conversationID int64) (int64, error) {
	var resp struct {
		Marked int64 `json:"marked"`
	}
	path := fmt.Sprintf("/api/conversations/%d/read", conversationID)
	if _, err := c.do(ctx, http.MethodPatch, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Marked, nil
}

// AddRelationship tracks counterpartID. created is false when it was already tracked.
func (c *Client) AddRelationship(ctx context.Context, counterpartID int64) (*domain.Relationship, bool, error) {
	var rel domain.Relationship
	body := map[string]int64{"counterpart_id": counterpartID}
	status, err := c.do(ctx, http.MethodPost, "/api/relationships", body, &rel)
	if err != nil {
		return nil, false, err
	}
	return &rel, status == http.StatusCreated, nil
}

func (c *Client) Relationships(ctx context.Context) ([]*domain.Relationship, error) {
	var list []*domain.Relationship
	if _, err := c.do(ctx, http.MethodGet, "/api/relationships", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) SetDone(ctx context.Context, relationshipID int64, isDone bool) (*domain.Relationship, error) {
	var rel domain.Relationship
	path := fmt.Sprintf("/api/relationships/%d", relationshipID)
	if _, err := c.do(ctx, http.MethodPatch, path, map[string]bool{"is_done": isDone}, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (c *Client) RemoveRelationship(ctx context.Context, relationshipID int64) error {
	path := fmt.Sprintf("/api/relationships/%d", relationshipID)
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// do sends the request, retrying once on network errors and temporary API
// errors. Other API errors are returned as they are.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
	}

	var status int
	attempt := 0
	op := func() error {
		attempt++
		s, err := c.roundTrip(ctx, method, path, payload, out)
		status = s
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if attempt == 1 {
			c.log.Debug("retrying request", zap.String("method", method), zap.String("path", path), zap.Error(err))
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return status, err
	}
	return status, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
