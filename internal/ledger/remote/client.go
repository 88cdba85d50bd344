// Package remote is the HTTP client SDK for the medledger API. A Client is
// bound to one wallet identity after Login; its methods mirror the ledger
// operations with the caller implied by the held bearer token.
package remote

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
	"time"

	"medledger.org/internal/ledger"
)

// Client talks to a running medledger API.
type Client struct {
	baseURL string
	hc      *http.Client
	token   string
	wallet  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// New creates an unauthenticated client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wallet returns the identity the client is logged in as.
func (c *Client) Wallet() string { return c.wallet }

type loginResponse struct {
	Token string `json:"token"`
}

// Login resolves the wallet in the directory and stores the issued token.
func (c *Client) Login(ctx context.Context, walletAddress string) error {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]any{
		"wallet_address": walletAddress,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	c.wallet = walletAddress
	return nil
}

// RegisterPatient creates a patient profile. No token required.
func (c *Client) RegisterPatient(ctx context.Context, name string, age int, walletAddress string) error {
	return c.do(ctx, http.MethodPost, "/v1/directory/patients", map[string]any{
		"name":    name,
		"age":     age,
		"address": walletAddress,
	}, nil)
}

// RegisterDoctor creates a doctor profile. No token required.
func (c *Client) RegisterDoctor(ctx context.Context, name, specialization string, experience int, hospital, walletAddress string) error {
	return c.do(ctx, http.MethodPost, "/v1/directory/doctors", map[string]any{
		"name":           name,
		"specialization": specialization,
		"experience":     experience,
		"hospital":       hospital,
		"address":        walletAddress,
	}, nil)
}

// RegisterRecord publishes the caller's record pointer.
func (c *Client) RegisterRecord(ctx context.Context, pointer string) (ledger.Record, error) {
	var rec ledger.Record
	err := c.do(ctx, http.MethodPost, "/v1/records", map[string]any{"pointer": pointer}, &rec)
	return rec, err
}

// GetOwnRecord fetches the caller's own record.
func (c *Client) GetOwnRecord(ctx context.Context) (ledger.Record, error) {
	var rec ledger.Record
	err := c.do(ctx, http.MethodGet, "/v1/records/me", nil, &rec)
	return rec, err
}

// GetRecord fetches another owner's record, subject to authorization.
func (c *Client) GetRecord(ctx context.Context, owner string) (ledger.Record, error) {
	var rec ledger.Record
	err := c.do(ctx, http.MethodGet, "/v1/records/"+url.PathEscape(owner), nil, &rec)
	return rec, err
}

// GrantAccess grants the grantee access to the caller's record until expiresAt.
func (c *Client) GrantAccess(ctx context.Context, grantee string, expiresAt time.Time) (ledger.Grant, error) {
	var g ledger.Grant
	err := c.do(ctx, http.MethodPost, "/v1/access/grants", map[string]any{
		"grantee":    grantee,
		"expires_at": expiresAt,
	}, &g)
	return g, err
}

// RevokeAccess revokes the grantee's access to the caller's record.
func (c *Client) RevokeAccess(ctx context.Context, grantee string) error {
	return c.do(ctx, http.MethodPost, "/v1/access/revocations", map[string]any{
		"grantee": grantee,
	}, nil)
}

type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
}

// ListGrantsIssued lists the caller's issued grants, current and historical.
func (c *Client) ListGrantsIssued(ctx context.Context) ([]ledger.GrantView, error) {
	var env itemsEnvelope[ledger.GrantView]
	if err := c.do(ctx, http.MethodGet, "/v1/access/grants", nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// ListGrantsHeld lists records currently accessible to the caller.
func (c *Client) ListGrantsHeld(ctx context.Context) ([]ledger.Holding, error) {
	var env itemsEnvelope[ledger.Holding]
	if err := c.do(ctx, http.MethodGet, "/v1/access/holdings", nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

type eventsPage struct {
	Items     []ledger.Event `json:"items"`
	NextAfter uint64         `json:"next_after"`
}

// ListEvents pages through the ledger event log.
func (c *Client) ListEvents(ctx context.Context, limit int, afterSeq uint64) ([]ledger.Event, uint64, error) {
	path := "/v1/ledger/events?limit=" + strconv.Itoa(limit) + "&after=" + strconv.FormatUint(afterSeq, 10)
	var page eventsPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, 0, err
	}
	return page.Items, page.NextAfter, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ledger.ErrUnauthorized
	case http.StatusNotFound:
		return ledger.ErrNotFound
	case http.StatusBadRequest:
		return ledger.ErrInvalidInput
	}
	if payload.Error != "" {
		return errors.New(payload.Error)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
