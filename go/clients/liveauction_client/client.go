// Package liveauction_client talks to the live auction REST API the way
// browser clients do: fire a mutation, then re-fetch state.
package liveauction_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mcdev12/auctionhouse/go/clients"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// ActionError is a rejected API call with its taxonomy kind
type ActionError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// State is the polled view of a live auction
type State struct {
	Success          bool                       `json:"success"`
	Session          *models.LiveAuctionSession `json:"session"`
	Ledger           *models.TempAuctionLedger  `json:"ledger"`
	Teams            []models.Team              `json:"teams"`
	CurrentPlayer    *models.Player             `json:"currentPlayer"`
	HasActiveAuction bool                       `json:"hasActiveAuction"`
	Version          uint64                     `json:"version"`
	ServerTime       time.Time                  `json:"serverTime"`
}

// StateQuery selects which session to read. Empty means the most recently
// started session.
type StateQuery struct {
	SessionID    string
	AuctioneerID string
	AuctionID    string
}

func (q StateQuery) encode() string {
	v := url.Values{}
	if q.SessionID != "" {
		v.Set("sessionId", q.SessionID)
	}
	if q.AuctioneerID != "" {
		v.Set("auctioneerId", q.AuctioneerID)
	}
	if q.AuctionID != "" {
		v.Set("auctionId", q.AuctionID)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Client calls the live auction endpoints as one auctioneer
type Client struct {
	*clients.BaseClient
	auctioneerID   string
	auctioneerName string
	onRefresh      func(*State)
}

func NewClient(baseURL, auctioneerID, auctioneerName string) *Client {
	return &Client{
		BaseClient:     clients.NewBaseClient(baseURL),
		auctioneerID:   auctioneerID,
		auctioneerName: auctioneerName,
	}
}

// State fetches the current state
func (c *Client) State(ctx context.Context, q StateQuery) (*State, error) {
	data, err := c.Get(ctx, "/live-auction/state"+q.encode())
	if err != nil {
		return nil, asActionError(err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// PlayerHistory fetches the bids placed on a player in the auctioneer's
// session
func (c *Client) PlayerHistory(ctx context.Context, playerID string) ([]models.BidEntry, error) {
	data, err := c.Get(ctx, "/live-auction/history/"+url.PathEscape(playerID)+StateQuery{AuctioneerID: c.auctioneerID}.encode())
	if err != nil {
		return nil, asActionError(err)
	}
	var resp struct {
		History []models.BidEntry `json:"history"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return resp.History, nil
}

// StartSessionRequest mirrors the start endpoint body
type StartSessionRequest struct {
	AuctionID     string           `json:"auctionId,omitempty"`
	Sport         string           `json:"sport,omitempty"`
	Name          string           `json:"name,omitempty"`
	TeamIDs       []string         `json:"teamIds,omitempty"`
	PlayerPool    []string         `json:"playerPool,omitempty"`
	BidSlabs      []models.BidSlab `json:"bidSlabs,omitempty"`
	TimerDuration int              `json:"timerDuration,omitempty"`
}

// StartSession opens a session and returns the state read back after it.
// The new session's ID is State.Session.ID.
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (*State, error) {
	return c.mutate(ctx, "start", map[string]interface{}{
		"auctionId":     req.AuctionID,
		"sport":         req.Sport,
		"name":          req.Name,
		"teamIds":       req.TeamIDs,
		"playerPool":    req.PlayerPool,
		"bidSlabs":      req.BidSlabs,
		"timerDuration": req.TimerDuration,
	})
}

func (c *Client) SelectPlayer(ctx context.Context, playerID, playerName string, basePrice float64) (*State, error) {
	return c.mutate(ctx, "select-player", map[string]interface{}{
		"playerId":   playerID,
		"playerName": playerName,
		"basePrice":  basePrice,
	})
}

func (c *Client) StartBidding(ctx context.Context) (*State, error) {
	return c.mutate(ctx, "start-bidding", nil)
}

func (c *Client) Bid(ctx context.Context, teamID, teamName string) (*State, error) {
	return c.mutate(ctx, "bid", map[string]interface{}{"teamId": teamID, "teamName": teamName})
}

func (c *Client) JumpBid(ctx context.Context, teamID, teamName string, amount float64) (*State, error) {
	return c.mutate(ctx, "jump-bid", map[string]interface{}{
		"teamId":     teamID,
		"teamName":   teamName,
		"jumpAmount": amount,
	})
}

func (c *Client) Pause(ctx context.Context) (*State, error)  { return c.mutate(ctx, "pause", nil) }
func (c *Client) Resume(ctx context.Context) (*State, error) { return c.mutate(ctx, "resume", nil) }
func (c *Client) Sold(ctx context.Context) (*State, error)   { return c.mutate(ctx, "sold", nil) }
func (c *Client) Unsold(ctx context.Context) (*State, error) { return c.mutate(ctx, "unsold", nil) }
func (c *Client) End(ctx context.Context) (*State, error)    { return c.mutate(ctx, "end", nil) }

// OnRefresh registers fn to receive the state read back after every
// successful mutation, e.g. Poller.Apply
func (c *Client) OnRefresh(fn func(*State)) {
	c.onRefresh = fn
}

// mutate posts an action and, once the server accepts it, re-fetches the
// auctioneer's state. The local view is never patched from the action
// reply. A rejected action does not re-fetch.
func (c *Client) mutate(ctx context.Context, name string, fields map[string]interface{}) (*State, error) {
	if err := c.action(ctx, name, fields); err != nil {
		return nil, err
	}
	state, err := c.State(ctx, StateQuery{AuctioneerID: c.auctioneerID})
	if err != nil {
		return nil, fmt.Errorf("%s applied but state refresh failed: %w", name, err)
	}
	if c.onRefresh != nil {
		c.onRefresh(state)
	}
	return state, nil
}

// action posts a mutation with the auctioneer identity
func (c *Client) action(ctx context.Context, name string, fields map[string]interface{}) error {
	body := map[string]interface{}{
		"userRole":       string(models.RoleAuctioneer),
		"auctioneerId":   c.auctioneerID,
		"auctioneerName": c.auctioneerName,
	}
	for k, v := range fields {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", name, err)
	}

	if _, err := c.Post(ctx, "/live-auction/"+name, bytes.NewReader(data)); err != nil {
		return asActionError(err)
	}
	return nil
}

func asActionError(err error) error {
	var apiErr *clients.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if json.Unmarshal(apiErr.Body, &body) != nil || body.Kind == "" {
		return err
	}
	return &ActionError{StatusCode: apiErr.StatusCode, Kind: body.Kind, Message: body.Error}
}
