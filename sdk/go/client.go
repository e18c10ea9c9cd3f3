package specflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal SpecFlow HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Ticket represents the API ticket model (partial).
type Ticket struct {
	ID          string `json:"id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	QualityGate string `json:"quality_gate"`
}

// Task represents one execution unit of a ticket's plan.
type Task struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phase  string `json:"phase"`
	Status string `json:"status"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	TicketID   string         `json:"ticket_id"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// Progress summarizes task completion.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTicket creates a ticket.
func (c *Client) CreateTicket(ctx context.Context, title string) (Ticket, error) {
	body := map[string]any{"title": title}
	var resp Ticket
	err := c.do(ctx, http.MethodPost, "v0/tickets", body, &resp)
	return resp, err
}

// GetTicket fetches a ticket by id.
func (c *Client) GetTicket(ctx context.Context, id string) (Ticket, error) {
	var resp Ticket
	err := c.do(ctx, http.MethodGet, "v0/tickets/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListTickets returns tickets, optionally constrained by a search term.
func (c *Client) ListTickets(ctx context.Context, search string) ([]Ticket, error) {
	endpoint := "v0/tickets"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}
	var resp []Ticket
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MoveTicket moves a ticket to another kanban column.
func (c *Client) MoveTicket(ctx context.Context, id, status string) (Ticket, error) {
	body := map[string]any{"status": status}
	var resp Ticket
	err := c.do(ctx, http.MethodPost, "v0/tickets/"+url.PathEscape(id)+"/move", body, &resp)
	return resp, err
}

// DeleteTicket deletes a ticket.
func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v0/tickets/"+url.PathEscape(id), nil, nil)
}

// SetTaskStatus moves a task through its lifecycle, optionally recording a
// commit hash.
func (c *Client) SetTaskStatus(ctx context.Context, ticketID, taskID, status, commitHash string) error {
	body := map[string]any{"status": status}
	if commitHash != "" {
		body["commit_hash"] = commitHash
	}
	endpoint := fmt.Sprintf("v0/tickets/%s/tasks/%s/status", url.PathEscape(ticketID), url.PathEscape(taskID))
	return c.do(ctx, http.MethodPost, endpoint, body, nil)
}

// TicketProgress returns the task completion summary. A ticket without
// tasks yields a nil progress.
func (c *Client) TicketProgress(ctx context.Context, ticketID string) (*Progress, error) {
	var resp struct {
		Progress *Progress `json:"progress"`
	}
	endpoint := fmt.Sprintf("v0/tickets/%s/progress", url.PathEscape(ticketID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Progress, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, ticketID string, limit int) ([]Event, error) {
	endpoint := "v0/events"
	params := url.Values{}
	if ticketID != "" {
		params.Set("ticket_id", ticketID)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
