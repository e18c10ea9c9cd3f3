package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/adam-alska/specflow/internal/config"
	"github.com/adam-alska/specflow/internal/db"
	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/events"
	"github.com/adam-alska/specflow/internal/migrate"
	"github.com/adam-alska/specflow/internal/repo"
	"github.com/adam-alska/specflow/internal/store"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("specflow")
	ev := &events.Writer{DB: conn}
	st := store.New(repo.Repo{DB: conn}, ev)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	handler, err := New(Config{Store: st, Events: ev, Cfg: cfg, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tickets", map[string]any{
		"title":    "Checkout revamp",
		"priority": "high",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		t.Fatalf("unmarshal ticket: %v", err)
	}
	if ticket.Number != 1 || ticket.QualityGate != domain.GateSpecIncomplete {
		t.Fatalf("created ticket = number %d gate %s", ticket.Number, ticket.QualityGate)
	}
	base := srv.URL + "/v0/tickets/" + ticket.ID

	res, data = doJSON(t, client, http.MethodPost, base+"/scenarios", map[string]any{
		"title": "As a shopper, I want one-click checkout, so that I buy faster",
		"given": "a saved card",
		"when":  "I press buy",
		"then":  "the order is placed",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add scenario status %d: %s", res.StatusCode, string(data))
	}
	var scenario domain.UserScenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		t.Fatalf("unmarshal scenario: %v", err)
	}
	if scenario.ID != "US1" || scenario.Priority != domain.ScenarioP2 {
		t.Fatalf("scenario = %+v", scenario)
	}

	res, data = doJSON(t, client, http.MethodGet, base, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", res.StatusCode)
	}
	json.Unmarshal(data, &ticket)
	if ticket.QualityGate != domain.GateSpecComplete {
		t.Fatalf("gate after scenario = %s", ticket.QualityGate)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/clarifications", map[string]any{
		"question": "Which payment providers?",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add clarification status %d: %s", res.StatusCode, string(data))
	}
	var clr domain.Clarification
	json.Unmarshal(data, &clr)

	res, data = doJSON(t, client, http.MethodPost, base+"/move", map[string]any{"status": "in_review"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("move status %d: %s", res.StatusCode, string(data))
	}
	json.Unmarshal(data, &ticket)
	if ticket.QualityGate != domain.GateClarificationsNeeded {
		t.Fatalf("gate in review = %s", ticket.QualityGate)
	}

	res, _ = doJSON(t, client, http.MethodPost, base+"/clarifications/"+clr.ID+"/resolve", map[string]any{
		"answer": "Stripe only",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolve status %d", res.StatusCode)
	}
	_, data = doJSON(t, client, http.MethodGet, base, nil)
	json.Unmarshal(data, &ticket)
	if ticket.QualityGate != domain.GateReadyForApproval {
		t.Fatalf("gate after resolve = %s", ticket.QualityGate)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/move", map[string]any{"status": "approved"})
	json.Unmarshal(data, &ticket)
	if res.StatusCode != http.StatusOK || ticket.QualityGate != domain.GateApproved {
		t.Fatalf("approved gate = %s (%d)", ticket.QualityGate, res.StatusCode)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/tasks/generate", map[string]any{
		"tasks": []map[string]any{
			{"name": "wire payment intent", "phase": "setup"},
			{"name": "one-click flow"},
			{"name": "manual verify", "is_checkpoint": true, "checkpoint_type": "verify"},
		},
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("generate status %d: %s", res.StatusCode, string(data))
	}
	_, data = doJSON(t, client, http.MethodGet, base, nil)
	json.Unmarshal(data, &ticket)
	if ticket.QualityGate != domain.GateTasksReady || len(ticket.Tasks) != 3 {
		t.Fatalf("gate with tasks = %s, %d tasks", ticket.QualityGate, len(ticket.Tasks))
	}
	if ticket.Tasks[0].ID != "T001" || ticket.Tasks[2].ID != "T003" {
		t.Fatalf("task ids = %s..%s", ticket.Tasks[0].ID, ticket.Tasks[2].ID)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/move", map[string]any{"status": "in_development"})
	json.Unmarshal(data, &ticket)
	if ticket.QualityGate != domain.GateVerificationPending {
		t.Fatalf("gate in development = %s", ticket.QualityGate)
	}

	res, _ = doJSON(t, client, http.MethodPost, base+"/tasks/T001/status", map[string]any{
		"status":      "complete",
		"commit_hash": "abc1234",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("task status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/progress", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("progress status %d", res.StatusCode)
	}
	var prog ProgressResponse
	json.Unmarshal(data, &prog)
	if prog.Progress == nil || prog.Progress.Completed != 1 || prog.Progress.Total != 3 || prog.Progress.Percent != 33 {
		t.Fatalf("progress = %+v", prog.Progress)
	}

	res, _ = doJSON(t, client, http.MethodPost, base+"/tasks/T003/resolve", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("resolve checkpoint status %d", res.StatusCode)
	}
	_, data = doJSON(t, client, http.MethodGet, base, nil)
	json.Unmarshal(data, &ticket)
	if ticket.QualityGate != domain.GateInProgress {
		t.Fatalf("gate after checkpoint = %s", ticket.QualityGate)
	}
	if ticket.Tasks[0].CommitHash != "abc1234" {
		t.Fatalf("commit hash = %q", ticket.Tasks[0].CommitHash)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/move", map[string]any{"status": "completed"})
	json.Unmarshal(data, &ticket)
	if ticket.QualityGate != domain.GateComplete {
		t.Fatalf("final gate = %s", ticket.QualityGate)
	}
}

func TestUnknownIDsReturn404Envelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/tickets/no-such-id", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" || envelope.Error.Details["id"] != "no-such-id" {
		t.Fatalf("envelope = %+v", envelope.Error)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tickets", map[string]any{"title": "real"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	var ticket domain.Ticket
	json.Unmarshal(data, &ticket)

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/tickets/"+ticket.ID+"/scenarios/US9", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("nested 404 status %d: %s", res.StatusCode, string(data))
	}
	json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "not_found" {
		t.Fatalf("nested envelope = %+v", envelope.Error)
	}
	// The failed nested mutation must not have touched the ticket.
	_, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tickets/"+ticket.ID, nil)
	var after domain.Ticket
	json.Unmarshal(data, &after)
	if !after.UpdatedAt.Equal(ticket.UpdatedAt) {
		t.Fatal("404 mutation bumped updated_at")
	}
}

func TestBoardAndFilterEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	for _, spec := range []map[string]any{
		{"title": "alpha", "priority": "low"},
		{"title": "beta", "priority": "urgent"},
		{"title": "gamma", "status": "in_review"},
	} {
		if res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tickets", spec); res.StatusCode != http.StatusCreated {
			t.Fatalf("create status %d: %s", res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/board", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("board status %d", res.StatusCode)
	}
	var board BoardResponse
	if err := json.Unmarshal(data, &board); err != nil {
		t.Fatalf("unmarshal board: %v", err)
	}
	if len(board.Columns) != len(domain.StatusColumns) {
		t.Fatalf("board has %d columns", len(board.Columns))
	}
	draft := board.Columns[0]
	if draft.Status != domain.StatusDraft || len(draft.Tickets) != 2 {
		t.Fatalf("draft column = %s with %d", draft.Status, len(draft.Tickets))
	}
	if draft.Tickets[0].Title != "beta" {
		t.Fatalf("urgent ticket not first: %s", draft.Tickets[0].Title)
	}

	res, _ = doJSON(t, client, http.MethodPut, srv.URL+"/v0/filter", map[string]any{"search": "alpha"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set filter status %d", res.StatusCode)
	}
	_, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/board", nil)
	json.Unmarshal(data, &board)
	if n := len(board.Columns[0].Tickets); n != 1 {
		t.Fatalf("filtered draft column has %d", n)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/filter", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("clear filter status %d", res.StatusCode)
	}
	_, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/filter", nil)
	var filter domain.TicketFilter
	json.Unmarshal(data, &filter)
	if !filter.IsZero() {
		t.Fatalf("filter not cleared: %+v", filter)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/tickets?search=beta", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", res.StatusCode)
	}
	var list []domain.Ticket
	json.Unmarshal(data, &list)
	if len(list) != 1 || list[0].Title != "beta" {
		t.Fatalf("search list = %d", len(list))
	}
}

func TestActiveSelectionEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tickets", map[string]any{"title": "pick me"})
	var ticket domain.Ticket
	json.Unmarshal(data, &ticket)

	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/v0/active", map[string]any{"id": "bogus"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("bogus active status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodPut, srv.URL+"/v0/active", map[string]any{"id": ticket.ID})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set active status %d", res.StatusCode)
	}
	_, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/active", nil)
	var active ActiveResponse
	json.Unmarshal(data, &active)
	if active.ID != ticket.ID || active.Ticket == nil || active.Ticket.Title != "pick me" {
		t.Fatalf("active = %+v", active)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/tickets/"+ticket.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	_, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/active", nil)
	json.Unmarshal(data, &active)
	if active.ID != "" || active.Ticket != nil {
		t.Fatalf("active after delete = %+v", active)
	}
}

func TestIngestCreatesPopulatedTicket(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/tickets/ingest", map[string]any{
		"title":    "Rate limiting",
		"summary":  "Throttle abusive clients",
		"priority": "high",
		"user_scenarios": []map[string]any{
			{"as_a": "platform operator", "i_want": "per-key limits", "so_that": "one tenant cannot starve the rest"},
		},
		"requirements": []map[string]any{
			{"type": "functional", "description": "Return 429 above the limit"},
			{"type": "non_functional", "description": "Decision adds under 1ms"},
		},
		"success_criteria": []map[string]any{
			{"metric": "p99 latency steady under load", "target": "under 200ms"},
		},
		"tasks": []map[string]any{
			{"name": "token bucket"},
			{"name": "middleware wiring"},
		},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("ingest status %d: %s", res.StatusCode, string(data))
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		t.Fatalf("unmarshal ticket: %v", err)
	}
	if !ticket.AIGenerated {
		t.Fatal("ingested ticket not flagged ai_generated")
	}
	if len(ticket.UserScenarios) != 1 || ticket.UserScenarios[0].ID != "US1" {
		t.Fatalf("scenarios = %+v", ticket.UserScenarios)
	}
	if ticket.UserScenarios[0].Title != "As a platform operator, I want per-key limits, so that one tenant cannot starve the rest" {
		t.Fatalf("scenario title = %q", ticket.UserScenarios[0].Title)
	}
	if len(ticket.Requirements) != 2 || ticket.Requirements[0].ID != "FR-001" || ticket.Requirements[1].ID != "NFR-001" {
		t.Fatalf("requirements = %+v", ticket.Requirements)
	}
	if len(ticket.Tasks) != 2 || ticket.Tasks[0].ID != "T001" {
		t.Fatalf("tasks = %+v", ticket.Tasks)
	}
	if ticket.Priority != domain.PriorityHigh || ticket.Description != "Throttle abusive clients" {
		t.Fatalf("priority %s description %q", ticket.Priority, ticket.Description)
	}
	if ticket.SpecCompletion == 0 {
		t.Fatal("spec completion not estimated")
	}
}

func TestWorkspaceEndpointServesConfig(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/workspace", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("workspace status %d", res.StatusCode)
	}
	var ws WorkspaceResponse
	if err := json.Unmarshal(data, &ws); err != nil {
		t.Fatalf("unmarshal workspace: %v", err)
	}
	if ws.Project != "specflow" {
		t.Fatalf("project = %q", ws.Project)
	}
	if len(ws.Labels) == 0 {
		t.Fatal("default label catalog missing")
	}
}
