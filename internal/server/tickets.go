package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/ingest"
	"github.com/adam-alska/specflow/internal/store"
)

type TicketPath struct {
	TicketID string `path:"ticket_id"`
}

type ticketBody struct {
	Body domain.Ticket `json:"body"`
}

type ticketListBody struct {
	Body []domain.Ticket `json:"body"`
}

type okBody struct {
	Body map[string]bool `json:"body"`
}

func okResponse() *okBody {
	return &okBody{Body: map[string]bool{"ok": true}}
}

func registerTickets(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-ticket",
		Method:        http.MethodPost,
		Path:          "/tickets",
		Summary:       "Create ticket",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateTicketRequest `json:"body"`
	}) (*ticketBody, error) {
		t := st.Create(ctx, store.CreateOptions{
			Title:            input.Body.Title,
			Description:      input.Body.Description,
			Status:           input.Body.Status,
			Priority:         input.Body.Priority,
			Spec:             input.Body.Spec,
			Research:         input.Body.Research,
			DataModel:        input.Body.DataModel,
			APIContract:      input.Body.APIContract,
			DueDate:          input.Body.DueDate,
			Estimate:         input.Body.Estimate,
			ResearchRequired: input.Body.ResearchRequired,
			SpecCompletion:   input.Body.SpecCompletion,
		})
		return &ticketBody{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tickets",
		Method:      http.MethodGet,
		Path:        "/tickets",
		Summary:     "List tickets, optionally filtered",
	}, func(ctx context.Context, input *struct {
		Status   []string `query:"status"`
		Priority []string `query:"priority"`
		Search   string   `query:"search"`
		Assignee string   `query:"assignee"`
		Labels   []string `query:"label"`
	}) (*ticketListBody, error) {
		f := domain.TicketFilter{
			Search:   input.Search,
			Assignee: input.Assignee,
			Labels:   input.Labels,
		}
		for _, s := range input.Status {
			f.Status = append(f.Status, domain.TicketStatus(s))
		}
		for _, p := range input.Priority {
			f.Priority = append(f.Priority, domain.Priority(p))
		}
		return &ticketListBody{Body: st.Query(f)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ticket",
		Method:      http.MethodGet,
		Path:        "/tickets/{ticket_id}",
		Summary:     "Get ticket",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *TicketPath) (*ticketBody, error) {
		t, ok := st.Get(input.TicketID)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &ticketBody{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-ticket",
		Method:      http.MethodPatch,
		Path:        "/tickets/{ticket_id}",
		Summary:     "Update ticket fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body UpdateTicketRequest `json:"body"`
	}) (*ticketBody, error) {
		t, ok := st.Update(ctx, input.TicketID, store.TicketUpdate{
			Title:            input.Body.Title,
			Description:      input.Body.Description,
			Status:           input.Body.Status,
			Priority:         input.Body.Priority,
			Spec:             input.Body.Spec,
			Research:         input.Body.Research,
			DataModel:        input.Body.DataModel,
			APIContract:      input.Body.APIContract,
			DueDate:          input.Body.DueDate,
			ClearDueDate:     input.Body.ClearDueDate,
			Estimate:         input.Body.Estimate,
			ClearEstimate:    input.Body.ClearEstimate,
			ResearchRequired: input.Body.ResearchRequired,
			AIQuestion:       input.Body.AIQuestion,
			SpecCompletion:   input.Body.SpecCompletion,
		})
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &ticketBody{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-ticket",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/move",
		Summary:     "Move ticket to another column",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body MoveTicketRequest `json:"body"`
	}) (*ticketBody, error) {
		t, ok := st.UpdateStatus(ctx, input.TicketID, input.Body.Status)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &ticketBody{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-ticket",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}",
		Summary:     "Delete ticket",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *TicketPath) (*okBody, error) {
		if !st.Delete(ctx, input.TicketID) {
			return nil, errTicketNotFound(input.TicketID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ticket-progress",
		Method:      http.MethodGet,
		Path:        "/tickets/{ticket_id}/progress",
		Summary:     "Task completion summary",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *TicketPath) (*struct {
		Body ProgressResponse `json:"body"`
	}, error) {
		p, ok := st.TaskProgress(input.TicketID)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body ProgressResponse `json:"body"`
		}{Body: ProgressResponse{Progress: p}}, nil
	})
}

func registerBoard(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Kanban board: filtered tickets grouped by status, priority-sorted",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body BoardResponse `json:"body"`
	}, error) {
		grouped := st.ByStatus()
		cols := make([]BoardColumn, 0, len(domain.StatusColumns))
		for _, status := range domain.StatusColumns {
			cols = append(cols, BoardColumn{Status: status, Tickets: grouped[status]})
		}
		return &struct {
			Body BoardResponse `json:"body"`
		}{Body: BoardResponse{Columns: cols}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-overdue",
		Method:      http.MethodGet,
		Path:        "/tickets/overdue",
		Summary:     "Unfinished tickets past their due date",
	}, func(ctx context.Context, _ *struct{}) (*ticketListBody, error) {
		return &ticketListBody{Body: st.Overdue()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-due-soon",
		Method:      http.MethodGet,
		Path:        "/tickets/due-soon",
		Summary:     "Unfinished tickets due within 72 hours",
	}, func(ctx context.Context, _ *struct{}) (*ticketListBody, error) {
		return &ticketListBody{Body: st.DueSoon()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-filter",
		Method:      http.MethodGet,
		Path:        "/filter",
		Summary:     "Current filter config",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.TicketFilter `json:"body"`
	}, error) {
		return &struct {
			Body domain.TicketFilter `json:"body"`
		}{Body: st.Filter()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-filter",
		Method:      http.MethodPut,
		Path:        "/filter",
		Summary:     "Replace the filter config",
	}, func(ctx context.Context, input *struct {
		Body domain.TicketFilter `json:"body"`
	}) (*okBody, error) {
		st.SetFilter(input.Body)
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-filter",
		Method:      http.MethodDelete,
		Path:        "/filter",
		Summary:     "Reset the filter config",
	}, func(ctx context.Context, _ *struct{}) (*okBody, error) {
		st.ClearFilter()
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-active-ticket",
		Method:      http.MethodGet,
		Path:        "/active",
		Summary:     "Currently selected ticket",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ActiveResponse `json:"body"`
	}, error) {
		resp := ActiveResponse{ID: st.ActiveID()}
		if t, ok := st.Active(); ok {
			resp.Ticket = &t
		}
		return &struct {
			Body ActiveResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-active-ticket",
		Method:      http.MethodPut,
		Path:        "/active",
		Summary:     "Select a ticket; empty id clears the selection",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID string `json:"id"`
		} `json:"body"`
	}) (*okBody, error) {
		if input.Body.ID != "" {
			if _, ok := st.Get(input.Body.ID); !ok {
				return nil, errTicketNotFound(input.Body.ID)
			}
		}
		st.SetActive(input.Body.ID)
		return okResponse(), nil
	})
}

func registerIngest(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "ingest-spec",
		Method:        http.MethodPost,
		Path:          "/tickets/ingest",
		Summary:       "Create a ticket from an assistant-drafted spec payload",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ingest.SpecPayload `json:"body"`
	}) (*ticketBody, error) {
		return &ticketBody{Body: ingest.Create(ctx, st, input.Body)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-spec",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/ingest",
		Summary:     "Fold a spec payload into an existing ticket",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body ingest.SpecPayload `json:"body"`
	}) (*ticketBody, error) {
		t, ok := ingest.Apply(ctx, st, input.TicketID, input.Body)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &ticketBody{Body: t}, nil
	})
}
