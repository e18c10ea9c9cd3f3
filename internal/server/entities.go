package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/adam-alska/specflow/internal/config"
	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/store"
)

// Nested entity endpoints. Every route is scoped under the owning ticket;
// a miss on either id is a 404.

func registerScenarios(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-scenario",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/scenarios",
		Summary:       "Add user scenario",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body ScenarioRequest `json:"body"`
	}) (*struct {
		Body domain.UserScenario `json:"body"`
	}, error) {
		sc, ok := st.AddUserScenario(ctx, input.TicketID, domain.UserScenario{
			Priority: input.Body.Priority,
			Title:    input.Body.Title,
			Given:    input.Body.Given,
			When:     input.Body.When,
			Then:     input.Body.Then,
		})
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.UserScenario `json:"body"`
		}{Body: sc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-scenario",
		Method:      http.MethodPatch,
		Path:        "/tickets/{ticket_id}/scenarios/{scenario_id}",
		Summary:     "Update user scenario",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		ScenarioID string                `path:"scenario_id"`
		Body       ScenarioUpdateRequest `json:"body"`
	}) (*okBody, error) {
		ok := st.UpdateUserScenario(ctx, input.TicketID, input.ScenarioID, store.ScenarioUpdate{
			Priority: input.Body.Priority,
			Title:    input.Body.Title,
			Given:    input.Body.Given,
			When:     input.Body.When,
			Then:     input.Body.Then,
		})
		if !ok {
			return nil, errEntityNotFound("scenario", input.ScenarioID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-scenario",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/scenarios/{scenario_id}",
		Summary:     "Delete user scenario",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		ScenarioID string `path:"scenario_id"`
	}) (*okBody, error) {
		if !st.DeleteUserScenario(ctx, input.TicketID, input.ScenarioID) {
			return nil, errEntityNotFound("scenario", input.ScenarioID)
		}
		return okResponse(), nil
	})
}

func registerRequirements(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-requirement",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/requirements",
		Summary:       "Add requirement",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body RequirementRequest `json:"body"`
	}) (*struct {
		Body domain.Requirement `json:"body"`
	}, error) {
		req, ok := st.AddRequirement(ctx, input.TicketID, domain.Requirement{
			Type:        input.Body.Type,
			Description: input.Body.Description,
		})
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.Requirement `json:"body"`
		}{Body: req}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-requirement",
		Method:      http.MethodPatch,
		Path:        "/tickets/{ticket_id}/requirements/{requirement_id}",
		Summary:     "Update requirement",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		RequirementID string                   `path:"requirement_id"`
		Body          RequirementUpdateRequest `json:"body"`
	}) (*okBody, error) {
		ok := st.UpdateRequirement(ctx, input.TicketID, input.RequirementID, store.RequirementUpdate{
			Description:         input.Body.Description,
			ClarificationNeeded: input.Body.ClarificationNeeded,
			Verified:            input.Body.Verified,
		})
		if !ok {
			return nil, errEntityNotFound("requirement", input.RequirementID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-requirement",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/requirements/{requirement_id}",
		Summary:     "Delete requirement",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		RequirementID string `path:"requirement_id"`
	}) (*okBody, error) {
		if !st.DeleteRequirement(ctx, input.TicketID, input.RequirementID) {
			return nil, errEntityNotFound("requirement", input.RequirementID)
		}
		return okResponse(), nil
	})
}

func registerClarifications(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-clarification",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/clarifications",
		Summary:       "Open a clarification question",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body ClarificationRequest `json:"body"`
	}) (*struct {
		Body domain.Clarification `json:"body"`
	}, error) {
		c, ok := st.AddClarification(ctx, input.TicketID, input.Body.Question, input.Body.Context)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.Clarification `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-clarification",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/clarifications/{clarification_id}/resolve",
		Summary:     "Answer a clarification question",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		ClarificationID string                      `path:"clarification_id"`
		Body            ResolveClarificationRequest `json:"body"`
	}) (*okBody, error) {
		if !st.ResolveClarification(ctx, input.TicketID, input.ClarificationID, input.Body.Answer) {
			return nil, errEntityNotFound("clarification", input.ClarificationID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-clarification",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/clarifications/{clarification_id}",
		Summary:     "Delete clarification",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		ClarificationID string `path:"clarification_id"`
	}) (*okBody, error) {
		if !st.DeleteClarification(ctx, input.TicketID, input.ClarificationID) {
			return nil, errEntityNotFound("clarification", input.ClarificationID)
		}
		return okResponse(), nil
	})
}

func registerCriteria(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-criterion",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/criteria",
		Summary:       "Add success criterion",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body CriterionRequest `json:"body"`
	}) (*struct {
		Body domain.SuccessCriterion `json:"body"`
	}, error) {
		c, ok := st.AddSuccessCriterion(ctx, input.TicketID, input.Body.Description, input.Body.Metric)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.SuccessCriterion `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-criterion",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/criteria/{criterion_id}/toggle",
		Summary:     "Toggle success criterion",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		CriterionID string `path:"criterion_id"`
	}) (*okBody, error) {
		if !st.ToggleSuccessCriterion(ctx, input.TicketID, input.CriterionID) {
			return nil, errEntityNotFound("criterion", input.CriterionID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-criterion",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/criteria/{criterion_id}",
		Summary:     "Delete success criterion",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		CriterionID string `path:"criterion_id"`
	}) (*okBody, error) {
		if !st.DeleteSuccessCriterion(ctx, input.TicketID, input.CriterionID) {
			return nil, errEntityNotFound("criterion", input.CriterionID)
		}
		return okResponse(), nil
	})
}

func registerSubtasks(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-subtask",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/subtasks",
		Summary:       "Add subtask",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body SubtaskRequest `json:"body"`
	}) (*struct {
		Body domain.Subtask `json:"body"`
	}, error) {
		sub, ok := st.AddSubtask(ctx, input.TicketID, input.Body.Title)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.Subtask `json:"body"`
		}{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-subtask",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/subtasks/{subtask_id}/toggle",
		Summary:     "Toggle subtask",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		SubtaskID string `path:"subtask_id"`
	}) (*okBody, error) {
		if !st.ToggleSubtask(ctx, input.TicketID, input.SubtaskID) {
			return nil, errEntityNotFound("subtask", input.SubtaskID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-subtask",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/subtasks/{subtask_id}",
		Summary:     "Delete subtask",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		SubtaskID string `path:"subtask_id"`
	}) (*okBody, error) {
		if !st.DeleteSubtask(ctx, input.TicketID, input.SubtaskID) {
			return nil, errEntityNotFound("subtask", input.SubtaskID)
		}
		return okResponse(), nil
	})
}

func registerTasks(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-task",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/tasks",
		Summary:       "Add one task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body domain.TaskDraft `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		task, ok := st.AddTask(ctx, input.TicketID, input.Body)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-tasks",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/tasks/generate",
		Summary:     "Replace the task list with a generated batch",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body GenerateTasksRequest `json:"body"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		tasks, ok := st.GenerateTasks(ctx, input.TicketID, input.Body.Tasks)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tickets/{ticket_id}/tasks/{task_id}",
		Summary:     "Update task fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		TaskID string            `path:"task_id"`
		Body   TaskUpdateRequest `json:"body"`
	}) (*okBody, error) {
		ok := st.UpdateTask(ctx, input.TicketID, input.TaskID, store.TaskUpdate{
			UserScenarioID:     input.Body.UserScenarioID,
			Parallel:           input.Body.Parallel,
			Phase:              input.Body.Phase,
			Name:               input.Body.Name,
			Files:              input.Body.Files,
			Action:             input.Body.Action,
			Verification:       input.Body.Verification,
			Done:               input.Body.Done,
			CheckpointResolved: input.Body.CheckpointResolved,
		})
		if !ok {
			return nil, errEntityNotFound("task", input.TaskID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/tasks/{task_id}/status",
		Summary:     "Move a task through its execution lifecycle",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		TaskID string            `path:"task_id"`
		Body   TaskStatusRequest `json:"body"`
	}) (*okBody, error) {
		if !st.UpdateTaskStatus(ctx, input.TicketID, input.TaskID, input.Body.Status, input.Body.CommitHash) {
			return nil, errEntityNotFound("task", input.TaskID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-checkpoint",
		Method:      http.MethodPost,
		Path:        "/tickets/{ticket_id}/tasks/{task_id}/resolve",
		Summary:     "Resolve a checkpoint task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		TaskID string `path:"task_id"`
	}) (*okBody, error) {
		if !st.ResolveCheckpoint(ctx, input.TicketID, input.TaskID) {
			return nil, errEntityNotFound("task", input.TaskID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		TaskID string `path:"task_id"`
	}) (*okBody, error) {
		if !st.DeleteTask(ctx, input.TicketID, input.TaskID) {
			return nil, errEntityNotFound("task", input.TaskID)
		}
		return okResponse(), nil
	})
}

func registerCollaboration(api huma.API, st *store.Store, cfg *config.Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "attach-label",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/labels",
		Summary:       "Attach a label; name and color default from the catalog",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body AttachLabelRequest `json:"body"`
	}) (*okBody, error) {
		label := domain.Label{ID: input.Body.ID, Name: input.Body.Name, Color: input.Body.Color}
		if cfg != nil {
			if cat, ok := cfg.LabelByID(label.ID); ok {
				if label.Name == "" {
					label.Name = cat.Name
				}
				if label.Color == "" {
					label.Color = cat.Color
				}
			}
		}
		if label.Name == "" {
			label.Name = label.ID
		}
		if _, ok := st.Get(input.TicketID); !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		// A duplicate attach is a no-op, not an error.
		st.AddLabel(ctx, input.TicketID, label)
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "detach-label",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/labels/{label_id}",
		Summary:     "Detach a label",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		LabelID string `path:"label_id"`
	}) (*okBody, error) {
		if !st.RemoveLabel(ctx, input.TicketID, input.LabelID) {
			return nil, errTicketNotFound(input.TicketID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-assignee",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/assignees",
		Summary:       "Assign a team member; details default from the team config",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body AddAssigneeRequest `json:"body"`
	}) (*okBody, error) {
		a := domain.Assignee{ID: input.Body.ID, Name: input.Body.Name, Avatar: input.Body.Avatar, Color: input.Body.Color}
		if cfg != nil {
			if m, ok := cfg.MemberByID(a.ID); ok {
				if a.Name == "" {
					a.Name = m.Name
				}
				if a.Avatar == "" {
					a.Avatar = m.Avatar
				}
				if a.Color == "" {
					a.Color = m.Color
				}
			}
		}
		if a.Name == "" {
			a.Name = a.ID
		}
		if _, ok := st.Get(input.TicketID); !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		// Re-assigning an already-assigned member is a no-op, not an error.
		st.AddAssignee(ctx, input.TicketID, a)
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-assignee",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}/assignees/{assignee_id}",
		Summary:     "Unassign a team member",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		AssigneeID string `path:"assignee_id"`
	}) (*okBody, error) {
		if !st.RemoveAssignee(ctx, input.TicketID, input.AssigneeID) {
			return nil, errTicketNotFound(input.TicketID)
		}
		return okResponse(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-comment",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/comments",
		Summary:       "Add comment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body AddCommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		c, ok := st.AddComment(ctx, input.TicketID, input.Body.Author, input.Body.Content)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-chat-message",
		Method:        http.MethodPost,
		Path:          "/tickets/{ticket_id}/chat",
		Summary:       "Append a chat transcript message",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketPath
		Body ChatMessageRequest `json:"body"`
	}) (*struct {
		Body domain.ChatMessage `json:"body"`
	}, error) {
		m, ok := st.AddChatMessage(ctx, input.TicketID, input.Body.Role, input.Body.Content)
		if !ok {
			return nil, errTicketNotFound(input.TicketID)
		}
		return &struct {
			Body domain.ChatMessage `json:"body"`
		}{Body: m}, nil
	})
}
