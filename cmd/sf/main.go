package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adam-alska/specflow/internal/app"
	"github.com/adam-alska/specflow/internal/config"
	"github.com/adam-alska/specflow/internal/db"
	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/ingest"
	"github.com/adam-alska/specflow/internal/server"
	"github.com/adam-alska/specflow/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "sf",
	Short: "SpecFlow CLI",
	Long: `SpecFlow is a spec-driven kanban for tickets that carry their own
specification: user scenarios, numbered requirements, clarifications,
success criteria and an executable task plan. A derived quality gate
summarizes how far each ticket is from done.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SPECFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(ticketCmd())
	rootCmd.AddCommand(scenarioCmd())
	rootCmd.AddCommand(requirementCmd())
	rootCmd.AddCommand(clarifyCmd())
	rootCmd.AddCommand(criterionCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create specflow.yml with the default label catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if name == "" {
				name = "specflow"
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	return cmd
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the kanban board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				grouped := a.Store.ByStatus()
				if viper.GetBool("json") {
					return printJSON(grouped)
				}
				for _, status := range domain.StatusColumns {
					col := grouped[status]
					fmt.Printf("%s (%d)\n", status, len(col))
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Number", "Title", "Priority", "Gate"})
					for _, t := range col {
						tw.AppendRow(table.Row{domain.FormatNumber(t.Number), t.Title, t.Priority, t.QualityGate})
					}
					tw.Render()
				}
				return nil
			})
		},
	}
	return cmd
}

func ticketCmd() *cobra.Command {
	t := &cobra.Command{Use: "ticket", Short: "Manage tickets"}
	t.AddCommand(ticketListCmd())
	t.AddCommand(ticketCreateCmd())
	t.AddCommand(ticketShowCmd())
	t.AddCommand(ticketUpdateCmd())
	t.AddCommand(ticketMoveCmd())
	t.AddCommand(ticketDeleteCmd())
	t.AddCommand(ticketLabelCmd())
	t.AddCommand(ticketAssignCmd())
	t.AddCommand(ticketCommentCmd())
	t.AddCommand(ticketProgressCmd())
	return t
}

func ticketListCmd() *cobra.Command {
	var status, priority, search, assignee string
	var labels []string
	var overdue, dueSoon bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var items []domain.Ticket
				switch {
				case overdue:
					items = a.Store.Overdue()
				case dueSoon:
					items = a.Store.DueSoon()
				default:
					f := domain.TicketFilter{Search: search, Assignee: assignee, Labels: labels}
					if status != "" {
						f.Status = []domain.TicketStatus{domain.TicketStatus(status)}
					}
					if priority != "" {
						f.Priority = []domain.Priority{domain.Priority(priority)}
					}
					items = a.Store.Query(f)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Number", "Title", "Status", "Priority", "Gate", "Due"})
				for _, t := range items {
					due := ""
					if t.DueDate != nil {
						due = t.DueDate.Format("2006-01-02")
					}
					tw.AppendRow(table.Row{domain.FormatNumber(t.Number), t.Title, t.Status, t.Priority, t.QualityGate, due})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&search, "search", "", "search number, title, description and spec")
	cmd.Flags().StringVar(&assignee, "assignee", "", "filter by assignee id")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "require label id (repeatable)")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only unfinished tickets past due")
	cmd.Flags().BoolVar(&dueSoon, "due-soon", false, "only unfinished tickets due within 72h")
	return cmd
}

func ticketCreateCmd() *cobra.Command {
	var title, description, status, priority, due string
	var estimate int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				opts := store.CreateOptions{
					Title:       title,
					Description: description,
					Status:      domain.TicketStatus(status),
					Priority:    domain.Priority(priority),
				}
				if due != "" {
					d, err := time.Parse("2006-01-02", due)
					if err != nil {
						return fmt.Errorf("invalid --due %q, want YYYY-MM-DD", due)
					}
					opts.DueDate = &d
				}
				if cmd.Flags().Changed("estimate") {
					opts.Estimate = &estimate
				}
				t := a.Store.Create(ctx, opts)
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "ticket title")
	cmd.Flags().StringVar(&description, "description", "", "problem statement")
	cmd.Flags().StringVar(&status, "status", "", "initial status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (urgent, high, medium, low, none)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimate in story points")
	return cmd
}

func ticketShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <ticket>",
		Short: "Show a ticket by id or number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func ticketUpdateCmd() *cobra.Command {
	var title, description, priority, spec, due string
	cmd := &cobra.Command{
		Use:   "update <ticket>",
		Short: "Update ticket fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				upd := store.TicketUpdate{}
				if cmd.Flags().Changed("title") {
					upd.Title = &title
				}
				if cmd.Flags().Changed("description") {
					upd.Description = &description
				}
				if cmd.Flags().Changed("priority") {
					p := domain.Priority(priority)
					upd.Priority = &p
				}
				if cmd.Flags().Changed("spec") {
					upd.Spec = &spec
				}
				if cmd.Flags().Changed("due") {
					if due == "" {
						upd.ClearDueDate = true
					} else {
						d, err := time.Parse("2006-01-02", due)
						if err != nil {
							return fmt.Errorf("invalid --due %q, want YYYY-MM-DD", due)
						}
						upd.DueDate = &d
					}
				}
				updated, _ := a.Store.Update(ctx, t.ID, upd)
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "ticket title")
	cmd.Flags().StringVar(&description, "description", "", "problem statement")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&spec, "spec", "", "free-form spec text")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD), empty clears")
	return cmd
}

func ticketMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <ticket> <status>",
		Short: "Move ticket to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				updated, _ := a.Store.UpdateStatus(ctx, t.ID, domain.TicketStatus(args[1]))
				fmt.Printf("%s -> %s (gate %s)\n", domain.FormatNumber(updated.Number), updated.Status, updated.QualityGate)
				return nil
			})
		},
	}
	return cmd
}

func ticketDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <ticket>",
		Short: "Delete a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				a.Store.Delete(ctx, t.ID)
				fmt.Printf("Deleted %s\n", domain.FormatNumber(t.Number))
				return nil
			})
		},
	}
	return cmd
}

func ticketLabelCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "label <ticket> <label-id>",
		Short: "Attach or detach a catalog label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if remove {
					a.Store.RemoveLabel(ctx, t.ID, args[1])
					return nil
				}
				label := domain.Label{ID: args[1], Name: args[1]}
				if a.Cfg != nil {
					if cat, ok := a.Cfg.LabelByID(args[1]); ok {
						label.Name = cat.Name
						label.Color = cat.Color
					}
				}
				a.Store.AddLabel(ctx, t.ID, label)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "detach instead of attach")
	return cmd
}

func ticketAssignCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "assign <ticket> <member-id>",
		Short: "Assign or unassign a team member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if remove {
					a.Store.RemoveAssignee(ctx, t.ID, args[1])
					return nil
				}
				assignee := domain.Assignee{ID: args[1], Name: args[1]}
				if a.Cfg != nil {
					if m, ok := a.Cfg.MemberByID(args[1]); ok {
						assignee.Name = m.Name
						assignee.Avatar = m.Avatar
						assignee.Color = m.Color
					}
				}
				a.Store.AddAssignee(ctx, t.ID, assignee)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "unassign instead of assign")
	return cmd
}

func ticketCommentCmd() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "comment <ticket> <text>",
		Short: "Add a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				c, _ := a.Store.AddComment(ctx, t.ID, author, args[1])
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&author, "author", "local-user", "comment author")
	return cmd
}

func ticketProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress <ticket>",
		Short: "Task completion summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				p, _ := a.Store.TaskProgress(t.ID)
				if p == nil {
					fmt.Println("no tasks")
					return nil
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("%d/%d tasks complete (%d%%)\n", p.Completed, p.Total, p.Percent)
				return nil
			})
		},
	}
	return cmd
}

func scenarioCmd() *cobra.Command {
	sc := &cobra.Command{Use: "scenario", Short: "User scenarios"}
	var priority, given, when, then string
	add := &cobra.Command{
		Use:   "add <ticket> <title>",
		Short: "Add a user scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				out, _ := a.Store.AddUserScenario(ctx, t.ID, domain.UserScenario{
					Priority: domain.ScenarioPriority(priority),
					Title:    args[1],
					Given:    given,
					When:     when,
					Then:     then,
				})
				return printJSONOrTable(out)
			})
		},
	}
	add.Flags().StringVar(&priority, "priority", "P2", "P1, P2 or P3")
	add.Flags().StringVar(&given, "given", "", "given clause")
	add.Flags().StringVar(&when, "when", "", "when clause")
	add.Flags().StringVar(&then, "then", "", "then clause")
	del := &cobra.Command{
		Use:   "delete <ticket> <scenario-id>",
		Short: "Delete a user scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if !a.Store.DeleteUserScenario(ctx, t.ID, args[1]) {
					return fmt.Errorf("scenario %s not found", args[1])
				}
				return nil
			})
		},
	}
	sc.AddCommand(add, del)
	return sc
}

func requirementCmd() *cobra.Command {
	rq := &cobra.Command{Use: "requirement", Short: "Numbered requirements"}
	var reqType string
	add := &cobra.Command{
		Use:   "add <ticket> <description>",
		Short: "Add a requirement (FR-nnn or NFR-nnn)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				out, _ := a.Store.AddRequirement(ctx, t.ID, domain.Requirement{
					Type:        domain.RequirementType(reqType),
					Description: args[1],
				})
				return printJSONOrTable(out)
			})
		},
	}
	add.Flags().StringVar(&reqType, "type", "functional", "functional or non_functional")
	verify := &cobra.Command{
		Use:   "verify <ticket> <requirement-id>",
		Short: "Mark a requirement verified",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				v := true
				if !a.Store.UpdateRequirement(ctx, t.ID, args[1], store.RequirementUpdate{Verified: &v}) {
					return fmt.Errorf("requirement %s not found", args[1])
				}
				return nil
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete <ticket> <requirement-id>",
		Short: "Delete a requirement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if !a.Store.DeleteRequirement(ctx, t.ID, args[1]) {
					return fmt.Errorf("requirement %s not found", args[1])
				}
				return nil
			})
		},
	}
	rq.AddCommand(add, verify, del)
	return rq
}

func clarifyCmd() *cobra.Command {
	cl := &cobra.Command{Use: "clarify", Short: "Clarification questions"}
	var clrContext string
	ask := &cobra.Command{
		Use:   "ask <ticket> <question>",
		Short: "Open a clarification question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				out, _ := a.Store.AddClarification(ctx, t.ID, args[1], clrContext)
				return printJSONOrTable(out)
			})
		},
	}
	ask.Flags().StringVar(&clrContext, "context", "", "why the question matters")
	answer := &cobra.Command{
		Use:   "answer <ticket> <clarification-id> <answer>",
		Short: "Resolve a clarification question",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if !a.Store.ResolveClarification(ctx, t.ID, args[1], args[2]) {
					return fmt.Errorf("clarification %s not found", args[1])
				}
				return nil
			})
		},
	}
	cl.AddCommand(ask, answer)
	return cl
}

func criterionCmd() *cobra.Command {
	cr := &cobra.Command{Use: "criterion", Short: "Success criteria"}
	var metric string
	add := &cobra.Command{
		Use:   "add <ticket> <description>",
		Short: "Add a success criterion (SC-nnn)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				out, _ := a.Store.AddSuccessCriterion(ctx, t.ID, args[1], metric)
				return printJSONOrTable(out)
			})
		},
	}
	add.Flags().StringVar(&metric, "metric", "", "how the criterion is measured")
	toggle := &cobra.Command{
		Use:   "toggle <ticket> <criterion-id>",
		Short: "Flip a criterion between met and unmet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if !a.Store.ToggleSuccessCriterion(ctx, t.ID, args[1]) {
					return fmt.Errorf("criterion %s not found", args[1])
				}
				return nil
			})
		},
	}
	cr.AddCommand(add, toggle)
	return cr
}

func taskCmd() *cobra.Command {
	tk := &cobra.Command{Use: "task", Short: "Execution tasks"}
	var phase, scenarioID string
	var parallel bool
	add := &cobra.Command{
		Use:   "add <ticket> <name>",
		Short: "Add one task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				out, _ := a.Store.AddTask(ctx, t.ID, domain.TaskDraft{
					Name:           args[1],
					Phase:          domain.TaskPhase(phase),
					Parallel:       parallel,
					UserScenarioID: scenarioID,
				})
				return printJSONOrTable(out)
			})
		},
	}
	add.Flags().StringVar(&phase, "phase", "core", "setup, core, polish or validation")
	add.Flags().StringVar(&scenarioID, "scenario", "", "user scenario id the task serves")
	add.Flags().BoolVar(&parallel, "parallel", false, "can run alongside other tasks")
	var generateFile string
	generate := &cobra.Command{
		Use:   "generate <ticket>",
		Short: "Replace the task list from a JSON draft file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				data, err := os.ReadFile(generateFile)
				if err != nil {
					return err
				}
				var drafts []domain.TaskDraft
				if err := json.Unmarshal(data, &drafts); err != nil {
					return fmt.Errorf("parse %s: %w", generateFile, err)
				}
				tasks, _ := a.Store.GenerateTasks(ctx, t.ID, drafts)
				return printJSONOrTable(tasks)
			})
		},
	}
	generate.Flags().StringVar(&generateFile, "file", "", "JSON array of task drafts")
	_ = generate.MarkFlagRequired("file")
	var commit string
	status := &cobra.Command{
		Use:   "status <ticket> <task-id> <status>",
		Short: "Set task status (pending, in_progress, complete, blocked)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if !a.Store.UpdateTaskStatus(ctx, t.ID, args[1], domain.TaskStatus(args[2]), commit) {
					return fmt.Errorf("task %s not found", args[1])
				}
				return nil
			})
		},
	}
	status.Flags().StringVar(&commit, "commit", "", "commit hash to record")
	resolve := &cobra.Command{
		Use:   "resolve <ticket> <task-id>",
		Short: "Resolve a checkpoint task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if !a.Store.ResolveCheckpoint(ctx, t.ID, args[1]) {
					return fmt.Errorf("checkpoint task %s not found", args[1])
				}
				return nil
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete <ticket> <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := resolveTicket(a.Store, args[0])
				if err != nil {
					return err
				}
				if !a.Store.DeleteTask(ctx, t.ID, args[1]) {
					return fmt.Errorf("task %s not found", args[1])
				}
				return nil
			})
		},
	}
	tk.AddCommand(add, generate, status, resolve, del)
	return tk
}

func ingestCmd() *cobra.Command {
	var filePath, ticketRef string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Create or enrich a ticket from an assistant spec payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			var payload ingest.SpecPayload
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("parse %s: %w", filePath, err)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if ticketRef == "" {
					t := ingest.Create(ctx, a.Store, payload)
					return printJSONOrTable(t)
				}
				t, err := resolveTicket(a.Store, ticketRef)
				if err != nil {
					return err
				}
				applied, _ := ingest.Apply(ctx, a.Store, t.ID, payload)
				return printJSONOrTable(applied)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to spec payload JSON")
	cmd.Flags().StringVar(&ticketRef, "ticket", "", "existing ticket id or number (omit to create)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	var n int
	var ticketRef string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ticketID := ""
				if ticketRef != "" {
					t, err := resolveTicket(a.Store, ticketRef)
					if err != nil {
						return err
					}
					ticketID = t.ID
				}
				items, err := a.Events.Tail(ctx, ticketID, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	tail.Flags().StringVar(&ticketRef, "ticket", "", "limit to one ticket")
	lg.AddCommand(tail)
	return lg
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if addr == "" {
					host := "127.0.0.1"
					port := 4664
					if a.Cfg != nil {
						if a.Cfg.Server.Host != "" {
							host = a.Cfg.Server.Host
						}
						if a.Cfg.Server.Port != 0 {
							port = a.Cfg.Server.Port
						}
					}
					addr = fmt.Sprintf("%s:%d", host, port)
				}
				handler, err := server.New(server.Config{
					Store:    a.Store,
					Events:   a.Events,
					Cfg:      a.Cfg,
					BasePath: basePath,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving SpecFlow API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults from specflow.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// resolveTicket accepts a ticket uuid, a formatted number like SF-007, or a
// bare number.
func resolveTicket(st *store.Store, ref string) (domain.Ticket, error) {
	if t, ok := st.Get(ref); ok {
		return t, nil
	}
	num := strings.TrimPrefix(strings.ToUpper(ref), "SF-")
	if n, err := strconv.Atoi(num); err == nil {
		for _, t := range st.All() {
			if t.Number == n {
				return t, nil
			}
		}
	}
	return domain.Ticket{}, fmt.Errorf("ticket %s not found", ref)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
