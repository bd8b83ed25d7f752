package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shopfloor/internal/app"
	"shopfloor/internal/config"
	"shopfloor/internal/db"
	"shopfloor/internal/engine"
	"shopfloor/internal/migrate"
	"shopfloor/internal/repo"
	"shopfloor/internal/report"
	"shopfloor/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sf",
	Short: "Shopfloor CLI",
	Long: `Shopfloor tracks machine downtime and rolls facts up into SQDC scorecards.
Core concepts:
- Workspace: the .shopfloor directory holding the database; shopfloor.yml holds shifts and default targets.
- Lines and machines: the plant layout. Every event points at a machine and its line.
- Downtime: a stoppage goes open -> acknowledged -> closed; a machine can only be down once at a time.
- Facts: quality events, production counts, and safety incidents are immutable once logged.
- Scorecard: Safety / Quality / Delivery / Cost per line over a window, judged against per-line targets.
- Event log: diary of changes, view with 'sf log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("SHOPFLOOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(lineCmd())
	rootCmd.AddCommand(machineCmd())
	rootCmd.AddCommand(operatorCmd())
	rootCmd.AddCommand(reasonCmd())
	rootCmd.AddCommand(workorderCmd())
	rootCmd.AddCommand(downtimeCmd())
	rootCmd.AddCommand(qualityCmd())
	rootCmd.AddCommand(productionCmd())
	rootCmd.AddCommand(safetyCmd())
	rootCmd.AddCommand(targetCmd())
	rootCmd.AddCommand(actionCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorID() string { return viper.GetString("actor-id") }

func initCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", cfgPath)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if !seed {
					fmt.Printf("Workspace ready at %s\n", db.Path(workspace))
					return nil
				}
				if err := app.Seed(ctx, e, actorID()); err != nil {
					return err
				}
				fmt.Println("Workspace ready with sample lines, machines, operators, and reason codes")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load sample master data")
	return cmd
}

func lineCmd() *cobra.Command {
	line := &cobra.Command{Use: "line", Short: "Manage production lines"}
	line.AddCommand(lineCreateCmd())
	line.AddCommand(lineListCmd())
	return line
}

func lineCreateCmd() *cobra.Command {
	var name, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.CreateLine(ctx, name, desc, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "line name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func lineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListLines(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func machineCmd() *cobra.Command {
	machine := &cobra.Command{Use: "machine", Short: "Manage machines"}
	machine.AddCommand(machineCreateCmd())
	machine.AddCommand(machineListCmd())
	return machine
}

func machineCreateCmd() *cobra.Command {
	var lineID, name, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMachine(ctx, lineID, name, desc, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&lineID, "line", "", "line id")
	cmd.Flags().StringVar(&name, "name", "", "machine name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("line")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func machineListCmd() *cobra.Command {
	var lineID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List machines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListMachines(ctx, lineID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&lineID, "line", "", "filter by line id")
	return cmd
}

func operatorCmd() *cobra.Command {
	op := &cobra.Command{Use: "operator", Short: "Manage operators"}
	var name, badge string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateOperator(ctx, name, badge, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "operator name")
	create.Flags().StringVar(&badge, "badge", "", "badge id")
	_ = create.MarkFlagRequired("name")
	list := &cobra.Command{
		Use:   "list",
		Short: "List operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOperators(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	op.AddCommand(create, list)
	return op
}

func reasonCmd() *cobra.Command {
	reason := &cobra.Command{Use: "reason", Short: "Manage reason codes"}
	var kind, code, desc, category string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create reason code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rs, err := e.CreateReason(ctx, kind, code, desc, category, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(rs)
			})
		},
	}
	create.Flags().StringVar(&kind, "kind", "downtime", "reason kind (downtime, quality)")
	create.Flags().StringVar(&code, "code", "", "reason code")
	create.Flags().StringVar(&desc, "description", "", "description")
	create.Flags().StringVar(&category, "category", "", "category")
	_ = create.MarkFlagRequired("code")
	_ = create.MarkFlagRequired("description")
	var listKind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List reason codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListReasons(ctx, listKind)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().StringVar(&listKind, "kind", "", "filter by kind")
	reason.AddCommand(create, list)
	return reason
}

func workorderCmd() *cobra.Command {
	wo := &cobra.Command{Use: "workorder", Short: "Manage work orders"}
	var number, part, due, lineID string
	var qty int64
	create := &cobra.Command{
		Use:   "create",
		Short: "Create work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.CreateWorkOrder(ctx, engine.WorkOrderOptions{
					Number:         number,
					PartNumber:     part,
					TargetQuantity: qty,
					DueDate:        due,
					LineID:         lineID,
					ActorID:        actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	create.Flags().StringVar(&number, "number", "", "work order number")
	create.Flags().StringVar(&part, "part", "", "part number")
	create.Flags().Int64Var(&qty, "qty", 0, "target quantity")
	create.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	create.Flags().StringVar(&lineID, "line", "", "line id")
	_ = create.MarkFlagRequired("number")
	_ = create.MarkFlagRequired("line")

	var listLine, listStatus string
	list := &cobra.Command{
		Use:   "list",
		Short: "List work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListWorkOrders(ctx, listLine, listStatus)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().StringVar(&listLine, "line", "", "filter by line id")
	list.Flags().StringVar(&listStatus, "status", "", "filter by status")

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a work order (active, completed, canceled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.SetWorkOrderStatus(ctx, args[0], args[1], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	wo.AddCommand(create, list, status)
	return wo
}

func downtimeCmd() *cobra.Command {
	dt := &cobra.Command{Use: "downtime", Short: "Downtime lifecycle"}
	dt.AddCommand(downtimeStartCmd())
	dt.AddCommand(downtimeAckCmd())
	dt.AddCommand(downtimeCloseCmd())
	dt.AddCommand(downtimeResolveCmd())
	dt.AddCommand(downtimeActiveCmd())
	dt.AddCommand(downtimeRecentCmd())
	return dt
}

func downtimeStartCmd() *cobra.Command {
	var machineID, reasonID, workOrderID, operatorID, startTime, notes string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Report a machine stoppage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.StartDowntime(ctx, engine.StartDowntimeOptions{
					MachineID:   machineID,
					ReasonID:    reasonID,
					WorkOrderID: workOrderID,
					OperatorID:  operatorID,
					StartTime:   startTime,
					Notes:       notes,
					ActorID:     actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&machineID, "machine", "", "machine id")
	cmd.Flags().StringVar(&reasonID, "reason", "", "downtime reason id")
	cmd.Flags().StringVar(&workOrderID, "workorder", "", "work order id")
	cmd.Flags().StringVar(&operatorID, "operator", "", "reporting operator id")
	cmd.Flags().StringVar(&startTime, "start", "", "start time (RFC3339, defaults to now)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("machine")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func downtimeAckCmd() *cobra.Command {
	var technicianID string
	cmd := &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge a stoppage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.AcknowledgeDowntime(ctx, args[0], technicianID, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&technicianID, "technician", "", "technician operator id")
	_ = cmd.MarkFlagRequired("technician")
	return cmd
}

func downtimeCloseCmd() *cobra.Command {
	var endTime string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close a stoppage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CloseDowntime(ctx, args[0], endTime, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&endTime, "end", "", "end time (RFC3339, defaults to now)")
	return cmd
}

func downtimeResolveCmd() *cobra.Command {
	var endTime, notes string
	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a stoppage with notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.ResolveDowntime(ctx, args[0], endTime, notes, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&endTime, "end", "", "end time (RFC3339, defaults to now)")
	cmd.Flags().StringVar(&notes, "notes", "", "resolution notes")
	_ = cmd.MarkFlagRequired("notes")
	return cmd
}

func downtimeActiveCmd() *cobra.Command {
	var lineID string
	cmd := &cobra.Command{
		Use:   "active",
		Short: "List open stoppages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ActiveDowntime(ctx, lineID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Machine", "Reason", "Since", "State"})
				for _, d := range items {
					tw.AppendRow(table.Row{d.ID, d.MachineID, d.ReasonID, d.StartTime, d.State()})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&lineID, "line", "", "filter by line id")
	return cmd
}

func downtimeRecentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recent downtime events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.RecentDowntime(ctx, limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max events")
	return cmd
}

func qualityCmd() *cobra.Command {
	var machineID, reasonID, workOrderID, operatorID, ts, notes string
	var qty int64
	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Log a quality event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				q, err := e.LogQualityEvent(ctx, engine.QualityEventOptions{
					MachineID:   machineID,
					ReasonID:    reasonID,
					WorkOrderID: workOrderID,
					OperatorID:  operatorID,
					Quantity:    qty,
					Timestamp:   ts,
					Notes:       notes,
					ActorID:     actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(q)
			})
		},
	}
	cmd.Flags().StringVar(&machineID, "machine", "", "machine id")
	cmd.Flags().StringVar(&reasonID, "reason", "", "quality reason id")
	cmd.Flags().StringVar(&workOrderID, "workorder", "", "work order id")
	cmd.Flags().StringVar(&operatorID, "operator", "", "operator id")
	cmd.Flags().Int64Var(&qty, "qty", 0, "defect quantity")
	cmd.Flags().StringVar(&ts, "at", "", "timestamp (RFC3339, defaults to now)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("machine")
	_ = cmd.MarkFlagRequired("reason")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func productionCmd() *cobra.Command {
	var machineID, workOrderID, operatorID, ts string
	var good, scrap int64
	cmd := &cobra.Command{
		Use:   "production",
		Short: "Log a production count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.LogProductionCount(ctx, engine.ProductionCountOptions{
					MachineID:     machineID,
					WorkOrderID:   workOrderID,
					OperatorID:    operatorID,
					GoodQuantity:  good,
					ScrapQuantity: scrap,
					Timestamp:     ts,
					ActorID:       actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&machineID, "machine", "", "machine id")
	cmd.Flags().StringVar(&workOrderID, "workorder", "", "work order id")
	cmd.Flags().StringVar(&operatorID, "operator", "", "operator id")
	cmd.Flags().Int64Var(&good, "good", 0, "good quantity")
	cmd.Flags().Int64Var(&scrap, "scrap", 0, "scrap quantity")
	cmd.Flags().StringVar(&ts, "at", "", "timestamp (RFC3339, defaults to now)")
	_ = cmd.MarkFlagRequired("machine")
	_ = cmd.MarkFlagRequired("good")
	return cmd
}

func safetyCmd() *cobra.Command {
	var lineID, date, desc string
	cmd := &cobra.Command{
		Use:   "safety",
		Short: "Log a safety incident",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.LogSafetyIncident(ctx, lineID, date, desc, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&lineID, "line", "", "line id")
	cmd.Flags().StringVar(&date, "date", "", "incident date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&desc, "description", "", "what happened")
	_ = cmd.MarkFlagRequired("line")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func targetCmd() *cobra.Command {
	target := &cobra.Command{Use: "target", Short: "Manage SQDC targets"}
	var lineID, metric string
	var value float64
	set := &cobra.Command{
		Use:   "set",
		Short: "Set a per-line target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTarget(ctx, lineID, metric, value, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	set.Flags().StringVar(&lineID, "line", "", "line id")
	set.Flags().StringVar(&metric, "metric", "", "metric (safety, quality, delivery, cost)")
	set.Flags().Float64Var(&value, "value", 0, "target value")
	_ = set.MarkFlagRequired("line")
	_ = set.MarkFlagRequired("metric")
	_ = set.MarkFlagRequired("value")
	var listLine string
	list := &cobra.Command{
		Use:   "list",
		Short: "List targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTargets(ctx, listLine)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().StringVar(&listLine, "line", "", "filter by line id")
	target.AddCommand(set, list)
	return target
}

func actionCmd() *cobra.Command {
	action := &cobra.Command{Use: "action", Short: "Corrective actions"}
	var lineID, category, desc, assignee string
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a corrective action",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAction(ctx, engine.ActionOptions{
					LineID:      lineID,
					Category:    category,
					Description: desc,
					AssigneeID:  assignee,
					ActorID:     actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	create.Flags().StringVar(&lineID, "line", "", "line id")
	create.Flags().StringVar(&category, "category", "", "metric category (safety, quality, delivery, cost)")
	create.Flags().StringVar(&desc, "description", "", "what to do")
	create.Flags().StringVar(&assignee, "assignee", "", "assignee operator id")
	_ = create.MarkFlagRequired("line")
	_ = create.MarkFlagRequired("category")
	_ = create.MarkFlagRequired("description")

	var notes string
	closeCmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close a corrective action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CloseAction(ctx, args[0], notes, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	closeCmd.Flags().StringVar(&notes, "notes", "", "resolution notes")

	var listLine, listStatus string
	list := &cobra.Command{
		Use:   "list",
		Short: "List corrective actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListActions(ctx, listLine, listStatus)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().StringVar(&listLine, "line", "", "filter by line id")
	list.Flags().StringVar(&listStatus, "status", "", "filter by status (open, closed)")
	action.AddCommand(create, closeCmd, list)
	return action
}

func reportCmd() *cobra.Command {
	rep := &cobra.Command{Use: "report", Short: "Windowed metrics and scorecards"}
	rep.AddCommand(reportMetricsCmd())
	rep.AddCommand(reportScorecardCmd())
	rep.AddCommand(reportMatrixCmd())
	return rep
}

type windowFlags struct {
	start, end, date, shift string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "window start (RFC3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "window end (RFC3339)")
	cmd.Flags().StringVar(&f.date, "date", "", "day to report on (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&f.shift, "shift", "all-day", "configured shift name")
}

func (f *windowFlags) resolve(e engine.Engine) (report.Window, error) {
	if f.start != "" || f.end != "" {
		start, err := time.Parse(time.RFC3339, f.start)
		if err != nil {
			return report.Window{}, fmt.Errorf("invalid --start: %w", err)
		}
		end, err := time.Parse(time.RFC3339, f.end)
		if err != nil {
			return report.Window{}, fmt.Errorf("invalid --end: %w", err)
		}
		w := report.Window{Start: start.UTC(), End: end.UTC()}
		return w, w.Validate()
	}
	day := e.Now().UTC()
	if f.date != "" {
		parsed, err := time.Parse("2006-01-02", f.date)
		if err != nil {
			return report.Window{}, fmt.Errorf("invalid --date: %w", err)
		}
		day = parsed
	}
	start, end, err := e.Config.ShiftWindow(f.shift, day)
	if err != nil {
		return report.Window{}, err
	}
	return report.Window{Start: start, End: end}, nil
}

func newReporter(e engine.Engine) report.Reporter {
	return report.Reporter{Repo: e.Repo, Config: e.Config, Now: e.Now}
}

func reportMetricsCmd() *cobra.Command {
	var f windowFlags
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Aggregate metrics over a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := f.resolve(e)
				if err != nil {
					return err
				}
				m, err := newReporter(e).Metrics(ctx, w)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func reportScorecardCmd() *cobra.Command {
	var f windowFlags
	cmd := &cobra.Command{
		Use:   "scorecard",
		Short: "SQDC scorecards per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := f.resolve(e)
				if err != nil {
					return err
				}
				cards, err := newReporter(e).Scorecards(ctx, w)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cards)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Line", "Safety", "Quality (FPY %)", "Delivery (units)", "Cost (dt min)"})
				for _, sc := range cards {
					tw.AppendRow(table.Row{
						sc.LineName,
						formatMetric(sc.Safety, "%.0f"),
						formatMetric(sc.Quality, "%.1f"),
						formatMetric(sc.Delivery, "%.0f"),
						formatMetric(sc.Cost, "%.1f"),
					})
				}
				tw.Render()
				for _, sc := range cards {
					for _, alert := range sc.Alerts {
						fmt.Println("ALERT:", alert)
					}
				}
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func formatMetric(m report.Metric, valueFormat string) string {
	status := "OK"
	if !m.OnTarget {
		status = "MISS"
	}
	return fmt.Sprintf(valueFormat+" / "+valueFormat+" %s", m.Value, m.Target, status)
}

func reportMatrixCmd() *cobra.Command {
	var f windowFlags
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Lines-by-metrics status board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := f.resolve(e)
				if err != nil {
					return err
				}
				rows, err := newReporter(e).Matrix(ctx, w)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Line", "S", "Q", "D", "C"})
				for _, row := range rows {
					r := table.Row{row.LineName}
					for _, cell := range row.Cells {
						if cell.OnTarget {
							r = append(r, "OK")
						} else {
							r = append(r, "MISS")
						}
					}
					tw.AppendRow(r)
				}
				tw.Render()
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: downtime transitions, fact logging, target changes, and more.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var limit int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show latest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.LatestEvents(ctx, limit, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max events")
	cmd.Flags().StringVar(&evtType, "type", "", "filter by event type")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "filter by entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "filter by entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Shopfloor API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
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
