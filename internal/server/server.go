package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"shopfloor/internal/engine"
	"shopfloor/internal/repo"
	"shopfloor/internal/report"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflict"`
	Message string         `json:"message" example:"machine Conveyor_1 already down"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Shopfloor API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Shopfloor API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerLines(group, cfg.Engine)
	registerMachines(group, cfg.Engine)
	registerOperators(group, cfg.Engine)
	registerReasons(group, cfg.Engine)
	registerWorkOrders(group, cfg.Engine)
	registerDowntime(group, cfg.Engine)
	registerFacts(group, cfg.Engine)
	registerTargets(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerActions(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidTransition):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, engine.ErrValidation):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "unique constraint") {
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	}
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// ActorHeader trusts the X-Actor-Id header; the API carries no authn layer.
type ActorHeader struct {
	ActorID string `header:"X-Actor-Id"`
}

func (a ActorHeader) actor() string {
	if a.ActorID == "" {
		return "api"
	}
	return a.ActorID
}

// WindowQuery selects a reporting interval, either explicitly by
// start/end or by naming a configured shift on a date.
type WindowQuery struct {
	Start string `query:"start" format:"date-time"`
	End   string `query:"end" format:"date-time"`
	Date  string `query:"date" format:"date"`
	Shift string `query:"shift" example:"shift-1"`
}

func resolveWindow(e engine.Engine, q WindowQuery) (report.Window, error) {
	if q.Start != "" || q.End != "" {
		start, err := time.Parse(time.RFC3339, q.Start)
		if err != nil {
			return report.Window{}, fmt.Errorf("%w: invalid start %q", engine.ErrValidation, q.Start)
		}
		end, err := time.Parse(time.RFC3339, q.End)
		if err != nil {
			return report.Window{}, fmt.Errorf("%w: invalid end %q", engine.ErrValidation, q.End)
		}
		w := report.Window{Start: start.UTC(), End: end.UTC()}
		return w, w.Validate()
	}
	day := e.Now().UTC()
	if q.Date != "" {
		parsed, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			return report.Window{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", engine.ErrValidation, q.Date)
		}
		day = parsed
	}
	shift := q.Shift
	if shift == "" {
		shift = "all-day"
	}
	start, end, err := e.Config.ShiftWindow(shift, day)
	if err != nil {
		return report.Window{}, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}
	return report.Window{Start: start, End: end}, nil
}

func reporter(e engine.Engine) report.Reporter {
	return report.Reporter{Repo: e.Repo, Config: e.Config, Now: e.Now}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Shopfloor API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerLines(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-line",
		Method:        http.MethodPost,
		Path:          "/lines",
		Summary:       "Create line",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		Body CreateLineRequest `json:"body"`
	}) (*struct {
		Body LineResponse `json:"body"`
	}, error) {
		l, err := e.CreateLine(ctx, input.Body.Name, input.Body.Description, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LineResponse `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-lines",
		Method:      http.MethodGet,
		Path:        "/lines",
		Summary:     "List lines",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []LineResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListLines(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []LineResponse `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-line",
		Method:      http.MethodGet,
		Path:        "/lines/{line_id}",
		Summary:     "Get line",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		LineID string `path:"line_id"`
	}) (*struct {
		Body LineResponse `json:"body"`
	}, error) {
		l, err := e.Repo.GetLine(ctx, input.LineID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LineResponse `json:"body"`
		}{Body: l}, nil
	})
}

func registerMachines(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-machine",
		Method:        http.MethodPost,
		Path:          "/lines/{line_id}/machines",
		Summary:       "Create machine",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		LineID string               `path:"line_id"`
		Body   CreateMachineRequest `json:"body"`
	}) (*struct {
		Body MachineResponse `json:"body"`
	}, error) {
		m, err := e.CreateMachine(ctx, input.LineID, input.Body.Name, input.Body.Description, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MachineResponse `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-machines",
		Method:      http.MethodGet,
		Path:        "/machines",
		Summary:     "List machines",
	}, func(ctx context.Context, input *struct {
		LineID string `query:"line_id"`
	}) (*struct {
		Body []MachineResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListMachines(ctx, input.LineID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []MachineResponse `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-machine",
		Method:      http.MethodGet,
		Path:        "/machines/{machine_id}",
		Summary:     "Get machine",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MachineID string `path:"machine_id"`
	}) (*struct {
		Body MachineResponse `json:"body"`
	}, error) {
		m, err := e.Repo.GetMachine(ctx, input.MachineID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MachineResponse `json:"body"`
		}{Body: m}, nil
	})
}

func registerOperators(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-operator",
		Method:        http.MethodPost,
		Path:          "/operators",
		Summary:       "Create operator",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		Body CreateOperatorRequest `json:"body"`
	}) (*struct {
		Body OperatorResponse `json:"body"`
	}, error) {
		o, err := e.CreateOperator(ctx, input.Body.Name, input.Body.BadgeID, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OperatorResponse `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-operators",
		Method:      http.MethodGet,
		Path:        "/operators",
		Summary:     "List operators",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []OperatorResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListOperators(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []OperatorResponse `json:"body"`
		}{Body: items}, nil
	})
}

func registerReasons(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-reason",
		Method:        http.MethodPost,
		Path:          "/reasons",
		Summary:       "Create reason code",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		Body CreateReasonRequest `json:"body"`
	}) (*struct {
		Body ReasonResponse `json:"body"`
	}, error) {
		rs, err := e.CreateReason(ctx, input.Body.Kind, input.Body.Code, input.Body.Description, input.Body.Category, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReasonResponse `json:"body"`
		}{Body: rs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-reasons",
		Method:      http.MethodGet,
		Path:        "/reasons",
		Summary:     "List reason codes",
	}, func(ctx context.Context, input *struct {
		Kind string `query:"kind"`
	}) (*struct {
		Body []ReasonResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListReasons(ctx, input.Kind)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ReasonResponse `json:"body"`
		}{Body: items}, nil
	})
}

func registerWorkOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-workorder",
		Method:        http.MethodPost,
		Path:          "/workorders",
		Summary:       "Create work order",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		Body CreateWorkOrderRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		w, err := e.CreateWorkOrder(ctx, engine.WorkOrderOptions{
			Number:         input.Body.Number,
			PartNumber:     input.Body.PartNumber,
			TargetQuantity: input.Body.TargetQuantity,
			DueDate:        input.Body.DueDate,
			LineID:         input.Body.LineID,
			ActorID:        input.actor(),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workorders",
		Method:      http.MethodGet,
		Path:        "/workorders",
		Summary:     "List work orders",
	}, func(ctx context.Context, input *struct {
		LineID string `query:"line_id"`
		Status string `query:"status"`
	}) (*struct {
		Body []WorkOrderResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListWorkOrders(ctx, input.LineID, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []WorkOrderResponse `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workorder",
		Method:      http.MethodGet,
		Path:        "/workorders/{id}",
		Summary:     "Get work order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		w, err := e.Repo.GetWorkOrder(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-workorder-status",
		Method:      http.MethodPatch,
		Path:        "/workorders/{id}/status",
		Summary:     "Update work order status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		ID   string                    `path:"id"`
		Body SetWorkOrderStatusRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		w, err := e.SetWorkOrderStatus(ctx, input.ID, input.Body.Status, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: w}, nil
	})
}

func registerDowntime(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-downtime",
		Method:        http.MethodPost,
		Path:          "/downtime",
		Summary:       "Report machine stoppage",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		Body StartDowntimeRequest `json:"body"`
	}) (*struct {
		Body DowntimeResponse `json:"body"`
	}, error) {
		d, err := e.StartDowntime(ctx, engine.StartDowntimeOptions{
			MachineID:   input.Body.MachineID,
			ReasonID:    input.Body.ReasonID,
			WorkOrderID: input.Body.WorkOrderID,
			OperatorID:  input.Body.OperatorID,
			StartTime:   input.Body.StartTime,
			Notes:       input.Body.Notes,
			ActorID:     input.actor(),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DowntimeResponse `json:"body"`
		}{Body: downtimeResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-active-downtime",
		Method:      http.MethodGet,
		Path:        "/downtime/active",
		Summary:     "List open stoppages",
	}, func(ctx context.Context, input *struct {
		LineID string `query:"line_id"`
	}) (*struct {
		Body []DowntimeResponse `json:"body"`
	}, error) {
		items, err := e.ActiveDowntime(ctx, input.LineID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []DowntimeResponse `json:"body"`
		}{Body: mapDowntime(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-machine-active-downtime",
		Method:      http.MethodGet,
		Path:        "/machines/{machine_id}/downtime/active",
		Summary:     "Open stoppage for one machine",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MachineID string `path:"machine_id"`
	}) (*struct {
		Body DowntimeResponse `json:"body"`
	}, error) {
		d, err := e.ActiveDowntimeForMachine(ctx, input.MachineID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DowntimeResponse `json:"body"`
		}{Body: downtimeResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-recent-downtime",
		Method:      http.MethodGet,
		Path:        "/downtime/recent",
		Summary:     "List recent downtime events",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"20"`
	}) (*struct {
		Body []DowntimeResponse `json:"body"`
	}, error) {
		items, err := e.Repo.RecentDowntime(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []DowntimeResponse `json:"body"`
		}{Body: mapDowntime(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-downtime",
		Method:      http.MethodGet,
		Path:        "/downtime/{id}",
		Summary:     "Get downtime event",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DowntimeResponse `json:"body"`
	}, error) {
		d, err := e.Repo.GetDowntime(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DowntimeResponse `json:"body"`
		}{Body: downtimeResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "acknowledge-downtime",
		Method:      http.MethodPost,
		Path:        "/downtime/{id}/acknowledge",
		Summary:     "Acknowledge stoppage",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		ID   string                     `path:"id"`
		Body AcknowledgeDowntimeRequest `json:"body"`
	}) (*struct {
		Body DowntimeResponse `json:"body"`
	}, error) {
		d, err := e.AcknowledgeDowntime(ctx, input.ID, input.Body.TechnicianID, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DowntimeResponse `json:"body"`
		}{Body: downtimeResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-downtime",
		Method:      http.MethodPost,
		Path:        "/downtime/{id}/close",
		Summary:     "Close stoppage",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		ID   string               `path:"id"`
		Body CloseDowntimeRequest `json:"body"`
	}) (*struct {
		Body DowntimeResponse `json:"body"`
	}, error) {
		d, err := e.CloseDowntime(ctx, input.ID, input.Body.EndTime, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DowntimeResponse `json:"body"`
		}{Body: downtimeResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-downtime",
		Method:      http.MethodPost,
		Path:        "/downtime/{id}/resolve",
		Summary:     "Resolve stoppage with notes",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		ID   string                 `path:"id"`
		Body ResolveDowntimeRequest `json:"body"`
	}) (*struct {
		Body DowntimeResponse `json:"body"`
	}, error) {
		d, err := e.ResolveDowntime(ctx, input.ID, input.Body.EndTime, input.Body.ResolutionNotes, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DowntimeResponse `json:"body"`
		}{Body: downtimeResponse(d)}, nil
	})
}

func registerFacts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-quality-event",
		Method:        http.MethodPost,
		Path:          "/quality-events",
		Summary:       "Log quality event",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		Body LogQualityEventRequest `json:"body"`
	}) (*struct {
		Body QualityEventResponse `json:"body"`
	}, error) {
		q, err := e.LogQualityEvent(ctx, engine.QualityEventOptions{
			MachineID:   input.Body.MachineID,
			ReasonID:    input.Body.ReasonID,
			WorkOrderID: input.Body.WorkOrderID,
			OperatorID:  input.Body.OperatorID,
			Quantity:    input.Body.Quantity,
			Timestamp:   input.Body.Timestamp,
			Notes:       input.Body.Notes,
			ActorID:     input.actor(),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body QualityEventResponse `json:"body"`
		}{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "log-production-count",
		Method:        http.MethodPost,
		Path:          "/production-counts",
		Summary:       "Log production count",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		Body LogProductionCountRequest `json:"body"`
	}) (*struct {
		Body ProductionCountResponse `json:"body"`
	}, error) {
		p, err := e.LogProductionCount(ctx, engine.ProductionCountOptions{
			MachineID:     input.Body.MachineID,
			WorkOrderID:   input.Body.WorkOrderID,
			OperatorID:    input.Body.OperatorID,
			GoodQuantity:  input.Body.GoodQuantity,
			ScrapQuantity: input.Body.ScrapQuantity,
			Timestamp:     input.Body.Timestamp,
			ActorID:       input.actor(),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProductionCountResponse `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "log-safety-incident",
		Method:        http.MethodPost,
		Path:          "/lines/{line_id}/safety-incidents",
		Summary:       "Log safety incident",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		LineID string                   `path:"line_id"`
		Body   LogSafetyIncidentRequest `json:"body"`
	}) (*struct {
		Body SafetyIncidentResponse `json:"body"`
	}, error) {
		s, err := e.LogSafetyIncident(ctx, input.LineID, input.Body.Date, input.Body.Description, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SafetyIncidentResponse `json:"body"`
		}{Body: s}, nil
	})
}

func registerTargets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "set-target",
		Method:      http.MethodPut,
		Path:        "/lines/{line_id}/targets",
		Summary:     "Set line target",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		LineID string           `path:"line_id"`
		Body   SetTargetRequest `json:"body"`
	}) (*struct {
		Body TargetResponse `json:"body"`
	}, error) {
		t, err := e.SetTarget(ctx, input.LineID, input.Body.Metric, input.Body.Value, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TargetResponse `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-targets",
		Method:      http.MethodGet,
		Path:        "/lines/{line_id}/targets",
		Summary:     "List line targets",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		LineID string `path:"line_id"`
	}) (*struct {
		Body []TargetResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetLine(ctx, input.LineID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListTargets(ctx, input.LineID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TargetResponse `json:"body"`
		}{Body: items}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "window-metrics",
		Method:      http.MethodGet,
		Path:        "/reports/metrics",
		Summary:     "Aggregate metrics over a window",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		WindowQuery
	}) (*struct {
		Body WindowMetricsResponse `json:"body"`
	}, error) {
		w, err := resolveWindow(e, input.WindowQuery)
		if err != nil {
			return nil, handleError(err)
		}
		m, err := reporter(e).Metrics(ctx, w)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WindowMetricsResponse `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "line-scorecard",
		Method:      http.MethodGet,
		Path:        "/lines/{line_id}/scorecard",
		Summary:     "SQDC scorecard for one line",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WindowQuery
		LineID string `path:"line_id"`
	}) (*struct {
		Body ScorecardResponse `json:"body"`
	}, error) {
		w, err := resolveWindow(e, input.WindowQuery)
		if err != nil {
			return nil, handleError(err)
		}
		sc, err := reporter(e).Scorecard(ctx, w, input.LineID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ScorecardResponse `json:"body"`
		}{Body: sc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "scorecards",
		Method:      http.MethodGet,
		Path:        "/reports/scorecards",
		Summary:     "SQDC scorecards for all lines",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		WindowQuery
	}) (*struct {
		Body []ScorecardResponse `json:"body"`
	}, error) {
		w, err := resolveWindow(e, input.WindowQuery)
		if err != nil {
			return nil, handleError(err)
		}
		cards, err := reporter(e).Scorecards(ctx, w)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ScorecardResponse `json:"body"`
		}{Body: cards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "status-matrix",
		Method:      http.MethodGet,
		Path:        "/reports/matrix",
		Summary:     "Lines-by-metrics status board",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		WindowQuery
	}) (*struct {
		Body []MatrixRowResponse `json:"body"`
	}, error) {
		w, err := resolveWindow(e, input.WindowQuery)
		if err != nil {
			return nil, handleError(err)
		}
		rows, err := reporter(e).Matrix(ctx, w)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []MatrixRowResponse `json:"body"`
		}{Body: rows}, nil
	})
}

func registerActions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-action",
		Method:        http.MethodPost,
		Path:          "/lines/{line_id}/actions",
		Summary:       "Open corrective action",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		LineID string              `path:"line_id"`
		Body   CreateActionRequest `json:"body"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		a, err := e.CreateAction(ctx, engine.ActionOptions{
			LineID:      input.LineID,
			Category:    input.Body.Category,
			Description: input.Body.Description,
			AssigneeID:  input.Body.AssigneeID,
			ActorID:     input.actor(),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-actions",
		Method:      http.MethodGet,
		Path:        "/actions",
		Summary:     "List corrective actions",
	}, func(ctx context.Context, input *struct {
		LineID string `query:"line_id"`
		Status string `query:"status"`
	}) (*struct {
		Body []ActionResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListActions(ctx, input.LineID, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ActionResponse `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/close",
		Summary:     "Close corrective action",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorHeader
		ID   string             `path:"id"`
		Body CloseActionRequest `json:"body"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		a, err := e.CloseAction(ctx, input.ID, input.Body.ResolutionNotes, input.actor())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: a}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Tail the audit log",
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		items, err := e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: items}, nil
	})
}
