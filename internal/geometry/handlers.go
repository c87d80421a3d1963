package geometry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/singed2905/api/internal/handlers"
	"github.com/singed2905/api/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler serves the geometry API over one table source. The source is
// consulted per request, so a config reload is visible to new requests
// without restarting the server.
type Handler struct {
	source TableSource
}

func NewHandler(src TableSource) *Handler {
	return &Handler{source: src}
}

// CalculateResponse is the JSON body for a completed pipeline run.
type CalculateResponse struct {
	Status      PipelineState     `json:"status"`
	Operation   Operation         `json:"operation"`
	FormulaID   string            `json:"formula_id"`
	Calculation CalculationResult `json:"calculation"`
	Keylog      KeylogResult      `json:"keylog"`
	Encoded     string            `json:"encoded"`
}

// Calculate handles POST /calculate — the full validate/compute/encode pipeline.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "geometry.calculate",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()

	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "calculate", "invalid_request", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if req.CalculatorModel == "" {
		req.CalculatorModel = h.source.DefaultModel()
	}

	span.SetAttributes(
		attribute.String("geometry.operation", string(req.Operation)),
		attribute.String("geometry.model", req.CalculatorModel),
	)

	start := time.Now()
	result, err := NewPipeline(h.source).Run(ctx, req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err != nil {
		code := ErrorCode(err)
		observability.RecordError(ctx, span, logger, errorCounter, string(req.Operation), code, err.Error(), err, statusFor(code), w)
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", string(req.Operation)),
		attribute.String("model", req.CalculatorModel),
	)
	opsCounter.Add(ctx, 1, attrs)
	opsHistogram.Record(ctx, elapsed, attrs)
	keylogLenHist.Record(ctx, int64(len(result.Keylog.Tokens)), attrs)

	span.AddEvent("pipeline.complete", trace.WithAttributes(
		attribute.String("formula_id", result.Rule.FormulaID),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("geometry pipeline completed",
		zap.String("operation", string(req.Operation)),
		zap.String("formula_id", result.Rule.FormulaID),
		zap.String("model", req.CalculatorModel),
		zap.Int("keylog_tokens", len(result.Keylog.Tokens)),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, CalculateResponse{
		Status:      result.State,
		Operation:   req.Operation,
		FormulaID:   result.Rule.FormulaID,
		Calculation: result.Calculation,
		Keylog:      result.Keylog,
		Encoded:     result.Keylog.String(),
	})
}

// ValidateResponse is the JSON body for POST /validate.
type ValidateResponse struct {
	Valid bool               `json:"valid"`
	Rule  *CompatibilityRule `json:"rule,omitempty"`
	Code  string             `json:"code,omitempty"`
	Error string             `json:"error,omitempty"`
}

// ValidateRequest handles POST /validate — runs only the combination
// validator and reports the matched rule or the typed rejection.
func (h *Handler) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "geometry.validate_request")
	defer span.End()

	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "validate", "invalid_request", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	rule, err := NewPipeline(h.source).Validate(ctx, req)
	if err != nil {
		span.SetStatus(codes.Ok, "") // a rejection is a valid answer here
		handlers.WriteJSON(w, http.StatusOK, ValidateResponse{
			Valid: false,
			Code:  ErrorCode(err),
			Error: err.Error(),
		})
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, ValidateResponse{Valid: true, Rule: &rule})
}

// shapeSchema describes one shape kind's parameter layout for GET /shapes.
type shapeSchema struct {
	Kind       ShapeKind `json:"kind"`
	Dimensions []int     `json:"dimensions"`
	Parameters string    `json:"parameters"`
}

var shapeSchemas = []shapeSchema{
	{Kind: KindPoint, Dimensions: []int{2, 3}, Parameters: "coordinates (dimension values)"},
	{Kind: KindLine, Dimensions: []int{2, 3}, Parameters: "point then direction vector (2 x dimension values)"},
	{Kind: KindPlane, Dimensions: []int{3}, Parameters: "coefficients a, b, c, d of ax+by+cz+d=0"},
	{Kind: KindCircle, Dimensions: []int{2}, Parameters: "center x, y then radius > 0"},
	{Kind: KindSphere, Dimensions: []int{3}, Parameters: "center x, y, z then radius > 0"},
}

// Shapes handles GET /shapes.
func (h *Handler) Shapes(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"shapes":     shapeSchemas,
		"operations": Operations,
	})
}

// CompatibleShapes handles GET /operations/{operation}/shapes.
func (h *Handler) CompatibleShapes(w http.ResponseWriter, r *http.Request) {
	op := Operation(chi.URLParam(r, "operation"))
	if !op.Known() {
		handlers.WriteError(w, http.StatusNotFound, "unknown operation")
		return
	}

	pairs := h.source.Snapshot().Compatibility.CompatibleKinds(op)
	type pairing struct {
		ShapeA ShapeKind `json:"shape_a"`
		ShapeB ShapeKind `json:"shape_b,omitempty"`
	}
	out := make([]pairing, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairing{ShapeA: p[0], ShapeB: p[1]})
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"operation": op,
		"binary":    op.Binary(),
		"pairings":  out,
	})
}

// Examples handles GET /examples — ready-to-send request bodies.
func (h *Handler) Examples(w http.ResponseWriter, r *http.Request) {
	model := h.source.DefaultModel()
	examples := []OperationRequest{
		{
			Operation:       OpDistance,
			ShapeA:          ShapeDescriptor{Kind: KindPoint, Dimension: 3, Parameters: []float64{1, 2, 3}},
			ShapeB:          &ShapeDescriptor{Kind: KindPoint, Dimension: 3, Parameters: []float64{4, 5, 6}},
			CalculatorModel: model,
		},
		{
			Operation:       OpArea,
			ShapeA:          ShapeDescriptor{Kind: KindCircle, Dimension: 2, Parameters: []float64{0, 0, 5}},
			CalculatorModel: model,
		},
		{
			Operation:       OpVolume,
			ShapeA:          ShapeDescriptor{Kind: KindSphere, Dimension: 3, Parameters: []float64{0, 0, 0, 3}},
			CalculatorModel: model,
		},
		{
			Operation:       OpIntersection,
			ShapeA:          ShapeDescriptor{Kind: KindLine, Dimension: 3, Parameters: []float64{1, 2, 3, 1, 0, 1}},
			ShapeB:          &ShapeDescriptor{Kind: KindLine, Dimension: 3, Parameters: []float64{0, 1, 2, 0, 1, 0}},
			CalculatorModel: model,
		},
		{
			Operation:       OpLineEquation,
			ShapeA:          ShapeDescriptor{Kind: KindLine, Dimension: 2, Parameters: []float64{1, 2, 2, 1}},
			CalculatorModel: model,
		},
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"examples": examples})
}

// Models handles GET /models.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"models":  h.source.Snapshot().Instructions.ModelIDs(),
		"default": h.source.DefaultModel(),
	})
}

// Health handles GET /health for the geometry service: reports the size of
// the table snapshot currently in effect.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	tables := h.source.Snapshot()
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"rules":         len(tables.Compatibility.Rules),
		"models":        tables.Instructions.ModelIDs(),
		"default_model": h.source.DefaultModel(),
	})
}

// statusFor maps a pipeline error code to an HTTP status. Everything the
// caller can fix is 422; only unknown errors are 500.
func statusFor(code string) int {
	switch code {
	case "invalid_shape", "unsupported_combination", "degenerate_geometry", "missing_encoding_rule":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
