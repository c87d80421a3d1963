package geometry

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/singed2905/api/internal/handlers"
	"github.com/singed2905/api/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// batchColumns is the required CSV header, in order. parameters_a and
// parameters_b hold semicolon-separated numbers; kind_b/dimension_b/
// parameters_b stay empty for unary operations, calculator_model empty means
// the configured default.
var batchColumns = []string{
	"operation",
	"kind_a", "dimension_a", "parameters_a",
	"kind_b", "dimension_b", "parameters_b",
	"calculator_model",
}

// BatchRowResult is the outcome of one CSV row.
type BatchRowResult struct {
	Row       int               `json:"row"`
	Ok        bool              `json:"ok"`
	Operation Operation         `json:"operation,omitempty"`
	FormulaID string            `json:"formula_id,omitempty"`
	Values    map[string]float64 `json:"values,omitempty"`
	Encoded   string            `json:"encoded,omitempty"`
	Code      string            `json:"code,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Batch handles POST /batch — a CSV body, one pipeline run per row. Row
// failures are reported per row; they never abort the batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "geometry.batch",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()

	requests, err := ParseBatchCSV(r.Body)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "batch", "invalid_request", "invalid CSV body", err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("geometry.batch.rows", len(requests)))

	start := time.Now()
	results := make([]BatchRowResult, 0, len(requests))
	succeeded := 0

	for i, req := range requests {
		if req.CalculatorModel == "" {
			req.CalculatorModel = h.source.DefaultModel()
		}

		out, runErr := NewPipeline(h.source).Run(ctx, req)
		if runErr != nil {
			results = append(results, BatchRowResult{
				Row:       i + 1,
				Operation: req.Operation,
				Code:      ErrorCode(runErr),
				Error:     runErr.Error(),
			})
			errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", string(req.Operation))))
			continue
		}

		succeeded++
		opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", string(req.Operation))))
		results = append(results, BatchRowResult{
			Row:       i + 1,
			Ok:        true,
			Operation: req.Operation,
			FormulaID: out.Rule.FormulaID,
			Values:    out.Calculation.Values,
			Encoded:   out.Keylog.String(),
		})
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	span.AddEvent("batch.complete", trace.WithAttributes(
		attribute.Int("succeeded", succeeded),
		attribute.Int("failed", len(results)-succeeded),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("batch calculation completed",
		zap.Int("rows", len(results)),
		zap.Int("succeeded", succeeded),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"rows":      len(results),
		"succeeded": succeeded,
		"results":   results,
	})
}

// ParseBatchCSV reads a batch CSV into one OperationRequest per data row.
// A malformed header or row is an error for the whole parse; semantic
// problems (bad kinds, bad dimensions) surface later, per row, in the
// pipeline.
func ParseBatchCSV(src io.Reader) ([]OperationRequest, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	if len(header) != len(batchColumns) {
		return nil, fmt.Errorf("expected %d columns %v, got %d", len(batchColumns), batchColumns, len(header))
	}
	for i, col := range batchColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return nil, fmt.Errorf("column %d must be %q, got %q", i+1, col, header[i])
		}
	}

	var requests []OperationRequest
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		req, err := batchRowRequest(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		requests = append(requests, req)
	}

	return requests, nil
}

func batchRowRequest(record []string) (OperationRequest, error) {
	shapeA, err := parseBatchShape(record[1], record[2], record[3])
	if err != nil {
		return OperationRequest{}, fmt.Errorf("shape_a: %w", err)
	}

	req := OperationRequest{
		Operation:       Operation(strings.TrimSpace(record[0])),
		ShapeA:          shapeA,
		CalculatorModel: strings.TrimSpace(record[7]),
	}

	if strings.TrimSpace(record[4]) != "" {
		shapeB, err := parseBatchShape(record[4], record[5], record[6])
		if err != nil {
			return OperationRequest{}, fmt.Errorf("shape_b: %w", err)
		}
		req.ShapeB = &shapeB
	}

	return req, nil
}

func parseBatchShape(kind, dimension, parameters string) (ShapeDescriptor, error) {
	dim, err := strconv.Atoi(strings.TrimSpace(dimension))
	if err != nil {
		return ShapeDescriptor{}, fmt.Errorf("bad dimension %q", dimension)
	}

	var params []float64
	for _, field := range strings.Split(parameters, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return ShapeDescriptor{}, fmt.Errorf("bad parameter %q", field)
		}
		params = append(params, v)
	}

	return ShapeDescriptor{
		Kind:       ShapeKind(strings.TrimSpace(strings.ToLower(kind))),
		Dimension:  dim,
		Parameters: params,
	}, nil
}
