// Package http contains the chi HTTP handlers: series catalog, table data in
// JSON/CSV/XLSX, and the health probe.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "macropulse/internal/errors"
	"macropulse/internal/exporter"
	"macropulse/internal/pipeline"
	"macropulse/internal/services"
	v1 "macropulse/pkg/contracts/api/v1"
)

// DataHandler serves the pipeline over HTTP.
type DataHandler struct {
	service      DataServiceInterface
	defaultStart string
	logger       *slog.Logger
	validate     *validator.Validate
}

// NewDataHandler creates the handler. defaultStart is the ISO date used when
// a request omits its start parameter.
func NewDataHandler(service DataServiceInterface, defaultStart string, logger *slog.Logger) *DataHandler {
	return &DataHandler{
		service:      service,
		defaultStart: defaultStart,
		logger:       logger.With(slog.String("component", "data_handler")),
		validate:     validator.New(),
	}
}

// Routes returns the data routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/series", h.GetCatalog)
	r.Route("/data", func(r chi.Router) {
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.GetData)
		r.Get("/csv", h.GetCSV)
		r.Get("/xlsx", h.GetXLSX)
	})
	return r
}

// GetCatalog returns the configured series selection.
func (h *DataHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	specs := h.service.Catalog()
	resp := v1.CatalogResponse{Series: make([]v1.SeriesInfo, len(specs))}
	for i, spec := range specs {
		resp.Series[i] = v1.SeriesInfo{
			Label:     spec.Label,
			SourceID:  spec.SourceID,
			Lag:       spec.Lag,
			Frequency: spec.Frequency,
		}
	}
	render.JSON(w, r, resp)
}

// dataParams is the validated query parameter set shared by the JSON, CSV,
// and XLSX endpoints.
type dataParams struct {
	Series    []string `validate:"required,min=1,dive,required"`
	Start     string   `validate:"required,datetime=2006-01-02"`
	End       string   `validate:"required,datetime=2006-01-02"`
	PctChange bool
	Normalize bool
	Tail      int `validate:"min=0"`
}

// parseParams reads and validates query parameters, applying the default
// range (configured start date through today) where the request is silent.
func (h *DataHandler) parseParams(r *http.Request) (services.TableRequest, *apierrors.APIError) {
	q := r.URL.Query()

	params := dataParams{
		Start: q.Get("start"),
		End:   q.Get("end"),
	}
	for _, raw := range q["series"] {
		for _, label := range strings.Split(raw, ",") {
			if label = strings.TrimSpace(label); label != "" {
				params.Series = append(params.Series, label)
			}
		}
	}
	if params.Start == "" {
		params.Start = h.defaultStart
	}
	if params.End == "" {
		params.End = time.Now().UTC().Format(pipeline.DateLayout)
	}

	if v := q.Get("pct_change"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return services.TableRequest{}, apierrors.ErrValidation("pct_change", "must be a boolean")
		}
		params.PctChange = b
	}
	if v := q.Get("normalize"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return services.TableRequest{}, apierrors.ErrValidation("normalize", "must be a boolean")
		}
		params.Normalize = b
	}
	if v := q.Get("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return services.TableRequest{}, apierrors.ErrValidation("tail", "must be a non-negative integer")
		}
		params.Tail = n
	}

	if err := h.validate.Struct(params); err != nil {
		return services.TableRequest{}, apierrors.NewWithDetails(http.StatusBadRequest,
			"VALIDATION_FAILED", "Request validation failed", err.Error())
	}

	start, _ := time.Parse(pipeline.DateLayout, params.Start)
	end, _ := time.Parse(pipeline.DateLayout, params.End)
	return services.TableRequest{
		Labels:    params.Series,
		Start:     start,
		End:       end,
		PctChange: params.PctChange,
		Normalize: params.Normalize,
		Tail:      params.Tail,
	}, nil
}

func (h *DataHandler) runPipeline(w http.ResponseWriter, r *http.Request) (*services.Result, services.TableRequest, bool) {
	req, apiErr := h.parseParams(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return nil, req, false
	}
	result, err := h.service.GetTable(r.Context(), req)
	if err != nil {
		h.renderError(w, r, apierrors.FromDomain(err))
		return nil, req, false
	}
	return result, req, true
}

// GetData returns the aligned table as JSON, warnings included.
func (h *DataHandler) GetData(w http.ResponseWriter, r *http.Request) {
	result, req, ok := h.runPipeline(w, r)
	if !ok {
		return
	}

	table := result.Table
	resp := v1.DataResponse{
		Columns:    make([]string, len(table.Columns)),
		Rows:       make([]v1.Row, table.NumRows()),
		Warnings:   make([]v1.Warning, len(result.Warnings)),
		Normalized: req.Normalize,
	}
	for i, col := range table.Columns {
		resp.Columns[i] = col.Name
	}
	for i := range table.Dates {
		row := v1.Row{
			Date:   table.Dates[i].Format(pipeline.DateLayout),
			Values: make([]*float64, len(table.Columns)),
		}
		for ci, col := range table.Columns {
			row.Values[ci] = col.Values[i]
		}
		resp.Rows[i] = row
	}
	for i, warning := range result.Warnings {
		resp.Warnings[i] = v1.Warning{
			Label:    warning.Label,
			SourceID: warning.SourceID,
			Cause:    warning.Err.Error(),
		}
	}
	for _, d := range result.Degenerate {
		resp.Degenerate = append(resp.Degenerate, d.Column)
	}
	render.JSON(w, r, resp)
}

// GetCSV returns the aligned table as a CSV download.
func (h *DataHandler) GetCSV(w http.ResponseWriter, r *http.Request) {
	result, _, ok := h.runPipeline(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "macropulse.csv"))
	if err := exporter.WriteCSV(w, result.Table); err != nil {
		h.logger.ErrorContext(r.Context(), "CSV export failed",
			slog.String("error", err.Error()))
	}
}

// GetXLSX returns the aligned table as an Excel download.
func (h *DataHandler) GetXLSX(w http.ResponseWriter, r *http.Request) {
	result, _, ok := h.runPipeline(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "macropulse.xlsx"))
	if err := exporter.WriteXLSX(w, result.Table); err != nil {
		h.logger.ErrorContext(r.Context(), "XLSX export failed",
			slog.String("error", err.Error()))
	}
}

func (h *DataHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	h.logger.WarnContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", apiErr.StatusCode),
		slog.String("error_code", apiErr.ErrorCode),
		slog.String("message", apiErr.Message))
	render.Status(r, apiErr.StatusCode)
	render.JSON(w, r, apiErr)
}
