package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "almanac/internal/errors"
	"almanac/internal/services"
	"almanac/pkg/contracts/domain"
)

// StatsHandler handles conditional statistics query requests
type StatsHandler struct {
	service  *services.QueryService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service *services.QueryService, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the stats routes
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Post("/query", h.Query)
	})
}

// Query runs one statistics query. Data-quality conditions inside the
// engine narrow the result; only malformed requests and bar source
// failures produce error responses.
func (h *StatsHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.StatsQueryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.logger.WarnContext(ctx, "malformed query request",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(validationError(err)))
		return
	}

	resp, err := h.service.Run(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "statistics query failed",
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.QueryExecutionError(err)))
		return
	}

	render.JSON(w, r, resp)
}

// validationError converts validator failures to the API error shape
func validationError(err error) *apierrors.APIError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fe.Tag(),
		})
	}
	return apierrors.NewValidationErrors(fields)
}
