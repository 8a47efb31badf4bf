package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "almanac/internal/errors"
	"almanac/internal/marketdata"
)

// SymbolsHandler lists the instruments available in the data directory
type SymbolsHandler struct {
	dataDir string
	logger  *slog.Logger
}

// NewSymbolsHandler creates a new symbols handler
func NewSymbolsHandler(dataDir string, logger *slog.Logger) *SymbolsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SymbolsHandler{dataDir: dataDir, logger: logger}
}

// RegisterRoutes registers the symbol discovery routes
func (h *SymbolsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/symbols", h.ListSymbols)
}

// ListSymbols returns the symbols discovered in the data directory
func (h *SymbolsHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := marketdata.DiscoverSymbols(h.dataDir)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "symbol discovery failed",
			"dir", h.dataDir,
			"error", err,
		)
		apierrors.WriteError(w, apierrors.QueryExecutionError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"symbols": symbols,
		"count":   len(symbols),
	})
}
