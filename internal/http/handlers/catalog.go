package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/booking-engine/internal/catalog"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// CatalogHandler serves the per-clinic effective catalog and lets operators
// manage overrides.
type CatalogHandler struct {
	store    *catalog.Store
	resolver *catalog.Resolver
	logger   *logging.Logger
}

// NewCatalogHandler creates the handler.
func NewCatalogHandler(store *catalog.Store, resolver *catalog.Resolver, logger *logging.Logger) *CatalogHandler {
	if resolver == nil {
		resolver = catalog.NewResolver()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{store: store, resolver: resolver, logger: logger}
}

// GetCatalog returns the merged catalog (defaults plus clinic overrides).
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	clinicID := strings.TrimSpace(chi.URLParam(r, "clinicID"))
	if clinicID == "" {
		writeError(w, http.StatusBadRequest, "clinic id required")
		return
	}
	override, err := h.store.Get(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("catalog fetch failed", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	writeJSON(w, http.StatusOK, h.resolver.Merged(override))
}

// PutCatalog replaces the clinic's override map.
func (h *CatalogHandler) PutCatalog(w http.ResponseWriter, r *http.Request) {
	clinicID := strings.TrimSpace(chi.URLParam(r, "clinicID"))
	if clinicID == "" {
		writeError(w, http.StatusBadRequest, "clinic id required")
		return
	}
	var override map[string]catalog.Entry
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.store.Set(r.Context(), clinicID, override); err != nil {
		h.logger.Error("catalog save failed", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "failed to save catalog")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
