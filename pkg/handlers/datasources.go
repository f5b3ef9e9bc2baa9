package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/auth"
	"github.com/appforge-io/appforge-engine/pkg/models"
	"github.com/appforge-io/appforge-engine/pkg/services"
)

// DatasourceResponse is the public projection of a data source record.
type DatasourceResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type"`
	Config      map[string]any `json:"config"`
	TestQuery   string         `json:"test_query,omitempty"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// ListDatasourcesResponse wraps the list for frontend compatibility.
type ListDatasourcesResponse struct {
	Datasources []DatasourceResponse `json:"datasources"`
}

// CreateDatasourceRequest for POST body. IsActive defaults to true.
type CreateDatasourceRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Config      map[string]any `json:"config"`
	TestQuery   string         `json:"test_query"`
	IsActive    *bool          `json:"is_active"`
}

// UpdateDatasourceRequest for PUT body. Omitted fields are unchanged;
// a non-null config replaces the stored connection config wholesale.
type UpdateDatasourceRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Config      map[string]any `json:"config"`
	TestQuery   *string        `json:"test_query"`
	IsActive    *bool          `json:"is_active"`
}

// ApiResponse wraps data in the format expected by the frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// DatasourcesHandler handles data source HTTP requests.
type DatasourcesHandler struct {
	datasourceService services.DatasourceService
	logger            *zap.Logger
}

// NewDatasourcesHandler creates a new datasources handler.
func NewDatasourcesHandler(datasourceService services.DatasourceService, logger *zap.Logger) *DatasourcesHandler {
	return &DatasourcesHandler{
		datasourceService: datasourceService,
		logger:            logger,
	}
}

// RegisterRoutes registers the datasources handler's routes on the given mux.
func (h *DatasourcesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/data-sources", authMiddleware.RequireOwner(h.Create))
	mux.HandleFunc("GET /api/data-sources", authMiddleware.RequireOwner(h.List))
	mux.HandleFunc("GET /api/data-sources/{id}", authMiddleware.RequireOwner(h.Get))
	mux.HandleFunc("PUT /api/data-sources/{id}", authMiddleware.RequireOwner(h.Update))
	mux.HandleFunc("DELETE /api/data-sources/{id}", authMiddleware.RequireOwner(h.Delete))
	mux.HandleFunc("POST /api/data-sources/{id}/test", authMiddleware.RequireOwner(h.TestConnection))
	mux.HandleFunc("POST /api/data-sources/{id}/query", authMiddleware.RequireOwner(h.Query))
	mux.HandleFunc("GET /api/data-sources/{id}/schema", authMiddleware.RequireOwner(h.GetSchema))
	mux.HandleFunc("GET /api/data-source-types", authMiddleware.RequireOwner(h.ListTypes))
}

// Create handles POST /api/data-sources. The response carries the
// secret-redacted projection; secrets are only returned by Get.
func (h *DatasourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetOwnerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreateDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	ds := &models.DataSource{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Config:      req.Config,
		TestQuery:   req.TestQuery,
		IsActive:    isActive,
	}

	if err := h.datasourceService.Create(r.Context(), ds); err != nil {
		h.writeServiceError(w, err, "Failed to create data source")
		return
	}

	response := ApiResponse{Success: true, Data: h.projection(ds, true)}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/data-sources. Configs are secret-redacted.
func (h *DatasourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.GetOwnerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	records, err := h.datasourceService.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list data sources",
			zap.String("owner_id", ownerID.String()),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list data sources")
		return
	}

	data := ListDatasourcesResponse{
		Datasources: make([]DatasourceResponse, len(records)),
	}
	for i, ds := range records {
		data.Datasources[i] = h.projection(ds, true)
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/data-sources/{id}. The owner receives the full
// connection config, secrets included.
func (h *DatasourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	ds, err := h.datasourceService.Get(r.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get data source")
		return
	}

	response := ApiResponse{Success: true, Data: h.projection(ds, false)}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/data-sources/{id}.
func (h *DatasourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	var req UpdateDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	ds, err := h.datasourceService.Update(r.Context(), ownerID, id, &services.DatasourceUpdate{
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		TestQuery:   req.TestQuery,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.writeServiceError(w, err, "Failed to update data source")
		return
	}

	response := ApiResponse{Success: true, Data: h.projection(ds, true)}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/data-sources/{id}.
func (h *DatasourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	if err := h.datasourceService.Delete(r.Context(), ownerID, id); err != nil {
		h.writeServiceError(w, err, "Failed to delete data source")
		return
	}

	response := ApiResponse{Success: true, Message: "Data source deleted"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// TestConnection handles POST /api/data-sources/{id}/test. Works on
// inactive sources so owners can verify credentials before activating.
func (h *DatasourcesHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	result, err := h.datasourceService.Test(r.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to test data source")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Query handles POST /api/data-sources/{id}/query. Backend failures
// come back as 200 with a success:false result body; only record-level
// problems produce error statuses.
func (h *DatasourcesHandler) Query(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.datasourceService.Query(r.Context(), ownerID, id, &req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to query data source")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetSchema handles GET /api/data-sources/{id}/schema.
func (h *DatasourcesHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	result, err := h.datasourceService.GetSchema(r.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get data source schema")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListTypes handles GET /api/data-source-types.
func (h *DatasourcesHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	response := ApiResponse{Success: true, Data: h.datasourceService.ListTypes()}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ownerAndID extracts the owner identity and the {id} path parameter,
// writing the error response itself when either is missing.
func (h *DatasourcesHandler) ownerAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := auth.GetOwnerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "Invalid data source ID format")
		return uuid.Nil, uuid.Nil, false
	}

	return ownerID, id, true
}

// projection builds the response shape. redactSecrets controls whether
// password/token values are masked.
func (h *DatasourcesHandler) projection(ds *models.DataSource, redactSecrets bool) DatasourceResponse {
	config := ds.Config
	if redactSecrets {
		config = ds.RedactedConfig()
	}
	return DatasourceResponse{
		ID:          ds.ID.String(),
		Name:        ds.Name,
		Description: ds.Description,
		Type:        ds.Type,
		Config:      config,
		TestQuery:   ds.TestQuery,
		IsActive:    ds.IsActive,
		CreatedAt:   ds.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   ds.UpdatedAt.Format(time.RFC3339),
	}
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *DatasourcesHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		h.writeError(w, http.StatusBadRequest, "invalid_config", ve.Error())
	case errors.Is(err, apperrors.ErrUnsupportedType):
		h.writeError(w, http.StatusBadRequest, "unsupported_type", "Unsupported data source type")
	case errors.Is(err, apperrors.ErrInactiveSource):
		h.writeError(w, http.StatusBadRequest, "inactive_source", "Data source is inactive")
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "Data source not found")
	case errors.Is(err, apperrors.ErrConflict):
		h.writeError(w, http.StatusConflict, "duplicate_name", "A data source with this name already exists")
	default:
		h.logger.Error(fallback, zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func (h *DatasourcesHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
