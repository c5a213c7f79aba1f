package transport

import (
	"net/http"

	"product-catalog/internal/domain"
	"product-catalog/internal/logger"
	"product-catalog/internal/middleware"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BrandRequest represents the brand create/replace payload
type BrandRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"omitempty,max=255"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
}

func (req BrandRequest) draft() domain.BrandDraft {
	return domain.BrandDraft{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		LogoURL:     req.LogoURL,
	}
}

// BrandHandler handles HTTP requests for brand operations
type BrandHandler struct {
	brandService service.BrandService
	logger       *zap.Logger
}

// NewBrandHandler creates a new BrandHandler
func NewBrandHandler(brandService service.BrandService, logger *zap.Logger) *BrandHandler {
	return &BrandHandler{
		brandService: brandService,
		logger:       logger,
	}
}

// RegisterRoutes registers all brand routes
func (h *BrandHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/brands", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *BrandHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	var req BrandRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	brand, err := h.brandService.Create(r.Context(), req.draft())
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	log.Info("Brand created", zap.String("brand_id", brand.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, brand)
}

func (h *BrandHandler) List(w http.ResponseWriter, r *http.Request) {
	brands, err := h.brandService.List(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, logger.FromContext(r.Context(), h.logger), err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(brands))
}

func (h *BrandHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	brand, err := h.brandService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, brand)
}

func (h *BrandHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	var req BrandRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	brand, err := h.brandService.Update(r.Context(), id, req.draft())
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, brand)
}

// Delete removes a brand; products referencing it keep existing without a brand
func (h *BrandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	if err := h.brandService.Delete(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	log.Info("Brand deleted", zap.String("brand_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
