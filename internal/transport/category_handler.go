package transport

import (
	"net/http"

	"product-catalog/internal/domain"
	"product-catalog/internal/logger"
	"product-catalog/internal/middleware"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryRequest represents the category create/replace payload
type CategoryRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Slug        string     `json:"slug" validate:"omitempty,max=255"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

func (req CategoryRequest) draft() domain.CategoryDraft {
	return domain.CategoryDraft{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ParentID:    req.ParentID,
	}
}

// DescendantsResponse lists every category below a category
type DescendantsResponse struct {
	CategoryID  uuid.UUID   `json:"category_id"`
	Descendants []uuid.UUID `json:"descendants"`
}

// CategoryHandler handles HTTP requests for the category tree
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/tree", h.Tree)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/descendants", h.Descendants)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles category creation
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	category, err := h.categoryService.Create(r.Context(), req.draft())
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	log.Info("Category created", zap.String("category_id", category.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// List returns all categories, or the children of ?parent_id=, or the roots with ?roots=true
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)
	q := r.URL.Query()

	parentID, err := optionalUUID(q, "parent_id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	roots, err := optionalBool(q, "roots")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	categories, err := h.categoryService.List(r.Context(), parentID, roots != nil && *roots)
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(categories))
}

// Tree returns the whole category forest
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categoryService.Tree(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, logger.FromContext(r.Context(), h.logger), err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(tree))
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	category, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Descendants(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	ids, err := h.categoryService.Descendants(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, DescendantsResponse{CategoryID: id, Descendants: nonNil(ids)})
}

// Update replaces a category's fields
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	category, err := h.categoryService.Update(r.Context(), id, req.draft())
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	log.Info("Category deleted", zap.String("category_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
