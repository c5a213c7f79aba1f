package transport

import (
	"net/http"
	"strconv"

	"product-catalog/internal/domain"
	"product-catalog/internal/logger"
	"product-catalog/internal/middleware"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	limits         PageLimits
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, limits PageLimits, logger *zap.Logger) *ProductHandler {
	if limits.Default <= 0 {
		limits.Default = domain.DefaultPageSize
	}
	if limits.Max <= 0 {
		limits.Max = domain.MaxPageSize
	}
	return &ProductHandler{
		productService: productService,
		limits:         limits,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.Search)
		r.Get("/slug/{slug}", h.GetBySlug)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		log.Debug("Product create validation failed", zap.Error(err))
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	product, err := h.productService.Create(r.Context(), req.draft())
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	log.Info("Product created",
		zap.String("product_id", product.ID().String()),
		zap.String("slug", product.Slug().String()),
	)
	w.Header().Set("ETag", etag(product.Version()))
	w.Header().Set("Location", "/api/products/"+product.ID().String())
	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(product))
}

// Search handles filtered, sorted and paginated product listing
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	query, err := parseSearchQuery(r.URL.Query(), h.limits)
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	products, total, err := h.productService.Search(r.Context(), query.Params, query.Page, query.Sort)
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	items := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Items:  items,
		Total:  total,
		Offset: query.Page.Offset,
		Limit:  query.Page.Limit,
	})
}

// Get returns a single product by id
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	w.Header().Set("ETag", etag(product.Version()))
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// GetBySlug returns a single product by its slug
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	product, err := h.productService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	w.Header().Set("ETag", etag(product.Version()))
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Update applies a partial update. An If-Match header turns it into a
// conditional update against that version.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}
	expected, err := parseIfMatch(r.Header.Get("If-Match"))
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		log.Debug("Product update validation failed", zap.Error(err))
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	product, err := h.productService.UpdatePartial(r.Context(), id, req.partialUpdate(expected))
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	w.Header().Set("ETag", etag(product.Version()))
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete removes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)

	id, err := pathID(r, "id")
	if err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, log, err)
		return
	}

	log.Info("Product deleted", zap.String("product_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses a UUID route parameter
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a valid UUID", raw)
	}
	return id, nil
}
