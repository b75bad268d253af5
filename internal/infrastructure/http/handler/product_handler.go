package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/supermercado/products-api/internal/app/dto"
	"github.com/supermercado/products-api/internal/app/service"
	"github.com/supermercado/products-api/internal/domain"
	"github.com/supermercado/products-api/internal/infrastructure/http/response"
)

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListProducts handles GET /productos
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// GetProductByCode handles GET /productos/codigo/{codigo}
func (h *ProductHandler) GetProductByCode(w http.ResponseWriter, r *http.Request) {
	code, ok := h.parseCode(w, r)
	if !ok {
		return
	}

	product, err := h.service.GetProductByCode(r.Context(), code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// GetProductByName handles GET /productos/nombre/{nombre}
func (h *ProductHandler) GetProductByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "nombre"))
	if name == "" {
		response.Error(w, http.StatusBadRequest, "invalid product name")
		return
	}

	product, err := h.service.GetProductByName(r.Context(), name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// GetProductsByCategory handles GET /productos/categoria/{categoria}
func (h *ProductHandler) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(chi.URLParam(r, "categoria"))
	if category == "" {
		response.Error(w, http.StatusBadRequest, "invalid product category")
		return
	}

	products, err := h.service.GetProductsByCategory(r.Context(), category)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			response.Error(w, http.StatusNotFound, "no products found in this category")
			return
		}
		h.respondError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// CreateProduct handles POST /productos
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), payload)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, product)
}

// UpdateProductByCode handles PUT /productos/codigo/{codigo}
func (h *ProductHandler) UpdateProductByCode(w http.ResponseWriter, r *http.Request) {
	code, ok := h.parseCode(w, r)
	if !ok {
		return
	}

	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}

	product, err := h.service.UpdateProductByCode(r.Context(), code, payload)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// DeleteProductByCode handles DELETE /productos/codigo/{codigo}
func (h *ProductHandler) DeleteProductByCode(w http.ResponseWriter, r *http.Request) {
	code, ok := h.parseCode(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProductByCode(r.Context(), code); err != nil {
		h.respondError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, dto.DeleteResponse{
		Message: "product deleted",
		Code:    code,
	})
}

// parseCode reads the codigo path parameter as an integer. A non-integer
// value answers 400 before any storage call.
func (h *ProductHandler) parseCode(w http.ResponseWriter, r *http.Request) (int, bool) {
	code, err := strconv.Atoi(chi.URLParam(r, "codigo"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid product code")
		return 0, false
	}
	return code, true
}

func (h *ProductHandler) decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return payload, true
}

// respondError maps service errors onto the status contract: validation
// errors are 400 with a field-naming message, unknown keys are 404, and
// anything else is a generic 500 with the detail kept in the logs.
func (h *ProductHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNoUpdateFields):
		response.Error(w, http.StatusBadRequest, "no fields to update")
	case errors.Is(err, domain.ErrProductNotFound):
		response.Error(w, http.StatusNotFound, "product not found")
	default:
		h.logger.ErrorContext(r.Context(), "Storage failure",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
