package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"product-store/internal/logger"
	"product-store/internal/model"
	"product-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

type ProductHandler struct {
	service  *service.ProductService
	validate *validator.Validate
}

var HttpProductHandlerTracer = otel.Tracer("HttpProductHandler")

func NewProductHandler(service *service.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := HttpProductHandlerTracer.Start(r.Context(), "HttpProductHandler.Create")
	defer span.End()
	logger.Info(ctx, "HttpProductHandler.Create")

	var in model.ProductIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !h.valid(w, r, in) {
		return
	}

	created, err := h.service.Create(ctx, in)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, created)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, span := HttpProductHandlerTracer.Start(r.Context(), "HttpProductHandler.Get")
	defer span.End()
	logger.Info(ctx, "HttpProductHandler.Get")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	product, err := h.service.Get(ctx, id)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, product)
}

// Query serves GET /products?price_min=&price_max=. Bounds use the external price unit.
func (h *ProductHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx, span := HttpProductHandlerTracer.Start(r.Context(), "HttpProductHandler.Query")
	defer span.End()
	logger.Info(ctx, "HttpProductHandler.Query")

	priceMin, err := queryFloat(r, "price_min")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	priceMax, err := queryFloat(r, "price_max")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	seq, err := h.service.Query(ctx, priceMin, priceMax)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}
	products, err := service.Collect(seq)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	logger.Info(ctx, "Queried products", slog.Int("count", len(products)))
	respondJSON(ctx, w, http.StatusOK, products)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, span := HttpProductHandlerTracer.Start(r.Context(), "HttpProductHandler.Update")
	defer span.End()
	logger.Info(ctx, "HttpProductHandler.Update")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var in model.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !h.valid(w, r, in) {
		return
	}

	updated, err := h.service.Update(ctx, id, in)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, updated)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := HttpProductHandlerTracer.Start(r.Context(), "HttpProductHandler.Delete")
	defer span.End()
	logger.Info(ctx, "HttpProductHandler.Delete")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(ctx, id)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}
	if !deleted {
		logger.Warn(ctx, "Delete removed nothing", slog.String("id", id.String()))
		respondError(ctx, w, http.StatusNotFound, fmt.Sprintf("Product not found with filter: %s", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// valid writes a 422 listing the failing fields when v does not pass validation.
func (h *ProductHandler) valid(w http.ResponseWriter, r *http.Request, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(r.Context(), w, http.StatusBadRequest, err.Error())
		return false
	}

	details := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
			"param": fe.Param(),
		})
	}
	respondError(r.Context(), w, http.StatusUnprocessableEntity, details)
	return false
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, fmt.Sprintf("Invalid ID: %s", raw))
		return uuid.Nil, false
	}
	return id, true
}

func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}
