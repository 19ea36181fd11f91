package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/internal/repository"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

// ProductService is the product workflow surface used by the handler.
type ProductService interface {
	Create(ctx context.Context, req dto.ProductCreateRequest) (*dto.ProductResponse, error)
	List(ctx context.Context, query repository.PageQuery) (*dto.ProductPagedResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error)
	Update(ctx context.Context, id int64, cmd domain.UpdateCommand) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id int64) error
}

// ProductsHandler exposes product endpoints.
type ProductsHandler struct {
	service ProductService
}

// NewProductsHandler returns a new handler.
func NewProductsHandler(service ProductService) *ProductsHandler {
	return &ProductsHandler{service: service}
}

// Create handles POST /products.
func (h *ProductsHandler) Create(c *fiber.Ctx) error {
	var req dto.ProductCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.Wrap(errorutil.InvalidProductData, err, malformedBody(err))
	}
	resp, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List handles GET /products.
func (h *ProductsHandler) List(c *fiber.Ctx) error {
	req := dto.PageRequest{
		Page:          0,
		Size:          repository.DefaultPageSize,
		SortDirection: string(repository.SortAsc),
	}
	if err := c.QueryParser(&req); err != nil {
		return errorutil.Wrap(errorutil.ValidationError, err, "invalid paging parameters")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	query := repository.NewPageQuery(req.Page, req.Size, req.SortBy, req.SortDirection)
	resp, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Get handles GET /products/:id.
func (h *ProductsHandler) Get(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	resp, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Update handles PATCH /products/:id.
func (h *ProductsHandler) Update(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	var req dto.ProductUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.Wrap(errorutil.InvalidProductData, err, malformedBody(err))
	}
	if err := req.Validate(); err != nil {
		return err
	}

	resp, err := h.service.Update(c.UserContext(), id, req.Command)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Delete handles DELETE /products/:id.
func (h *ProductsHandler) Delete(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func productID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errorutil.New(errorutil.ValidationError, "id: must be a positive integer, got "+strconv.Quote(raw))
	}
	return id, nil
}

// malformedBody describes a body that could not be decoded.
func malformedBody(err error) string {
	if errors.Is(err, fiber.ErrUnprocessableEntity) {
		return "request body must be application/json"
	}
	return "malformed JSON request: " + err.Error()
}
