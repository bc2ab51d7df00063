package handler

import (
	"strconv"
	"strings"

	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	service service.InventoryService
	stock   service.StockService
}

func NewInventoryHandler(s service.InventoryService, stock service.StockService) *InventoryHandler {
	return &InventoryHandler{service: s, stock: stock}
}

func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), pathParam(c, "name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.service.CreateProduct(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// UpdateProduct edits a product and, when quantity is present, sets its
// stock level through the atomic mutation path. The response carries the
// refreshed product list for table views.
func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	result, err := h.service.UpdateProduct(c.UserContext(), pathParam(c, "name"), &req)
	if err != nil {
		return respondError(c, err)
	}

	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "Product updated",
		"data":        result.Product,
		"transaction": result.Transaction,
		"products":    products,
	})
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if err := h.service.DeleteProduct(c.UserContext(), name); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *InventoryHandler) GetProductTransactions(c *fiber.Ctx) error {
	transactions, err := h.stock.History(c.UserContext(), service.ProductRef{Name: pathParam(c, "name")})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transactions)
}

type sellRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (h *InventoryHandler) Sell(c *fiber.Ctx) error {
	var req sellRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	result, err := h.stock.ApplyMutation(c.UserContext(), service.MutationRequest{
		Product:  service.ProductRef{Name: strings.TrimSpace(req.Name)},
		Action:   service.ActionSell,
		Quantity: req.Quantity,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "Sale recorded",
		"data":        result.Product,
		"transaction": result.Transaction,
	})
}

// transactionRequest accepts both product_id and productId; product_name
// is used when no id is given.
type transactionRequest struct {
	ProductID      uint   `json:"product_id"`
	ProductIDCamel uint   `json:"productId"`
	ProductName    string `json:"product_name"`
	Action         string `json:"action"`
	Quantity       int    `json:"quantity"`
}

func (h *InventoryHandler) CreateTransaction(c *fiber.Ctx) error {
	var req transactionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	ref := service.ProductRef{ID: req.ProductID, Name: strings.TrimSpace(req.ProductName)}
	if ref.ID == 0 {
		ref.ID = req.ProductIDCamel
	}

	result, err := h.stock.ApplyMutation(c.UserContext(), service.MutationRequest{
		Product:  ref,
		Action:   service.MutationAction(strings.ToLower(strings.TrimSpace(req.Action))),
		Quantity: req.Quantity,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result.Transaction)
}

func (h *InventoryHandler) GetTransactions(c *fiber.Ctx) error {
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product_id"})
		}
		transactions, err := h.stock.History(c.UserContext(), service.ProductRef{ID: uint(id)})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(transactions)
	}

	transactions, err := h.service.ListTransactions(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transactions)
}

func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	tx, err := h.service.GetTransaction(c.UserContext(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tx)
}
