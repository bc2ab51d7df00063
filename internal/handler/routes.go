package handler

import "github.com/gofiber/fiber/v2"

type Handlers struct {
	Inventory *InventoryHandler
	Dashboard *DashboardHandler
	User      *UserHandler
	Health    *HealthHandler
}

// SetupRoutes registers exactly one handler per route. mutationLimit guards
// the routes that change stock.
func SetupRoutes(app *fiber.App, h Handlers, mutationLimit fiber.Handler) {
	app.Get("/healthz", h.Health.Check)

	api := app.Group("/api")

	// Dashboard Routes
	api.Get("/dashboard/stats", h.Dashboard.GetDashboardStats)
	api.Get("/dashboard/stock-movement", h.Dashboard.GetStockMovement)

	// Product Routes
	api.Get("/products", h.Inventory.GetProducts)
	api.Post("/products", h.Inventory.CreateProduct)
	api.Delete("/products", h.Inventory.DeleteProduct)
	api.Get("/products/:name", h.Inventory.GetProduct)
	api.Put("/products/:name", mutationLimit, h.Inventory.UpdateProduct)
	api.Get("/products/:name/transactions", h.Inventory.GetProductTransactions)

	// Stock mutation Routes
	api.Post("/sell", mutationLimit, h.Inventory.Sell)
	api.Get("/transactions", h.Inventory.GetTransactions)
	api.Get("/transactions/:id", h.Inventory.GetTransaction)
	api.Post("/transactions", mutationLimit, h.Inventory.CreateTransaction)

	// User Management Routes
	api.Get("/users", h.User.GetUsers)
	api.Post("/users", h.User.CreateUser)
	api.Get("/users/:username", h.User.GetUser)
	api.Put("/users/:username", h.User.UpdateUser)
	api.Delete("/users/:username", h.User.DeleteUser)
}
