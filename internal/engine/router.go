package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts validation, migration and generic entity routes.
// Fixed paths are registered before the :entity wildcard so they are not
// captured by it.
func RegisterRoutes(app *fiber.App, h *Handler, authMW, adminMW fiber.Handler) {
	app.Post("/validation/:entity", authMW, h.ValidateOnly)
	app.Post("/migration/import", authMW, adminMW, h.Import)
	app.Post("/migration/export", authMW, adminMW, h.Export)

	app.Get("/:entity", authMW, h.List)
	app.Post("/:entity", authMW, h.Create)
	app.Get("/:entity/:id", authMW, h.GetByID)
	app.Put("/:entity/:id", authMW, h.Update)
	app.Delete("/:entity/:id", authMW, adminMW, h.Delete)
}
