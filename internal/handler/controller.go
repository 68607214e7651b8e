package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"keyword-go/pkg/cache"
	"keyword-go/pkg/enrich"
	"keyword-go/pkg/keyword"
	"keyword-go/pkg/logger"
)

// Controller exposes the enrichment pipeline over HTTP.
type Controller struct {
	orchestrator *enrich.Orchestrator
	spreadsheet  *enrich.SpreadsheetSource
	cache        *cache.Cache
	log          *logger.Logger
}

func NewController(orchestrator *enrich.Orchestrator, spreadsheet *enrich.SpreadsheetSource, c *cache.Cache) *Controller {
	return &Controller{
		orchestrator: orchestrator,
		spreadsheet:  spreadsheet,
		cache:        c,
		log:          logger.GetLogger().WithField("component", "handler"),
	}
}

// Register mounts all routes on the app.
func (c *Controller) Register(app *fiber.App) {
	app.Get("/healthz", c.health)

	api := app.Group("/api/v1")
	api.Post("/keywords/enrich", c.enrich)
	api.Post("/keywords/import", c.importRows)
	api.Delete("/cache", c.invalidateCache)
	api.Get("/cache/stats", c.cacheStats)
}

func (c *Controller) health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

type enrichRequest struct {
	Seeds   []string             `json:"seeds"`
	OwnerID string               `json:"owner_id"`
	TopicID string               `json:"topic_id"`
	Sources []keyword.SourceKind `json:"sources,omitempty"`
}

func (c *Controller) enrich(ctx *fiber.Ctx) error {
	var req enrichRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.OwnerID == "" || req.TopicID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "owner_id and topic_id are required")
	}

	result, err := c.orchestrator.Enrich(ctx.Context(), enrich.Batch{
		Seeds:          req.Seeds,
		Scope:          keyword.Scope{OwnerID: req.OwnerID, TopicID: req.TopicID},
		EnabledSources: req.Sources,
	})
	switch {
	case errors.Is(err, enrich.ErrNoValidSeeds):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, enrich.ErrAllSourcesFailed):
		// Total failure still carries the structured per-source errors.
		return ctx.Status(fiber.StatusBadGateway).JSON(result)
	case err != nil:
		c.log.WithError(err).Error("Enrichment failed")
		return fiber.NewError(fiber.StatusInternalServerError, "enrichment failed")
	}

	return ctx.JSON(result)
}

type importRequest struct {
	OwnerID string                  `json:"owner_id"`
	TopicID string                  `json:"topic_id"`
	Rows    []enrich.SpreadsheetRow `json:"rows"`
}

func (c *Controller) importRows(ctx *fiber.Ctx) error {
	var req importRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.OwnerID == "" || req.TopicID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "owner_id and topic_id are required")
	}

	scope := keyword.Scope{OwnerID: req.OwnerID, TopicID: req.TopicID}
	imported := c.spreadsheet.Load(scope, req.Rows)

	// A re-upload supersedes everything previously cached for this source.
	invalidated := c.cache.InvalidateSource(scope, keyword.SourceSpreadsheet)

	c.log.WithFields(map[string]interface{}{
		"owner_id":    req.OwnerID,
		"topic_id":    req.TopicID,
		"imported":    imported,
		"invalidated": invalidated,
	}).Info("Spreadsheet rows imported")

	return ctx.JSON(fiber.Map{
		"imported":    imported,
		"invalidated": invalidated,
	})
}

func (c *Controller) invalidateCache(ctx *fiber.Ctx) error {
	ownerID := ctx.Query("owner_id")
	topicID := ctx.Query("topic_id")
	source := keyword.SourceKind(ctx.Query("source"))
	if ownerID == "" || topicID == "" || source == "" {
		return fiber.NewError(fiber.StatusBadRequest, "owner_id, topic_id and source are required")
	}

	scope := keyword.Scope{OwnerID: ownerID, TopicID: topicID}
	removed := c.cache.InvalidateSource(scope, source)
	return ctx.JSON(fiber.Map{"invalidated": removed})
}

func (c *Controller) cacheStats(ctx *fiber.Ctx) error {
	return ctx.JSON(c.cache.Stats())
}
