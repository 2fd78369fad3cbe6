package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"medequip-backend/bleve/models"
	"medequip-backend/bleve/repositories"
	"medequip-backend/config"
	imports "medequip-backend/imports/services"
)

const maxSearchSize = 100

func (c *SearchController) SearchRecordsController(ctx *fiber.Ctx) error {
	engine, err := c.registry.Get(ctx.Params("entity"))
	if err != nil {
		if errors.Is(err, imports.ErrUnknownEntity) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown entity",
			})
		}
		return err
	}

	size := ctx.QueryInt("size", 20)
	if size <= 0 || size > maxSearchSize {
		size = 20
	}
	from := ctx.QueryInt("from", 0)
	if from < 0 {
		from = 0
	}

	q := repositories.SearchQuery{
		Text:   ctx.Query("q"),
		Status: ctx.Query("status"),
		Size:   size,
		From:   from,
	}
	slug := engine.Config().Slug

	var cacheKey string
	if c.cache != nil {
		cacheKey = c.cache.Key(slug, map[string]string{
			"q":      q.Text,
			"status": q.Status,
			"size":   strconv.Itoa(size),
			"from":   strconv.Itoa(from),
		})
		var cached models.SearchResponse
		if found, err := c.cache.Get(ctx.Context(), cacheKey, &cached); err == nil && found {
			return ctx.JSON(cached)
		} else if err != nil {
			config.Logger.Warn("Search cache read failed", zap.String("entity", slug), zap.Error(err))
		}
	}

	results, err := c.repo.SearchRecords(engine.Config(), q)
	if err != nil {
		config.Logger.Error("Record search failed",
			zap.String("entity", slug),
			zap.Error(err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	response := models.SearchResponse{
		Entity: slug,
		Total:  results.Total,
		Hits:   make([]models.SearchHit, 0, len(results.Hits)),
	}
	for _, hit := range results.Hits {
		response.Hits = append(response.Hits, models.SearchHit{ID: hit.ID, Score: hit.Score, Fields: hit.Fields})
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx.Context(), cacheKey, response); err != nil {
			config.Logger.Warn("Search cache write failed", zap.String("entity", slug), zap.Error(err))
		}
	}
	return ctx.JSON(response)
}
