package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// TemplateController describes the columns an entity upload accepts.
// ?format=xlsx returns an empty workbook with the canonical header row.
func (ic *ImportController) TemplateController(c *fiber.Ctx) error {
	engine, err := ic.engineFor(c)
	if engine == nil {
		return err
	}
	cfg := engine.Config()

	if c.Query("format") != "xlsx" {
		synonyms := make(map[string][]string, len(cfg.Synonyms))
		for _, s := range cfg.Synonyms {
			synonyms[s.Field] = s.Headers
		}
		return c.JSON(fiber.Map{
			"entity":          cfg.Slug,
			"name":            cfg.Name,
			"headers":         cfg.CanonicalHeaders(),
			"requiredHeaders": cfg.RequiredHeaders,
			"required":        cfg.Required,
			"synonyms":        synonyms,
		})
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, h := range cfg.CanonicalHeaders() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to build template",
			"error":   err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s_template.xlsx"`, cfg.Slug))
	return c.Send(buf.Bytes())
}
