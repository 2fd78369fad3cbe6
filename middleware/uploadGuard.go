package middleware

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"medequip-backend/config"
)

// UploadFormField is the multipart field carrying the import file.
const UploadFormField = "file"

var allowedUploadTypes = map[string][]string{
	".xlsx": {
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/zip",
		"application/octet-stream",
	},
	".xls": {
		"application/vnd.ms-excel",
		"application/octet-stream",
	},
	".csv": {
		"text/csv",
		"text/plain",
		"application/csv",
		"application/vnd.ms-excel",
		"application/octet-stream",
	},
}

// UploadGuard rejects uploads that are missing, too large, or not a
// spreadsheet before the request reaches the import handler.
func UploadGuard(maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := c.FormFile(UploadFormField)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "No file uploaded",
				"error":   "multipart field \"" + UploadFormField + "\" is required",
			})
		}

		if maxBytes > 0 && file.Size > maxBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"message": "File too large",
				"error":   "uploads are limited to " + humanSize(maxBytes),
			})
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		allowed, ok := allowedUploadTypes[ext]
		if !ok {
			return unsupported(c, file.Filename, "only .xlsx, .xls and .csv files are accepted")
		}

		mime := strings.ToLower(strings.TrimSpace(strings.Split(file.Header.Get(fiber.HeaderContentType), ";")[0]))
		if mime != "" && !contains(allowed, mime) {
			return unsupported(c, file.Filename, "content type "+mime+" does not match "+ext)
		}
		return c.Next()
	}
}

func unsupported(c *fiber.Ctx, name, reason string) error {
	config.Logger.Info("Rejected upload", zap.String("file", name), zap.String("reason", reason))
	return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
		"message": "Unsupported file type",
		"error":   reason,
	})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func humanSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
