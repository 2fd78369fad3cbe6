package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"medequip-backend/imports/repositories"
	imports "medequip-backend/imports/services"
	"medequip-backend/utils"
)

// Enqueuer is the part of the asynq client the upload handler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ImportController struct {
	Registry    *imports.Registry
	Locker      *repositories.UploadLocker
	Jobs        *repositories.JobStore
	UploadLogs  repositories.UploadLogRepository
	Queue       Enqueuer
	Files       utils.FileStorage
	TaskTimeout time.Duration
}

// engineFor resolves the :entity route parameter.
func (ic *ImportController) engineFor(c *fiber.Ctx) (*imports.Engine, error) {
	engine, err := ic.Registry.Get(c.Params("entity"))
	if err != nil {
		if errors.Is(err, imports.ErrUnknownEntity) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message":  "Unknown import entity",
				"error":    err.Error(),
				"entities": ic.Registry.Entities(),
			})
		}
		return nil, err
	}
	return engine, nil
}
