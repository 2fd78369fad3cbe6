package controllers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/imports/repositories"
	imports "medequip-backend/imports/services"
	"medequip-backend/imports/tasks"
	"medequip-backend/middleware"
)

// UploadController handles POST /api/imports/:entity.
//
// By default the final report is returned as one JSON body. With
// ?stream=true every event is written as one NDJSON line while the upload
// runs; with ?mode=async the file is queued and a job id is returned.
func (ic *ImportController) UploadController(c *fiber.Ctx) error {
	engine, err := ic.engineFor(c)
	if engine == nil {
		return err
	}
	cfg := engine.Config()

	fileHeader, err := c.FormFile(middleware.UploadFormField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "No file uploaded",
			"error":   err.Error(),
		})
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Failed to read uploaded file",
			"error":   err.Error(),
		})
	}

	req := imports.UploadRequest{
		JobID:    uuid.NewString(),
		FileName: fileHeader.Filename,
		Data:     data,
	}
	if user := middleware.CurrentUser(c); user != nil {
		req.RequestedBy = user.Email
		req.RequesterEmail = user.Email
	}
	if by := strings.TrimSpace(c.FormValue("requested_by")); by != "" && req.RequestedBy == "" {
		req.RequestedBy = by
	}

	lock, err := ic.Locker.Acquire(c.Context(), cfg.Slug)
	if err != nil {
		config.Logger.Error("Upload lock unavailable", zap.String("entity", cfg.Slug), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not start the upload",
			"error":   err.Error(),
		})
	}
	if lock == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": fmt.Sprintf("A %s upload is already in progress", cfg.Name),
			"error":   imports.ErrUploadInProgress.Error(),
		})
	}

	release := func() {
		if err := lock.Release(context.Background()); err != nil {
			config.Logger.Warn("Failed to release upload lock", zap.String("entity", cfg.Slug), zap.Error(err))
		}
	}

	// File-level problems are rejected here in every mode, before anything is
	// staged or written.
	prepared, err := engine.Prepare(c.Context(), req)
	if err != nil {
		release()
		return prepareError(c, cfg, req, err)
	}

	if c.Query("mode") == "async" {
		return ic.enqueue(c, cfg, req, lock)
	}

	stopKeepAlive := lock.KeepAlive(context.Background())
	releaseLock := release
	release = func() {
		stopKeepAlive()
		releaseLock()
	}

	if c.QueryBool("stream") {
		// The upload outlives the response writer if the client disconnects.
		events := engine.Execute(context.Background(), prepared)
		c.Set(fiber.HeaderContentType, "application/x-ndjson")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer release()
			writeEvents(w, events)
		})
		return nil
	}

	report, err := imports.CollectResult(engine.Execute(c.Context(), prepared))
	release()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Upload stopped after a system error",
			"error":   err.Error(),
			"result":  report,
		})
	}
	return c.Status(fiber.StatusOK).JSON(report)
}

// writeEvents writes one JSON object per line, flushing after each event.
// A disconnected client does not stop the upload; remaining events are drained.
func writeEvents(w *bufio.Writer, events <-chan imports.Event) {
	enc := json.NewEncoder(w)
	broken := false
	for ev := range events {
		if broken {
			continue
		}
		if err := enc.Encode(ev); err != nil {
			broken = true
			continue
		}
		if err := w.Flush(); err != nil {
			config.Logger.Info("Import stream client went away", zap.String("job_id", ev.JobID), zap.Error(err))
			broken = true
		}
	}
}

func (ic *ImportController) enqueue(c *fiber.Ctx, cfg *imports.EntityConfig, req imports.UploadRequest, lock *repositories.UploadLock) error {
	abort := func(status int, message string, err error) error {
		if relErr := lock.Release(context.Background()); relErr != nil {
			config.Logger.Warn("Failed to release upload lock", zap.String("entity", cfg.Slug), zap.Error(relErr))
		}
		config.Logger.Error(message, zap.String("entity", cfg.Slug), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"message": message, "error": err.Error()})
	}

	stored, err := ic.Files.SaveFile(bytes.NewReader(req.Data), req.JobID+strings.ToLower(filepath.Ext(req.FileName)))
	if err != nil {
		return abort(fiber.StatusInternalServerError, "Failed to stage upload", err)
	}

	payload := tasks.ImportPayload{
		JobID:          req.JobID,
		Entity:         cfg.Slug,
		FileName:       req.FileName,
		StoredFile:     stored,
		RequestedBy:    req.RequestedBy,
		RequesterEmail: req.RequesterEmail,
		LockToken:      lock.Token(),
	}
	task, err := tasks.NewImportTask(payload, ic.TaskTimeout)
	if err != nil {
		ic.Files.DeleteFile(stored)
		return abort(fiber.StatusInternalServerError, "Failed to queue upload", err)
	}

	state := &repositories.JobState{
		ID:       req.JobID,
		Entity:   cfg.Slug,
		FileName: req.FileName,
		State:    repositories.JobQueued,
	}
	if err := ic.Jobs.Save(c.Context(), state); err != nil {
		ic.Files.DeleteFile(stored)
		return abort(fiber.StatusInternalServerError, "Failed to record upload job", err)
	}
	if _, err := ic.Queue.EnqueueContext(c.Context(), task); err != nil {
		ic.Files.DeleteFile(stored)
		return abort(fiber.StatusInternalServerError, "Failed to queue upload", err)
	}

	config.Logger.Info("Queued background import",
		zap.String("entity", cfg.Slug),
		zap.String("job_id", req.JobID),
		zap.String("file", req.FileName))

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":   fmt.Sprintf("%s upload queued", cfg.Name),
		"jobId":     req.JobID,
		"statusUrl": "/api/imports/jobs/" + req.JobID,
		"socketUrl": "/ws/imports/" + req.JobID,
	})
}

// prepareError maps file-level failures to client responses. Nothing has been
// written when these occur.
func prepareError(c *fiber.Ctx, cfg *imports.EntityConfig, req imports.UploadRequest, err error) error {
	var missing *imports.MissingHeadersError
	switch {
	case errors.As(err, &missing):
		return c.Status(fiber.StatusBadRequest).JSON(imports.Report{
			JobID:          req.JobID,
			Entity:         cfg.Slug,
			FileName:       req.FileName,
			Message:        fmt.Sprintf("Missing required columns: %s", strings.Join(missing.Missing, ", ")),
			Error:          err.Error(),
			MissingHeaders: missing.Missing,
			SeenHeaders:    missing.Seen,
			Rows:           []imports.RowResult{},
		})
	case errors.Is(err, imports.ErrEmptyFile):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "The uploaded file has no data rows",
			"error":   err.Error(),
		})
	case errors.Is(err, imports.ErrParseTimeout):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Reading the file took too long",
			"error":   err.Error(),
		})
	case errors.Is(err, imports.ErrUnsupportedFile):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"message": "Unsupported file type",
			"error":   err.Error(),
		})
	}
	config.Logger.Error("Failed to parse upload",
		zap.String("entity", cfg.Slug),
		zap.String("file", req.FileName),
		zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Failed to read the uploaded file",
		"error":   err.Error(),
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
