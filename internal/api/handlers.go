// handlers.go - Image processing endpoint handlers
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/provider"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/upload"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/workflow"
)

// ProcessHandler orchestrates a single processing request: validate the
// upload, resolve the workflow, merge parameters, and relay the image
// through the provider's upload/create/fetch sequence.
type ProcessHandler struct {
	receiver *upload.Receiver
	registry *workflow.Registry
	client   ProcessingClient
}

// NewProcessHandler creates a new processing handler.
func NewProcessHandler(receiver *upload.Receiver, registry *workflow.Registry, client ProcessingClient) *ProcessHandler {
	return &ProcessHandler{
		receiver: receiver,
		registry: registry,
		client:   client,
	}
}

// processResponse is the success body for HandleProcessImage.
type processResponse struct {
	Status    string `json:"status"`
	ResultURL string `json:"resultUrl"`
	Message   string `json:"message"`
}

// HandleProcessImage handles POST /api/process-image.
func (h *ProcessHandler) HandleProcessImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "No file uploaded", "")
	}

	stored, err := h.receiver.Accept(fh)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrPayloadTooLarge):
			return respondError(c, http.StatusRequestEntityTooLarge, "File size exceeds limit", err.Error())
		case errors.Is(err, upload.ErrUnsupportedMediaType):
			return badRequest(c, "Invalid file format", err.Error())
		default:
			log.Err(err).Msg("failed to store uploaded file")
			return internalError(c, err.Error())
		}
	}
	// the temp file must not outlive the request, on any exit path
	defer h.receiver.Discard(stored)

	functionType := c.FormValue("functionType")
	if functionType == "" {
		return badRequest(c, "Function type is required", "")
	}

	descriptor, err := h.registry.Lookup(functionType)
	if err != nil {
		return badRequest(c, "Invalid function type", "")
	}

	var overrides map[string]any
	if raw := c.FormValue("processingParams"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return badRequest(c, "Invalid processing parameters", err.Error())
		}
	}
	params := workflow.MergeParams(descriptor.DefaultParams, overrides)

	ctx := c.Request().Context()

	assetURL, err := h.client.UploadAsset(ctx, stored.Path)
	if err != nil {
		return h.remoteError(c, functionType, err)
	}

	taskID, err := h.client.CreateTask(ctx, descriptor.WorkflowID, params, assetURL)
	if err != nil {
		return h.remoteError(c, functionType, err)
	}

	resultURL, err := h.client.FetchResult(ctx, taskID)
	if err != nil {
		return h.remoteError(c, functionType, err)
	}

	log.Info().
		Str("functionType", functionType).
		Str("taskId", taskID).
		Msg("image processed")

	return c.JSON(http.StatusOK, processResponse{
		Status:    "completed",
		ResultURL: resultURL,
		Message:   "Image processed successfully",
	})
}

func (h *ProcessHandler) remoteError(c echo.Context, functionType string, err error) error {
	log.Err(err).Str("functionType", functionType).Msg("provider call failed")

	var perr *provider.Error
	if errors.As(err, &perr) {
		return internalError(c, perr.Msg)
	}
	return internalError(c, err.Error())
}

// HandleListFunctions handles GET /api/functions, listing the registered
// function types.
func (h *ProcessHandler) HandleListFunctions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"functions": h.registry.Names(),
	})
}
