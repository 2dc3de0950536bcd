// interfaces.go - Outbound dependency contracts for the handlers
package api

import "context"

// ProcessingClient performs the three sequential provider calls.
type ProcessingClient interface {
	UploadAsset(ctx context.Context, filePath string) (string, error)
	CreateTask(ctx context.Context, workflowID string, params map[string]any, assetURL string) (string, error)
	FetchResult(ctx context.Context, taskID string) (string, error)
}
