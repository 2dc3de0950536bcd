// Package provider wraps the remote workflow-processing API.
//
// Every provider response uses the same envelope {code, msg, data} where a
// non-zero code signals failure regardless of the HTTP transport status.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	uploadPath  = "/task/openapi/upload"
	createPath  = "/task/openapi/create"
	outputsPath = "/task/openapi/outputs"

	// imageInputField is the workflow input the uploaded asset is bound to.
	imageInputNode  = "load_image"
	imageInputField = "image"
)

// Kind identifies which of the three provider operations failed.
type Kind int

const (
	KindUpload Kind = iota + 1
	KindTaskCreation
	KindResult
)

func (k Kind) String() string {
	switch k {
	case KindUpload:
		return "upload asset"
	case KindTaskCreation:
		return "create task"
	case KindResult:
		return "fetch result"
	default:
		return "unknown"
	}
}

// Error is a failure reported by the provider, carrying its message.
type Error struct {
	Kind Kind
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s failed (code %d): %s", e.Kind, e.Code, e.Msg)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// PollAttempts bounds how many times FetchResult queries the provider
	// before giving up; 0 or 1 means a single immediate fetch.
	PollAttempts int
	PollInterval time.Duration
}

// Client performs the three sequential calls against the provider.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollAttempts int
	pollInterval time.Duration
}

// NewClient creates a provider client from the given options.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := opts.PollAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		pollAttempts: attempts,
		pollInterval: opts.PollInterval,
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type uploadData struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

// UploadAsset streams the stored file to the provider's upload endpoint and
// returns the provider-side asset reference.
func (c *Client) UploadAsset(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening file for upload: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("apiKey", c.apiKey); err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}
	if err := w.WriteField("fileType", "image"); err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}

	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}

	env, err := c.post(ctx, uploadPath, w.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	if env.Code != 0 {
		return "", &Error{Kind: KindUpload, Code: env.Code, Msg: env.Msg}
	}

	var data uploadData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("unmarshalling upload response: %w", err)
	}

	log.Debug().Str("asset", data.FileName).Msg("asset uploaded to provider")

	return data.FileName, nil
}

type nodeInfo struct {
	NodeID     string `json:"nodeId"`
	FieldName  string `json:"fieldName"`
	FieldValue any    `json:"fieldValue"`
}

type createTaskRequest struct {
	APIKey       string         `json:"apiKey"`
	WorkflowID   string         `json:"workflowId"`
	NodeInfoList []nodeInfo     `json:"nodeInfoList"`
	Params       map[string]any `json:"params,omitempty"`
}

type createTaskData struct {
	TaskID string `json:"taskId"`
}

// CreateTask submits a task binding the uploaded asset to the workflow's
// image input, passing the merged parameter set through to the provider.
func (c *Client) CreateTask(ctx context.Context, workflowID string, params map[string]any, assetURL string) (string, error) {
	req := createTaskRequest{
		APIKey:     c.apiKey,
		WorkflowID: workflowID,
		NodeInfoList: []nodeInfo{
			{NodeID: imageInputNode, FieldName: imageInputField, FieldValue: assetURL},
		},
		Params: params,
	}

	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(req); err != nil {
		return "", fmt.Errorf("encoding create task request: %w", err)
	}

	env, err := c.post(ctx, createPath, "application/json", payload)
	if err != nil {
		return "", err
	}
	if env.Code != 0 {
		return "", &Error{Kind: KindTaskCreation, Code: env.Code, Msg: env.Msg}
	}

	var data createTaskData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("unmarshalling create task response: %w", err)
	}

	log.Debug().Str("taskId", data.TaskID).Str("workflowId", workflowID).Msg("provider task created")

	return data.TaskID, nil
}

type outputsRequest struct {
	APIKey string `json:"apiKey"`
	TaskID string `json:"taskId"`
}

type taskOutput struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}

// FetchResult queries the provider for task outputs and returns the first
// output's file URL. With PollAttempts > 1 it re-queries while the task has
// not produced outputs yet, waiting PollInterval between attempts.
func (c *Client) FetchResult(ctx context.Context, taskID string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.pollInterval):
			}
		}

		url, err := c.fetchOutputs(ctx, taskID)
		if err == nil {
			return url, nil
		}
		lastErr = err

		log.Debug().Err(err).Str("taskId", taskID).Int("attempt", attempt).Msg("task outputs not ready")
	}

	return "", lastErr
}

func (c *Client) fetchOutputs(ctx context.Context, taskID string) (string, error) {
	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(outputsRequest{APIKey: c.apiKey, TaskID: taskID}); err != nil {
		return "", fmt.Errorf("encoding outputs request: %w", err)
	}

	env, err := c.post(ctx, outputsPath, "application/json", payload)
	if err != nil {
		return "", err
	}
	if env.Code != 0 {
		return "", &Error{Kind: KindResult, Code: env.Code, Msg: env.Msg}
	}

	var outputs []taskOutput
	if err := json.Unmarshal(env.Data, &outputs); err != nil {
		return "", fmt.Errorf("unmarshalling outputs response: %w", err)
	}
	if len(outputs) == 0 {
		return "", &Error{Kind: KindResult, Msg: "task produced no outputs"}
	}

	return outputs[0].FileURL, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating provider request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing provider request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading provider response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshalling provider response: %w", err)
	}

	return &env, nil
}
