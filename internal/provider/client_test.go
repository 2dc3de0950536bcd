package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.png")
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0644))
	return path
}

func TestClient_UploadAsset(t *testing.T) {
	tests := []struct {
		name         string
		responseBody any
		wantAsset    string
		wantErr      bool
		wantKind     Kind
	}{
		{
			name: "success",
			responseBody: map[string]any{
				"code": 0,
				"data": map[string]any{"fileName": "api/abc123.png", "fileType": "image"},
			},
			wantAsset: "api/abc123.png",
		},
		{
			name: "provider error code",
			responseBody: map[string]any{
				"code": 301,
				"msg":  "invalid api key",
			},
			wantErr:  true,
			wantKind: KindUpload,
		},
		{
			name:         "malformed JSON",
			responseBody: "{not_json}",
			wantErr:      true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				require.NoError(t, r.ParseMultipartForm(32<<20))
				assert.Equal(t, "test-key", r.FormValue("apiKey"))
				assert.Equal(t, "image", r.FormValue("fileType"))

				switch b := tc.responseBody.(type) {
				case string:
					w.Write([]byte(b))
				default:
					json.NewEncoder(w).Encode(b)
				}
			}))
			defer srv.Close()

			c := NewClient(Options{BaseURL: srv.URL, APIKey: "test-key"})

			got, err := c.UploadAsset(context.Background(), writeTestImage(t))
			if tc.wantErr {
				require.Error(t, err)
				if tc.wantKind != 0 {
					var perr *Error
					require.ErrorAs(t, err, &perr)
					assert.Equal(t, tc.wantKind, perr.Kind)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantAsset, got)
			assert.Equal(t, "/task/openapi/upload", gotPath)
		})
	}
}

func TestClient_CreateTask(t *testing.T) {
	t.Run("success sends bindings and params", func(t *testing.T) {
		var gotReq createTaskRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/task/openapi/create", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			json.NewEncoder(w).Encode(map[string]any{
				"code": 0,
				"data": map[string]any{"taskId": "task-42"},
			})
		}))
		defer srv.Close()

		c := NewClient(Options{BaseURL: srv.URL, APIKey: "test-key"})

		params := map[string]any{"a": 1, "b": 9, "c": 3}
		taskID, err := c.CreateTask(context.Background(), "wf-100", params, "api/abc.png")
		require.NoError(t, err)
		assert.Equal(t, "task-42", taskID)

		assert.Equal(t, "test-key", gotReq.APIKey)
		assert.Equal(t, "wf-100", gotReq.WorkflowID)
		require.Len(t, gotReq.NodeInfoList, 1)
		assert.Equal(t, "image", gotReq.NodeInfoList[0].FieldName)
		assert.Equal(t, "api/abc.png", gotReq.NodeInfoList[0].FieldValue)

		// merged parameter set passes through verbatim
		assert.Equal(t, map[string]any{"a": float64(1), "b": float64(9), "c": float64(3)}, gotReq.Params)
	})

	t.Run("provider error carries message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"code": 1, "msg": "bad workflow"})
		}))
		defer srv.Close()

		c := NewClient(Options{BaseURL: srv.URL, APIKey: "test-key"})

		_, err := c.CreateTask(context.Background(), "wf-100", nil, "api/abc.png")
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, KindTaskCreation, perr.Kind)
		assert.Equal(t, "bad workflow", perr.Msg)
	})
}

func TestClient_FetchResult(t *testing.T) {
	tests := []struct {
		name         string
		responseBody any
		wantURL      string
		wantErr      bool
	}{
		{
			name: "success",
			responseBody: map[string]any{
				"code": 0,
				"data": []map[string]any{{"fileUrl": "https://cdn.example/out.png", "fileType": "png"}},
			},
			wantURL: "https://cdn.example/out.png",
		},
		{
			name: "empty outputs is a defined error",
			responseBody: map[string]any{
				"code": 0,
				"data": []map[string]any{},
			},
			wantErr: true,
		},
		{
			name: "provider error code",
			responseBody: map[string]any{
				"code": 805,
				"msg":  "task is running",
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/task/openapi/outputs", r.URL.Path)
				json.NewEncoder(w).Encode(tc.responseBody)
			}))
			defer srv.Close()

			c := NewClient(Options{BaseURL: srv.URL, APIKey: "test-key"})

			got, err := c.FetchResult(context.Background(), "task-42")
			if tc.wantErr {
				require.Error(t, err)
				var perr *Error
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, KindResult, perr.Kind)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantURL, got)
		})
	}
}

func TestClient_FetchResult_Polling(t *testing.T) {
	t.Run("retries until outputs appear", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				json.NewEncoder(w).Encode(map[string]any{"code": 805, "msg": "task is running"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"code": 0,
				"data": []map[string]any{{"fileUrl": "https://cdn.example/out.png"}},
			})
		}))
		defer srv.Close()

		c := NewClient(Options{
			BaseURL:      srv.URL,
			APIKey:       "test-key",
			PollAttempts: 5,
			PollInterval: time.Millisecond,
		})

		got, err := c.FetchResult(context.Background(), "task-42")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/out.png", got)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("single attempt by default", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			json.NewEncoder(w).Encode(map[string]any{"code": 805, "msg": "task is running"})
		}))
		defer srv.Close()

		c := NewClient(Options{BaseURL: srv.URL, APIKey: "test-key"})

		_, err := c.FetchResult(context.Background(), "task-42")
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}
