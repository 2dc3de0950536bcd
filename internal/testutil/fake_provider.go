// fake_provider.go - In-process fake of the remote processing provider
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// FakeProvider simulates the provider's three endpoints and records how
// often each one is hit, so tests can assert which calls were (not) made.
type FakeProvider struct {
	mu          sync.Mutex
	uploadCalls int
	createCalls int
	outputCalls int

	// Non-zero codes make the corresponding endpoint fail with the given msg.
	UploadCode int
	UploadMsg  string
	CreateCode int
	CreateMsg  string
	OutputCode int
	OutputMsg  string

	// EmptyOutputs makes the outputs endpoint return code 0 with no outputs.
	EmptyOutputs bool

	ResultURL string

	// LastParams is the params object of the most recent create-task call.
	LastParams map[string]any

	srv *httptest.Server
}

// NewFakeProvider starts a fake provider returning resultURL on success.
func NewFakeProvider(resultURL string) *FakeProvider {
	f := &FakeProvider{ResultURL: resultURL}

	mux := http.NewServeMux()
	mux.HandleFunc("/task/openapi/upload", f.handleUpload)
	mux.HandleFunc("/task/openapi/create", f.handleCreate)
	mux.HandleFunc("/task/openapi/outputs", f.handleOutputs)
	f.srv = httptest.NewServer(mux)

	return f
}

// URL returns the fake provider's base URL.
func (f *FakeProvider) URL() string { return f.srv.URL }

// Close shuts the fake provider down.
func (f *FakeProvider) Close() { f.srv.Close() }

// Calls returns the per-endpoint hit counts (upload, create, outputs).
func (f *FakeProvider) Calls() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls, f.createCalls, f.outputCalls
}

func (f *FakeProvider) handleUpload(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.uploadCalls++
	f.mu.Unlock()

	if f.UploadCode != 0 {
		writeEnvelope(w, f.UploadCode, f.UploadMsg, nil)
		return
	}
	writeEnvelope(w, 0, "", map[string]any{"fileName": "api/fake-asset.png", "fileType": "image"})
}

func (f *FakeProvider) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Params map[string]any `json:"params"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.createCalls++
	f.LastParams = body.Params
	f.mu.Unlock()

	if f.CreateCode != 0 {
		writeEnvelope(w, f.CreateCode, f.CreateMsg, nil)
		return
	}
	writeEnvelope(w, 0, "", map[string]any{"taskId": "fake-task"})
}

func (f *FakeProvider) handleOutputs(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.outputCalls++
	f.mu.Unlock()

	if f.OutputCode != 0 {
		writeEnvelope(w, f.OutputCode, f.OutputMsg, nil)
		return
	}
	if f.EmptyOutputs {
		writeEnvelope(w, 0, "", []any{})
		return
	}
	writeEnvelope(w, 0, "", []map[string]any{{"fileUrl": f.ResultURL, "fileType": "png"}})
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"code": code, "msg": msg, "data": data})
}
