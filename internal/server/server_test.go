package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reconify"
)

func newTestServer(t *testing.T) (*httptest.Server, reconify.Client) {
	t.Helper()
	client, err := reconify.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()
	srv := New(client, &logger, DefaultConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, client
}

// doJSON posts a JSON body and decodes the response envelope.
func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

// doUpload posts a CSV as a multipart file upload.
func doUpload(t *testing.T, url, fileName, uploadedBy, csv string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("uploaded_by", uploadedBy))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health", "/api/v1/ready"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestPanelLifecycleOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)
	base := ts.URL + "/api/v1"

	// Upload a SOT so the mapping can bind against real fields.
	resp, _ := doUpload(t, base+"/sots/internal_users/upload", "internal.csv", "alice",
		"emp_id,email,status\nE1,ana@corp.example,active\nE2,bo@corp.example,inactive\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Create a panel.
	resp, envelope := doJSON(t, http.MethodPost, base+"/panels", map[string]any{
		"name":          "github",
		"panel_headers": []string{"empid", "email"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "github", data["name"])

	// Duplicate create is a validation error.
	resp, _ = doJSON(t, http.MethodPost, base+"/panels", map[string]any{"name": "github"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Map the panel to the SOT.
	resp, _ = doJSON(t, http.MethodPost, base+"/panels/github/mapping", map[string]any{
		"sot_type":    "internal_users",
		"sot_field":   "emp_id",
		"panel_field": "empid",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Run the workflow end to end.
	resp, _ = doUpload(t, base+"/panels/github/upload", "github_jan.csv", "alice",
		"empid,email\nE1,ana@corp.example\nE9,ghost@corp.example\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope = doJSON(t, http.MethodPost, base+"/panels/github/categorize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := envelope["data"].(map[string]any)
	assert.Equal(t, "ready_to_recon", state["status"])

	resp, envelope = doJSON(t, http.MethodPost, base+"/panels/github/reconcile",
		map[string]any{"performed_by": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := envelope["data"].(map[string]any)
	reconID := run["recon_id"].(string)
	assert.True(t, strings.HasPrefix(reconID, "RCN_"))

	// Reporting endpoints see the run.
	resp, envelope = doJSON(t, http.MethodGet, base+"/reports/summaries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, envelope["data"].([]any), 1)

	resp, envelope = doJSON(t, http.MethodGet, base+"/reports/summaries/"+reconID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := envelope["data"].(map[string]any)
	assert.Len(t, detail["results"].([]any), 2)

	resp, envelope = doJSON(t, http.MethodGet, base+"/reports/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, envelope["data"].([]any), 2)

	resp, envelope = doJSON(t, http.MethodGet, base+"/uploads?kind=panel&identifier=github", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, envelope["data"].([]any), 1)

	// Delete removes the panel and its runs.
	req, err := http.NewRequest(http.MethodDelete, base+"/panels/github", nil)
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, base+"/panels/github", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	ts, _ := newTestServer(t)
	base := ts.URL + "/api/v1"

	// Unknown panel maps to 404.
	resp, _ := doJSON(t, http.MethodGet, base+"/panels/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Workflow precondition violations map to 409.
	_, envelope := doJSON(t, http.MethodPost, base+"/panels", map[string]any{"name": "vpn"})
	require.NotNil(t, envelope["data"])
	resp, _ = doJSON(t, http.MethodPost, base+"/panels/vpn/reconcile", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unparsable uploads map to 400.
	resp, _ = doUpload(t, base+"/panels/vpn/upload", "empty.csv", "alice", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Wrong method maps to 405.
	resp, _ = doJSON(t, http.MethodDelete, base+"/panels", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSOTEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	base := ts.URL + "/api/v1"

	// The list always carries the built-in SOT types.
	resp, envelope := doJSON(t, http.MethodGet, base+"/sots", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, envelope["data"].([]any), 4)

	// Fields of a never-uploaded SOT are an empty list, not an error.
	resp, envelope = doJSON(t, http.MethodGet, base+"/sots/hr_data/fields", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, envelope["data"])

	resp, _ = doUpload(t, base+"/sots/hr_data/upload", "hr.csv", "bob",
		"employee_id,name\n1,Ana\n2,Bo\n3,Cy\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope = doJSON(t, http.MethodGet, base+"/sots/hr_data/fields", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []any{"employee_id", "name"}, envelope["data"].([]any))

	resp, envelope = doJSON(t, http.MethodGet, base+"/sots/hr_data/rows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), envelope["data"].(map[string]any)["row_count"])

	resp, _ = doJSON(t, http.MethodGet, base+"/sots/hr_data/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
