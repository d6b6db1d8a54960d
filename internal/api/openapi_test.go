package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPISpecIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(OpenAPISpec))
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))
}

func TestOpenAPISpecCoversRoutes(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(OpenAPISpec))
	require.NoError(t, err)

	for _, path := range []string{
		"/health",
		"/metrics",
		"/openapi.json",
		"/api/v1/debates",
		"/api/v1/debates/{id}",
		"/api/v1/debates/{id}/cancel",
		"/api/v1/teams",
		"/api/v1/teams/{key}",
		"/api/v1/events",
		"/api/v1/events/ws",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "path %s missing from spec", path)
	}
}

func TestOpenAPISpecServed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title string `json:"title"`
		} `json:"info"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "MailCouncil API", doc.Info.Title)
}
