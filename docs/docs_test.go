package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocRenders(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var parsed struct {
		BasePath string                     `json:"basePath"`
		Info     map[string]interface{}     `json:"info"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed), "rendered template must be valid JSON")

	assert.Equal(t, "/api", parsed.BasePath)
	assert.Equal(t, "ToolX API", parsed.Info["title"])
	assert.Contains(t, parsed.Paths, "/auth/request-code")
	assert.Contains(t, parsed.Paths, "/auth/verify-code")
	assert.Contains(t, parsed.Paths, "/link-preview")
}
