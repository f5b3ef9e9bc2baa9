package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-io/appforge-engine/pkg/apperrors"
	"github.com/appforge-io/appforge-engine/pkg/models"
)

func newTestDriver(t *testing.T, handler http.HandlerFunc) *Driver {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	driver, err := New(context.Background(), map[string]any{"endpoint": server.URL})
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestFromMapRequiresEndpoint(t *testing.T) {
	_, err := FromMap(map[string]any{})
	require.Error(t, err)
	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "endpoint", ve.Field)
}

func TestTestPostsIntrospectionProbe(t *testing.T) {
	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, introspectionProbe, body["query"])
		w.Write([]byte(`{"data":{"__schema":{"types":[{"name":"Query"}]}}}`))
	})

	raw, err := driver.Test(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, raw.Rows, 1)
	assert.Contains(t, raw.Rows[0]["response"], "__schema")
}

func TestTestFailsOnNon2xx(t *testing.T) {
	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := driver.Test(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestQuerySendsVariablesAndFlattens(t *testing.T) {
	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		vars, ok := body["variables"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "active", vars["state"])
		w.Write([]byte(`{"data":{"users":[{"id":"1"},{"id":"2"}],"total":2}}`))
	})

	raw, err := driver.Query(context.Background(), &models.QueryRequest{
		Query:      "query($state: String) { users(state: $state) { id } total }",
		Parameters: map[string]any{"state": "active"},
	})
	require.NoError(t, err)
	require.Len(t, raw.Rows, 3)
	assert.Equal(t, map[string]any{"total": float64(2)}, raw.Rows[0])
	assert.Equal(t, map[string]any{"id": "1"}, raw.Rows[1])
	assert.Equal(t, map[string]any{"id": "2"}, raw.Rows[2])
}

func TestQuerySurfacesGraphQLErrors(t *testing.T) {
	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"Cannot query field \"nope\""}]}`))
	})

	_, err := driver.Query(context.Background(), &models.QueryRequest{Query: "{ nope }"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestFlattenDataDeterministicOrder(t *testing.T) {
	rows := flattenData(map[string]any{
		"zeta":  "last-field-name",
		"alpha": []any{"x", "y"},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"alpha": "x"}, rows[0])
	assert.Equal(t, map[string]any{"alpha": "y"}, rows[1])
	assert.Equal(t, map[string]any{"zeta": "last-field-name"}, rows[2])
}
