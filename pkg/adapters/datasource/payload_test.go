package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentQuery(t *testing.T) {
	q, err := ParseDocumentQuery(`{"database":"app","collection":"users","filter":{"active":true}}`)
	require.NoError(t, err)
	assert.Equal(t, "app", q.Database)
	assert.Equal(t, "users", q.Collection)
	assert.Equal(t, "find", q.Operation) // default
	assert.Equal(t, map[string]any{"active": true}, q.Filter)
}

func TestParseDocumentQueryMissingCollection(t *testing.T) {
	_, err := ParseDocumentQuery(`{"database":"app"}`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseDocumentQueryBadJSON(t *testing.T) {
	_, err := ParseDocumentQuery(`SELECT * FROM users`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseRESTQuery(t *testing.T) {
	q, err := ParseRESTQuery(`{"endpoint":"/items","method":"post","body":{"name":"x"}}`)
	require.NoError(t, err)
	assert.Equal(t, "/items", q.Endpoint)
	assert.Equal(t, "POST", q.Method)
	assert.Equal(t, map[string]any{"name": "x"}, q.Body)
}

func TestParseRESTQueryDefaultsToGET(t *testing.T) {
	q, err := ParseRESTQuery(`{"endpoint":"/items"}`)
	require.NoError(t, err)
	assert.Equal(t, "GET", q.Method)
}

func TestParseRESTQueryBadJSON(t *testing.T) {
	_, err := ParseRESTQuery(`/items?limit=5`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseKeyValueQuery(t *testing.T) {
	q, err := ParseKeyValueQuery(`{"command":"GET","args":["session:42"]}`)
	require.NoError(t, err)
	assert.Equal(t, "GET", q.Command)
	assert.Equal(t, []any{"session:42"}, q.Args)
}

func TestParseKeyValueQueryMissingCommand(t *testing.T) {
	_, err := ParseKeyValueQuery(`{"args":["k"]}`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
