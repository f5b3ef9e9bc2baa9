package models

// SchemaResult is the normalized schema description. Supported is an
// explicit marker: backend kinds without introspection return
// Supported=false rather than an empty-but-successful schema, so callers
// can tell "no schema" from "schema unavailable".
type SchemaResult struct {
	Success     bool                         `json:"success"`
	Supported   bool                         `json:"supported"`
	Tables      map[string]*TableSchema      `json:"tables,omitempty"`
	Collections map[string]*CollectionSchema `json:"collections,omitempty"`
	Error       string                       `json:"error,omitempty"`
	ErrorKind   string                       `json:"error_kind,omitempty"`
}

// TableSchema describes one relational table.
type TableSchema struct {
	// DisplayName is the singular form of the table name, for UI labels.
	DisplayName string         `json:"display_name,omitempty"`
	Columns     []ColumnSchema `json:"columns"`
}

// ColumnSchema describes one relational column with its native type
// string and dialect-specific key/default/extra metadata.
type ColumnSchema struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Key      string `json:"key,omitempty"`
	Default  any    `json:"default,omitempty"`
	Extra    string `json:"extra,omitempty"`
}

// CollectionSchema describes one document collection, inferred from a
// single sampled document with its identifier stringified.
type CollectionSchema struct {
	Fields         []string       `json:"fields"`
	SampleDocument map[string]any `json:"sample_document,omitempty"`
}

// UnsupportedSchema returns the explicit not-supported marker.
func UnsupportedSchema() *SchemaResult {
	return &SchemaResult{
		Success:   true,
		Supported: false,
		Error:     "schema introspection not supported for this data source type",
	}
}
