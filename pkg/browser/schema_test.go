package browser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productSchema() *Schema {
	return &Schema{Fields: []Field{
		{Name: "title", Kind: KindString, Required: true},
		{Name: "price", Kind: KindNumber, Required: true},
		{Name: "in_stock", Kind: KindBool},
		{Name: "seller", Kind: KindObject, Fields: []Field{
			{Name: "name", Kind: KindString, Required: true},
		}},
		{Name: "items", Kind: KindArray, Elem: &Field{Kind: KindObject, Fields: []Field{
			{Name: "sku", Kind: KindString, Required: true},
			{Name: "price", Kind: KindNumber, Required: true},
		}}},
	}}
}

func TestSchema_ValidateConforming(t *testing.T) {
	raw := json.RawMessage(`{
		"title": "Widget",
		"price": 9.99,
		"in_stock": true,
		"seller": {"name": "ACME"},
		"items": [{"sku": "a-1", "price": 1}, {"sku": "a-2", "price": 2}]
	}`)
	assert.Nil(t, productSchema().Validate(raw))
}

func TestSchema_ValidateOptionalAbsent(t *testing.T) {
	raw := json.RawMessage(`{"title": "Widget", "price": 9.99}`)
	assert.Nil(t, productSchema().Validate(raw))
}

func TestSchema_ValidateViolations(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantPath   string
		wantReason string
	}{
		{
			name:       "missing required top-level field",
			payload:    `{"title": "Widget"}`,
			wantPath:   "price",
			wantReason: "required field is missing",
		},
		{
			name:       "null required field",
			payload:    `{"title": "Widget", "price": null}`,
			wantPath:   "price",
			wantReason: "required field is missing",
		},
		{
			name:       "wrong type",
			payload:    `{"title": "Widget", "price": "9.99"}`,
			wantPath:   "price",
			wantReason: "expected number, got string",
		},
		{
			name:       "missing nested required field",
			payload:    `{"title": "Widget", "price": 1, "seller": {}}`,
			wantPath:   "seller.name",
			wantReason: "required field is missing",
		},
		{
			name:       "bad array element names index",
			payload:    `{"title": "Widget", "price": 1, "items": [{"sku": "a", "price": 1}, {"sku": "b"}]}`,
			wantPath:   "items[1].price",
			wantReason: "required field is missing",
		},
		{
			name:       "array element of wrong type",
			payload:    `{"title": "Widget", "price": 1, "items": ["sku-only"]}`,
			wantPath:   "items[0]",
			wantReason: "expected object, got string",
		},
		{
			name:       "payload not an object",
			payload:    `[1, 2, 3]`,
			wantPath:   "",
			wantReason: "payload is not a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violation := productSchema().Validate(json.RawMessage(tt.payload))
			require.NotNil(t, violation)
			assert.Equal(t, tt.wantPath, violation.Path)
			assert.Equal(t, tt.wantReason, violation.Reason)
		})
	}
}

func TestSchema_CheckRejectsMalformedSchemas(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		wantErr string
	}{
		{
			name:    "empty schema",
			schema:  &Schema{},
			wantErr: "at least one field",
		},
		{
			name:    "unknown kind",
			schema:  &Schema{Fields: []Field{{Name: "id", Kind: "uuid"}}},
			wantErr: "unknown kind",
		},
		{
			name:    "nameless field",
			schema:  &Schema{Fields: []Field{{Kind: KindString}}},
			wantErr: "no name",
		},
		{
			name:    "object without shape",
			schema:  &Schema{Fields: []Field{{Name: "seller", Kind: KindObject}}},
			wantErr: "no nested fields",
		},
		{
			name:    "array without element type",
			schema:  &Schema{Fields: []Field{{Name: "items", Kind: KindArray}}},
			wantErr: "no element type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Check()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchema_CheckAcceptsNestedSchema(t *testing.T) {
	require.NoError(t, productSchema().Check())
}

func TestSchema_MarshalForInterpreter(t *testing.T) {
	raw, err := json.Marshal(&Schema{Fields: []Field{
		{Name: "title", Kind: KindString, Required: true},
		{Name: "tags", Kind: KindArray, Elem: &Field{Kind: KindString}},
	}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	fields, ok := decoded["fields"].([]any)
	require.True(t, ok)
	require.Len(t, fields, 2)

	first := fields[0].(map[string]any)
	assert.Equal(t, "title", first["name"])
	assert.Equal(t, "string", first["kind"])
	assert.Equal(t, true, first["required"])
}
