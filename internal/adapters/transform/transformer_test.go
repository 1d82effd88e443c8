package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
)

const orderXML = `<?xml version="1.0"?>
<order id="ORD-7">
  <header>
    <destination>north-dc</destination>
    <priority>2</priority>
  </header>
  <item>
    <sku>XK-99</sku>
    <qty>3</qty>
    <fragile>true</fragile>
  </item>
</order>`

func orderConfig() Config {
	return Config{
		Mappings: map[string]FieldMapping{
			"itemId":      {Path: "order/@id"},
			"destination": {Path: "order/header/destination"},
			"priority":    {Path: "header/priority", Type: "int"},
			"detail": {
				Fields: map[string]FieldMapping{
					"sku":     {Path: "item/sku"},
					"qty":     {Path: "item/qty", Type: "int"},
					"fragile": {Path: "item/fragile", Type: "bool"},
				},
			},
			"carrier": {Path: "header/carrier", Optional: true},
		},
	}
}

func newTestTransformer(t *testing.T) *Transformer {
	t.Helper()
	tr, err := New(orderConfig(), nil)
	require.NoError(t, err)
	return tr
}

func TestTransformExtractsCanonicalFields(t *testing.T) {
	tr := newTestTransformer(t)

	item, err := tr.Transform([]byte(orderXML))
	require.NoError(t, err)

	assert.Equal(t, "ORD-7", item.ItemID)
	assert.Equal(t, "north-dc", item.Destination)
	assert.True(t, item.Routable())

	assert.Equal(t, int64(2), item.Fields["priority"])

	detail, ok := item.Fields["detail"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "XK-99", detail["sku"])
	assert.Equal(t, int64(3), detail["qty"])
	assert.Equal(t, true, detail["fragile"])

	// Missing optional field stays absent rather than empty.
	_, present := item.Fields["carrier"]
	assert.False(t, present)
}

func TestTransformIsIdempotent(t *testing.T) {
	tr := newTestTransformer(t)

	first, err := tr.Transform([]byte(orderXML))
	require.NoError(t, err)
	second, err := tr.Transform([]byte(orderXML))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTransformMalformedXML(t *testing.T) {
	tr := newTestTransformer(t)

	cases := map[string]string{
		"truncated":     `<order><item>`,
		"unbalanced":    `<order></item></order>`,
		"empty":         ``,
		"text only":     `not xml at all`,
		"double rooted": `<a></a><b></b>`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tr.Transform([]byte(raw))
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))

			ok, reason := tr.Validate([]byte(raw))
			assert.False(t, ok)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestTransformMissingRequiredField(t *testing.T) {
	tr := newTestTransformer(t)

	_, err := tr.Transform([]byte(`<order id="ORD-8"><header></header><item><sku>A</sku><qty>1</qty><fragile>false</fragile></item></order>`))
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	assert.Contains(t, err.Error(), "destination")
}

func TestTransformCoercionFailure(t *testing.T) {
	tr := newTestTransformer(t)

	bad := `<order id="ORD-9">
  <header><destination>south</destination><priority>high</priority></header>
  <item><sku>A</sku><qty>1</qty><fragile>false</fragile></item>
</order>`

	_, err := tr.Transform([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coerce")
}

func TestValidateAcceptsWellFormedXML(t *testing.T) {
	tr := newTestTransformer(t)

	ok, reason := tr.Validate([]byte(orderXML))
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestNewRejectsBadMappingConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)

	_, err = New(Config{Mappings: map[string]FieldMapping{
		"x": {},
	}}, nil)
	require.Error(t, err)

	_, err = New(Config{Mappings: map[string]FieldMapping{
		"x": {Path: "a/b", Type: "decimal"},
	}}, nil)
	require.Error(t, err)

	_, err = New(Config{Mappings: map[string]FieldMapping{
		"x": {Path: "a/b", Fields: map[string]FieldMapping{"y": {Path: "c"}}},
	}}, nil)
	require.Error(t, err)
}

func TestLookupPathForms(t *testing.T) {
	root, err := parseXML([]byte(orderXML))
	require.NoError(t, err)

	// Path may start with or without the root element name.
	for _, path := range []string{"order/header/destination", "header/destination"} {
		text, ok := root.lookup(path)
		require.True(t, ok, path)
		assert.Equal(t, "north-dc", text)
	}

	attr, ok := root.lookup("order/@id")
	require.True(t, ok)
	assert.Equal(t, "ORD-7", attr)

	_, ok = root.lookup("header/@missing")
	assert.False(t, ok)

	_, ok = root.lookup("no/such/path")
	assert.False(t, ok)

	// An attribute segment must be terminal.
	_, ok = root.lookup("order/@id/deeper")
	assert.False(t, ok)
}
