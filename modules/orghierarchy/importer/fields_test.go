package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/organization"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/infrastructure/persistence/memstore"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/services"
)

func newTestImporter(t *testing.T, url string, opts ...Option) *RestImporter {
	t.Helper()
	store := memstore.New()
	im, err := New(store, services.NewOrgService(store), url, opts...)
	require.NoError(t, err)
	return im
}

func resolve(t *testing.T, im *RestImporter, rec Record, field string, fc FieldConfig) (any, error) {
	t.Helper()
	return im.fieldValue(context.Background(), rec, field, fc)
}

func TestFieldValue_SourceFieldRemap(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")
	rec := Record{"id": float64(111), "origin_id": "ignored"}

	value, err := resolve(t, im, rec, "origin_id", FieldConfig{SourceField: "id"})
	require.NoError(t, err)
	require.Equal(t, float64(111), value)
}

func TestFieldValue_MissingField(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")

	_, err := resolve(t, im, Record{"origin_id": "x"}, "origin_id", FieldConfig{SourceField: "absent"})
	var missing *FieldMissingError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "absent", missing.SourceField)
}

func TestFieldValue_EmptyValuesPassThroughUntouched(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")

	for _, rec := range []Record{
		{"dissolution_date": nil},
		{"dissolution_date": ""},
		{"dissolution_date": []any{}},
	} {
		value, err := resolve(t, im, rec, "dissolution_date", FieldConfig{DataType: DataTypeStrLower})
		require.NoError(t, err)
		require.True(t, isEmpty(value))
	}
}

func TestFieldValue_UnwrapList(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")

	// empty list unwraps to nothing
	value, err := resolve(t, im, Record{"refs": []any{}}, "ref", FieldConfig{SourceField: "refs", UnwrapList: true})
	require.NoError(t, err)
	require.Nil(t, value)

	// multi-element list yields the first element
	value, err = resolve(t, im, Record{"refs": []any{"a", "b"}}, "ref", FieldConfig{SourceField: "refs", UnwrapList: true})
	require.NoError(t, err)
	require.Equal(t, "a", value)

	// without unwrap the list passes through
	value, err = resolve(t, im, Record{"refs": []any{"a"}}, "ref", FieldConfig{SourceField: "refs"})
	require.NoError(t, err)
	require.Equal(t, []any{"a"}, value)
}

func TestFieldValue_Unquote(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")

	value, err := resolve(t, im, Record{"ref": "abc%3A123"}, "ref", FieldConfig{Unquote: true})
	require.NoError(t, err)
	require.Equal(t, "abc:123", value)
}

func TestFieldValue_StrLower(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")

	value, err := resolve(t, im, Record{"origin_id": "ABC-123"}, "origin_id", FieldConfig{DataType: DataTypeStrLower})
	require.NoError(t, err)
	require.Equal(t, "abc-123", value)

	// numbers stringify before lowering
	value, err = resolve(t, im, Record{"origin_id": float64(42)}, "origin_id", FieldConfig{DataType: DataTypeStrLower})
	require.NoError(t, err)
	require.Equal(t, "42", value)
}

func TestFieldValue_Regex(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")
	rec := Record{"origin_id": "ABC-123"}

	_, err := resolve(t, im, rec, "origin_id", FieldConfig{DataType: DataTypeRegex})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	value, err := resolve(t, im, rec, "origin_id", FieldConfig{DataType: DataTypeRegex, Pattern: `\w+\-(\d+)`})
	require.NoError(t, err)
	require.Equal(t, "123", value)

	_, err = resolve(t, im, Record{"origin_id": "123"}, "origin_id", FieldConfig{DataType: DataTypeRegex, Pattern: `\w+\-(\d+)`})
	var patternErr *PatternError
	require.ErrorAs(t, err, &patternErr)
}

func TestFieldValue_UnknownDataType(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")

	_, err := resolve(t, im, Record{"origin_id": "x"}, "origin_id", FieldConfig{DataType: "nope"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, cfgErr.Message, "invalid data type")
	require.Contains(t, cfgErr.Message, "org_id_regex")
}

func TestFieldValue_Link(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/organizations/7/" {
			http.NotFound(w, req)
			return
		}
		writeJSON(t, w, map[string]any{"origin_id": "seven"})
	}))
	t.Cleanup(srv.Close)

	im := newTestImporter(t, srv.URL+"/organizations/", WithHTTPClient(srv.Client()))

	// field name without a related handler, so the fetched body comes back raw
	value, err := resolve(t, im, Record{"ref": "/organizations/7/"}, "ref", FieldConfig{DataType: DataTypeLink})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"origin_id": "seven"}, value)

	_, err = resolve(t, im, Record{"ref": "/missing/"}, "ref", FieldConfig{DataType: DataTypeLink})
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFieldValue_OrgIDLookup(t *testing.T) {
	im := newTestImporter(t, "http://example.test/")
	parentRec := Record{"id": "abc:123", "origin_id": "abc-123"}
	im.indexRecord(parentRec)

	value, err := resolve(t, im, Record{"ref": "abc:123"}, "ref", FieldConfig{DataType: DataTypeOrgID})
	require.NoError(t, err)
	require.Equal(t, parentRec, value)

	_, err = resolve(t, im, Record{"ref": "missing"}, "ref", FieldConfig{DataType: DataTypeOrgID})
	var invalid *InvalidRecordError
	require.ErrorAs(t, err, &invalid)
}

func TestFieldValue_OrgIDRegexCombined(t *testing.T) {
	im := newTestImporter(t, "http://example.test/", WithPreset(PresetAhjo))
	parentRec := Record{
		"id":        "abc:123",
		"origin_id": "parent-origin",
		"type":      "office",
		"name_fi":   "Parent Office",
		"parents":   []any{},
	}
	im.indexRecord(parentRec)

	fc := im.Config().FieldConfig["parent"]
	value, err := resolve(t, im, Record{"parents": []any{"http://api.test/org/abc%3A123/"}}, "parent", fc)
	require.NoError(t, err)

	// the extracted id resolves to the indexed record, which imports as an
	// organization through the parent handler
	parent, ok := value.(*organization.Organization)
	require.True(t, ok)
	require.NotNil(t, parent)
	require.Equal(t, "parent-origin", parent.OriginID())
}
