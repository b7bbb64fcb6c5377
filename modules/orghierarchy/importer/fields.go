package importer

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// fieldValue resolves one organization field from a raw record, in order:
// source-field lookup, empty-list unwrap, empty-value passthrough,
// single-element unwrap, percent-decoding, data type transformation,
// related-entity dispatch.
func (im *RestImporter) fieldValue(ctx context.Context, rec Record, field string, fc FieldConfig) (any, error) {
	sourceField := fc.SourceField
	if sourceField == "" {
		sourceField = field
	}
	value, ok := rec[sourceField]
	if !ok {
		return nil, &FieldMissingError{SourceField: sourceField}
	}

	if fc.UnwrapList {
		if list, ok := value.([]any); ok && len(list) == 0 {
			value = nil
		}
	}
	if isEmpty(value) {
		return value, nil
	}
	if fc.UnwrapList {
		if list, ok := value.([]any); ok {
			if len(list) > 1 {
				im.log.WithFields(logrus.Fields{
					"field":    field,
					"elements": len(list),
				}).Warn("unwrap_list field has multiple elements, using the first")
			}
			value = list[0]
		}
	}
	if fc.Unquote {
		if s, ok := value.(string); ok {
			decoded, err := url.PathUnescape(s)
			if err != nil {
				return nil, &InvalidRecordError{Message: fmt.Sprintf("cannot percent-decode field %s value %q: %v", field, s, err)}
			}
			value = decoded
		}
	}

	var err error
	switch fc.DataType {
	case "", DataTypeValue:
	case DataTypeStrLower:
		value = strings.ToLower(stringify(value))
	case DataTypeLink:
		value, err = im.fetcher.LinkData(ctx, im.url, stringify(value))
		if err != nil {
			return nil, err
		}
	case DataTypeRegex:
		value, err = regexExtract(field, stringify(value), fc.Pattern)
		if err != nil {
			return nil, err
		}
	case DataTypeOrgID:
		value, err = im.lookupRecord(stringify(value))
		if err != nil {
			return nil, err
		}
	case DataTypeOrgIDRegex:
		extracted, err := regexExtract(field, stringify(value), fc.Pattern)
		if err != nil {
			return nil, err
		}
		value, err = im.lookupRecord(extracted)
		if err != nil {
			return nil, err
		}
	default:
		return nil, &ConfigError{Message: fmt.Sprintf(
			"invalid data type: %s. supported data types are: %s",
			fc.DataType, supportedDataTypeNames(),
		)}
	}

	if handler, ok := im.related[field]; ok {
		value, err = handler(ctx, value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

// lookupRecord finds a previously fetched raw record by its literal "id"
// value. Records become visible as their page streams in, so references
// across pages resolve only backwards.
func (im *RestImporter) lookupRecord(id string) (Record, error) {
	rec, ok := im.records[id]
	if !ok {
		return nil, &InvalidRecordError{Message: fmt.Sprintf("no fetched record with id %q", id)}
	}
	return rec, nil
}

func regexExtract(field, value, pattern string) (string, error) {
	if pattern == "" {
		return "", &ConfigError{Message: fmt.Sprintf("no regex pattern provided for field: %s", field)}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", &ConfigError{Message: fmt.Sprintf("invalid regex pattern for field %s: %v", field, err)}
	}
	m := re.FindStringSubmatch(value)
	if len(m) < 2 {
		return "", &PatternError{Value: value, Pattern: pattern}
	}
	return m[1], nil
}

// isEmpty treats nil, empty strings, and empty collections as absent.
// Numeric zero and false are real values.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case Record:
		return len(v) == 0
	default:
		return false
	}
}

// stringify renders a decoded JSON scalar the way the source printed it;
// whole floats drop the fractional part so numeric ids round-trip.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
