package importer

import "fmt"

// ConfigError reports an unusable import configuration: unknown preset,
// unknown data type, or a regex data type without a pattern.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// FieldMissingError reports a source field absent from the fetched record.
type FieldMissingError struct {
	SourceField string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("field not found in source data: %s", e.SourceField)
}

// PatternError reports a regex data type whose pattern matched nothing.
type PatternError struct {
	Value   string
	Pattern string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("cannot extract data from string %q with pattern %q", e.Value, e.Pattern)
}

// FetchError reports a failed page or link retrieval: transport error,
// non-2xx status, or undecodable payload.
type FetchError struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s failed: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// InvalidRecordError reports input that cannot be imported as an
// organization record.
type InvalidRecordError struct {
	Message string
}

func (e *InvalidRecordError) Error() string {
	return e.Message
}

// CycleError reports a parent chain that loops back onto a record whose
// import is still in progress.
type CycleError struct {
	OriginID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle detected for origin id %q", e.OriginID)
}
