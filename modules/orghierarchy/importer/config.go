package importer

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DataType selects the transformation applied to a raw field value.
type DataType string

const (
	DataTypeValue      DataType = "value"
	DataTypeStrLower   DataType = "str_lower"
	DataTypeLink       DataType = "link"
	DataTypeRegex      DataType = "regex"
	DataTypeOrgID      DataType = "org_id"
	DataTypeOrgIDRegex DataType = "org_id_regex"
)

var supportedDataTypes = []DataType{
	DataTypeValue,
	DataTypeStrLower,
	DataTypeLink,
	DataTypeRegex,
	DataTypeOrgID,
	DataTypeOrgIDRegex,
}

func supportedDataTypeNames() string {
	names := make([]string, len(supportedDataTypes))
	for i, t := range supportedDataTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// FieldConfig describes how one organization field is resolved from a raw
// record.
type FieldConfig struct {
	SourceField string   `toml:"source_field"`
	DataType    DataType `toml:"data_type"`
	Pattern     string   `toml:"pattern"`
	Optional    bool     `toml:"optional"`
	UnwrapList  bool     `toml:"unwrap_list"`
	Unquote     bool     `toml:"unquote"`
}

// Config is a fully resolved import configuration.
type Config struct {
	// NextKey holds the key of the next-page link; empty disables
	// pagination. With HasMeta the key is looked up under "meta".
	NextKey    string
	ResultsKey string
	HasMeta    bool

	Fields       []string `validate:"min=1"`
	UpdateFields []string
	FieldConfig  map[string]FieldConfig

	DefaultDataSource         string `validate:"required"`
	DefaultParentOrganization string
	RenameDataSource          map[string]string
	SkipClassifications       []string
}

// Override is the user-supplied partial configuration, decoded from TOML.
// Nil pointers and nil collections mean "inherit from the preset".
type Override struct {
	NextKey    *string `toml:"next_key"`
	ResultsKey *string `toml:"results_key"`
	HasMeta    *bool   `toml:"has_meta"`

	Fields       []string               `toml:"fields"`
	UpdateFields []string               `toml:"update_fields"`
	FieldConfig  map[string]FieldConfig `toml:"field_config"`

	DefaultDataSource         *string           `toml:"default_data_source"`
	DefaultParentOrganization *string           `toml:"default_parent_organization"`
	RenameDataSource          map[string]string `toml:"rename_data_source"`
	SkipClassifications       []string          `toml:"skip_classifications"`
}

const (
	// PresetDecision reads decision APIs paginated with top-level
	// next/results keys and hyperlinked parent records.
	PresetDecision = "decision"
	// PresetAhjo reads APIs with meta-nested pagination and parent ids
	// embedded in percent-encoded resource URLs.
	PresetAhjo = "ahjo"
	// PresetFacility reads unpaginated facility registries with bare
	// parent ids and a shared default parent organization.
	PresetFacility = "facility"
)

func presetConfig(name string) (Config, error) {
	switch name {
	case PresetDecision:
		return Config{
			NextKey:    "next",
			ResultsKey: "results",
			Fields: []string{
				"data_source", "origin_id", "classification", "name",
				"founding_date", "dissolution_date", "parent",
			},
			UpdateFields: []string{
				"classification", "name", "founding_date", "dissolution_date", "parent",
			},
			FieldConfig: map[string]FieldConfig{
				"origin_id": {DataType: DataTypeStrLower},
				"parent":    {DataType: DataTypeLink},
			},
			DefaultDataSource: "OpenDecisionAPI",
		}, nil
	case PresetAhjo:
		return Config{
			NextKey:    "next",
			ResultsKey: "objects",
			HasMeta:    true,
			Fields: []string{
				"origin_id", "classification", "name",
				"founding_date", "dissolution_date", "parent",
			},
			UpdateFields: []string{
				"classification", "name", "founding_date", "dissolution_date", "parent",
			},
			FieldConfig: map[string]FieldConfig{
				"origin_id":        {DataType: DataTypeStrLower},
				"classification":   {SourceField: "type"},
				"name":             {SourceField: "name_fi"},
				"founding_date":    {Optional: true},
				"dissolution_date": {Optional: true},
				"parent": {
					SourceField: "parents",
					DataType:    DataTypeOrgIDRegex,
					Pattern:     `\/(\w+:\w+)\/$`,
					Optional:    true,
					UnwrapList:  true,
					Unquote:     true,
				},
			},
			DefaultDataSource: "OpenAhjoAPI",
		}, nil
	case PresetFacility:
		return Config{
			Fields: []string{"origin_id", "classification", "name", "parent"},
			UpdateFields: []string{
				"classification", "name", "parent",
			},
			FieldConfig: map[string]FieldConfig{
				"origin_id":      {SourceField: "id"},
				"classification": {SourceField: "organization_type", Optional: true},
				"name":           {SourceField: "name_fi", Optional: true},
				"parent":         {SourceField: "parent_id", Optional: true},
			},
			DefaultDataSource:         "tprek",
			DefaultParentOrganization: "Pääkaupunkiseudun toimipisterekisteri",
		}, nil
	default:
		return Config{}, &ConfigError{Message: fmt.Sprintf("unknown preset: %q", name)}
	}
}

// Preset returns a deep copy of the named built-in configuration.
func Preset(name string) (Config, error) {
	cfg, err := presetConfig(name)
	if err != nil {
		return Config{}, err
	}
	cfg.Fields = append([]string(nil), cfg.Fields...)
	cfg.UpdateFields = append([]string(nil), cfg.UpdateFields...)
	cfg.SkipClassifications = append([]string(nil), cfg.SkipClassifications...)
	fieldConfig := make(map[string]FieldConfig, len(cfg.FieldConfig))
	for k, v := range cfg.FieldConfig {
		fieldConfig[k] = v
	}
	cfg.FieldConfig = fieldConfig
	renames := make(map[string]string, len(cfg.RenameDataSource))
	for k, v := range cfg.RenameDataSource {
		renames[k] = v
	}
	cfg.RenameDataSource = renames
	return cfg, nil
}

var validate = validator.New()

// ResolveConfig merges an override onto the named preset. The override's
// field list replaces the preset's; for each listed field the override's
// field config wins, otherwise the preset's is inherited, otherwise the
// field carries no config at all.
func ResolveConfig(preset string, override *Override) (Config, error) {
	cfg, err := Preset(preset)
	if err != nil {
		return Config{}, err
	}
	if override == nil {
		return cfg, cfg.Validate()
	}

	fields := override.Fields
	if fields == nil {
		fields = cfg.Fields
	}
	merged := make(map[string]FieldConfig, len(fields))
	for _, field := range fields {
		if fc, ok := override.FieldConfig[field]; ok {
			merged[field] = fc
		} else if fc, ok := cfg.FieldConfig[field]; ok {
			merged[field] = fc
		}
	}
	cfg.Fields = fields
	cfg.FieldConfig = merged

	if override.UpdateFields != nil {
		cfg.UpdateFields = override.UpdateFields
	}
	if override.NextKey != nil {
		cfg.NextKey = *override.NextKey
	}
	if override.ResultsKey != nil {
		cfg.ResultsKey = *override.ResultsKey
	}
	if override.HasMeta != nil {
		cfg.HasMeta = *override.HasMeta
	}
	if override.DefaultDataSource != nil {
		cfg.DefaultDataSource = *override.DefaultDataSource
	}
	if override.DefaultParentOrganization != nil {
		cfg.DefaultParentOrganization = *override.DefaultParentOrganization
	}
	if override.RenameDataSource != nil {
		cfg.RenameDataSource = override.RenameDataSource
	}
	if override.SkipClassifications != nil {
		cfg.SkipClassifications = override.SkipClassifications
	}
	return cfg, cfg.Validate()
}

func (c Config) fieldConfigFor(field string) FieldConfig {
	return c.FieldConfig[field]
}

// Validate checks the structural constraints that do not depend on source
// data. Data type and pattern problems surface lazily during resolution,
// so a config whose broken fields are never touched still imports.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &ConfigError{Message: fmt.Sprintf("invalid import config: %v", err)}
	}
	return nil
}
