package importer

import (
	"context"
	"strings"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/datasource"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/orgclass"
)

// relatedHandler converts a resolved field value into its persisted related
// entity. The handler table is fixed: data_source, classification, parent.
type relatedHandler func(ctx context.Context, value any) (any, error)

func (im *RestImporter) relatedHandlers() map[string]relatedHandler {
	return map[string]relatedHandler{
		"data_source": func(ctx context.Context, value any) (any, error) {
			return im.importDataSource(ctx, value)
		},
		"classification": func(ctx context.Context, value any) (any, error) {
			return im.importOrganizationClass(ctx, value)
		},
		"parent": func(ctx context.Context, value any) (any, error) {
			return im.importParent(ctx, value)
		},
	}
}

// importDataSource registers a data source, applying the rename map before
// cache and storage lookups so renamed ids never reach the database.
func (im *RestImporter) importDataSource(ctx context.Context, value any) (datasource.DataSource, error) {
	var id, name string
	switch v := value.(type) {
	case map[string]any:
		rawID, ok := v["id"]
		if !ok {
			return datasource.DataSource{}, &FieldMissingError{SourceField: "id"}
		}
		id = stringify(rawID)
		if n, ok := v["name"].(string); ok {
			name = n
		}
	case Record:
		return im.importDataSource(ctx, map[string]any(v))
	default:
		id = stringify(value)
	}

	if renamed, ok := im.cfg.RenameDataSource[id]; ok {
		id = renamed
	}
	if ds, ok := im.dataSources[id]; ok {
		return ds, nil
	}

	ds, err := im.store.DataSources().GetOrCreate(ctx, datasource.New(id, name))
	if err != nil {
		return datasource.DataSource{}, err
	}
	im.dataSources[id] = ds
	return ds, nil
}

// importOrganizationClass registers a classification. A bare identifier
// containing a colon is split into data source and origin id; otherwise the
// configured default data source provides the namespace. The class name
// defaults to the composite id.
func (im *RestImporter) importOrganizationClass(ctx context.Context, value any) (orgclass.OrganizationClass, error) {
	var identifier, originID, sourceID, name string
	switch v := value.(type) {
	case map[string]any:
		if raw, ok := v["id"]; ok {
			identifier = stringify(raw)
		}
		if o, ok := v["origin_id"].(string); ok {
			originID = o
		}
		if s, ok := v["data_source"].(string); ok {
			sourceID = s
		}
		if n, ok := v["name"].(string); ok {
			name = n
		}
	case Record:
		return im.importOrganizationClass(ctx, map[string]any(v))
	default:
		identifier = stringify(value)
	}

	if prefix, suffix, found := strings.Cut(identifier, ":"); found {
		if sourceID == "" {
			sourceID = prefix
		}
		if originID == "" {
			originID = suffix
		}
	}
	if originID == "" {
		originID = identifier
	}
	if originID == "" {
		originID = name
	}
	if sourceID == "" {
		sourceID = im.cfg.DefaultDataSource
	}

	ds, err := im.importDataSource(ctx, sourceID)
	if err != nil {
		return orgclass.OrganizationClass{}, err
	}

	compositeID := ds.ID() + ":" + originID
	if class, ok := im.classes[compositeID]; ok {
		return class, nil
	}

	class, err := im.store.OrganizationClasses().GetOrCreate(ctx, orgclass.New(ds.ID(), originID, name))
	if err != nil {
		return orgclass.OrganizationClass{}, err
	}
	im.classes[class.ID()] = class
	return class, nil
}

// importParent re-enters the engine for the referenced record. A bare
// string is accepted here (unlike at the top level) and treated as the
// parent's origin id under the record's source-field mapping.
func (im *RestImporter) importParent(ctx context.Context, value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return im.importOrganization(ctx, Record(v))
	case Record:
		return im.importOrganization(ctx, v)
	case string, float64:
		return im.importOrganization(ctx, Record{im.sourceFieldFor("origin_id"): stringify(v)})
	default:
		return nil, &InvalidRecordError{Message: "organization data must be an object or an organization id"}
	}
}
