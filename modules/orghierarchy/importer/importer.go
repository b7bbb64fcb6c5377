// Package importer loads organization hierarchies from configurable REST
// APIs into the registry. Field mappings, pagination shape, and related
// entity handling come from a preset plus an optional override; records
// stream page by page and each top-level record imports in its own
// transaction, with referenced parents imported first.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/datasource"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/organization"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/orgclass"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/events"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/services"
	"github.com/jacksonlee411/orghierarchy/pkg/eventbus"
)

type RestImporter struct {
	url     string
	cfg     Config
	store   services.Store
	orgs    *services.OrgService
	bus     eventbus.EventBus
	log     logrus.FieldLogger
	fetcher *Fetcher
	runID   string
	related map[string]relatedHandler

	// run-scoped caches; first writer wins for the whole run
	dataSources   map[string]datasource.DataSource
	classes       map[string]orgclass.OrganizationClass
	organizations map[string]*organization.Organization
	records       map[string]Record
	inProgress    map[string]bool

	defaultParent         *organization.Organization
	creatingDefaultParent bool
	pendingEvents         []events.OrganizationImportedV1
}

type Option func(*options)

type options struct {
	preset   string
	override *Override
	client   *http.Client
	logger   logrus.FieldLogger
	bus      eventbus.EventBus
}

func WithPreset(name string) Option {
	return func(o *options) { o.preset = name }
}

func WithOverride(override *Override) Option {
	return func(o *options) { o.override = override }
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.logger = log }
}

func WithEventBus(bus eventbus.EventBus) Option {
	return func(o *options) { o.bus = bus }
}

func New(store services.Store, orgs *services.OrgService, url string, opts ...Option) (*RestImporter, error) {
	o := options{preset: PresetDecision}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := ResolveConfig(o.preset, o.override)
	if err != nil {
		return nil, err
	}

	var log logrus.FieldLogger = logrus.StandardLogger()
	if o.logger != nil {
		log = o.logger
	}
	runID := uuid.NewString()
	log = log.WithFields(logrus.Fields{"run_id": runID, "url": url})

	im := &RestImporter{
		url:           url,
		cfg:           cfg,
		store:         store,
		orgs:          orgs,
		bus:           o.bus,
		log:           log,
		runID:         runID,
		dataSources:   make(map[string]datasource.DataSource),
		classes:       make(map[string]orgclass.OrganizationClass),
		organizations: make(map[string]*organization.Organization),
		records:       make(map[string]Record),
		inProgress:    make(map[string]bool),
	}
	im.fetcher = NewFetcher(o.client, cfg, log)
	im.related = im.relatedHandlers()
	return im, nil
}

func (im *RestImporter) Config() Config {
	return im.cfg
}

func (im *RestImporter) RunID() string {
	return im.runID
}

// ImportAll streams every record from the endpoint and imports each one.
// The first record error aborts the run; records committed before it stay.
func (im *RestImporter) ImportAll(ctx context.Context) error {
	im.log.Info("importing organization data")
	return im.fetcher.Fetch(ctx, im.url, func(rec Record) error {
		im.indexRecord(rec)
		_, err := im.ImportOne(ctx, rec)
		return err
	})
}

// ImportOne imports a single record in its own transaction, including any
// parents it references. It returns nil for skipped records.
func (im *RestImporter) ImportOne(ctx context.Context, rec Record) (*organization.Organization, error) {
	if rec == nil {
		return nil, &InvalidRecordError{Message: "organization data must be an object or an organization id"}
	}

	start := time.Now()
	var out *organization.Organization
	err := im.store.Atomic(ctx, func(txCtx context.Context) error {
		var err error
		out, err = im.importOrganization(txCtx, rec)
		return err
	})
	recordDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		im.pendingEvents = im.pendingEvents[:0]
		return nil, err
	}
	im.publishPending()
	return out, nil
}

// indexRecord makes a raw record addressable by its literal "id" value for
// org_id lookups. The first record with a given id wins.
func (im *RestImporter) indexRecord(rec Record) {
	raw, ok := rec["id"]
	if !ok {
		return
	}
	id := stringify(raw)
	if id == "" {
		return
	}
	if _, exists := im.records[id]; !exists {
		im.records[id] = rec
	}
}

func (im *RestImporter) importOrganization(ctx context.Context, rec Record) (*organization.Organization, error) {
	originID, err := im.resolveOriginID(ctx, rec)
	if err != nil {
		return nil, err
	}

	key := originKey(originID)
	if cached, ok := im.organizations[key]; ok {
		return cached, nil
	}
	if im.inProgress[key] {
		return nil, &CycleError{OriginID: originID}
	}
	im.inProgress[key] = true
	defer delete(im.inProgress, key)

	if err := im.ensureDefaultParent(ctx); err != nil {
		return nil, err
	}

	ds, err := im.resolveDataSource(ctx, rec)
	if err != nil {
		return nil, err
	}

	existing, err := im.store.Organizations().GetByOrigin(ctx, ds.ID(), originID)
	switch {
	case err == nil:
		return im.updateOrganization(ctx, rec, existing, originID)
	case errors.Is(err, organization.ErrNotFound):
		return im.createOrganization(ctx, rec, ds, originID)
	default:
		return nil, err
	}
}

// originKey canonicalizes origin ids for the run caches and the in-progress
// set, matching the store's case-insensitive origin lookup. The stored
// record keeps its original casing.
func originKey(originID string) string {
	return strings.ToLower(originID)
}

func (im *RestImporter) resolveOriginID(ctx context.Context, rec Record) (string, error) {
	value, err := im.fieldValue(ctx, rec, "origin_id", im.cfg.fieldConfigFor("origin_id"))
	if err != nil {
		return "", err
	}
	originID := stringify(value)
	if isEmpty(value) || originID == "" {
		return "", &InvalidRecordError{Message: "organization record has no origin id"}
	}
	return originID, nil
}

// resolveDataSource falls back to the configured default when the record
// carries no usable data source and the field is absent or optional.
func (im *RestImporter) resolveDataSource(ctx context.Context, rec Record) (datasource.DataSource, error) {
	fc := im.cfg.fieldConfigFor("data_source")
	value, err := im.fieldValue(ctx, rec, "data_source", fc)
	if err != nil {
		if im.hasMandatoryDataSource() {
			return datasource.DataSource{}, err
		}
		return im.importDataSource(ctx, im.cfg.DefaultDataSource)
	}
	if ds, ok := value.(datasource.DataSource); ok && !ds.IsZero() {
		return ds, nil
	}
	return im.importDataSource(ctx, im.cfg.DefaultDataSource)
}

func (im *RestImporter) hasMandatoryDataSource() bool {
	fc, ok := im.cfg.FieldConfig["data_source"]
	return ok && !fc.Optional
}

func (im *RestImporter) createOrganization(ctx context.Context, rec Record, ds datasource.DataSource, originID string) (*organization.Organization, error) {
	org := organization.New(ds.ID(), originID)
	for _, field := range im.cfg.Fields {
		if field == "origin_id" || field == "data_source" {
			continue
		}
		fc := im.cfg.fieldConfigFor(field)
		value, err := im.fieldValue(ctx, rec, field, fc)
		if err != nil {
			if fc.Optional {
				continue
			}
			return nil, err
		}
		if field == "classification" {
			if class, ok := value.(orgclass.OrganizationClass); ok && im.skipsClass(class) {
				im.organizations[originKey(originID)] = nil
				im.log.WithFields(logrus.Fields{
					"origin_id":      originID,
					"classification": class.OriginID(),
				}).Info("skipping organization by classification")
				recordsImported.WithLabelValues("skipped").Inc()
				im.queueEvent(events.ChangeTypeSkipped, nil, ds.ID(), originID)
				return nil, nil
			}
		}
		if err := applyField(&org, field, value); err != nil {
			return nil, err
		}
	}
	im.applyDefaultParent(&org)

	saved, err := im.orgs.Create(ctx, org)
	if err != nil {
		return nil, err
	}
	im.organizations[originKey(originID)] = &saved
	im.log.WithField("id", saved.ID()).Info("organization created")
	recordsImported.WithLabelValues("created").Inc()
	im.queueEvent(events.ChangeTypeCreated, &saved, saved.DataSourceID(), originID)
	return &saved, nil
}

func (im *RestImporter) updateOrganization(ctx context.Context, rec Record, org organization.Organization, originID string) (*organization.Organization, error) {
	im.log.WithField("id", org.ID()).Info("organization already exists, updating")
	for _, field := range im.cfg.UpdateFields {
		fc := im.cfg.fieldConfigFor(field)
		value, err := im.fieldValue(ctx, rec, field, fc)
		if err != nil {
			if fc.Optional {
				continue
			}
			return nil, err
		}
		if err := applyField(&org, field, value); err != nil {
			return nil, err
		}
	}
	im.applyDefaultParent(&org)

	saved, err := im.orgs.Update(ctx, org)
	if err != nil {
		return nil, err
	}
	im.organizations[originKey(originID)] = &saved
	recordsImported.WithLabelValues("updated").Inc()
	im.queueEvent(events.ChangeTypeUpdated, &saved, saved.DataSourceID(), originID)
	return &saved, nil
}

func (im *RestImporter) skipsClass(class orgclass.OrganizationClass) bool {
	return slices.Contains(im.cfg.SkipClassifications, class.OriginID())
}

// ensureDefaultParent imports the configured default parent organization
// before the first regular record, synthesizing its record under the
// preset's source-field names.
func (im *RestImporter) ensureDefaultParent(ctx context.Context) error {
	if im.cfg.DefaultParentOrganization == "" || im.defaultParent != nil || im.creatingDefaultParent {
		return nil
	}
	im.creatingDefaultParent = true
	defer func() { im.creatingDefaultParent = false }()

	rec := Record{}
	rec[im.sourceFieldFor("origin_id")] = im.cfg.DefaultDataSource
	rec[im.sourceFieldFor("name")] = im.cfg.DefaultParentOrganization

	parent, err := im.importOrganization(ctx, rec)
	if err != nil {
		return fmt.Errorf("import default parent organization: %w", err)
	}
	im.defaultParent = parent
	return nil
}

func (im *RestImporter) sourceFieldFor(field string) string {
	if sf := im.cfg.fieldConfigFor(field).SourceField; sf != "" {
		return sf
	}
	return field
}

// applyDefaultParent attaches the run's default parent to organizations
// that end up without one, except the default parent itself.
func (im *RestImporter) applyDefaultParent(org *organization.Organization) {
	if im.defaultParent == nil || org.ParentID() != "" || org.ID() == im.defaultParent.ID() {
		return
	}
	org.SetParentID(im.defaultParent.ID())
}

func applyField(org *organization.Organization, field string, value any) error {
	switch field {
	case "origin_id":
		org.SetOriginID(stringify(value))
	case "data_source":
		if ds, ok := value.(datasource.DataSource); ok {
			org.SetDataSourceID(ds.ID())
		}
	case "name":
		org.SetName(stringifyEmpty(value))
	case "abbreviation":
		org.SetAbbreviation(stringifyEmpty(value))
	case "classification":
		if class, ok := value.(orgclass.OrganizationClass); ok {
			org.SetClassificationID(class.ID())
		} else {
			org.SetClassificationID("")
		}
	case "internal_type":
		typ, err := organization.ParseInternalType(stringify(value))
		if err != nil {
			return &InvalidRecordError{Message: err.Error()}
		}
		org.SetInternalType(typ)
	case "founding_date":
		d, err := parseDate(value)
		if err != nil {
			return err
		}
		org.SetFoundingDate(d)
	case "dissolution_date":
		d, err := parseDate(value)
		if err != nil {
			return err
		}
		org.SetDissolutionDate(d)
	case "parent":
		parent, _ := value.(*organization.Organization)
		if parent == nil {
			org.SetParentID("")
		} else {
			org.SetParentID(parent.ID())
		}
	default:
		return &ConfigError{Message: fmt.Sprintf("unsupported organization field: %s", field)}
	}
	return nil
}

func stringifyEmpty(value any) string {
	if isEmpty(value) {
		return ""
	}
	return stringify(value)
}

func parseDate(value any) (*time.Time, error) {
	if isEmpty(value) {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, &InvalidRecordError{Message: fmt.Sprintf("expected a date string, got %T", value)}
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil, &InvalidRecordError{Message: fmt.Sprintf("cannot parse date %q: %v", s, err)}
	}
	return &t, nil
}

func (im *RestImporter) queueEvent(changeType string, org *organization.Organization, dataSourceID, originID string) {
	if im.bus == nil {
		return
	}
	e := events.OrganizationImportedV1{
		EventID:      uuid.New(),
		EventVersion: events.EventVersionV1,
		RunID:        im.runID,
		ChangeType:   changeType,
		DataSourceID: dataSourceID,
		OriginID:     originID,
		OccurredAt:   time.Now().UTC(),
	}
	if org != nil {
		e.OrganizationID = org.ID()
		e.Name = org.Name()
	}
	im.pendingEvents = append(im.pendingEvents, e)
}

// publishPending flushes queued events after the record's transaction
// committed, so rolled-back work never publishes.
func (im *RestImporter) publishPending() {
	for _, e := range im.pendingEvents {
		im.bus.Publish(e)
		im.log.WithFields(logrus.Fields{
			"topic":       events.TopicOrganizationImportedV1,
			"change_type": e.ChangeType,
			"origin_id":   e.OriginID,
		}).Debug("import event published")
	}
	im.pendingEvents = im.pendingEvents[:0]
}
