// Package memstore provides an in-memory implementation of the store
// surface used by the import engine. It backs unit tests and the CLI
// dry-run mode. Atomic takes a snapshot of all tables and restores it if
// the wrapped function fails.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/datasource"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/organization"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/orgclass"
)

type txMarker struct{}

type Store struct {
	mu      sync.Mutex
	orgs    map[string]organization.Organization
	sources map[string]datasource.DataSource
	classes map[string]orgclass.OrganizationClass
}

func New() *Store {
	return &Store{
		orgs:    make(map[string]organization.Organization),
		sources: make(map[string]datasource.DataSource),
		classes: make(map[string]orgclass.OrganizationClass),
	}
}

func (s *Store) Organizations() organization.Repository {
	return &orgRepository{store: s}
}

func (s *Store) DataSources() datasource.Repository {
	return &dataSourceRepository{store: s}
}

func (s *Store) OrganizationClasses() orgclass.Repository {
	return &orgClassRepository{store: s}
}

type snapshot struct {
	orgs    map[string]organization.Organization
	sources map[string]datasource.DataSource
	classes map[string]orgclass.OrganizationClass
}

func (s *Store) take() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		orgs:    make(map[string]organization.Organization, len(s.orgs)),
		sources: make(map[string]datasource.DataSource, len(s.sources)),
		classes: make(map[string]orgclass.OrganizationClass, len(s.classes)),
	}
	for k, v := range s.orgs {
		snap.orgs[k] = v
	}
	for k, v := range s.sources {
		snap.sources[k] = v
	}
	for k, v := range s.classes {
		snap.classes[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs = snap.orgs
	s.sources = snap.sources
	s.classes = snap.classes
}

// Atomic restores the pre-call state when fn returns an error. Nested calls
// join the outer snapshot.
func (s *Store) Atomic(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	snap := s.take()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type orgRepository struct {
	store *Store
}

func withMeta(org organization.Organization, sortOrder int, createdAt, modifiedAt time.Time) organization.Organization {
	return organization.Hydrate(org.ID(), org.DataSourceID(), org.OriginID(), organization.Attributes{
		Name:             org.Name(),
		Abbreviation:     org.Abbreviation(),
		ClassificationID: org.ClassificationID(),
		InternalType:     org.InternalType(),
		FoundingDate:     org.FoundingDate(),
		DissolutionDate:  org.DissolutionDate(),
		ParentID:         org.ParentID(),
		ReplacedByID:     org.ReplacedByID(),
	}, sortOrder, createdAt, modifiedAt)
}

func (r *orgRepository) GetByID(ctx context.Context, id string) (organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return organization.Organization{}, organization.ErrNotFound
	}
	return org, nil
}

func (r *orgRepository) GetByOrigin(ctx context.Context, dataSourceID, originID string) (organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, org := range s.orgs {
		if org.DataSourceID() == dataSourceID && strings.EqualFold(org.OriginID(), originID) {
			return org, nil
		}
	}
	return organization.Organization{}, organization.ErrNotFound
}

func (r *orgRepository) Create(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orgs[org.ID()]; exists {
		return organization.Organization{}, fmt.Errorf("organization %s already exists", org.ID())
	}
	next := 0
	for _, sibling := range s.orgs {
		if sibling.ParentID() == org.ParentID() && sibling.SortOrder() >= next {
			next = sibling.SortOrder() + 1
		}
	}
	now := time.Now().UTC()
	saved := withMeta(org, next, now, now)
	s.orgs[saved.ID()] = saved
	return saved, nil
}

func (r *orgRepository) Update(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.orgs[org.ID()]
	if !ok {
		return organization.Organization{}, organization.ErrNotFound
	}
	saved := withMeta(org, existing.SortOrder(), existing.CreatedAt(), time.Now().UTC())
	s.orgs[saved.ID()] = saved
	return saved, nil
}

func (r *orgRepository) Children(ctx context.Context, parentID string) ([]organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childrenLocked(parentID), nil
}

func (s *Store) childrenLocked(parentID string) []organization.Organization {
	var out []organization.Organization
	for _, org := range s.orgs {
		if org.ParentID() == parentID {
			out = append(out, org)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder() != out[j].SortOrder() {
			return out[i].SortOrder() < out[j].SortOrder()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (r *orgRepository) Reorder(ctx context.Context, parentID string, orderedIDs []string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range orderedIDs {
		org, ok := s.orgs[id]
		if !ok {
			return organization.ErrNotFound
		}
		s.orgs[id] = withMeta(org, i, org.CreatedAt(), time.Now().UTC())
	}
	return nil
}

func (r *orgRepository) Descendants(ctx context.Context, id string) ([]organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []organization.Organization
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range s.childrenLocked(current) {
			out = append(out, child)
			queue = append(queue, child.ID())
		}
	}
	return out, nil
}

func (r *orgRepository) Ancestors(ctx context.Context, id string) ([]organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, organization.ErrNotFound
	}
	var out []organization.Organization
	for org.ParentID() != "" {
		parent, ok := s.orgs[org.ParentID()]
		if !ok {
			break
		}
		out = append(out, parent)
		org = parent
	}
	return out, nil
}

func (r *orgRepository) ReplacementOf(ctx context.Context, replacementID string) (organization.Organization, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, org := range s.orgs {
		if org.ReplacedByID() == replacementID {
			return org, nil
		}
	}
	return organization.Organization{}, organization.ErrNotFound
}

type dataSourceRepository struct {
	store *Store
}

func (r *dataSourceRepository) GetByID(ctx context.Context, id string) (datasource.DataSource, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.sources[id]
	if !ok {
		return datasource.DataSource{}, datasource.ErrNotFound
	}
	return ds, nil
}

func (r *dataSourceRepository) GetOrCreate(ctx context.Context, ds datasource.DataSource) (datasource.DataSource, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sources[ds.ID()]; ok {
		return existing, nil
	}
	s.sources[ds.ID()] = ds
	return ds, nil
}

type orgClassRepository struct {
	store *Store
}

func (r *orgClassRepository) GetByID(ctx context.Context, id string) (orgclass.OrganizationClass, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	class, ok := s.classes[id]
	if !ok {
		return orgclass.OrganizationClass{}, orgclass.ErrNotFound
	}
	return class, nil
}

func (r *orgClassRepository) GetOrCreate(ctx context.Context, class orgclass.OrganizationClass) (orgclass.OrganizationClass, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.classes[class.ID()]; ok {
		return existing, nil
	}
	now := time.Now().UTC()
	saved := orgclass.Hydrate(class.ID(), class.DataSourceID(), class.OriginID(), class.Name(), now, now)
	s.classes[class.ID()] = saved
	return saved, nil
}
