package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/datasource"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/organization"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/orgclass"
)

var (
	ErrAlreadyReplaced  = errors.New("organization is already replaced")
	ErrReplacementTaken = errors.New("replacement target already replaces another organization")
)

// Store is the persistence surface the services and the import engine run
// against. Atomic executes fn in a single transaction; nested calls join
// the open one.
type Store interface {
	Organizations() organization.Repository
	DataSources() datasource.Repository
	OrganizationClasses() orgclass.Repository
	Atomic(ctx context.Context, fn func(context.Context) error) error
}

// OrgService owns structural writes to the hierarchy. After every create or
// update it resequences the siblings of the affected parents so affiliated
// organizations sort before normal ones, preserving relative order within
// each group.
type OrgService struct {
	store Store
}

func NewOrgService(store Store) *OrgService {
	return &OrgService{store: store}
}

func (s *OrgService) GetByID(ctx context.Context, id string) (organization.Organization, error) {
	var org organization.Organization
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		var err error
		org, err = s.store.Organizations().GetByID(ctx, id)
		return err
	})
	return org, err
}

func (s *OrgService) Create(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	var saved organization.Organization
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.store.Organizations().Create(ctx, org)
		if err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		if err := s.resequenceSiblings(ctx, saved.ParentID()); err != nil {
			return err
		}
		saved, err = s.store.Organizations().GetByID(ctx, saved.ID())
		return err
	})
	return saved, err
}

func (s *OrgService) Update(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	var saved organization.Organization
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		prev, err := s.store.Organizations().GetByID(ctx, org.ID())
		if err != nil {
			return err
		}
		saved, err = s.store.Organizations().Update(ctx, org)
		if err != nil {
			return fmt.Errorf("update organization: %w", err)
		}
		if err := s.resequenceSiblings(ctx, saved.ParentID()); err != nil {
			return err
		}
		if prev.ParentID() != saved.ParentID() {
			if err := s.resequenceSiblings(ctx, prev.ParentID()); err != nil {
				return err
			}
		}
		saved, err = s.store.Organizations().GetByID(ctx, saved.ID())
		return err
	})
	return saved, err
}

// Replace marks org as superseded by replacementID. A replacement target
// must not itself be replaced, and at most one organization may point at it.
func (s *OrgService) Replace(ctx context.Context, orgID, replacementID string) (organization.Organization, error) {
	var saved organization.Organization
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		target, err := s.store.Organizations().GetByID(ctx, replacementID)
		if err != nil {
			return err
		}
		if target.ReplacedByID() != "" {
			return ErrAlreadyReplaced
		}
		_, err = s.store.Organizations().ReplacementOf(ctx, replacementID)
		switch {
		case err == nil:
			return ErrReplacementTaken
		case !errors.Is(err, organization.ErrNotFound):
			return err
		}

		org, err := s.store.Organizations().GetByID(ctx, orgID)
		if err != nil {
			return err
		}
		org.SetReplacedByID(replacementID)
		saved, err = s.store.Organizations().Update(ctx, org)
		return err
	})
	return saved, err
}

func (s *OrgService) Children(ctx context.Context, parentID string) ([]organization.Organization, error) {
	var out []organization.Organization
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.Organizations().Children(ctx, parentID)
		return err
	})
	return out, err
}

func (s *OrgService) Descendants(ctx context.Context, id string) ([]organization.Organization, error) {
	var out []organization.Organization
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.Organizations().Descendants(ctx, id)
		return err
	})
	return out, err
}

func (s *OrgService) Ancestors(ctx context.Context, id string) ([]organization.Organization, error) {
	var out []organization.Organization
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.Organizations().Ancestors(ctx, id)
		return err
	})
	return out, err
}

func (s *OrgService) resequenceSiblings(ctx context.Context, parentID string) error {
	children, err := s.store.Organizations().Children(ctx, parentID)
	if err != nil {
		return err
	}
	ordered := make([]organization.Organization, len(children))
	copy(ordered, children)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].IsAffiliated() && !ordered[j].IsAffiliated()
	})

	changed := false
	ids := make([]string, len(ordered))
	for i, org := range ordered {
		ids[i] = org.ID()
		if org.ID() != children[i].ID() || org.SortOrder() != i {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.store.Organizations().Reorder(ctx, parentID, ids)
}
