package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/datasource"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/aggregates/organization"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/infrastructure/persistence/memstore"
)

func TestOrgRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := store.Organizations()

	org := organization.New("helsinki", "ABC-123")
	org.SetName("City Board")

	saved, err := repo.Create(ctx, org)
	require.NoError(t, err)
	require.Equal(t, "helsinki:ABC-123", saved.ID())
	require.Equal(t, 0, saved.SortOrder())
	require.False(t, saved.CreatedAt().IsZero())

	_, err = repo.Create(ctx, org)
	require.Error(t, err)

	got, err := repo.GetByID(ctx, "helsinki:ABC-123")
	require.NoError(t, err)
	require.Equal(t, "City Board", got.Name())

	_, err = repo.GetByID(ctx, "helsinki:missing")
	require.ErrorIs(t, err, organization.ErrNotFound)
}

func TestOrgRepository_GetByOriginCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := store.Organizations()

	_, err := repo.Create(ctx, organization.New("helsinki", "ABC-123"))
	require.NoError(t, err)

	got, err := repo.GetByOrigin(ctx, "helsinki", "abc-123")
	require.NoError(t, err)
	require.Equal(t, "ABC-123", got.OriginID())

	_, err = repo.GetByOrigin(ctx, "espoo", "abc-123")
	require.ErrorIs(t, err, organization.ErrNotFound)
}

func TestOrgRepository_ChildrenOrdering(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := store.Organizations()

	parent, err := repo.Create(ctx, organization.New("helsinki", "root"))
	require.NoError(t, err)

	for _, originID := range []string{"a", "b", "c"} {
		child := organization.New("helsinki", originID)
		child.SetParentID(parent.ID())
		_, err := repo.Create(ctx, child)
		require.NoError(t, err)
	}

	children, err := repo.Children(ctx, parent.ID())
	require.NoError(t, err)
	require.Len(t, children, 3)
	require.Equal(t, []int{0, 1, 2}, []int{children[0].SortOrder(), children[1].SortOrder(), children[2].SortOrder()})

	require.NoError(t, repo.Reorder(ctx, parent.ID(), []string{"helsinki:c", "helsinki:a", "helsinki:b"}))

	children, err = repo.Children(ctx, parent.ID())
	require.NoError(t, err)
	require.Equal(t, "helsinki:c", children[0].ID())
	require.Equal(t, "helsinki:a", children[1].ID())
	require.Equal(t, "helsinki:b", children[2].ID())
}

func TestOrgRepository_DescendantsAndAncestors(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := store.Organizations()

	root, err := repo.Create(ctx, organization.New("helsinki", "root"))
	require.NoError(t, err)

	mid := organization.New("helsinki", "mid")
	mid.SetParentID(root.ID())
	_, err = repo.Create(ctx, mid)
	require.NoError(t, err)

	leaf := organization.New("helsinki", "leaf")
	leaf.SetParentID("helsinki:mid")
	_, err = repo.Create(ctx, leaf)
	require.NoError(t, err)

	descendants, err := repo.Descendants(ctx, root.ID())
	require.NoError(t, err)
	require.Len(t, descendants, 2)

	ancestors, err := repo.Ancestors(ctx, "helsinki:leaf")
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	require.Equal(t, "helsinki:mid", ancestors[0].ID())
	require.Equal(t, "helsinki:root", ancestors[1].ID())
}

func TestAtomic_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(txCtx context.Context) error {
		if _, err := store.Organizations().Create(txCtx, organization.New("helsinki", "doomed")); err != nil {
			return err
		}
		if _, err := store.DataSources().GetOrCreate(txCtx, datasource.New("helsinki", "")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Organizations().GetByID(ctx, "helsinki:doomed")
	require.ErrorIs(t, err, organization.ErrNotFound)
	_, err = store.DataSources().GetByID(ctx, "helsinki")
	require.ErrorIs(t, err, datasource.ErrNotFound)
}

func TestAtomic_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	err := store.Atomic(ctx, func(outer context.Context) error {
		return store.Atomic(outer, func(inner context.Context) error {
			_, err := store.Organizations().Create(inner, organization.New("helsinki", "kept"))
			return err
		})
	})
	require.NoError(t, err)

	_, err = store.Organizations().GetByID(ctx, "helsinki:kept")
	require.NoError(t, err)
}

func TestDataSourceRepository_GetOrCreateKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := store.DataSources()

	first, err := repo.GetOrCreate(ctx, datasource.New("helsinki", "City of Helsinki"))
	require.NoError(t, err)
	require.Equal(t, "City of Helsinki", first.Name())

	second, err := repo.GetOrCreate(ctx, datasource.New("helsinki", "Renamed"))
	require.NoError(t, err)
	require.Equal(t, "City of Helsinki", second.Name())
}
