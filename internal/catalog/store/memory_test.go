package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quorum/internal/catalog/models"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
)

type CatalogStoreSuite struct {
	suite.Suite

	ctx   context.Context
	store *InMemory
	now   time.Time
}

func TestCatalogStoreSuite(t *testing.T) {
	suite.Run(t, new(CatalogStoreSuite))
}

func (s *CatalogStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func (s *CatalogStoreSuite) newItem(batch string) *models.Item {
	item, err := models.NewItem(id.ItemID(uuid.New()),
		fmt.Sprintf("item %s", uuid.NewString()[:8]), batch, s.now)
	s.Require().NoError(err)
	return item
}

func (s *CatalogStoreSuite) TestCreateAndFind() {
	item := s.newItem("round-1")
	s.Require().NoError(s.store.Create(s.ctx, item))

	s.Run("finds a stored item", func() {
		found, err := s.store.FindByID(s.ctx, item.ID)
		s.Require().NoError(err)
		s.Equal(item.Label, found.Label)
	})

	s.Run("rejects a duplicate id", func() {
		s.ErrorIs(s.store.Create(s.ctx, item), sentinel.ErrConflict)
	})

	s.Run("unknown id yields not found", func() {
		_, err := s.store.FindByID(s.ctx, id.ItemID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned items are isolated from the stored copy", func() {
		found, err := s.store.FindByID(s.ctx, item.ID)
		s.Require().NoError(err)
		found.Label = "mutated"

		again, err := s.store.FindByID(s.ctx, item.ID)
		s.Require().NoError(err)
		s.Equal(item.Label, again.Label)
	})
}

func (s *CatalogStoreSuite) TestListBatch() {
	items := []*models.Item{s.newItem("round-1"), s.newItem("round-1"), s.newItem("round-2")}
	for _, item := range items {
		s.Require().NoError(s.store.Create(s.ctx, item))
	}

	s.Run("orders the batch by id", func() {
		listed, err := s.store.ListBatch(s.ctx, "round-1", false)
		s.Require().NoError(err)
		s.Require().Len(listed, 2)
		s.True(listed[0].ID.Less(listed[1].ID))
	})

	s.Run("filters withdrawn items when asked", func() {
		listed, err := s.store.ListBatch(s.ctx, "round-1", false)
		s.Require().NoError(err)
		_, err = s.store.Execute(s.ctx, listed[0].ID,
			func(*models.Item) error { return nil },
			func(item *models.Item) { item.ApplyWithdrawal(s.now) },
		)
		s.Require().NoError(err)

		active, err := s.store.ListBatch(s.ctx, "round-1", true)
		s.Require().NoError(err)
		s.Len(active, 1)

		all, err := s.store.ListBatch(s.ctx, "round-1", false)
		s.Require().NoError(err)
		s.Len(all, 2)
	})

	s.Run("unknown batch is empty", func() {
		listed, err := s.store.ListBatch(s.ctx, "round-9", false)
		s.Require().NoError(err)
		s.Empty(listed)
	})
}

func (s *CatalogStoreSuite) TestExecute() {
	item := s.newItem("round-1")
	s.Require().NoError(s.store.Create(s.ctx, item))

	s.Run("applies the mutation when validation passes", func() {
		updated, err := s.store.Execute(s.ctx, item.ID,
			func(i *models.Item) error { return i.CanWithdraw() },
			func(i *models.Item) { i.ApplyWithdrawal(s.now) },
		)
		s.Require().NoError(err)
		s.Equal(models.ItemStatusWithdrawn, updated.Status)
	})

	s.Run("surfaces the validation error without mutating", func() {
		_, err := s.store.Execute(s.ctx, item.ID,
			func(i *models.Item) error { return i.CanWithdraw() },
			func(i *models.Item) { i.Label = "never applied" },
		)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		found, err := s.store.FindByID(s.ctx, item.ID)
		s.Require().NoError(err)
		s.Equal(item.Label, found.Label)
	})

	s.Run("unknown item yields not found", func() {
		_, err := s.store.Execute(s.ctx, id.ItemID(uuid.New()),
			func(*models.Item) error { return nil },
			func(*models.Item) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
