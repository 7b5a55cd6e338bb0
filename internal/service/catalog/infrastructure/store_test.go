package infrastructure

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/catalog/domain"
)

func seededStore(t *testing.T) *MemoryProductStore {
	t.Helper()
	s := NewMemoryProductStore()
	for _, p := range []domain.Product{
		{ID: "B2", Title: "Distributed Systems", Author: "van Steen", Category: "Computing", AvailableQuantity: 1},
		{ID: "B1", Title: "The Go Programming Language", Author: "Donovan", Category: "Computing",
			Price: decimal.NewNullDecimal(decimal.NewFromInt(10)), AvailableQuantity: 5},
		{ID: "B3", Title: "Dune", Author: "Herbert", Category: "Fiction", AvailableQuantity: 0},
	} {
		require.NoError(t, s.Upsert(context.Background(), p))
	}
	return s
}

func TestMemoryProductStore_FindByID(t *testing.T) {
	s := seededStore(t)
	p, err := s.FindByID(context.Background(), "B1")
	require.NoError(t, err)
	assert.Equal(t, "Donovan", p.Author)

	_, err = s.FindByID(context.Background(), "B9")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, apperr.CodeProductNotFound, apperr.CodeOf(err))
}

func TestMemoryProductStore_SearchIsOrderedAndRestartable(t *testing.T) {
	s := seededStore(t)
	seq := s.Search(context.Background(), domain.Criteria{Category: "computing"})

	collect := func() []string {
		var ids []string
		for p, err := range seq {
			require.NoError(t, err)
			ids = append(ids, p.ID)
		}
		return ids
	}
	assert.Equal(t, []string{"B1", "B2"}, collect())

	require.NoError(t, s.Upsert(context.Background(), domain.Product{ID: "B0", Category: "Computing"}))
	assert.Equal(t, []string{"B0", "B1", "B2"}, collect())
}

func TestMemoryProductStore_SearchStopsEarly(t *testing.T) {
	s := seededStore(t)
	n := 0
	for range s.Search(context.Background(), domain.Criteria{}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestMemoryProductStore_MutateIsAllOrNothing(t *testing.T) {
	s := seededStore(t)
	_, err := s.Mutate(context.Background(), "B1", func(p *domain.Product) error {
		p.ReservedQuantity = 4
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	p, err := s.FindByID(context.Background(), "B1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.ReservedQuantity)

	p, err = s.Mutate(context.Background(), "B1", func(p *domain.Product) error { return p.Reserve(2) })
	require.NoError(t, err)
	assert.Equal(t, 2, p.ReservedQuantity)

	_, err = s.Mutate(context.Background(), "B9", func(p *domain.Product) error { return nil })
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestParseSeed(t *testing.T) {
	products, err := ParseSeed(strings.NewReader(`
products:
  - id: B1
    title: The Go Programming Language
    author: Donovan
    category: Computing
    price: "10.00"
    available: 5
  - id: B2
    title: Unpriced
    available: 1
`))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, products[0].Price.Valid)
	assert.True(t, decimal.NewFromInt(10).Equal(products[0].Price.Decimal))
	assert.False(t, products[1].Price.Valid)

	_, err = ParseSeed(strings.NewReader("products:\n  - id: B1\n  - id: B1\n"))
	assert.Error(t, err)

	_, err = ParseSeed(strings.NewReader("products:\n  - id: B1\n    available: 1\n    reserved: 2\n"))
	assert.Error(t, err)
}

func TestMapper_RoundTripKeepsNullPrice(t *testing.T) {
	p := domain.Product{ID: "B2", Title: "Unpriced", AvailableQuantity: 3, ReservedQuantity: 1}
	got := ToDomainProduct(FromDomainProduct(p))
	assert.Equal(t, p, got)
	assert.False(t, got.Price.Valid)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%\_go\_%`, likePattern("100%_GO_"))
}

func TestMemoryProductStore_UpsertKeepsStockCounters(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	_, err := s.Mutate(ctx, "B1", func(p *domain.Product) error {
		if err := p.Reserve(3); err != nil {
			return err
		}
		return p.Deduct(1)
	})
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, domain.Product{ID: "B1", Title: "Renamed", AvailableQuantity: 5}))

	p, err := s.FindByID(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Title)
	assert.Equal(t, 4, p.AvailableQuantity)
	assert.Equal(t, 2, p.ReservedQuantity)
}

func TestMemoryProductStore_MutateLocksPerProduct(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	entered := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.Mutate(ctx, "B1", func(p *domain.Product) error {
			close(entered)
			<-proceed
			return p.Reserve(1)
		})
		done <- err
	}()
	<-entered

	// B1 is held mid-mutation; other products and reads are not blocked.
	p, err := s.Mutate(ctx, "B2", func(p *domain.Product) error { return p.Reserve(1) })
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReservedQuantity)
	p, err = s.FindByID(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.ReservedQuantity)

	close(proceed)
	require.NoError(t, <-done)
	p, err = s.FindByID(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReservedQuantity)
}

func TestMemoryProductStore_MutateHonoursContext(t *testing.T) {
	s := seededStore(t)
	entered := make(chan struct{})
	proceed := make(chan struct{})
	go func() {
		_, _ = s.Mutate(context.Background(), "B1", func(p *domain.Product) error {
			close(entered)
			<-proceed
			return nil
		})
	}()
	<-entered
	defer close(proceed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Mutate(ctx, "B1", func(p *domain.Product) error { return nil })
	assert.True(t, apperr.IsKind(err, apperr.KindDependencyFailure))
}

func TestGormProductStore_UpsertUpdatesOnlyCatalogColumns(t *testing.T) {
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		DSN:                       "catalog:secret@tcp(127.0.0.1:3306)/catalog?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)

	s := NewGormProductStore(db)
	stmt := s.upsert(db, domain.Product{ID: "B1", Title: "The Go Programming Language", AvailableQuantity: 5}).Statement
	sql := stmt.SQL.String()

	_, updates, found := strings.Cut(sql, "ON DUPLICATE KEY UPDATE")
	require.True(t, found, sql)
	for _, col := range catalogColumns {
		assert.Contains(t, updates, "`"+col+"`")
	}
	assert.NotContains(t, updates, "available_quantity")
	assert.NotContains(t, updates, "reserved_quantity")
}
