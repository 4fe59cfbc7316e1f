package identity

import (
	"context"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Companies persists tenants.
type Companies interface {
	repository.Repository[*Company]

	Create(ctx context.Context, record *Company, criteria ...repository.InsertCriteria) (*Company, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Company, criteria ...repository.InsertCriteria) (*Company, error)
	Search(ctx context.Context, query string, limit int) ([]*Company, error)
	SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type companies struct {
	repository.Repository[*Company]
	db *bun.DB
}

var _ Companies = (*companies)(nil)

func NewCompaniesRepository(db *bun.DB) Companies {
	repo := repository.NewRepository[*Company](db, repository.ModelHandlers[*Company]{
		NewRecord: func() *Company { return &Company{} },
		GetID: func(c *Company) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Company, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "company_name"
		},
	})

	return &companies{
		Repository: repo,
		db:         db,
	}
}

func (a *companies) Create(ctx context.Context, record *Company, criteria ...repository.InsertCriteria) (*Company, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *companies) CreateTx(ctx context.Context, tx bun.IDB, record *Company, criteria ...repository.InsertCriteria) (*Company, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *companies) Search(ctx context.Context, query string, limit int) ([]*Company, error) {
	if limit <= 0 {
		limit = 50
	}

	pattern := "%" + strings.TrimSpace(query) + "%"

	var records []*Company
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.company_name LIKE ?", pattern).
		OrderExpr("?TableAlias.company_name ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *companies) SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Company)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}
