package identity

import (
	"context"
	"database/sql"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Memberships persists client to company associations.
type Memberships interface {
	repository.Repository[*Membership]

	AddTx(ctx context.Context, tx bun.IDB, userID, companyID uuid.UUID) (*Membership, error)
	RemoveTx(ctx context.Context, tx bun.IDB, userID, companyID uuid.UUID) (bool, error)
	ExistsTx(ctx context.Context, tx bun.IDB, userID, companyID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	RemoveAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	RemoveAllForCompanyTx(ctx context.Context, tx bun.IDB, companyID uuid.UUID) error
}

type memberships struct {
	repository.Repository[*Membership]
	db *bun.DB
}

var _ Memberships = (*memberships)(nil)

func NewMembershipsRepository(db *bun.DB) Memberships {
	repo := repository.NewRepository[*Membership](db, repository.ModelHandlers[*Membership]{
		NewRecord: func() *Membership { return &Membership{} },
		GetID: func(m *Membership) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Membership, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
	})

	return &memberships{
		Repository: repo,
		db:         db,
	}
}

// AddTx creates the association when it does not already exist, adding
// twice is a no-op returning the existing row.
func (a *memberships) AddTx(ctx context.Context, tx bun.IDB, userID, companyID uuid.UUID) (*Membership, error) {
	existing := &Membership{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.company_id = ?", companyID).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return existing, nil
	}
	if !repository.IsRecordNotFound(err) && err != sql.ErrNoRows {
		return nil, err
	}

	record := &Membership{
		ID:        uuid.New(),
		UserID:    userID,
		CompanyID: companyID,
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *memberships) RemoveTx(ctx context.Context, tx bun.IDB, userID, companyID uuid.UUID) (bool, error) {
	res, err := tx.NewDelete().
		Model((*Membership)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.company_id = ?", companyID).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (a *memberships) ExistsTx(ctx context.Context, tx bun.IDB, userID, companyID uuid.UUID) (bool, error) {
	count, err := tx.NewSelect().
		Model((*Membership)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.company_id = ?", companyID).
		Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (a *memberships) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error) {
	var records []*Membership
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Relation("Company").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// AttachMembershipsTx loads the user's membership rows in place so
// company checks see the full picture. Roles with a fixed company do
// not carry membership rows.
func AttachMembershipsTx(ctx context.Context, tx bun.IDB, user *User) error {
	if user == nil || user.HasFixedCompany() {
		return nil
	}

	var records []*Membership
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", user.ID).
		Scan(ctx)
	if err != nil {
		return err
	}

	user.Memberships = records
	return nil
}

func (a *memberships) RemoveAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Membership)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}

func (a *memberships) RemoveAllForCompanyTx(ctx context.Context, tx bun.IDB, companyID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Membership)(nil)).
		Where("?TableAlias.company_id = ?", companyID).
		Exec(ctx)
	return err
}
