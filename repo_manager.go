package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Companies() Companies
	Memberships() Memberships
	ActionTokens() ActionTokens
}

type mngr struct {
	db           *bun.DB
	users        Users
	companies    Companies
	memberships  Memberships
	actionTokens ActionTokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:           db,
		users:        NewUsersRepository(db),
		companies:    NewCompaniesRepository(db),
		memberships:  NewMembershipsRepository(db),
		actionTokens: NewActionTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.companies == nil {
		return errors.New("repository companies should be initialized")
	}

	if m.memberships == nil {
		return errors.New("repository memberships should be initialized")
	}

	if m.actionTokens == nil {
		return errors.New("repository actionTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Companies() Companies {
	return m.companies
}

func (m mngr) Memberships() Memberships {
	return m.memberships
}

func (m mngr) ActionTokens() ActionTokens {
	return m.actionTokens
}
