package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CreateCompanyMessage struct {
	Actor *User  `json:"-"`
	Name  string `json:"company_name"`
}

func (e CreateCompanyMessage) Type() string { return "company.create" }

func (e CreateCompanyMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
	)
}

type UpdateCompanyMessage struct {
	Actor     *User     `json:"-"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"company_name"`
}

func (e UpdateCompanyMessage) Type() string { return "company.update" }

type DeleteCompanyMessage struct {
	Actor     *User     `json:"-"`
	CompanyID uuid.UUID `json:"company_id"`
}

func (e DeleteCompanyMessage) Type() string { return "company.delete" }

// CompanyHandler manages the tenant catalog.
type CompanyHandler struct {
	repo   RepositoryManager
	guard  *Guard
	logger Logger
}

func NewCompanyHandler(repo RepositoryManager, guard *Guard) *CompanyHandler {
	return &CompanyHandler{
		repo:   repo,
		guard:  guard,
		logger: defLogger{},
	}
}

func (h *CompanyHandler) WithLogger(l Logger) *CompanyHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *CompanyHandler) ExecuteCreate(ctx context.Context, event CreateCompanyMessage) (*Company, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during company creation",
		)
	default:
		return h.executeCreate(ctx, event)
	}
}

func (h *CompanyHandler) executeCreate(ctx context.Context, event CreateCompanyMessage) (*Company, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid company creation request")
	}

	if event.Actor == nil {
		return nil, ErrForbidden
	}

	if err := h.guard.CanManageCompany(event.Actor, nil); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var created *Company

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Companies().GetByIdentifierTx(ctx, tx, event.Name); err == nil {
			return ErrDuplicateCompany
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check company name availability")
		}

		var err error
		created, err = h.repo.Companies().CreateTx(ctx, tx, &Company{Name: event.Name})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create company")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create company")
	}

	return created, nil
}

func (h *CompanyHandler) ExecuteUpdate(ctx context.Context, event UpdateCompanyMessage) (*Company, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during company update",
		)
	default:
		return h.executeUpdate(ctx, event)
	}
}

func (h *CompanyHandler) executeUpdate(ctx context.Context, event UpdateCompanyMessage) (*Company, error) {
	if event.Actor == nil {
		return nil, ErrForbidden
	}

	if event.Name == "" {
		return nil, goerrors.New("company name cannot be empty", goerrors.CategoryValidation)
	}

	if err := h.guard.CanManageCompany(event.Actor, &event.CompanyID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var updated *Company

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Companies().GetByID(ctx, event.CompanyID.String()); err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("company not found", goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve company")
		}

		if existing, err := h.repo.Companies().GetByIdentifierTx(ctx, tx, event.Name); err == nil {
			if existing.ID != event.CompanyID {
				return ErrDuplicateCompany
			}
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check company name availability")
		}

		record := &Company{ID: event.CompanyID, Name: event.Name}
		var err error
		updated, err = h.repo.Companies().UpdateTx(ctx, tx, record, repository.UpdateByID(event.CompanyID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update company")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update company")
	}

	return updated, nil
}

func (h *CompanyHandler) ExecuteDelete(ctx context.Context, event DeleteCompanyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during company deletion",
		)
	default:
		return h.executeDelete(ctx, event)
	}
}

func (h *CompanyHandler) executeDelete(ctx context.Context, event DeleteCompanyMessage) error {
	if event.Actor == nil {
		return ErrForbidden
	}

	// deleting tenants is reserved for global admins
	if event.Actor.Role != RoleAdmin {
		return ErrForbidden
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Companies().GetByID(ctx, event.CompanyID.String()); err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("company not found", goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve company")
		}

		if err := h.repo.Memberships().RemoveAllForCompanyTx(ctx, tx, event.CompanyID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to detach company members")
		}

		if err := h.repo.Companies().SoftDeleteTx(ctx, tx, event.CompanyID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete company")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete company")
	}

	return nil
}
