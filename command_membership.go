package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AddClientToCompanyMessage struct {
	Actor     *User     `json:"-"`
	Client    string    `json:"client"`
	CompanyID uuid.UUID `json:"company_id"`
}

func (e AddClientToCompanyMessage) Type() string { return "membership.add" }

type RemoveClientFromCompanyMessage struct {
	Actor     *User     `json:"-"`
	Client    string    `json:"client"`
	CompanyID uuid.UUID `json:"company_id"`
}

func (e RemoveClientFromCompanyMessage) Type() string { return "membership.remove" }

// MembershipHandler attaches and detaches client accounts from
// companies. Only client accounts carry memberships, every other role
// has its company fixed at creation.
type MembershipHandler struct {
	repo   RepositoryManager
	guard  *Guard
	logger Logger
}

func NewMembershipHandler(repo RepositoryManager, guard *Guard) *MembershipHandler {
	return &MembershipHandler{
		repo:   repo,
		guard:  guard,
		logger: defLogger{},
	}
}

func (h *MembershipHandler) WithLogger(l Logger) *MembershipHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *MembershipHandler) ExecuteAdd(ctx context.Context, event AddClientToCompanyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during membership add",
		)
	default:
		return h.executeAdd(ctx, event)
	}
}

func (h *MembershipHandler) executeAdd(ctx context.Context, event AddClientToCompanyMessage) error {
	if event.Actor == nil {
		return ErrForbidden
	}

	if err := h.guard.CanManageMembership(event.Actor, event.CompanyID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		client, err := h.resolveClient(ctx, tx, event.Client)
		if err != nil {
			return err
		}

		if _, err := h.repo.Companies().GetByID(ctx, event.CompanyID.String()); err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("company not found", goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve company")
		}

		if _, err := h.repo.Memberships().AddTx(ctx, tx, client.ID, event.CompanyID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to add membership")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to add client to company")
	}

	return nil
}

func (h *MembershipHandler) ExecuteRemove(ctx context.Context, event RemoveClientFromCompanyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during membership removal",
		)
	default:
		return h.executeRemove(ctx, event)
	}
}

func (h *MembershipHandler) executeRemove(ctx context.Context, event RemoveClientFromCompanyMessage) error {
	if event.Actor == nil {
		return ErrForbidden
	}

	if err := h.guard.CanManageMembership(event.Actor, event.CompanyID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		client, err := h.resolveClient(ctx, tx, event.Client)
		if err != nil {
			return err
		}

		removed, err := h.repo.Memberships().RemoveTx(ctx, tx, client.ID, event.CompanyID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove membership")
		}

		if !removed {
			return goerrors.New("client does not belong to company", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove client from company")
	}

	return nil
}

func (h *MembershipHandler) resolveClient(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	client, err := h.repo.Users().GetByIdentifierTx(ctx, tx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUnableToFindUser
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve client user")
	}

	if client.Role != RoleCompanyClient {
		return nil, goerrors.New("only client accounts can hold memberships", goerrors.CategoryBadInput)
	}

	return client, nil
}
