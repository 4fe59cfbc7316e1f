package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type UpdateUsernameMessage struct {
	Actor       *User  `json:"-"`
	Target      string `json:"target"`
	NewUsername string `json:"new_username"`
}

func (e UpdateUsernameMessage) Type() string { return "account.update_username" }

func (e UpdateUsernameMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Target, validation.Required),
		validation.Field(&e.NewUsername, validation.Required, is.Email),
	)
}

type UpdateProfileMessage struct {
	Actor     *User  `json:"-"`
	Target    string `json:"target"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
}

func (e UpdateProfileMessage) Type() string { return "account.update_profile" }

func (e UpdateProfileMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Target, validation.Required),
		validation.Field(&e.FirstName, validation.Length(0, 100)),
		validation.Field(&e.LastName, validation.Length(0, 100)),
		validation.Field(&e.Phone, validation.By(ValidPhone)),
	)
}

// UpdateAccountHandler covers username and profile edits, both on the
// actor's own account and, for administrators, on managed accounts.
type UpdateAccountHandler struct {
	repo   RepositoryManager
	guard  *Guard
	logger Logger
}

func NewUpdateAccountHandler(repo RepositoryManager, guard *Guard) *UpdateAccountHandler {
	return &UpdateAccountHandler{
		repo:   repo,
		guard:  guard,
		logger: defLogger{},
	}
}

func (h *UpdateAccountHandler) WithLogger(l Logger) *UpdateAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *UpdateAccountHandler) ExecuteUsername(ctx context.Context, event UpdateUsernameMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during username update",
		)
	default:
		return h.executeUsername(ctx, event)
	}
}

func (h *UpdateAccountHandler) executeUsername(ctx context.Context, event UpdateUsernameMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid username update request")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var updated *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		target, err := h.resolveTarget(ctx, tx, event.Actor, event.Target, h.guard.CanChangeUsername)
		if err != nil {
			return err
		}

		if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.NewUsername); err == nil {
			return ErrDuplicateUsername
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		}

		record := &User{ID: target.ID, Username: event.NewUsername}
		updated, err = h.repo.Users().UpdateTx(ctx, tx, record, repository.UpdateByID(target.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update username")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update username")
	}

	return updated, nil
}

func (h *UpdateAccountHandler) ExecuteProfile(ctx context.Context, event UpdateProfileMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.executeProfile(ctx, event)
	}
}

func (h *UpdateAccountHandler) executeProfile(ctx context.Context, event UpdateProfileMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile update request")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var updated *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		target, err := h.resolveTarget(ctx, tx, event.Actor, event.Target, h.guard.CanManageUser)
		if err != nil {
			return err
		}

		phone, err := NormalizePhone(event.Phone)
		if err != nil {
			return err
		}

		record := &User{
			ID:        target.ID,
			FirstName: event.FirstName,
			LastName:  event.LastName,
			Phone:     phone,
		}

		updated, err = h.repo.Users().UpdateTx(ctx, tx, record,
			repository.UpdateByID(target.ID.String()),
			repository.UpdateSkipZeroValues(),
		)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	return updated, nil
}

// resolveTarget loads the target account and runs the supplied guard
// check against it. Targets resolve by id or username.
func (h *UpdateAccountHandler) resolveTarget(ctx context.Context, tx bun.IDB, actor *User, identifier string, check func(actor, target *User) error) (*User, error) {
	if actor == nil {
		return nil, ErrForbidden
	}

	target, err := h.repo.Users().GetByIdentifierTx(ctx, tx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUnableToFindUser
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve target user")
	}

	if err := AttachMembershipsTx(ctx, tx, target); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load target memberships")
	}

	if err := check(actor, target); err != nil {
		return nil, err
	}

	return target, nil
}
