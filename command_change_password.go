package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	Actor           *User  `json:"-"`
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_new_password"`
}

func (e ChangePasswordMessage) Type() string { return "account.password_change" }

// ChangePasswordHandler rotates the password of an authenticated user
// after re-verifying the current one.
type ChangePasswordHandler struct {
	repo   RepositoryManager
	sink   ActivitySink
	logger Logger
}

func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *ChangePasswordHandler) WithLogger(l Logger) *ChangePasswordHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if event.Actor == nil {
		return ErrUnableToFindUser
	}

	if event.NewPassword != event.ConfirmPassword {
		return ErrPasswordMismatch
	}

	if event.NewPassword == event.OldPassword {
		return ErrPasswordReuse
	}

	if err := ComparePasswordAndHash(event.OldPassword, event.Actor.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	if err := ValidatePasswordPolicy(event.NewPassword); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, event.Actor.ID, hash); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUnableToFindUser
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	recordEvent(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     ActorRef{ID: event.Actor.ID.String(), Type: "user"},
		UserID:    event.Actor.ID.String(),
	})

	return nil
}
