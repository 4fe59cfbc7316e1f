package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_new_password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "account.password_reset.finalize" }

// FinalizePasswordResetHandler redeems a reset token and installs the
// new password. The token burn and the password write commit together.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	sink   ActivitySink
	logger Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if event.NewPassword != event.ConfirmPassword {
		return ErrPasswordMismatch
	}

	if err := ValidatePasswordPolicy(event.NewPassword); err != nil {
		return err
	}

	var userID string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.ActionTokens().ConsumeTx(ctx, tx, event.Token, PurposeResetPassword)
		if err != nil {
			return err
		}

		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, token.UserID, hash); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrActionTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		userID = token.UserID.String()
		return nil
	})

	if err != nil {
		observeActionTokenConsumed(PurposeResetPassword, false)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	observeActionTokenConsumed(PurposeResetPassword, true)

	recordEvent(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetComplete,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
	})

	return nil
}
