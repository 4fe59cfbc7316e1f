package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ValidateEmailMessage struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (e ValidateEmailMessage) Type() string { return "account.validate_email" }

func (e ValidateEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
		validation.Field(&e.Password, validation.Required),
		validation.Field(&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)
}

// ValidateEmailHandler redeems a validation token, activating the
// account and installing its first password in one transaction.
type ValidateEmailHandler struct {
	repo   RepositoryManager
	sink   ActivitySink
	logger Logger
}

func NewValidateEmailHandler(repo RepositoryManager) *ValidateEmailHandler {
	return &ValidateEmailHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *ValidateEmailHandler) WithActivitySink(sink ActivitySink) *ValidateEmailHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *ValidateEmailHandler) WithLogger(l Logger) *ValidateEmailHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *ValidateEmailHandler) Execute(ctx context.Context, event ValidateEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidateEmailHandler) execute(ctx context.Context, event ValidateEmailMessage) error {
	if event.Password != event.ConfirmPassword {
		return ErrPasswordMismatch
	}

	if err := ValidatePasswordPolicy(event.Password); err != nil {
		return err
	}

	var userID string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.ActionTokens().ConsumeTx(ctx, tx, event.Token, PurposeValidateEmail)
		if err != nil {
			return err
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}

		if err := h.repo.Users().ActivateTx(ctx, tx, token.UserID, hash); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrActionTokenInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}

		userID = token.UserID.String()
		return nil
	})

	if err != nil {
		observeActionTokenConsumed(PurposeValidateEmail, false)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to validate email")
	}

	observeActionTokenConsumed(PurposeValidateEmail, true)

	recordEvent(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventEmailValidated,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
	})

	return nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return ErrPasswordMismatch
		}
		return nil
	}
}
