package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ResetTokenTTL bounds how long a password reset link stays redeemable.
var ResetTokenTTL = time.Hour

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "account.password_reset" }

type InitializePasswordResetResponse struct {
	Token   *ActionToken
	Success bool
}

// InitializePasswordResetHandler issues a reset token for a known
// account. Unknown addresses succeed silently so the endpoint cannot
// be used to enumerate accounts.
type InitializePasswordResetHandler struct {
	repo    RepositoryManager
	mailer  Mailer
	sink    ActivitySink
	logger  Logger
	baseURL string
}

func NewInitializePasswordResetHandler(repo RepositoryManager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:   repo,
		mailer: noopMailer{},
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithMailer(m Mailer) *InitializePasswordResetHandler {
	h.mailer = normalizeMailer(m)
	return h
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(l Logger) *InitializePasswordResetHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *InitializePasswordResetHandler) WithBaseURL(url string) *InitializePasswordResetHandler {
	h.baseURL = url
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var email string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// do not leak account existence
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		if !user.Activated {
			return nil
		}

		token, err := h.repo.ActionTokens().IssueTx(ctx, tx, user.ID, PurposeResetPassword, ResetTokenTTL)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset token")
		}

		resp.Token = token
		email = user.Username
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if resp.Token != nil {
		observeActionTokenIssued(PurposeResetPassword)

		mail := Mail{
			To:      email,
			Subject: "Reset your password",
			Link:    ResetLink(h.baseURL, resp.Token.Token),
		}
		if err := h.mailer.Send(ctx, mail); err != nil {
			h.logger.Warn("failed to send reset email: %v", err)
		}

		recordEvent(ctx, h.sink, h.logger, ActivityEvent{
			EventType: ActivityEventPasswordResetRequest,
			Actor:     ActorRef{ID: resp.Token.UserID.String(), Type: "user"},
			UserID:    resp.Token.UserID.String(),
		})
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
