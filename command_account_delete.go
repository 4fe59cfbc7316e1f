package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	Actor  *User  `json:"-"`
	Target string `json:"target"`
}

func (e DeleteAccountMessage) Type() string { return "account.delete" }

// DeleteAccountHandler soft deletes an account, detaches its company
// memberships, and retires its outstanding action tokens in one
// transaction. Sessions already minted stay valid until they expire.
type DeleteAccountHandler struct {
	repo   RepositoryManager
	guard  *Guard
	sink   ActivitySink
	logger Logger
}

func NewDeleteAccountHandler(repo RepositoryManager, guard *Guard) *DeleteAccountHandler {
	return &DeleteAccountHandler{
		repo:   repo,
		guard:  guard,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *DeleteAccountHandler) WithActivitySink(sink ActivitySink) *DeleteAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *DeleteAccountHandler) WithLogger(l Logger) *DeleteAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	if event.Actor == nil {
		return ErrForbidden
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var deletedID string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		target, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Target)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUnableToFindUser
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve target user")
		}

		if err := AttachMembershipsTx(ctx, tx, target); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load target memberships")
		}

		if err := h.guard.CanManageUser(event.Actor, target); err != nil {
			return err
		}

		if err := h.repo.Memberships().RemoveAllForUserTx(ctx, tx, target.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to detach memberships")
		}

		if err := h.repo.ActionTokens().RevokeAllTx(ctx, tx, target.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke action tokens")
		}

		if err := h.repo.Users().SoftDeleteTx(ctx, tx, target.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
		}

		deletedID = target.ID.String()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
	}

	recordEvent(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		Actor:     ActorRef{ID: event.Actor.ID.String(), Type: "user"},
		UserID:    deletedID,
	})

	return nil
}
