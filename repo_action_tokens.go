package identity

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActionTokens persists single-use tokens for the email validation and
// password reset flows.
type ActionTokens interface {
	repository.Repository[*ActionToken]

	Issue(ctx context.Context, userID uuid.UUID, purpose TokenPurpose, ttl time.Duration) (*ActionToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose TokenPurpose, ttl time.Duration) (*ActionToken, error)

	ConsumeTx(ctx context.Context, tx bun.IDB, token string, purpose TokenPurpose) (*ActionToken, error)

	RevokeAllTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type actionTokens struct {
	repository.Repository[*ActionToken]
	db *bun.DB
}

var _ ActionTokens = (*actionTokens)(nil)

func NewActionTokensRepository(db *bun.DB) ActionTokens {
	repo := repository.NewRepository[*ActionToken](db, repository.ModelHandlers[*ActionToken]{
		NewRecord: func() *ActionToken { return &ActionToken{} },
		GetID: func(t *ActionToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *ActionToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &actionTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *actionTokens) Issue(ctx context.Context, userID uuid.UUID, purpose TokenPurpose, ttl time.Duration) (*ActionToken, error) {
	return a.IssueTx(ctx, a.db, userID, purpose, ttl)
}

// IssueTx creates a fresh token and retires every outstanding token the
// user holds for the same purpose. Tokens for other purposes are left
// untouched.
func (a *actionTokens) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose TokenPurpose, ttl time.Duration) (*ActionToken, error) {
	now := time.Now()

	_, err := tx.NewRaw(`
		UPDATE "action_tokens" AS "atk"
		SET
			"consumed" = TRUE,
			"consumed_at" = ?
		WHERE
			"atk"."user_id" = ?
			AND "atk"."purpose" = ?
			AND "atk"."consumed" = FALSE;
	`, now, userID, purpose).Exec(ctx)
	if err != nil {
		return nil, err
	}

	record := &ActionToken{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

// ConsumeTx redeems a token exactly once. The conditional update is the
// linearization point, concurrent redeemers race on it and every loser
// gets ErrActionTokenInvalid.
func (a *actionTokens) ConsumeTx(ctx context.Context, tx bun.IDB, token string, purpose TokenPurpose) (*ActionToken, error) {
	now := time.Now()

	res, err := tx.NewRaw(`
		UPDATE "action_tokens" AS "atk"
		SET
			"consumed" = TRUE,
			"consumed_at" = ?
		WHERE
			"atk"."token" = ?
			AND "atk"."purpose" = ?
			AND "atk"."consumed" = FALSE
			AND "atk"."expires_at" > ?;
	`, now, token, purpose, now).Exec(ctx)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		return nil, ErrActionTokenInvalid
	}

	record := &ActionToken{}
	err = tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// RevokeAllTx retires every outstanding token for the user, used when
// the account is deleted.
func (a *actionTokens) RevokeAllTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	now := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "action_tokens" AS "atk"
		SET
			"consumed" = TRUE,
			"consumed_at" = ?
		WHERE
			"atk"."user_id" = ?
			AND "atk"."consumed" = FALSE;
	`, now, userID).Exec(ctx)
	return err
}

// PurgeExpired removes tokens whose expiry is behind the given instant.
func (a *actionTokens) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*ActionToken)(nil)).
		Where("?TableAlias.expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
