package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ValidationTokenTTL bounds how long a new account has to redeem its
// email validation link.
var ValidationTokenTTL = 24 * time.Hour

type CreateAccountMessage struct {
	Actor      *User      `json:"-"`
	Username   string     `json:"username"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Phone      string     `json:"phone_number"`
	Role       UserRole   `json:"user_role"`
	CompanyID  *uuid.UUID `json:"company_id,omitempty"`
	OnResponse func(resp *CreateAccountResponse)
}

func (e CreateAccountMessage) Type() string { return "account.create" }

func (e CreateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required, is.Email),
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.Phone, validation.By(ValidPhone)),
		validation.Field(&e.Role, validation.Required, validation.In(anyRoles()...)),
	)
}

type CreateAccountResponse struct {
	User       *User
	Validation *ActionToken
	Success    bool
}

// CreateAccountHandler provisions an account in the pending state and
// mails out its validation token. The account has no password until
// the token is redeemed.
type CreateAccountHandler struct {
	repo    RepositoryManager
	guard   *Guard
	mailer  Mailer
	sink    ActivitySink
	logger  Logger
	baseURL string
}

func NewCreateAccountHandler(repo RepositoryManager, guard *Guard) *CreateAccountHandler {
	return &CreateAccountHandler{
		repo:   repo,
		guard:  guard,
		mailer: noopMailer{},
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *CreateAccountHandler) WithMailer(m Mailer) *CreateAccountHandler {
	h.mailer = normalizeMailer(m)
	return h
}

func (h *CreateAccountHandler) WithActivitySink(sink ActivitySink) *CreateAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *CreateAccountHandler) WithLogger(l Logger) *CreateAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *CreateAccountHandler) WithBaseURL(url string) *CreateAccountHandler {
	h.baseURL = url
	return h
}

func (h *CreateAccountHandler) Execute(ctx context.Context, event CreateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateAccountHandler) execute(ctx context.Context, event CreateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid account creation request")
	}

	if event.Actor == nil {
		return ErrForbidden
	}

	if err := h.guard.CanCreateAccount(event.Actor, event.Role, event.CompanyID); err != nil {
		return err
	}

	if CompanyBound(event.Role) && event.CompanyID == nil {
		return goerrors.New("company is required for this role", goerrors.CategoryValidation)
	}

	resp := &CreateAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Username); err == nil {
			return ErrDuplicateUsername
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		}

		if event.CompanyID != nil {
			if _, err := h.repo.Companies().GetByID(ctx, event.CompanyID.String()); err != nil {
				if repository.IsRecordNotFound(err) {
					return goerrors.New("company not found", goerrors.CategoryNotFound).
						WithCode(goerrors.CodeNotFound)
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve company")
			}
		}

		phone, err := NormalizePhone(event.Phone)
		if err != nil {
			return err
		}

		user := &User{
			Username:  event.Username,
			FirstName: event.FirstName,
			LastName:  event.LastName,
			Phone:     phone,
			Role:      event.Role,
		}

		if id, err := hashid.NewUUID(event.Username); err == nil {
			user.ID = id
		}

		if user.HasFixedCompany() {
			user.CompanyID = event.CompanyID
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if event.Role == RoleCompanyClient && event.CompanyID != nil {
			if _, err := h.repo.Memberships().AddTx(ctx, tx, user.ID, *event.CompanyID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not attach client to company")
			}
		}

		token, err := h.repo.ActionTokens().IssueTx(ctx, tx, user.ID, PurposeValidateEmail, ValidationTokenTTL)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue validation token")
		}

		resp.User = user
		resp.Validation = token

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account")
	}

	observeActionTokenIssued(PurposeValidateEmail)

	h.notify(ctx, resp)

	recordEvent(ctx, h.sink, h.logger, ActivityEvent{
		EventType: ActivityEventAccountCreated,
		Actor:     ActorRef{ID: event.Actor.ID.String(), Type: "user"},
		UserID:    resp.User.ID.String(),
		Metadata: map[string]any{
			"username": resp.User.Username,
			"role":     resp.User.Role,
		},
	})

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *CreateAccountHandler) notify(ctx context.Context, resp *CreateAccountResponse) {
	mail := Mail{
		To:      resp.User.Username,
		Subject: "Validate your email address",
		Link:    ValidationLink(h.baseURL, resp.Validation.Token),
	}

	if err := h.mailer.Send(ctx, mail); err != nil {
		h.logger.Warn("failed to send validation email: %v", err)
	}
}

func anyRoles() []any {
	roles := Roles()
	out := make([]any, len(roles))
	for i, r := range roles {
		out[i] = r
	}
	return out
}

func recordEvent(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("activity sink record error: %v", err)
	}
}
