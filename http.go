package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RefreshTokenHeader carries the re-minted bearer token on responses
// whose session entered the rotation window. Clients replace their
// stored token when the header is present.
const RefreshTokenHeader = "X-Refresh-Token"

// Server wires the HTTP surface: session middleware, controllers, and
// the error renderer.
type Server struct {
	app    *fiber.App
	auth   Authenticator
	repo   RepositoryManager
	guard  *Guard
	cfg    Config
	logger Logger

	accounts    *CreateAccountHandler
	validation  *ValidateEmailHandler
	resetInit   *InitializePasswordResetHandler
	resetFinal  *FinalizePasswordResetHandler
	passwords   *ChangePasswordHandler
	updates     *UpdateAccountHandler
	deletions   *DeleteAccountHandler
	memberships *MembershipHandler
	companies   *CompanyHandler
}

type ServerOption func(*Server)

func WithServerLogger(l Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewServer(auth Authenticator, repo RepositoryManager, guard *Guard, cfg Config, opts ...ServerOption) *Server {
	s := &Server{
		auth:   auth,
		repo:   repo,
		guard:  guard,
		cfg:    cfg,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.accounts = NewCreateAccountHandler(repo, guard).WithLogger(s.logger)
	s.validation = NewValidateEmailHandler(repo).WithLogger(s.logger)
	s.resetInit = NewInitializePasswordResetHandler(repo).WithLogger(s.logger)
	s.resetFinal = NewFinalizePasswordResetHandler(repo).WithLogger(s.logger)
	s.passwords = NewChangePasswordHandler(repo).WithLogger(s.logger)
	s.updates = NewUpdateAccountHandler(repo, guard).WithLogger(s.logger)
	s.deletions = NewDeleteAccountHandler(repo, guard).WithLogger(s.logger)
	s.memberships = NewMembershipHandler(repo, guard).WithLogger(s.logger)
	s.companies = NewCompanyHandler(repo, guard).WithLogger(s.logger)

	s.app = fiber.New(fiber.Config{
		ErrorHandler:          s.renderError,
		DisableStartupMessage: true,
	})

	s.registerRoutes()

	return s
}

// WithMailer installs the mailer on every handler that sends email.
func (s *Server) WithMailer(m Mailer) *Server {
	s.accounts.WithMailer(m)
	s.resetInit.WithMailer(m)
	return s
}

// WithActivitySink installs the audit sink on every handler.
func (s *Server) WithActivitySink(sink ActivitySink) *Server {
	s.accounts.WithActivitySink(sink)
	s.validation.WithActivitySink(sink)
	s.resetInit.WithActivitySink(sink)
	s.resetFinal.WithActivitySink(sink)
	s.passwords.WithActivitySink(sink)
	s.deletions.WithActivitySink(sink)
	return s
}

// WithBaseURL sets the public URL used in notification links.
func (s *Server) WithBaseURL(url string) *Server {
	s.accounts.WithBaseURL(url)
	s.resetInit.WithBaseURL(url)
	return s
}

// App exposes the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) registerRoutes() {
	s.app.Use(s.instrument)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := s.app.Group("/auth")
	auth.Post("/token", s.LoginRoute)
	auth.Post("/logout", s.RequireAuth, s.LogoutRoute)
	auth.Post("/validate_email/:token", s.ValidateEmailRoute)
	auth.Post("/change_password", s.RequireAuth, s.ChangePasswordRoute)
	auth.Post("/forgot_password", s.ForgotPasswordRoute)
	auth.Post("/reset_password", s.ResetPasswordRoute)
	auth.Delete("/account_delete", s.RequireAuth, s.DeleteOwnAccountRoute)

	admin := s.app.Group("/admin", s.RequireAuth)
	admin.Post("/account_create", s.CreateAccountRoute)
	admin.Post("/search_user", s.SearchUserRoute)
	admin.Post("/update_username", s.UpdateUsernameRoute)
	admin.Post("/update_user_profile_info", s.UpdateUserProfileRoute)
	admin.Delete("/delete_user", s.DeleteUserRoute)
	admin.Post("/add_client_user_to_company", s.AddClientToCompanyRoute)
	admin.Post("/remove_client_user_from_company", s.RemoveClientFromCompanyRoute)

	company := s.app.Group("/company", s.RequireAuth)
	company.Post("/create", s.CreateCompanyRoute)
	company.Get("/search", s.SearchCompanyRoute)
	company.Put("/update/:id", s.UpdateCompanyRoute)
	company.Delete("/delete/:id", s.DeleteCompanyRoute)

	profile := s.app.Group("/profile", s.RequireAuth)
	profile.Get("/info", s.ProfileInfoRoute)
	profile.Put("/info", s.ProfileUpdateRoute)
}

// RequireAuth decodes the bearer token, loads the live account, and
// stashes both on the request. It also performs advisory rotation,
// attaching a fresh token via the refresh header while the old one
// stays valid until expiry.
func (s *Server) RequireAuth(c *fiber.Ctx) error {
	raw := tokenFromRequest(c, s.cfg.GetContextKey())
	if raw == "" {
		return ErrTokenMalformed
	}

	session, err := s.auth.SessionFromToken(raw)
	if err != nil {
		return err
	}

	user, err := s.repo.Users().GetByIdentifier(c.UserContext(), session.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUnableToFindUser
		}
		return WrapInternal(err, "failed to load session user")
	}

	if !user.Activated {
		return ErrNotActivated
	}

	if err := AttachMembershipsTx(c.UserContext(), s.repo.Users().DB(), user); err != nil {
		s.logger.Warn("failed to load session user memberships: %v", err)
	}

	c.Locals(s.cfg.GetContextKey(), user)
	c.Locals("session", session)

	if token, rotated, err := s.auth.RefreshIfNeeded(session); err != nil {
		s.logger.Warn("token rotation failed: %v", err)
	} else if rotated {
		observeRotation()
		c.Set(RefreshTokenHeader, token)
	}

	return c.Next()
}

// CurrentUser returns the account stashed by RequireAuth.
func (s *Server) CurrentUser(c *fiber.Ctx) *User {
	user, _ := c.Locals(s.cfg.GetContextKey()).(*User)
	return user
}

func (s *Server) instrument(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusForError(err)
	}

	route := c.Route().Path
	observeHTTP(c.Method(), route, status, time.Since(start).Seconds())
	return err
}

func (s *Server) renderError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if goerrors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"detail": fiberErr.Message})
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := statusForError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error(
			"request failed: %s category=%s details=%s",
			richErr.Message,
			richErr.Category,
			print.MaybePrettyJSON(richErr.Metadata),
		)
		return c.Status(status).JSON(fiber.Map{"detail": "Internal server error"})
	}

	s.logger.Debug("request rejected: %s category=%s", richErr.Message, richErr.Category)
	return c.Status(status).JSON(fiber.Map{"detail": richErr.Message})
}

func statusForError(err error) int {
	if goerrors.Is(err, ErrActionTokenInvalid) {
		return http.StatusForbidden
	}

	var fiberErr *fiber.Error
	if goerrors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func tokenFromRequest(c *fiber.Ctx, cookieName string) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if cookieName != "" {
		if cookie := c.Cookies(cookieName); cookie != "" {
			return cookie
		}
	}

	return ""
}
