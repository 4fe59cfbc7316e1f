package identity

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginRoute verifies credentials and returns a fresh bearer token.
func (s *Server) LoginRoute(c *fiber.Ctx) error {
	req := &loginRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid login payload")
	}

	token, err := s.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		observeLogin("failure")
		return err
	}

	observeLogin("success")

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// LogoutRoute acknowledges the logout. Tokens are stateless so the
// client discards its copy, the token itself stays valid until expiry.
func (s *Server) LogoutRoute(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"detail": "Logout successful."})
}

type validateEmailRequest struct {
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// ValidateEmailRoute redeems a validation token, activating the account.
func (s *Server) ValidateEmailRoute(c *fiber.Ctx) error {
	req := &validateEmailRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid validation payload")
	}

	err := s.validation.Execute(c.UserContext(), ValidateEmailMessage{
		Token:           c.Params("token"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "Email validated successfully."})
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" form:"old_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_new_password" form:"confirm_new_password"`
}

func (s *Server) ChangePasswordRoute(c *fiber.Ctx) error {
	req := &changePasswordRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid password change payload")
	}

	err := s.passwords.Execute(c.UserContext(), ChangePasswordMessage{
		Actor:           s.CurrentUser(c),
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "Password changed successfully."})
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

// ForgotPasswordRoute always answers the same way so it cannot be used
// to discover which addresses hold accounts.
func (s *Server) ForgotPasswordRoute(c *fiber.Ctx) error {
	req := &forgotPasswordRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid forgot password payload")
	}

	err := s.resetInit.Execute(c.UserContext(), InitializePasswordResetMessage{
		Email: req.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "If the account exists, a reset link has been sent."})
}

type resetPasswordRequest struct {
	Token           string `json:"token" form:"token"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_new_password" form:"confirm_new_password"`
}

func (s *Server) ResetPasswordRoute(c *fiber.Ctx) error {
	req := &resetPasswordRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid reset payload")
	}

	err := s.resetFinal.Execute(c.UserContext(), FinalizePasswordResetMessage{
		Token:           req.Token,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "Password reset successful."})
}

func (s *Server) DeleteOwnAccountRoute(c *fiber.Ctx) error {
	actor := s.CurrentUser(c)

	err := s.deletions.Execute(c.UserContext(), DeleteAccountMessage{
		Actor:  actor,
		Target: actor.ID.String(),
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "Account deleted."})
}

type createAccountRequest struct {
	Username  string `json:"username" form:"username"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Phone     string `json:"phone_number" form:"phone_number"`
	Role      string `json:"user_role" form:"user_role"`
	CompanyID string `json:"company_id" form:"company_id"`
}

func (s *Server) CreateAccountRoute(c *fiber.Ctx) error {
	req := &createAccountRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid account creation payload")
	}

	var companyID *uuid.UUID
	if req.CompanyID != "" {
		id, err := uuid.Parse(req.CompanyID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid company id")
		}
		companyID = &id
	}

	var created *CreateAccountResponse

	err := s.accounts.Execute(c.UserContext(), CreateAccountMessage{
		Actor:     s.CurrentUser(c),
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
		CompanyID: companyID,
		OnResponse: func(resp *CreateAccountResponse) {
			created = resp
		},
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"detail": "Account created, validation email sent.",
		"user":   created.User.Public(),
	})
}

type searchUserRequest struct {
	Query string `json:"searched_user" form:"searched_user"`
}

// SearchUserRoute matches accounts by username or name, bounded to the
// companies the caller may see.
func (s *Server) SearchUserRoute(c *fiber.Ctx) error {
	req := &searchUserRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid search payload")
		}
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = strings.TrimSpace(c.Query("query"))
	}
	if query == "" {
		return goerrors.New("Search query cannot be empty.", goerrors.CategoryBadInput)
	}

	actor := s.CurrentUser(c)
	scope, err := s.guard.SearchScope(actor)
	if err != nil {
		return err
	}

	var results []*User
	if scope.SelfOnly {
		if matchesQuery(actor, query) {
			results = []*User{actor}
		}
	} else {
		results, err = s.repo.Users().SearchScoped(c.UserContext(), query, scope, 50)
		if err != nil {
			return WrapInternal(err, "user search failed")
		}
	}

	if len(results) == 0 {
		return goerrors.New("No users found.", goerrors.CategoryAuthz)
	}

	public := make([]PublicUser, 0, len(results))
	for _, u := range results {
		public = append(public, u.Public())
	}

	return c.JSON(fiber.Map{"users": public})
}

type updateUsernameRequest struct {
	Target      string `json:"target" form:"target"`
	NewUsername string `json:"new_username" form:"new_username"`
}

func (s *Server) UpdateUsernameRoute(c *fiber.Ctx) error {
	req := &updateUsernameRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid username update payload")
	}

	updated, err := s.updates.ExecuteUsername(c.UserContext(), UpdateUsernameMessage{
		Actor:       s.CurrentUser(c),
		Target:      req.Target,
		NewUsername: req.NewUsername,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"user": updated.Public()})
}

type updateProfileRequest struct {
	Target    string `json:"target" form:"target"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Phone     string `json:"phone_number" form:"phone_number"`
}

func (s *Server) UpdateUserProfileRoute(c *fiber.Ctx) error {
	req := &updateProfileRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid profile update payload")
	}

	updated, err := s.updates.ExecuteProfile(c.UserContext(), UpdateProfileMessage{
		Actor:     s.CurrentUser(c),
		Target:    req.Target,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"user": updated.Public()})
}

type deleteUserRequest struct {
	Target string `json:"target" form:"target"`
}

func (s *Server) DeleteUserRoute(c *fiber.Ctx) error {
	req := &deleteUserRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid delete payload")
	}

	if req.Target == "" {
		req.Target = c.Query("target")
	}

	err := s.deletions.Execute(c.UserContext(), DeleteAccountMessage{
		Actor:  s.CurrentUser(c),
		Target: req.Target,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "User deleted."})
}

type membershipRequest struct {
	Client    string `json:"client" form:"client"`
	CompanyID string `json:"company_id" form:"company_id"`
}

func (s *Server) AddClientToCompanyRoute(c *fiber.Ctx) error {
	req := &membershipRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid membership payload")
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid company id")
	}

	err = s.memberships.ExecuteAdd(c.UserContext(), AddClientToCompanyMessage{
		Actor:     s.CurrentUser(c),
		Client:    req.Client,
		CompanyID: companyID,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "Client added to company."})
}

func (s *Server) RemoveClientFromCompanyRoute(c *fiber.Ctx) error {
	req := &membershipRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid membership payload")
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid company id")
	}

	err = s.memberships.ExecuteRemove(c.UserContext(), RemoveClientFromCompanyMessage{
		Actor:     s.CurrentUser(c),
		Client:    req.Client,
		CompanyID: companyID,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "Client removed from company."})
}

type companyRequest struct {
	Name string `json:"company_name" form:"company_name"`
}

func (s *Server) CreateCompanyRoute(c *fiber.Ctx) error {
	req := &companyRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid company payload")
	}

	created, err := s.companies.ExecuteCreate(c.UserContext(), CreateCompanyMessage{
		Actor: s.CurrentUser(c),
		Name:  req.Name,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"company": created})
}

// SearchCompanyRoute lists tenants. Company-bound users only ever see
// their own companies.
func (s *Server) SearchCompanyRoute(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))

	actor := s.CurrentUser(c)

	switch actor.Role {
	case RoleAdmin:
		results, err := s.repo.Companies().Search(c.UserContext(), query, 50)
		if err != nil {
			return WrapInternal(err, "company search failed")
		}
		return c.JSON(fiber.Map{"companies": results})
	case RoleCompanyAdmin, RoleCompanyCommercial, RoleCompanyDevelopper, RoleCompanyClient:
		ids := actor.CompanyIDs()
		results := make([]*Company, 0, len(ids))
		for _, id := range ids {
			company, err := s.repo.Companies().GetByID(c.UserContext(), id.String())
			if err != nil {
				continue
			}
			if query == "" || strings.Contains(strings.ToLower(company.Name), strings.ToLower(query)) {
				results = append(results, company)
			}
		}
		return c.JSON(fiber.Map{"companies": results})
	default:
		return ErrForbidden
	}
}

type updateCompanyRequest struct {
	Name string `json:"company_name" form:"company_name"`
}

func (s *Server) UpdateCompanyRoute(c *fiber.Ctx) error {
	companyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid company id")
	}

	req := &updateCompanyRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid company payload")
	}

	updated, err := s.companies.ExecuteUpdate(c.UserContext(), UpdateCompanyMessage{
		Actor:     s.CurrentUser(c),
		CompanyID: companyID,
		Name:      req.Name,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"company": updated})
}

func (s *Server) DeleteCompanyRoute(c *fiber.Ctx) error {
	companyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid company id")
	}

	err = s.companies.ExecuteDelete(c.UserContext(), DeleteCompanyMessage{
		Actor:     s.CurrentUser(c),
		CompanyID: companyID,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"detail": "Company deleted."})
}

// ProfileInfoRoute returns the caller's own account with company
// associations resolved.
func (s *Server) ProfileInfoRoute(c *fiber.Ctx) error {
	actor := s.CurrentUser(c)

	companies := make([]*Company, 0)
	if actor.HasFixedCompany() && actor.CompanyID != nil {
		if company, err := s.repo.Companies().GetByID(c.UserContext(), actor.CompanyID.String()); err == nil {
			companies = append(companies, company)
		}
	} else {
		records, err := s.repo.Memberships().ListByUser(c.UserContext(), actor.ID)
		if err == nil {
			for _, m := range records {
				if m.Company != nil {
					companies = append(companies, m.Company)
				}
			}
		}
	}

	return c.JSON(fiber.Map{
		"user":      actor.Public(),
		"companies": companies,
	})
}

func (s *Server) ProfileUpdateRoute(c *fiber.Ctx) error {
	actor := s.CurrentUser(c)

	req := &updateProfileRequest{}
	if err := c.BodyParser(req); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid profile payload")
	}

	updated, err := s.updates.ExecuteProfile(c.UserContext(), UpdateProfileMessage{
		Actor:     actor,
		Target:    actor.ID.String(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"user": updated.Public()})
}

func matchesQuery(u *User, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(u.Username), q) ||
		strings.Contains(strings.ToLower(u.FirstName), q) ||
		strings.Contains(strings.ToLower(u.LastName), q)
}
