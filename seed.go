package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// EnsureSuperAdmin creates the protected administrator account on
// first boot. The account is flagged as a system account so no
// administrative surface can modify or delete it. Reboots with an
// existing account are a no-op, the stored password is left alone.
func EnsureSuperAdmin(ctx context.Context, repo RepositoryManager, email, password string, logger Logger) (*User, error) {
	if logger == nil {
		logger = defLogger{}
	}

	if email == "" || password == "" {
		return nil, goerrors.New("super admin email and password are required", goerrors.CategoryValidation)
	}

	if err := ValidatePasswordPolicy(password); err != nil {
		return nil, err
	}

	var admin *User

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := repo.Users().GetByIdentifierTx(ctx, tx, email)
		if err == nil {
			admin = existing
			return nil
		}

		if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up super admin")
		}

		hash, err := HashPassword(password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash super admin password")
		}

		record := &User{
			Username:     email,
			FirstName:    "Super",
			LastName:     "Admin",
			Role:         RoleAdmin,
			PasswordHash: hash,
			Activated:    true,
			System:       true,
		}

		admin, err = repo.Users().CreateTx(ctx, tx, record)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create super admin")
		}

		logger.Info("seeded super admin account %s", email)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return admin, nil
}
