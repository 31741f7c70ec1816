package service

import (
	"context"

	"minimalgym/internal/apperror"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// IdentityVerifier re-authenticates a staff user before a sensitive
// transition such as opening the drawer.
type IdentityVerifier interface {
	Verify(ctx context.Context, userID uuid.UUID, password string) error
}

type passwordVerifier struct {
	users repository.UserRepository
}

// NewPasswordVerifier checks the user's bcrypt hash and that the account is
// active and not locked.
func NewPasswordVerifier(users repository.UserRepository) IdentityVerifier {
	return &passwordVerifier{users: users}
}

func (v *passwordVerifier) Verify(ctx context.Context, userID uuid.UUID, password string) error {
	u, err := v.users.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperror.Validation("invalid credentials")
		}
		return err
	}
	if !u.IsActive || u.IsLocked {
		return apperror.Validation("user is inactive or locked")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return apperror.Validation("invalid credentials")
	}
	return nil
}
