package usecase

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"scheduled-mailer/internal/pkg/errs"
	"scheduled-mailer/internal/pkg/jwt"

	"github.com/google/uuid"
)

var (
	ErrInvalidIdentity = errs.New("invalid identity")
	ErrTokenGeneration = errs.New("token generation failed")
)

// ownerNamespace scopes the name-based owner ids derived from email addresses.
var ownerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:scheduled-mailer:owner"))

type IssuedToken struct {
	AccessToken string
	ExpiresIn   time.Duration
	Identity    Identity
}

// AuthUseCase issues tokens for the demo identity provider. Real deployments
// put an external provider in front and only use ValidateToken.
type AuthUseCase interface {
	IssueDemoToken(ctx context.Context, email, name string) (*IssuedToken, error)
}

type authUseCaseImpl struct {
	jwtService *jwt.Service
}

func NewAuthUseCase(jwtService *jwt.Service) AuthUseCase {
	return &authUseCaseImpl{
		jwtService: jwtService,
	}
}

func (a *authUseCaseImpl) IssueDemoToken(_ context.Context, email, name string) (*IssuedToken, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "parse email"), ErrInvalidIdentity)
	}

	identity := Identity{
		UserID: OwnerIDFor(addr.Address),
		Email:  addr.Address,
		Name:   strings.TrimSpace(name),
	}

	token, err := a.jwtService.GenerateToken(identity.UserID, identity.Email, identity.Name)
	if err != nil {
		return nil, errs.Mark(err, ErrTokenGeneration)
	}

	return &IssuedToken{
		AccessToken: token,
		ExpiresIn:   a.jwtService.TokenDuration(),
		Identity:    identity,
	}, nil
}

// OwnerIDFor derives a stable owner id from an email address, so the same
// person gets the same id on every login.
func OwnerIDFor(email string) uuid.UUID {
	return uuid.NewSHA1(ownerNamespace, []byte(strings.ToLower(email)))
}
