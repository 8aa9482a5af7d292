//go:build unit || e2e

package builder

import (
	reqdto "scheduled-mailer/internal/handler/dto/request"
	"scheduled-mailer/internal/usecase"
)

type AuthBuilder struct {
	Email string
	Name  string
}

func NewAuthBuilder() *AuthBuilder {
	return &AuthBuilder{
		Email: "sender@example.com",
		Name:  "Sender",
	}
}

func (a *AuthBuilder) BuildDTO() reqdto.DemoLoginRequest {
	return reqdto.DemoLoginRequest{
		Email: a.Email,
		Name:  a.Name,
	}
}

func (a *AuthBuilder) BuildIdentity() usecase.Identity {
	return usecase.Identity{
		UserID: usecase.OwnerIDFor(a.Email),
		Email:  a.Email,
		Name:   a.Name,
	}
}
