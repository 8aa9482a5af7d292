package response

import "scheduled-mailer/internal/usecase"

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int64        `json:"expiresIn"`
	User        UserResponse `json:"user"`
}

func FromIdentity(identity usecase.Identity) UserResponse {
	return UserResponse{
		ID:    identity.UserID.String(),
		Email: identity.Email,
		Name:  identity.Name,
	}
}

func FromIssuedToken(t *usecase.IssuedToken) *LoginResponse {
	return &LoginResponse{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(t.ExpiresIn.Seconds()),
		User:        FromIdentity(t.Identity),
	}
}
