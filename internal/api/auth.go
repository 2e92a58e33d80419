package api

import (
	"context"
	"net/http"

	"tienda.app/internal/session"
)

// AuthClient implements session.AuthAPI over REST.
type AuthClient struct {
	c *Client
}

// NewAuthClient wraps a configured transport client.
func NewAuthClient(c *Client) *AuthClient { return &AuthClient{c: c} }

type loginRequest struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	Password       string `json:"password"`
}

type loginResponse struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

// Login authenticates by national document. The token is opaque: stored and
// echoed back, never parsed.
func (a *AuthClient) Login(ctx context.Context, documentType, documentNumber, password string) (session.User, string, error) {
	var resp loginResponse
	err := a.c.do(ctx, http.MethodPost, "/v1/auth/login", nil, loginRequest{
		DocumentType:   documentType,
		DocumentNumber: documentNumber,
		Password:       password,
	}, &resp)
	if err != nil {
		return session.User{}, "", err
	}
	return resp.User, resp.Token, nil
}
