// Google identity provider: authorization-code flow yielding an id_token
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/botanica/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

// IdentityService drives the Google OAuth2 authorization-code flow.
//
// The backend session is established with the id_token from the token response, not the access token.
type IdentityService struct {
	config *oauth2.Config
}

// NewIdentityService creates a new identity service with the given OAuth2 credentials.
func NewIdentityService(credentials map[string]string) (*IdentityService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: credentials["client_secret"],
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}

	return &IdentityService{config: config}, nil
}

// Config returns the OAuth2 configuration used by the callback handler.
func (s *IdentityService) Config() *oauth2.Config { return s.config }

// AuthURL returns the consent page URL for the given CSRF state.
func (s *IdentityService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for tokens and returns the id_token.
func (s *IdentityService) Exchange(ctx context.Context, code string) (string, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err)
	}
	return IDTokenFrom(token)
}

// IDTokenFrom reads the id_token from an OAuth2 token response.
func IDTokenFrom(token *oauth2.Token) (string, error) {
	if token == nil {
		return "", fmt.Errorf("%w: no token", shared.ErrInvalidCredential)
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return "", fmt.Errorf("%w: token response has no id_token", shared.ErrInvalidCredential)
	}
	return idToken, nil
}

// IdentityClaims are the profile claims of an identity credential.
type IdentityClaims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// DecodeIdentityClaims reads profile claims from a JWT identity credential WITHOUT verifying its signature.
//
// The result is only suitable for display. The backend is the sole authority on whether the credential is valid.
func DecodeIdentityClaims(credential string) (*IdentityClaims, error) {
	if strings.Count(credential, ".") != 2 {
		return nil, fmt.Errorf("%w: not a JWT", shared.ErrInvalidCredential)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidCredential, err)
	}

	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	return &IdentityClaims{
		Subject: str("sub"),
		Email:   str("email"),
		Name:    str("name"),
		Picture: str("picture"),
	}, nil
}
