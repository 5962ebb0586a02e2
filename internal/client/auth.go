package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"calibri-dashboard/internal/model"
)

const MinPasswordLength = 6

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func ValidateRegistration(email, password, name string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	return nil
}

func ValidateLogin(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return &ValidationError{Field: "email", Message: "Invalid email address"}
	}
	return nil
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, email, password, name string) (model.User, error) {
	if err := ValidateRegistration(email, password, name); err != nil {
		return model.User{}, err
	}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", registerBody{Email: strings.TrimSpace(email), Password: password, Name: strings.TrimSpace(name)}, &resp); err != nil {
		return model.User{}, err
	}
	if err := c.tokens.SetToken(resp.Token); err != nil {
		return model.User{}, fmt.Errorf("storing token: %w", err)
	}
	return resp.User, nil
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	if err := ValidateLogin(email, password); err != nil {
		return model.User{}, err
	}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", loginBody{Email: strings.TrimSpace(email), Password: password}, &resp); err != nil {
		return model.User{}, err
	}
	if err := c.tokens.SetToken(resp.Token); err != nil {
		return model.User{}, fmt.Errorf("storing token: %w", err)
	}
	return resp.User, nil
}

// Logout notifies the server and always clears the local token, even when the
// server call fails. The server error, if any, is returned.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if clearErr := c.tokens.Clear(); clearErr != nil && err == nil {
		err = fmt.Errorf("clearing token: %w", clearErr)
	}
	return err
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}
