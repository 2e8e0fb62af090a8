package worker

import (
	"context"
	"fmt"
)

// Connect submits account credentials to the worker's account service.
func (c *Client) Connect(ctx context.Context, creds Credentials) (AuthResult, error) {
	return c.authStep(ctx, "connect", creds)
}

// VerifyCode submits the login code challenge answer.
func (c *Client) VerifyCode(ctx context.Context, code string) (AuthResult, error) {
	return c.authStep(ctx, "verify-code", map[string]string{"code": code})
}

// VerifyPassword submits the second-factor password.
func (c *Client) VerifyPassword(ctx context.Context, password string) (AuthResult, error) {
	return c.authStep(ctx, "verify-password", map[string]string{"password": password})
}

func (c *Client) authStep(ctx context.Context, endpoint string, body any) (AuthResult, error) {
	env, err := c.post(ctx, endpoint, body)
	if err != nil {
		return AuthResult{}, err
	}
	if !env.Success {
		return AuthResult{}, newError(endpoint, KindRejected, fmt.Errorf("%s", env.failureMessage()))
	}
	return AuthResult{
		OK:            !env.NeedsCode && !env.NeedsPassword,
		NeedsCode:     env.NeedsCode,
		NeedsPassword: env.NeedsPassword,
	}, nil
}
