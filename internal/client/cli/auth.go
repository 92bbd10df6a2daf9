package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/avolkov/tiergate/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped
// in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for account details and creates a new account. On
// success the client is left logged in with the issued token pair. The
// password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", os.Stdout)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	tierText, err := getSimpleText(a.reader, "Enter tier (0-3)", os.Stdout)
	if err != nil {
		return err
	}
	tier, err := strconv.ParseInt(tierText, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tier: %w", err)
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.client.Register(ctx, name, email, string(password), tier)
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Registered as user %d (tier %d)", user.UserID, user.Tier))
	return nil
}

// Login prompts for credentials and authenticates against the server.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Logged in as %s (tier %d)", user.Email, user.Tier))
	return nil
}

// Logout revokes every outstanding token for the account, not just the
// pair this client holds.
func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

// Refresh swaps the stored refresh token for a fresh pair.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return err
	}
	printlnFn("Tokens refreshed")
	return nil
}
