package cli

import (
	"context"
	"fmt"
)

// Whoami fetches and prints the logged-in user's own record.
func (a *App) Whoami(ctx context.Context) error {
	user, err := a.client.GetUser(ctx, a.client.UserID())
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("#%d %s <%s> tier %d", user.UserID, user.Name, user.Email, user.Tier))
	return nil
}

// List prints the first page of registered users.
func (a *App) List(ctx context.Context) error {
	rows, count, err := a.client.ListUsers(ctx, 1, 10)
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("%d user(s)", count))
	for _, u := range rows {
		printlnFn(fmt.Sprintf("#%d %s <%s> tier %d", u.UserID, u.Name, u.Email, u.Tier))
	}
	return nil
}
