package cli

import (
	"context"
	"fmt"
	"os"
)

// Register creates a new identity on the relay and stores it locally.
func (a *App) Register(ctx context.Context) error {
	displayName, err := GetSimpleText(a.reader, "Display name (optional, shown to contacts):", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	id, shareLink, err := a.service.Register(ctx, displayName)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Registered.")
	fmt.Println("Share link:", shareLink)
	fmt.Println("Fetch token (keep it secret, it is shown only once):", id.FetchToken)
	return nil
}

// Login re-attaches to an existing link with its fetch token, for when the
// identity file was lost. Old envelopes stay unreadable without the box key.
func (a *App) Login(ctx context.Context) error {
	linkToken, err := GetSimpleText(a.reader, "Link token:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fetchToken, err := GetSecret("Fetch token", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	id, err := a.service.Adopt(ctx, linkToken, fetchToken)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Printf("Attached to %s. Note: messages sent before now cannot be decrypted on this device.\n", id.LinkToken)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.service.Identity()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Link token:", id.LinkToken)
	if id.DisplayName != "" {
		fmt.Println("Display name:", id.DisplayName)
	}
	if id.BoxPublic != "" {
		fmt.Println("Box public key (give to contacts so they can encrypt for you):", id.BoxPublic)
	}
	return nil
}
