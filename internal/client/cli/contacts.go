package cli

import (
	"context"
	"fmt"
	"os"
)

// AddContact resolves a link on the relay and saves it with a local nickname.
func (a *App) AddContact(ctx context.Context) error {
	linkToken, err := GetSimpleText(a.reader, "Contact link token:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	nickname, err := GetSimpleText(a.reader, "Nickname:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	boxKey, err := GetSimpleText(a.reader, "Their box public key (optional, needed to send):", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	contact, err := a.service.AddContact(ctx, linkToken, nickname, boxKey)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Printf("Saved %s (%s)\n", contact.Nickname, contact.LinkToken)
	return nil
}

// CheckContact asks the relay whether a link exists, without saving anything.
func (a *App) CheckContact(ctx context.Context) error {
	linkToken, err := GetSimpleText(a.reader, "Link token to check:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	contact, err := a.service.CheckContact(ctx, linkToken)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if !contact.Exists {
		fmt.Println("No identity behind that link.")
		return nil
	}

	name := contact.DisplayName
	if name == "" {
		name = "(no display name)"
	}
	fmt.Printf("Exists: %s, %s key %s\n", name, contact.KeyType, contact.PublicKey)
	return nil
}

func (a *App) ListContacts(ctx context.Context) error {
	contacts, err := a.service.Contacts(ctx)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if len(contacts) == 0 {
		fmt.Println("No contacts yet. Use 'contact' to add one.")
		return nil
	}

	for _, c := range contacts {
		canSend := "no box key"
		if c.BoxPublicKey != "" {
			canSend = "can send"
		}
		fmt.Printf("%s  %s  [%s]\n", c.Nickname, c.LinkToken, canSend)
	}
	return nil
}
