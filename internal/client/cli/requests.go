package cli

import (
	"context"
	"fmt"
	"os"
)

// RequestAccess asks a contact for permission to send gated messages.
func (a *App) RequestAccess(ctx context.Context) error {
	linkToken, err := GetSimpleText(a.reader, "Recipient link token:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	outcome, err := a.service.RequestPermission(ctx, linkToken)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if outcome.Status == "accepted" {
		fmt.Println("Already granted.")
	} else {
		fmt.Println("Request sent, id:", outcome.RequestID)
	}
	return nil
}

func (a *App) ListRequests(ctx context.Context) error {
	pending, err := a.service.PendingRequests(ctx)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if len(pending) == 0 {
		fmt.Println("No pending requests.")
		return nil
	}

	for _, r := range pending {
		fmt.Printf("%s  from %s (%s)  at %s\n", r.RequestID, r.FromNickname, r.FromLinkToken, r.Timestamp.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *App) Accept(ctx context.Context) error {
	return a.respond(ctx, "accept")
}

func (a *App) Reject(ctx context.Context) error {
	return a.respond(ctx, "reject")
}

func (a *App) respond(ctx context.Context, action string) error {
	requestID, err := GetSimpleText(a.reader, "Request id:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	outcome, err := a.service.RespondRequest(ctx, requestID, action)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Request", outcome.RequestID, "is now", outcome.Status)
	return nil
}
