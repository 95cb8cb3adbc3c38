package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (a *App) Send(ctx context.Context) error {
	return a.send(ctx, false)
}

// SendAnonymous delivers without naming the sender, so the recipient's
// permission gate does not apply.
func (a *App) SendAnonymous(ctx context.Context) error {
	return a.send(ctx, true)
}

func (a *App) send(ctx context.Context, anonymous bool) error {
	linkToken, err := GetSimpleText(a.reader, "Recipient link token:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	text, err := GetMultiline(a.reader, "Message:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	result, err := a.service.Send(ctx, linkToken, []byte(text), anonymous)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Delivered, message id:", result.MessageID)
	return nil
}

func (a *App) Fetch(ctx context.Context) error {
	n, err := a.service.Fetch(ctx, false)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Printf("Fetched %d new message(s)\n", n)
	return nil
}

func (a *App) List(ctx context.Context) error {
	messages, err := a.service.Messages(ctx, false)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	if len(messages) == 0 {
		fmt.Println("No unread messages. Try 'fetch' first.")
		return nil
	}

	for _, m := range messages {
		fmt.Printf("#%d  %s  %s\n", m.ID, m.CreatedAt.Format("2006-01-02 15:04"), senderLabel(m.Metadata))
	}
	return nil
}

// senderLabel pulls the sender nickname out of the envelope metadata, if the
// sender attached one.
func senderLabel(metadata *string) string {
	if metadata == nil {
		return "anonymous"
	}
	var fields struct {
		FromNickname string `json:"from_nickname"`
	}
	if err := json.Unmarshal([]byte(*metadata), &fields); err != nil || fields.FromNickname == "" {
		return "anonymous"
	}
	return fields.FromNickname
}

func (a *App) Read(ctx context.Context) error {
	raw, err := GetSimpleText(a.reader, "Message id:", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fmt.Println("not a message id:", raw)
		return err
	}

	plaintext, err := a.service.Read(ctx, id)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println(string(plaintext))
	return nil
}

func (a *App) Ack(ctx context.Context) error {
	raw, err := GetSimpleText(a.reader, "Message ids (space separated):", os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	var ids []int64
	for _, field := range strings.Fields(raw) {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			fmt.Println("not a message id:", field)
			return err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		fmt.Println("Nothing to acknowledge.")
		return nil
	}

	n, err := a.service.Ack(ctx, ids)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Printf("Acknowledged %d message(s)\n", n)
	return nil
}
