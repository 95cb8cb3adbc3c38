package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isRegistered() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	AddContact(ctx context.Context) error
	CheckContact(ctx context.Context) error
	ListContacts(ctx context.Context) error
	RequestAccess(ctx context.Context) error
	ListRequests(ctx context.Context) error
	Accept(ctx context.Context) error
	Reject(ctx context.Context) error
	Send(ctx context.Context) error
	SendAnonymous(ctx context.Context) error
	Fetch(ctx context.Context) error
	List(ctx context.Context) error
	Read(ctx context.Context) error
	Ack(ctx context.Context) error
}

// runREPL starts a read-eval-print loop for the relay CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Before registration only "register", "login" and "exit" do anything useful;
// the rest of the commands need a stored identity and the handlers report
// that themselves. Errors returned by command handlers are ignored here;
// handlers print their own errors. This keeps the loop focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("chi> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isRegistered() {
				printlnFn("Available commands: whoami, contact, check, contacts, request, requests, accept, reject, send, sendanon, fetch, (l)ist, read, ack, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "contact":
			_ = a.AddContact(ctx)

		case "check":
			_ = a.CheckContact(ctx)

		case "contacts":
			_ = a.ListContacts(ctx)

		case "request":
			_ = a.RequestAccess(ctx)

		case "requests":
			_ = a.ListRequests(ctx)

		case "accept":
			_ = a.Accept(ctx)

		case "reject":
			_ = a.Reject(ctx)

		case "send":
			_ = a.Send(ctx)

		case "sendanon":
			_ = a.SendAnonymous(ctx)

		case "fetch":
			_ = a.Fetch(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "read":
			_ = a.Read(ctx)

		case "ack":
			_ = a.Ack(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
