package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) getStatus() string {
	id, err := a.service.Identity()
	if err != nil {
		return "(unregistered)"
	}
	if id.DisplayName != "" {
		return fmt.Sprintf("(%s)", id.DisplayName)
	}
	return fmt.Sprintf("(%s)", id.LinkToken)
}

func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to ChiCrypt CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
