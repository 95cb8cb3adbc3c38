// Package cli is the interactive terminal client for the relay. It keeps
// per-user state under the configured data directory: the identity file and
// a sqlite cache of fetched envelopes.
package cli

import (
	"bufio"
	"context"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/chicrypt/relay/internal/client/api"
	"github.com/chicrypt/relay/internal/client/config"
	"github.com/chicrypt/relay/internal/client/keystore"
	"github.com/chicrypt/relay/internal/client/services"
	"github.com/chicrypt/relay/internal/client/store"
)

type App struct {
	config  *config.Config
	service *services.RelayService
	repos   *store.Repositories
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return nil, err
	}

	repos, err := store.InitDatabase(ctx, filepath.Join(c.DataDir, "cache.db"))
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	service := services.NewRelayService(
		api.NewClient(c.ServerURL, c.RequestTimeout),
		keystore.New(c.DataDir),
		repos,
	)

	return &App{config: c, service: service, repos: repos, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.repos.DB.Close()
	a.Root(ctx)
}

func (a *App) isRegistered() bool {
	_, err := a.service.Identity()
	return err == nil
}
