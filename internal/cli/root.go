// Package cli wires the tutorinminutes command tree.
package cli

import (
	"os"

	"tutorinminutes-backend/pkg/apiclient"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by the client commands.
type globalOptions struct {
	apiURL      string
	sessionFile string
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "tutorinminutes",
		Short: "TutorInMinutes backend and console client",
		Long: `tutorinminutes runs the TutorInMinutes API server and its tooling.

Server commands read configuration from .env and the environment:
  serve      run the HTTP API
  migrate    apply or roll back database migrations
  seed       load the demo tutor catalog

Client commands talk to a running server:
  browse     search, filter and sort tutors interactively
  chat       chat with the support assistant
  login      store an auth token
  logout     revoke and forget the auth token
  whoami     show the logged-in user`,
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("TUTORINMINUTES_API_URL")
	if defaultURL == "" {
		defaultURL = apiclient.DefaultBaseURL
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", defaultURL, "API base URL")
	cmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "Where the auth token is kept (default: user config dir)")

	cmd.AddCommand(
		NewServeCmd(),
		NewMigrateCmd(),
		NewSeedCmd(),
		NewBrowseCmd(opts),
		NewChatCmd(opts),
		NewLoginCmd(opts),
		NewLogoutCmd(opts),
		NewWhoamiCmd(opts),
	)
	return cmd
}

func (o *globalOptions) tokenStore() (*apiclient.TokenStore, error) {
	if o.sessionFile != "" {
		return apiclient.NewTokenStore(o.sessionFile), nil
	}
	return apiclient.DefaultTokenStore()
}

func (o *globalOptions) client() (*apiclient.Client, error) {
	store, err := o.tokenStore()
	if err != nil {
		return nil, err
	}
	return apiclient.New(o.apiURL, store, nil), nil
}
