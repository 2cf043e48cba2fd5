package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"tutorinminutes-backend/config"
	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/chatwidget"
	"tutorinminutes-backend/internal/console"
	"tutorinminutes-backend/internal/seed"
	"tutorinminutes-backend/pkg/apiclient"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewBrowseCmd creates the 'browse' command.
func NewBrowseCmd(opts *globalOptions) *cobra.Command {
	var offline bool
	var subject, mode string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Search, filter and sort tutors interactively",
		Example: `  tutorinminutes browse
  tutorinminutes browse --offline
  tutorinminutes browse --subject Mathematics --mode offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var tutors []catalog.Tutor
			if offline {
				tutors = seed.Tutors()
			} else {
				client, err := opts.client()
				if err != nil {
					return err
				}
				filters := url.Values{}
				if subject != "" {
					filters.Set("subject", subject)
				}
				if mode != "" {
					filters.Set("mode", mode)
				}
				tutors, err = client.ListTutors(cmd.Context(), filters)
				if err != nil {
					return fmt.Errorf("failed to load tutors: %w", err)
				}
			}

			return console.NewBrowser(tutors, cmd.OutOrStdout()).Run(cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the built-in demo catalog instead of the API")
	cmd.Flags().StringVar(&subject, "subject", "", "Only load tutors teaching this subject")
	cmd.Flags().StringVar(&mode, "mode", "", "Only load tutors offering this mode (online|offline)")
	return cmd
}

// NewChatCmd creates the 'chat' command.
func NewChatCmd(opts *globalOptions) *cobra.Command {
	var direct bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the support assistant",
		Long: `Drives the support chat widget from the terminal. Messages go through the
API's /chat proxy, or straight to the agent workflow with --direct.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var agent chatwidget.Agent
			if direct {
				cfg, err := config.LoadConfig()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				agent = chatwidget.NewAgentClient(cfg.Chat.Endpoint, &http.Client{Timeout: cfg.Chat.Timeout})
			} else {
				client, err := opts.client()
				if err != nil {
					return err
				}
				agent = client
			}

			// Widget warnings would interleave with the conversation.
			log := logrus.New()
			log.SetLevel(logrus.ErrorLevel)

			chat := console.NewChat(agent, cmd.OutOrStdout(), chatwidget.WithLogger(log))
			return chat.Run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&direct, "direct", false, "Call the agent workflow directly instead of the API")
	return cmd
}

// NewLoginCmd creates the 'login' command.
func NewLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the auth token",
		Example: `  tutorinminutes login --email asha@example.com
  echo "$PASSWORD" | tutorinminutes login --email asha@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			client, err := opts.client()
			if err != nil {
				return err
			}
			tokens, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, apiclient.ErrUnauthorized) {
					return errors.New("invalid email or password")
				}
				return err
			}

			name := email
			if tokens.User != nil && tokens.User.FullName != "" {
				name = tokens.User.FullName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when omitted)")
	return cmd
}

// NewLogoutCmd creates the 'logout' command.
func NewLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and forget the stored auth token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.tokenStore()
			if err != nil {
				return err
			}
			token, err := store.Token()
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			if err := apiclient.New(opts.apiURL, store, nil).Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the 'whoami' command.
func NewWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			user, err := client.Me(cmd.Context())
			if err != nil {
				if errors.Is(err, apiclient.ErrUnauthorized) {
					return errors.New("not logged in")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", user.FullName, user.Email, user.Role)
			return nil
		},
	}
}
