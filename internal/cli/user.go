package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/remo/internal/auth"
	"github.com/sakif/remo/internal/repository/sqlite"
	"github.com/sakif/remo/internal/service"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd(opts))
	return cmd
}

func newUserCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		in         service.RegisterInput
		shareEmail bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with profile, groups and IRC channels",
		Long: `Create a user and their profile in one transaction.

Without --password the account can only sign in with GitHub (--github-login).
Only members of the Rep group (--group Rep) appear in the rep directory.`,
		Example: `  remoctl user create --username zig --email zig@example.com \
    --first-name Zig --last-name Zagger --display-name zig \
    --mozillians-url https://mozillians.org/u/zig \
    --group Rep --channel '#remo' --password 'correct horse'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			db, err := sqlite.New(opts.dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			in.PrivateEmailVisible = &shareEmail
			profiles := service.NewProfileService(db, db, db, db, db, auth.NewPasswordService(), logger)
			rep, err := profiles.Register(cmd.Context(), in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) groups=%v\n", rep.User.Username, rep.User.ID, rep.Groups)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "Login name (required)")
	f.StringVar(&in.Password, "password", "", "Password; omit for GitHub-only accounts")
	f.StringVar(&in.Email, "email", "", "Email address (required)")
	f.StringVar(&in.FirstName, "first-name", "", "First name")
	f.StringVar(&in.LastName, "last-name", "", "Last name")
	f.StringVar(&in.GitHubLogin, "github-login", "", "GitHub login allowed to sign in as this user")
	f.StringVar(&in.DisplayName, "display-name", "", "Public display name (letters, digits, _)")
	f.StringVar(&in.PrivateEmail, "private-email", "", "Private email address")
	f.BoolVar(&shareEmail, "private-email-visible", true, "Share the private email with signed-in users")
	f.StringVar(&in.City, "city", "", "City")
	f.StringVar(&in.Region, "region", "", "Region")
	f.StringVar(&in.Country, "country", "", "Country")
	f.StringVar(&in.IRCName, "irc-name", "", "IRC nick")
	f.StringVar(&in.TwitterAccount, "twitter", "", "Twitter account")
	f.StringVar(&in.GPGKey, "gpg-key", "", "GPG key id")
	f.StringVar(&in.MozilliansURL, "mozillians-url", "", "Mozillians profile URL (required)")
	f.StringVar(&in.PersonalWebsiteURL, "website", "", "Personal website URL")
	f.StringVar(&in.MentorUsername, "mentor", "", "Username of the mentor")
	f.BoolVar(&in.InitialCouncil, "initial-council", false, "Member of the initial council")
	f.StringSliceVar(&in.Groups, "group", nil, "Group to join (Rep, Mentor, Admin); repeatable")
	f.StringSliceVar(&in.Channels, "channel", nil, "IRC channel to join; repeatable")

	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("mozillians-url")

	return cmd
}
