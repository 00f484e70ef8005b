// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/netserver/accounts/internal/auth"
)

// withApp builds the app, runs fn, and releases the store.
func withApp(cmd *cobra.Command, deps *Deps, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd, deps)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

func parseUserID(s string) (ulid.ULID, error) {
	if s == "" {
		return ulid.ULID{}, oops.Code("INVALID_ARGUMENT").Errorf("--user-id is required")
	}
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_ARGUMENT").With("user_id", s).Wrap(err)
	}
	return id, nil
}

func newUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register users, log in, and manage roles and profiles",
	}
	cmd.AddCommand(
		newUserRegisterCmd(deps),
		newUserLoginCmd(deps),
		newUserAssignRoleCmd(deps),
		newUserRoleCmd(deps),
		newUserRolesCmd(deps),
		newUserPasswordCmd(deps),
		newUserProfileCmd(deps),
		newUserUpdateProfileCmd(deps),
	)
	return cmd
}

func newUserRegisterCmd(deps *Deps) *cobra.Command {
	var reg auth.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user and assign its role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				user, err := a.svc.Register(ctx, reg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), user.ID.String())
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&reg.Username, "username", "", "username (3-30 chars, letter first)")
	f.StringVar(&reg.Email, "email", "", "email address")
	f.StringVar(&reg.Password, "password", "", "initial password")
	f.StringVar(&reg.FirstName, "first-name", "", "first name")
	f.StringVar(&reg.LastName, "last-name", "", "last name")
	f.StringVar(&reg.Phone, "phone", "", "phone number, usable for reset codes")
	f.StringVar(&reg.Address, "address", "", "postal address")
	f.StringVar(&reg.Gender, "gender", "", "gender")
	f.StringVar(&reg.AvatarURL, "avatar", "", "avatar reference (default: "+auth.DefaultAvatar+")")
	f.StringVar(&reg.Role, "role", "", "role name (default: "+auth.RoleUser+")")
	return cmd
}

func newUserLoginCmd(deps *Deps) *cobra.Command {
	var identifier, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify credentials and print a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				token, err := a.svc.Login(ctx, identifier, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&identifier, "identifier", "", "username or email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newUserAssignRoleCmd(deps *Deps) *cobra.Command {
	var userID, role string
	cmd := &cobra.Command{
		Use:   "assign-role",
		Short: "Replace a user's role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.svc.AssignRole(ctx, id, role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Assigned role %s\n", role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id")
	cmd.Flags().StringVar(&role, "role", "", "role name")
	return cmd
}

func newUserRoleCmd(deps *Deps) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Print a user's role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				name, err := a.svc.GetUserRole(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id")
	return cmd
}

func newUserRolesCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the roles that can be assigned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				roles, err := a.svc.ListRoles(ctx)
				if err != nil {
					return err
				}
				for _, r := range roles {
					fmt.Fprintln(cmd.OutOrStdout(), r.Name)
				}
				return nil
			})
		},
	}
}

func newUserPasswordCmd(deps *Deps) *cobra.Command {
	var userID, current, next string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change a password after verifying the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				if err := a.svc.UpdatePassword(ctx, id, current, next); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Password updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id")
	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	return cmd
}

func newUserProfileCmd(deps *Deps) *cobra.Command {
	var userID, bearer string
	var jsonOutput, yamlOutput bool
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show a user's profile",
		Long: `Show the profile for --user-id, or for the subject of a bearer token
issued by "user login" when --token is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (userID == "") == (bearer == "") {
				return oops.Code("INVALID_ARGUMENT").Errorf("pass exactly one of --user-id or --token")
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				var id ulid.ULID
				if bearer != "" {
					claims, err := a.issuer.Parse(bearer)
					if err != nil {
						return err
					}
					id = claims.UserID
				} else {
					var err error
					if id, err = parseUserID(userID); err != nil {
						return err
					}
				}

				profile, err := a.svc.GetProfile(ctx, id)
				if err != nil {
					return err
				}
				switch {
				case jsonOutput:
					return printProfileJSON(cmd, profile)
				case yamlOutput:
					return printProfileYAML(cmd, profile)
				default:
					return printProfileTable(cmd, profile)
				}
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id")
	cmd.Flags().StringVar(&bearer, "token", "", "bearer token from user login")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output profile as JSON")
	cmd.Flags().BoolVar(&yamlOutput, "yaml", false, "output profile as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	return cmd
}

func newUserUpdateProfileCmd(deps *Deps) *cobra.Command {
	var userID string
	var upd auth.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "update-profile",
		Short: "Edit profile fields; unset flags keep their stored values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				current, err := a.svc.GetProfile(ctx, id)
				if err != nil {
					return err
				}
				merged := mergeProfile(cmd, current, upd)
				profile, err := a.svc.UpdateProfile(ctx, id, merged)
				if err != nil {
					return err
				}
				return printProfileTable(cmd, profile)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&userID, "user-id", "", "user id")
	f.StringVar(&upd.FirstName, "first-name", "", "first name")
	f.StringVar(&upd.LastName, "last-name", "", "last name")
	f.StringVar(&upd.Email, "email", "", "email address")
	f.StringVar(&upd.Phone, "phone", "", "phone number")
	f.StringVar(&upd.Address, "address", "", "postal address")
	f.StringVar(&upd.Gender, "gender", "", "gender")
	f.StringVar(&upd.AvatarURL, "avatar", "", "avatar reference")
	return cmd
}

// mergeProfile starts from the stored profile and applies only the flags that
// were set, so an omitted flag never clears a field.
func mergeProfile(cmd *cobra.Command, current *auth.Profile, upd auth.ProfileUpdate) auth.ProfileUpdate {
	out := auth.ProfileUpdate{
		FirstName: current.FirstName,
		LastName:  current.LastName,
		Email:     current.Email,
		Phone:     current.Phone,
		Address:   current.Address,
		Gender:    current.Gender,
		AvatarURL: current.AvatarURL,
	}
	set := map[string]func(){
		"first-name": func() { out.FirstName = upd.FirstName },
		"last-name":  func() { out.LastName = upd.LastName },
		"email":      func() { out.Email = upd.Email },
		"phone":      func() { out.Phone = upd.Phone },
		"address":    func() { out.Address = upd.Address },
		"gender":     func() { out.Gender = upd.Gender },
		"avatar":     func() { out.AvatarURL = upd.AvatarURL },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	return out
}

// profileView is the machine-readable profile shape shared by --json and --yaml.
type profileView struct {
	UserID    string `json:"user_id" yaml:"user_id"`
	Username  string `json:"username" yaml:"username"`
	AvatarURL string `json:"avatar_url" yaml:"avatar_url"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	Email     string `json:"email" yaml:"email"`
	Phone     string `json:"phone" yaml:"phone"`
	Address   string `json:"address" yaml:"address"`
	Gender    string `json:"gender" yaml:"gender"`
}

func viewOf(p *auth.Profile) profileView {
	return profileView{
		UserID:    p.UserID.String(),
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
		Gender:    p.Gender,
	}
}

func printProfileJSON(cmd *cobra.Command, p *auth.Profile) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(viewOf(p)); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

func printProfileYAML(cmd *cobra.Command, p *auth.Profile) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(viewOf(p)); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	if err := enc.Close(); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

func printProfileTable(cmd *cobra.Command, p *auth.Profile) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"USER ID", p.UserID.String()},
		{"USERNAME", p.Username},
		{"AVATAR", p.AvatarURL},
		{"FIRST NAME", p.FirstName},
		{"LAST NAME", p.LastName},
		{"EMAIL", p.Email},
		{"PHONE", p.Phone},
		{"ADDRESS", p.Address},
		{"GENDER", p.Gender},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	return w.Flush()
}
