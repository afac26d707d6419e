// ABOUTME: Subcommands over the relational settings store
// ABOUTME: servers, tokens, users, active and schema

package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-settings/internal/model"
	"github.com/2389/coven-settings/internal/store"
)

func (a *app) cmdServers(ctx context.Context, args []string) error {
	subcmd := "list"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	switch subcmd {
	case "list", "ls":
		return a.serversList(ctx, s)
	case "add":
		flags, _ := parseFlags(args)
		server := model.Server{Name: flags["name"], Address: flags["address"], ID: flags["id"]}
		if server.Name == "" || server.Address == "" {
			return fmt.Errorf("usage: servers add --name <name> --address <address> [--id <id>]")
		}
		if err := s.AddServer(ctx, server); err != nil {
			if errors.Is(err, store.ErrDuplicateServer) {
				return fmt.Errorf("server %s already exists (use servers rename)", server.Address)
			}
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Added server: %s\n", server.Address)
		return nil
	case "rename", "update":
		flags, _ := parseFlags(args)
		if flags["address"] == "" || flags["name"] == "" {
			return fmt.Errorf("usage: servers rename --address <address> --name <name> [--id <id>]")
		}
		existing, err := s.GetServer(ctx, flags["address"])
		if err != nil {
			return err
		}
		server := existing.Server
		server.Name = flags["name"]
		if id, ok := flags["id"]; ok {
			server.ID = id
		}
		if err := s.UpdateServer(ctx, server); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Updated server: %s\n", server.Address)
		return nil
	case "connect":
		if len(args) < 1 {
			return fmt.Errorf("usage: servers connect <address>")
		}
		if err := s.MarkServerConnected(ctx, args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Marked connected: %s\n", args[0])
		return nil
	case "remove", "rm", "delete":
		if len(args) < 1 {
			return fmt.Errorf("usage: servers remove <address>")
		}
		if err := s.RemoveServer(ctx, args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Removed server: %s\n", args[0])
		return nil
	default:
		return fmt.Errorf("unknown servers subcommand: %s (use list, add, rename, connect, remove)", subcmd)
	}
}

func (a *app) serversList(ctx context.Context, s store.Store) error {
	servers, err := s.GetServers(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(a.out)
	cyan.Fprintln(a.out, "  Servers")
	cyan.Fprintln(a.out, "  -------")

	if len(servers) == 0 {
		fmt.Fprintln(a.out, "  (no servers)")
		fmt.Fprintln(a.out)
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ADDRESS\tNAME\tID\tCONNECTED\tCREATED")
	fmt.Fprintln(w, "  -------\t----\t--\t---------\t-------")
	for _, r := range servers {
		connected := "never"
		if r.ConnectedAt != nil {
			connected = r.ConnectedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(r.Address, 40),
			truncate(r.Name, 24),
			truncate(r.ID, 20),
			connected,
			r.CreatedAt.Local().Format(time.DateTime),
		)
	}
	w.Flush()
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) cmdTokens(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tokens <address> | tokens add ... | tokens remove <address> <user>")
	}

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	switch args[0] {
	case "add":
		flags, _ := parseFlags(args[1:])
		token := model.Token{
			Address:  flags["address"],
			UserID:   flags["user"],
			DeviceID: flags["device"],
			Value:    flags["token"],
		}
		if token.Address == "" || token.UserID == "" || token.Value == "" {
			return fmt.Errorf("usage: tokens add --address <address> --user <user> --token <token> [--device <device>]")
		}
		if token.DeviceID == "" {
			token.DeviceID = model.NewDeviceID()
		}
		if err := s.AddToken(ctx, token); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Stored token for %s on %s (device %s)\n", token.UserID, token.Address, token.DeviceID)
		return nil
	case "remove", "rm", "delete":
		if len(args) < 3 {
			return fmt.Errorf("usage: tokens remove <address> <user>")
		}
		if err := s.RemoveToken(ctx, args[1], args[2]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Removed token for %s on %s\n", args[2], args[1])
		return nil
	case "list", "ls":
		if len(args) < 2 {
			return fmt.Errorf("usage: tokens list <address>")
		}
		return a.tokensList(ctx, s, args[1])
	default:
		return a.tokensList(ctx, s, args[0])
	}
}

func (a *app) tokensList(ctx context.Context, s store.Store, address string) error {
	tokens, err := s.GetTokens(ctx, address)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(a.out)
	cyan.Fprintf(a.out, "  Tokens for %s\n", address)
	cyan.Fprintln(a.out, "  ----------")

	if len(tokens) == 0 {
		fmt.Fprintln(a.out, "  (no tokens)")
		fmt.Fprintln(a.out)
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  USER\tDEVICE\tTOKEN\tACTIVE")
	fmt.Fprintln(w, "  ----\t------\t-----\t------")
	for _, t := range tokens {
		active := ""
		if t.Active {
			active = color.GreenString("●")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", t.UserID, truncate(t.DeviceID, 36), mask(t.Value), active)
	}
	w.Flush()
	fmt.Fprintln(a.out)
	return nil
}

// mask hides all but the last four characters of a secret.
func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func (a *app) cmdUsers(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: users <address> | users add ... | users remove <address> <user>")
	}

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	switch args[0] {
	case "add":
		flags, _ := parseFlags(args[1:])
		user := model.User{Address: flags["address"], UserID: flags["user"], Name: flags["name"]}
		if user.Address == "" || user.UserID == "" {
			return fmt.Errorf("usage: users add --address <address> --user <user> --name <name>")
		}
		if err := s.AddUser(ctx, user); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Stored user %s on %s\n", user.UserID, user.Address)
		return nil
	case "remove", "rm", "delete":
		if len(args) < 3 {
			return fmt.Errorf("usage: users remove <address> <user>")
		}
		if err := s.RemoveUser(ctx, args[1], args[2]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Removed user %s on %s\n", args[2], args[1])
		return nil
	default:
		address := args[0]
		if address == "list" || address == "ls" {
			if len(args) < 2 {
				return fmt.Errorf("usage: users list <address>")
			}
			address = args[1]
		}
		users, err := s.GetUsers(ctx, address)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out)
		color.New(color.FgCyan).Fprintf(a.out, "  Users on %s\n", address)
		if len(users) == 0 {
			fmt.Fprintln(a.out, "  (no users)")
			fmt.Fprintln(a.out)
			return nil
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  USER\tNAME")
		for _, u := range users {
			fmt.Fprintf(w, "  %s\t%s\n", u.UserID, u.Name)
		}
		w.Flush()
		fmt.Fprintln(a.out)
		return nil
	}
}

func (a *app) cmdActive(ctx context.Context, args []string) error {
	subcmd := "show"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	switch subcmd {
	case "show":
		active, err := s.GetActiveToken(ctx)
		if errors.Is(err, store.ErrNoActiveToken) {
			fmt.Fprintln(a.out, "  (no active token)")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "  Server: %s (%s)\n", active.Server.Name, active.Server.Address)
		fmt.Fprintf(a.out, "  User:   %s\n", active.UserID)
		fmt.Fprintf(a.out, "  Device: %s\n", active.DeviceID)
		fmt.Fprintf(a.out, "  Token:  %s\n", mask(active.Value))
		return nil
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: active set <address> <user>")
		}
		if err := s.SetActiveToken(ctx, args[0], args[1]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Active token: %s on %s\n", args[1], args[0])
		return nil
	case "unset", "clear":
		if err := s.UnsetActiveToken(ctx); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(a.out, "✓ Cleared active token")
		return nil
	default:
		return fmt.Errorf("unknown active subcommand: %s (use show, set, unset)", subcmd)
	}
}

func (a *app) cmdSchema(ctx context.Context) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "  Database: %s\n", a.cfg.DatabasePath())
	fmt.Fprintf(a.out, "  Driver:   %s\n", a.cfg.Database.Driver)
	fmt.Fprintf(a.out, "  Schema:   %s\n", v)
	return nil
}
