// ABOUTME: Subcommands over the JSON settings files
// ABOUTME: files paths, files servers and files tokens

package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/coven-settings/internal/model"
	"github.com/2389/coven-settings/internal/settings"
)

func (a *app) cmdFiles(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: files <paths|servers|tokens> [args]")
	}
	switch args[0] {
	case "paths":
		fmt.Fprintf(a.out, "  Data dir: %s\n", a.cfg.DataDir)
		fmt.Fprintf(a.out, "  Servers:  %s\n", a.cfg.ServersPath())
		fmt.Fprintf(a.out, "  Tokens:   %s\n", a.cfg.TokensPath())
		fmt.Fprintf(a.out, "  Database: %s\n", a.cfg.DatabasePath())
		return nil
	case "servers":
		return a.filesServers(args[1:])
	case "tokens":
		return a.filesTokens(args[1:])
	default:
		return fmt.Errorf("unknown files subcommand: %s (use paths, servers, tokens)", args[0])
	}
}

func (a *app) filesServers(args []string) error {
	subcmd := "list"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	s, err := settings.OpenServerStore(a.cfg.ServersPath(), a.logger)
	if err != nil {
		return err
	}
	defer s.Close()
	servers := s.Servers()

	switch subcmd {
	case "list", "ls":
		current, _ := servers.Current()
		fmt.Fprintln(a.out)
		color.New(color.FgCyan).Fprintf(a.out, "  Servers (%s)\n", s.State())
		if servers.Len() == 0 {
			fmt.Fprintln(a.out, "  (no servers)")
			fmt.Fprintln(a.out)
			return nil
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  \tADDRESS\tNAME\tID")
		for _, srv := range servers.Values() {
			marker := ""
			if srv.Equal(current) {
				marker = color.GreenString("*")
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", marker, srv.Address, srv.Name, srv.ID)
		}
		w.Flush()
		fmt.Fprintln(a.out)
		return nil
	case "add":
		flags, _ := parseFlags(args)
		srv := model.Server{Name: flags["name"], Address: flags["address"], ID: flags["id"]}
		if srv.Name == "" || srv.Address == "" {
			return fmt.Errorf("usage: files servers add --name <name> --address <address> [--id <id>]")
		}
		servers.Update(srv)
	case "remove", "rm", "delete":
		if len(args) < 1 {
			return fmt.Errorf("usage: files servers remove <address>")
		}
		if !servers.Remove(model.Server{Address: args[0]}) {
			return fmt.Errorf("server %s not found", args[0])
		}
	case "use":
		if len(args) < 1 {
			return fmt.Errorf("usage: files servers use <address>")
		}
		srv := model.Server{Address: args[0]}
		if !servers.Has(srv) {
			return fmt.Errorf("server %s not found", args[0])
		}
		if err := servers.SetCurrent(srv); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown files servers subcommand: %s (use list, add, remove, use)", subcmd)
	}

	if err := s.Save(); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(a.out, "✓ Saved", a.cfg.ServersPath())
	return nil
}

// tokenServer resolves an address to the server record in the servers file,
// falling back to an address-only record.
func (a *app) tokenServer(address string) model.Server {
	srv := model.Server{Address: address}
	s, err := settings.OpenServerStore(a.cfg.ServersPath(), a.logger)
	if err != nil {
		return srv
	}
	defer s.Close()
	if known, ok := s.Servers().Set().Lookup(srv); ok {
		return known
	}
	return srv
}

func (a *app) filesTokens(args []string) error {
	subcmd := "list"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	t, err := settings.OpenAccessTokenStore(a.cfg.TokensPath(), a.logger)
	if err != nil {
		return err
	}

	switch subcmd {
	case "list", "ls":
		preferred, _ := t.PreferredServer()
		fmt.Fprintln(a.out)
		color.New(color.FgCyan).Fprintf(a.out, "  Access tokens (%s)\n", t.State())
		servers := t.Servers()
		if len(servers) == 0 {
			fmt.Fprintln(a.out, "  (no tokens)")
			fmt.Fprintln(a.out)
			return nil
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  \tSERVER\tTOKEN\tPREFERRED")
		for _, srv := range servers {
			marker := ""
			if srv.Equal(preferred) {
				marker = color.GreenString("*")
			}
			best, _ := t.PreferredToken(srv)
			for _, tok := range t.Tokens(srv) {
				pref := ""
				if tok == best {
					pref = color.GreenString("●")
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", marker, srv.Address, mask(tok), pref)
			}
		}
		w.Flush()
		fmt.Fprintln(a.out)
		return nil
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: files tokens add <address> <token>")
		}
		t.AddToken(a.tokenServer(args[0]), args[1])
	case "remove", "rm", "delete":
		if len(args) < 1 {
			return fmt.Errorf("usage: files tokens remove <address> [token]")
		}
		srv := model.Server{Address: args[0]}
		if len(args) == 1 {
			if !t.RemoveServer(srv) {
				return fmt.Errorf("no tokens for %s", args[0])
			}
		} else if !t.RemoveToken(srv, args[1]) {
			return fmt.Errorf("token not found for %s", args[0])
		}
	case "prefer":
		if len(args) < 1 {
			return fmt.Errorf("usage: files tokens prefer <address> [token]")
		}
		srv := model.Server{Address: args[0]}
		if len(t.Tokens(srv)) == 0 {
			return fmt.Errorf("no tokens for %s", args[0])
		}
		if err := t.SetPreferredServer(srv); err != nil {
			return err
		}
		if len(args) > 1 {
			if !slices.Contains(t.Tokens(srv), args[1]) {
				return fmt.Errorf("token not found for %s", args[0])
			}
			if err := t.SetPreferredToken(srv, args[1]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown files tokens subcommand: %s (use list, add, remove, prefer)", subcmd)
	}

	if err := t.Save(); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(a.out, "✓ Saved", a.cfg.TokensPath())
	return nil
}
