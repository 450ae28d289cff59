// roomctl is a command-line client for the room booking API. It keeps its
// session in the configured durable storage, so successive invocations (and
// other running contexts) share the same login state.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/AchilleasB/roombook/booking-client/internal/app"
	"github.com/AchilleasB/roombook/booking-client/internal/config"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app.App, args []string) error
}

var commands = map[string]command{
	"login":           {"log in as a user", cmdLogin},
	"logout":          {"log the user out", cmdLogout},
	"whoami":          {"show the active user and admin scopes", cmdWhoami},
	"admin-login":     {"log in as an admin", cmdAdminLogin},
	"admin-logout":    {"log the admin out", cmdAdminLogout},
	"rooms":           {"list rooms", cmdRooms},
	"book":            {"book a room", cmdBook},
	"cancel":          {"cancel a booking", cmdCancel},
	"bookings":        {"list the user's bookings", cmdBookings},
	"set-status":      {"set a room's status (admin)", cmdSetStatus},
	"usage":           {"record room usage (admin)", cmdUsage},
	"usage-records":   {"list usage records", cmdUsageRecords},
	"profit":          {"show a profit report (admin)", cmdProfit},
	"stores":          {"list or manage stores (admin)", cmdStores},
	"add-room":        {"add a room (admin)", cmdAddRoom},
	"delete-room":     {"delete a room (admin)", cmdDeleteRoom},
	"forgot-password": {"reset a forgotten password", cmdForgotPassword},
	"watch":           {"print room status changes from other contexts", cmdWatch},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var verbose bool

	flagSet := pflag.NewFlagSet("roomctl", pflag.ContinueOnError)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(flagSet)
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, config.Load(), app.Options{
		Logger: logger,
		OnRedirect: func(path string) {
			if path == domain.AdminLoginPath {
				fmt.Fprintln(os.Stderr, "admin session ended; run: roomctl admin-login")
			} else {
				fmt.Fprintln(os.Stderr, "session ended; run: roomctl login")
			}
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, args[1:])
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: roomctl [flags] <command> [command flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
