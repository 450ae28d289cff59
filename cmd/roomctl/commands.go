package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/AchilleasB/roombook/booking-client/internal/app"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/services"
)

const adminPath = "/admin/rooms"

func parse(name string, args []string, define func(*pflag.FlagSet)) error {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%s: unexpected argument %q", name, fs.Arg(0))
	}
	return nil
}

// password falls back to ROOMCTL_PASSWORD so it stays out of shell history.
func password(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("ROOMCTL_PASSWORD")
}

func cmdLogin(ctx context.Context, a *app.App, args []string) error {
	var username, pass string
	if err := parse("login", args, func(fs *pflag.FlagSet) {
		fs.StringVarP(&username, "username", "u", "", "user name")
		fs.StringVarP(&pass, "password", "p", "", "password (default $ROOMCTL_PASSWORD)")
	}); err != nil {
		return err
	}
	if err := a.Auth.UserLogin(ctx, username, password(pass)); err != nil {
		return err
	}
	profile, err := a.Auth.FetchUserInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (id %d)\n", profile.Username, profile.UserID)
	return nil
}

func cmdLogout(ctx context.Context, a *app.App, args []string) error {
	if err := parse("logout", args, nil); err != nil {
		return err
	}
	if err := a.Auth.UserLogout(ctx); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app.App, args []string) error {
	if err := parse("whoami", args, nil); err != nil {
		return err
	}
	for _, scope := range []domain.Scope{domain.ScopeUser, domain.ScopeAdmin} {
		c := a.Session.Credential(scope)
		if !c.Active() {
			fmt.Printf("%-5s  -\n", scope)
			continue
		}
		fmt.Printf("%-5s  %s", scope, c.Name)
		if c.StoreID != "" {
			fmt.Printf(" (store %s)", c.StoreID)
		}
		fmt.Println()
	}
	return nil
}

func cmdAdminLogin(ctx context.Context, a *app.App, args []string) error {
	var username, pass string
	if err := parse("admin-login", args, func(fs *pflag.FlagSet) {
		fs.StringVarP(&username, "username", "u", "", "admin name")
		fs.StringVarP(&pass, "password", "p", "", "password (default $ROOMCTL_PASSWORD)")
	}); err != nil {
		return err
	}
	a.Router.Navigate(adminPath)
	profile, err := a.Auth.AdminLogin(ctx, username, password(pass))
	if err != nil {
		return err
	}
	fmt.Printf("logged in as admin %d (%s), store %s\n", profile.AdminID, profile.Role, profile.StoreID)
	return nil
}

func cmdAdminLogout(ctx context.Context, a *app.App, args []string) error {
	if err := parse("admin-logout", args, nil); err != nil {
		return err
	}
	a.Router.Navigate(adminPath)
	if err := a.Auth.AdminLogout(ctx); err != nil {
		return err
	}
	fmt.Println("admin logged out")
	return nil
}

func cmdRooms(ctx context.Context, a *app.App, args []string) error {
	var available bool
	var store string
	var page domain.Page
	if err := parse("rooms", args, func(fs *pflag.FlagSet) {
		fs.BoolVar(&available, "available", false, "only free rooms")
		fs.StringVar(&store, "store", "", "only rooms of this store")
		fs.IntVar(&page.Number, "page", 1, "page number")
		fs.IntVar(&page.Size, "size", 8, "page size")
	}); err != nil {
		return err
	}

	var rooms []domain.Room
	var err error
	switch {
	case store != "":
		rooms, err = a.Rooms.RoomsByStore(ctx, store, page)
	case available:
		rooms, err = a.Rooms.FetchRooms(ctx, services.FilterAvailable, page)
	default:
		rooms, err = a.Rooms.FetchRooms(ctx, services.FilterAll, page)
	}
	if err != nil {
		return err
	}
	printRooms(rooms)
	return nil
}

func printRooms(rooms []domain.Room) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTORE\tPRICE\tSTATUS")
	for _, r := range rooms {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%s\n", r.RoomID, r.RoomName, r.StoreID, r.Price, r.Status)
	}
	w.Flush()
}

// userID returns the logged-in user's id, fetching the profile if needed.
func userID(ctx context.Context, a *app.App) (int64, error) {
	if id := a.Session.Credential(domain.ScopeUser).ID; id > 0 {
		return id, nil
	}
	profile, err := a.Auth.FetchUserInfo(ctx)
	if err != nil {
		return 0, err
	}
	return profile.UserID, nil
}

func cmdBook(ctx context.Context, a *app.App, args []string) error {
	var req domain.BookingRequest
	if err := parse("book", args, func(fs *pflag.FlagSet) {
		fs.Int64Var(&req.RoomID, "room", 0, "room id")
		fs.Float64Var(&req.Hours, "hours", 1, "hours to book")
		fs.Float64Var(&req.TotalPrice, "price", 0, "total price")
		fs.StringVar(&req.RoomName, "name", "", "room name shown to other contexts")
	}); err != nil {
		return err
	}

	id, err := userID(ctx, a)
	if err != nil {
		return err
	}
	req.UserID = id

	booking, err := a.Bookings.CreateBooking(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("booking %d: room %d, %.1fh, %.2f, %s\n", booking.ID, booking.RoomID, booking.Hours, booking.TotalPrice, booking.Status)
	return nil
}

func cmdCancel(ctx context.Context, a *app.App, args []string) error {
	var id int64
	if err := parse("cancel", args, func(fs *pflag.FlagSet) {
		fs.Int64Var(&id, "id", 0, "booking id")
	}); err != nil {
		return err
	}
	booking, err := a.Bookings.CancelBooking(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("booking %d cancelled, room %d is free\n", booking.ID, booking.RoomID)
	return nil
}

func cmdBookings(ctx context.Context, a *app.App, args []string) error {
	if err := parse("bookings", args, nil); err != nil {
		return err
	}
	id, err := userID(ctx, a)
	if err != nil {
		return err
	}
	bookings, err := a.Bookings.ListUserBookings(ctx, id)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROOM\tHOURS\tTOTAL\tSTATUS")
	for _, b := range bookings {
		fmt.Fprintf(w, "%d\t%d\t%.1f\t%.2f\t%s\n", b.ID, b.RoomID, b.Hours, b.TotalPrice, b.Status)
	}
	return w.Flush()
}

func cmdSetStatus(ctx context.Context, a *app.App, args []string) error {
	var roomID int64
	var label string
	if err := parse("set-status", args, func(fs *pflag.FlagSet) {
		fs.Int64Var(&roomID, "room", 0, "room id")
		fs.StringVar(&label, "status", "", "free or occupied, in any known label form")
	}); err != nil {
		return err
	}
	status, ok := a.Session.Labels().Parse(label)
	if !ok {
		return fmt.Errorf("unknown room status %q", label)
	}
	a.Router.Navigate(adminPath)
	if err := a.Rooms.AdminSetRoomStatus(ctx, roomID, status); err != nil {
		return err
	}
	fmt.Printf("room %d is now %s\n", roomID, a.Session.Labels().Normalized(status))
	return nil
}

func cmdUsage(ctx context.Context, a *app.App, args []string) error {
	var rec domain.UsageRecord
	if err := parse("usage", args, func(fs *pflag.FlagSet) {
		fs.Int64Var(&rec.RoomID, "room", 0, "room id")
		fs.Int64Var(&rec.UserID, "user", 0, "user id (default: logged-in user)")
		fs.Float64Var(&rec.Hours, "hours", 1, "hours used")
		fs.Float64Var(&rec.TotalPrice, "price", 0, "total price")
	}); err != nil {
		return err
	}
	a.Router.Navigate(adminPath)
	out, err := a.Rooms.RecordUsage(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Printf("usage record %d: room %d, user %d, %s\n", out.RecordID, out.RoomID, out.UserID, out.Status)
	return nil
}

func cmdWatch(ctx context.Context, a *app.App, args []string) error {
	var fetch bool
	if err := parse("watch", args, func(fs *pflag.FlagSet) {
		fs.BoolVar(&fetch, "fetch", true, "load the room list before watching")
	}); err != nil {
		return err
	}
	if fetch {
		printRooms(a.Rooms.FetchRoomsSilently(ctx, services.FilterAll, domain.Page{}))
	}

	a.Bus.Subscribe("roomctl-watch", func(evt domain.RoomStatusChanged) {
		ts := time.UnixMilli(evt.Timestamp).Format(time.TimeOnly)
		fmt.Printf("%s  room %d %s  %s\n", ts, evt.RoomID, a.Session.Labels().Normalized(evt.Status), evt.RoomName)
	})
	defer a.Bus.Unsubscribe("roomctl-watch")

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
