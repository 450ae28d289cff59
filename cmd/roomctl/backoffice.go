package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/AchilleasB/roombook/booking-client/internal/app"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

func cmdStores(ctx context.Context, a *app.App, args []string) error {
	var add, rename string
	var remove, storeID int64
	var address string
	if err := parse("stores", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&add, "add", "", "create a store with this name")
		fs.StringVar(&address, "address", "", "address for --add or --rename")
		fs.Int64Var(&storeID, "id", 0, "store id for --rename")
		fs.StringVar(&rename, "rename", "", "new name for store --id")
		fs.Int64Var(&remove, "delete", 0, "delete the store with this id")
	}); err != nil {
		return err
	}
	a.Router.Navigate(adminPath)

	switch {
	case add != "":
		if _, err := a.Stores.AddStore(ctx, domain.Store{StoreName: add, Address: address}); err != nil {
			return err
		}
		fmt.Printf("store %q added\n", add)
		return nil
	case rename != "":
		if err := a.Stores.UpdateStore(ctx, domain.Store{StoreID: storeID, StoreName: rename, Address: address}); err != nil {
			return err
		}
		fmt.Printf("store %d renamed to %q\n", storeID, rename)
		return nil
	case remove != 0:
		if err := a.Stores.DeleteStore(ctx, remove); err != nil {
			return err
		}
		fmt.Printf("store %d deleted\n", remove)
		return nil
	}

	stores, err := a.Stores.ListStores(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS\tPHONE")
	for _, st := range stores {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.StoreID, st.StoreName, st.Address, st.Phone)
	}
	return w.Flush()
}

func cmdAddRoom(ctx context.Context, a *app.App, args []string) error {
	var room domain.Room
	if err := parse("add-room", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&room.RoomName, "name", "", "room name")
		fs.Int64Var(&room.StoreID, "store", 0, "store id")
		fs.Float64Var(&room.Price, "price", 0, "hourly price")
		fs.StringVar(&room.Status, "status", "", "initial status (default free)")
	}); err != nil {
		return err
	}
	a.Router.Navigate(adminPath)
	out, err := a.Rooms.AddRoom(ctx, room)
	if err != nil {
		return err
	}
	fmt.Printf("room %d %q added to store %d\n", out.RoomID, out.RoomName, out.StoreID)
	return nil
}

func cmdDeleteRoom(ctx context.Context, a *app.App, args []string) error {
	var roomID int64
	if err := parse("delete-room", args, func(fs *pflag.FlagSet) {
		fs.Int64Var(&roomID, "room", 0, "room id")
	}); err != nil {
		return err
	}
	a.Router.Navigate(adminPath)
	if err := a.Rooms.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	fmt.Printf("room %d deleted\n", roomID)
	return nil
}

func cmdUsageRecords(ctx context.Context, a *app.App, args []string) error {
	var q domain.UsageQuery
	if err := parse("usage-records", args, func(fs *pflag.FlagSet) {
		fs.BoolVar(&q.Own, "self", false, "only the logged-in user's records")
		fs.Int64Var(&q.StoreID, "store", 0, "only records of this store (admin)")
		fs.IntVar(&q.Year, "year", 0, "year filter for --self")
		fs.IntVar(&q.Month, "month", 0, "month filter for --self")
	}); err != nil {
		return err
	}
	if !q.Own {
		a.Router.Navigate(adminPath)
	}
	records, err := a.Rooms.UsageRecords(ctx, q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROOM\tUSER\tSTORE\tHOURS\tTOTAL\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.1f\t%.2f\t%s\n", r.RecordID, r.RoomID, r.UserID, r.StoreID, r.Hours, r.TotalPrice, r.Status)
	}
	return w.Flush()
}

func cmdProfit(ctx context.Context, a *app.App, args []string) error {
	var period string
	var q domain.ProfitQuery
	if err := parse("profit", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&period, "period", "daily", "daily, monthly or yearly")
		fs.Int64Var(&q.StoreID, "store", 0, "only this store")
		fs.StringVar(&q.StartDate, "from", "", "first day (daily)")
		fs.StringVar(&q.EndDate, "to", "", "last day (daily)")
		fs.IntVar(&q.Year, "year", 0, "year (monthly)")
	}); err != nil {
		return err
	}
	p, err := domain.ParseProfitPeriod(period)
	if err != nil {
		return err
	}
	q.Period = p

	a.Router.Navigate(adminPath)
	entries, err := a.Rooms.Profit(ctx, q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tRECORDS\tPROFIT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%.2f\n", e.Period, e.Count, e.Profit)
	}
	return w.Flush()
}

// cmdForgotPassword shows the masked phone number when only --username is
// given, and resets the password once --phone and a new password are set.
func cmdForgotPassword(ctx context.Context, a *app.App, args []string) error {
	var username, phone, pass string
	if err := parse("forgot-password", args, func(fs *pflag.FlagSet) {
		fs.StringVarP(&username, "username", "u", "", "user name")
		fs.StringVar(&phone, "phone", "", "full phone number on the account")
		fs.StringVarP(&pass, "password", "p", "", "new password (default $ROOMCTL_PASSWORD)")
	}); err != nil {
		return err
	}

	if phone == "" {
		account, err := a.Recovery.LookupAccount(ctx, username)
		if err != nil {
			return err
		}
		fmt.Printf("account %s, phone %s; rerun with --phone to reset\n", account.Username, account.Phone)
		return nil
	}
	if err := a.Recovery.ResetPassword(ctx, username, phone, password(pass)); err != nil {
		return err
	}
	fmt.Println("password reset; log in with the new password")
	return nil
}
