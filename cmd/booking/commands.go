package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"bookingclient/internal/api"
	"bookingclient/internal/export"
	"bookingclient/internal/models"
	"bookingclient/internal/session"
	"bookingclient/internal/storage"
)

var errNotLoggedIn = errors.New("not logged in; run `booking login` first")

var stdout io.Writer = os.Stdout

func (a *app) run(ctx context.Context, name string, args []string) error {
	route := session.RouteFacilities
	switch name {
	case "login":
		route = session.RouteLogin
	case "register":
		route = session.RouteRegister
	case "health":
		return a.health(ctx)
	case "backup":
		return a.backup(ctx)
	}

	target, err := a.guard.Decide(ctx, route)
	if err != nil {
		return err
	}
	if target != route {
		if target == session.RouteLogin {
			return errNotLoggedIn
		}
		snap := a.session.Snapshot()
		fmt.Fprintf(stdout, "already logged in as %s <%s>\n", snap.Name, snap.Email)
		return nil
	}

	switch name {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		snap := a.session.Snapshot()
		fmt.Fprintf(stdout, "%s <%s>\n", snap.Name, snap.Email)
		return nil
	case "facilities":
		return a.listFacilities(ctx, args)
	case "facility":
		return a.showFacility(ctx, args)
	case "availability":
		return a.showAvailability(ctx, args)
	case "book":
		return a.book(ctx, args)
	case "bookings":
		return a.listBookings(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "export":
		return a.export(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", name)
	}
}

func credentialFlags(fs *flag.FlagSet) (email, password *string) {
	email = fs.String("email", os.Getenv("BOOKING_EMAIL"), "account email")
	password = fs.String("password", os.Getenv("BOOKING_PASSWORD"), "account password")
	return email, password
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email, password := credentialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("email and password are required")
	}
	if err := a.session.Login(ctx, *email, *password); err != nil {
		return errors.New(api.Message(err, "Login failed"))
	}
	snap := a.session.Snapshot()
	fmt.Fprintf(stdout, "logged in as %s <%s>\n", snap.Name, snap.Email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email, password := credentialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" || *password == "" {
		return errors.New("name, email and password are required")
	}
	if err := a.session.Register(ctx, *name, *email, *password); err != nil {
		return errors.New(api.Message(err, "Registration failed"))
	}
	fmt.Fprintf(stdout, "registered and logged in as %s <%s>\n", *name, *email)
	return nil
}

func (a *app) listFacilities(ctx context.Context, args []string) error {
	search := strings.Join(args, " ")
	list, err := a.facilities.FetchAll(ctx, search)
	if err != nil {
		return errors.New(a.facilities.Snapshot().Error)
	}
	if len(list) == 0 {
		fmt.Fprintln(stdout, "no facilities found")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCAPACITY\tBOOK AHEAD\tIMAGES")
	for _, f := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%dd\t%d\n", f.ID, f.Name, f.MaxCapacity, f.MaxAdvanceBookingDays, len(f.Images))
	}
	return tw.Flush()
}

func (a *app) showFacility(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: facility <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	f, err := a.facilities.FetchDetail(ctx, id)
	if err != nil {
		return errors.New(a.facilities.Snapshot().Error)
	}
	fmt.Fprintf(stdout, "%s (#%d)\n%s\ncapacity %d per slot, bookable until %s\n",
		f.Name, f.ID, f.Description, f.MaxCapacity, f.LastBookableDate(time.Now()).Format(models.DateLayout))
	for _, img := range f.Images {
		fmt.Fprintf(stdout, "  image: %s\n", img.FilePath)
	}
	return nil
}

func (a *app) showAvailability(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: availability <facility-id> <YYYY-MM-DD>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := a.availability.Fetch(ctx, id, args[1]); err != nil {
		return errors.New(a.availability.Snapshot().Error)
	}
	day := a.availability.Snapshot().Day
	if day == nil || len(day.TimeSlots) == 0 {
		fmt.Fprintln(stdout, "no slots for this date")
		return nil
	}
	fmt.Fprintf(stdout, "%s %s\n", day.DayName, day.Date)
	if day.FullyBooked {
		fmt.Fprintln(stdout, "fully booked")
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOUR\tTIME\tBOOKED\tSTATUS")
	for _, s := range day.TimeSlots {
		status := "available"
		if !s.Available {
			status = "unavailable"
		}
		fmt.Fprintf(tw, "%d\t%s-%s\t%d/%d\t%s\n", s.Hour, s.StartTime, s.EndTime, s.CurrentBookings, s.MaxCapacity, status)
	}
	return tw.Flush()
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	notes := fs.String("notes", "", "booking notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return errors.New("usage: book [-notes N] <facility-id> <YYYY-MM-DD> <hour>")
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	hour, err := strconv.Atoi(fs.Arg(2))
	if err != nil {
		return fmt.Errorf("invalid hour %q", fs.Arg(2))
	}

	if err := a.availability.Fetch(ctx, id, fs.Arg(1)); err != nil {
		return errors.New(a.availability.Snapshot().Error)
	}
	defer a.availability.Reset()
	if !a.availability.ToggleHour(hour) {
		return fmt.Errorf("hour %d is not available on %s", hour, fs.Arg(1))
	}

	rec, err := a.workflow.BookSelected(ctx, *notes)
	if err != nil {
		if res := a.submitter.Result(); res.Reason != "" {
			err = errors.New(res.Reason)
		}
		a.submitter.Reset()
		return err
	}
	fmt.Fprintf(stdout, "booked #%d: facility %d on %s %02d:00-%02d:00\n",
		rec.ID, rec.FacilityID, rec.BookingDate, rec.StartHour, rec.EndHour)
	return nil
}

func (a *app) loadBookings(ctx context.Context, status, sort string, pages int) error {
	var err error
	switch {
	case status != "" && sort != "":
		err = a.bookings.SetFilter(ctx, models.BookingStatus(status), models.SortDirection(sort))
	case status != "":
		err = a.bookings.SetStatus(ctx, models.BookingStatus(status))
	case sort != "":
		err = a.bookings.SetSortDirection(ctx, models.SortDirection(sort))
	default:
		err = a.bookings.Fetch(ctx, true)
	}
	for i := 1; err == nil && i < pages && a.bookings.Snapshot().HasMore; i++ {
		err = a.bookings.Fetch(ctx, false)
	}
	if err != nil {
		if msg := a.bookings.Snapshot().Error; msg != "" {
			return errors.New(msg)
		}
		return err
	}
	return nil
}

func (a *app) listBookings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bookings", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status (booked|cancelled)")
	sort := fs.String("sort", "", "sort by creation time (asc|desc)")
	pages := fs.Int("pages", 1, "number of pages to load")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.loadBookings(ctx, *status, *sort, *pages); err != nil {
		return err
	}

	snap := a.bookings.Snapshot()
	if len(snap.Bookings) == 0 {
		fmt.Fprintln(stdout, "no bookings")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFACILITY\tDATE\tTIME\tSTATUS")
	for _, b := range snap.Bookings {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%02d:00-%02d:00\t%s\n", b.ID, b.FacilityID, b.BookingDate, b.StartHour, b.EndHour, b.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if snap.HasMore {
		fmt.Fprintf(stdout, "more bookings available; use -pages %d\n", snap.Page+1)
	}
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cancel <booking-id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := a.bookings.Cancel(ctx, id); err != nil {
		return errors.New(a.bookings.Snapshot().Error)
	}
	fmt.Fprintf(stdout, "cancelled booking #%d\n", id)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	pages := fs.Int("pages", 10, "number of pages to load")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: export [-pages N] <file.xlsx>")
	}
	if err := a.loadBookings(ctx, "", "", *pages); err != nil {
		return err
	}

	names := map[int64]string{}
	if list, err := a.facilities.FetchAll(ctx, ""); err == nil {
		for _, f := range list {
			names[f.ID] = f.Name
		}
	} else {
		a.logger.Warn().Err(err).Msg("exporting without facility names")
	}

	snap := a.bookings.Snapshot()
	if err := export.WriteBookingsFile(fs.Arg(0), snap.Bookings, names); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %d bookings to %s\n", len(snap.Bookings), fs.Arg(0))
	return nil
}

func (a *app) backup(ctx context.Context) error {
	db, ok := a.store.(*storage.SQLiteStore)
	if !ok {
		return fmt.Errorf("backup needs storage.driver sqlite, have %s", a.cfg.Storage.Driver)
	}
	dest, err := db.Backup(ctx, a.cfg.Storage.BackupDir)
	if err != nil {
		return err
	}
	deleted, err := storage.CleanupBackups(a.cfg.Storage.BackupDir, a.cfg.BackupRetention())
	if err != nil {
		a.logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		a.logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
	fmt.Fprintf(stdout, "backup written to %s\n", dest)
	return nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func (a *app) health(ctx context.Context) error {
	ctxPing, cancel := context.WithTimeout(ctx, a.cfg.Timeout())
	defer cancel()

	if err := a.client.HealthCheck(ctxPing); err != nil {
		return fmt.Errorf("api not ready: %w", err)
	}
	if p, ok := a.store.(pinger); ok {
		if err := p.PingContext(ctxPing); err != nil {
			return fmt.Errorf("storage not ready: %w", err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Ping(ctxPing).Err(); err != nil {
			return fmt.Errorf("redis not ready: %w", err)
		}
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
