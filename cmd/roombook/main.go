package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EpicMandM/room-booking/internal/app"
	"github.com/EpicMandM/room-booking/internal/config"
	"github.com/EpicMandM/room-booking/internal/handler"
	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/EpicMandM/room-booking/internal/models"
	"github.com/EpicMandM/room-booking/internal/service"
	"github.com/EpicMandM/room-booking/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"
)

type App struct {
	ctx        context.Context
	stdout     io.Writer
	stderr     io.Writer
	logger     *logger.Logger
	featureCfg *config.FeatureConfig
	session    *app.App

	configPath string
	envPath    string
	logOutput  string
	logFile    *os.File
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &App{
		ctx:    ctx,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	err := a.run(os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *App) run(args []string) error {
	flagSet := pflag.NewFlagSet("roombook", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&a.configPath, "config", getEnvOrDefault("CONFIG_PATH", "./data/roombook.toml"), "path to the TOML feature config")
	flagSet.StringVar(&a.envPath, "env-file", getEnvOrDefault("ENV_FILE", ".env"), "path to an optional .env file")
	flagSet.StringVar(&a.logOutput, "log-output", "", "write JSON logs to this file instead of stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			a.printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		a.printHelp(flagSet)
		return nil
	}

	command, rest := flagSet.Arg(0), flagSet.Args()[1:]
	var run func([]string) error
	switch command {
	case "list":
		run = a.list
	case "book":
		run = a.book
	case "cancel":
		run = a.cancel
	case "watch":
		run = a.watch
	case "serve":
		run = a.serve
	default:
		return fmt.Errorf("unknown command %q (see roombook --help)", command)
	}

	defer func() {
		if a.logFile != nil {
			_ = a.logFile.Close()
		}
	}()
	if err := a.initialize(command); err != nil {
		return err
	}
	defer func() {
		if err := a.session.Close(); err != nil {
			a.logger.Error("Failed to close session", logger.Error(err))
		}
	}()
	return run(rest)
}

func (a *App) initialize(command string) error {
	infraCfg, err := config.LoadWithFile(a.envPath)
	if err != nil {
		return fmt.Errorf("failed to load infrastructure config from %s: %w", a.envPath, err)
	}

	var logOut io.Writer = a.stderr
	switch {
	case a.logOutput != "":
		f, err := os.OpenFile(a.logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log output: %w", err)
		}
		a.logFile = f
		logOut = f
	case command == "watch":
		// The terminal belongs to the view.
		logOut = io.Discard
	}
	a.logger = logger.NewWithLevel(logOut, infraCfg.LogLevel)

	featureCfg, err := config.LoadFeatureConfig(a.configPath)
	if err != nil {
		a.logger.Error("Failed to load feature config", logger.Error(err), logger.F("path", a.configPath))
		return err
	}
	a.featureCfg = featureCfg

	session, err := app.New(infraCfg, featureCfg, a.logger, nil)
	if err != nil {
		a.logger.Error("Failed to initialize session", logger.Error(err))
		return err
	}
	a.session = session
	return nil
}

func (a *App) list(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("list: unexpected argument %q", args[0])
	}
	if err := a.session.LoadOnce(a.ctx); err != nil {
		return errors.New(service.UserMessage(err, service.FallbackLoadMessage))
	}
	a.printBookings(a.session.Reconciler().Bookings())
	return nil
}

func (a *App) book(args []string) error {
	flagSet := pflag.NewFlagSet("book", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	fields := []struct {
		name, flag, usage string
		value             *string
	}{
		{models.FieldRoomName, "room", "room name", new(string)},
		{models.FieldUserName, "user", "who is booking", new(string)},
		{models.FieldPurpose, "purpose", "what the room is for", new(string)},
		{models.FieldBookingDate, "date", "booking date (YYYY-MM-DD)", new(string)},
		{models.FieldStartTime, "start", "start time (HH:MM)", new(string)},
		{models.FieldEndTime, "end", "end time (HH:MM)", new(string)},
	}
	for _, f := range fields {
		flagSet.StringVar(f.value, f.flag, "", f.usage)
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("book: unexpected argument %q", flagSet.Arg(0))
	}

	rec := a.session.Reconciler()
	for _, f := range fields {
		if !flagSet.Changed(f.flag) {
			continue
		}
		if err := rec.SetDraftField(f.name, *f.value); err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
	}

	if err := rec.Submit(a.ctx); err != nil {
		return errors.New(service.UserMessage(err, service.FallbackSubmitMessage))
	}
	fmt.Fprintln(a.stdout, "Booking submitted")
	a.printBookings(rec.Bookings())
	return nil
}

func (a *App) cancel(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: roombook cancel <id>")
	}
	id, err := models.ParseBookingID(args[0])
	if err != nil {
		return err
	}
	rec := a.session.Reconciler()
	// The list supplies the form the service issued the id in.
	if err := rec.Load(a.ctx); err != nil {
		a.logger.Warn("Cancelling without the current list", logger.Action("cancel"), logger.Error(err))
	}
	if err := rec.Cancel(a.ctx, id); err != nil {
		return errors.New(service.UserMessage(err, service.FallbackCancelMessage))
	}
	fmt.Fprintf(a.stdout, "Cancellation of booking %s requested\n", id)
	return nil
}

func (a *App) watch(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("watch: unexpected argument %q", args[0])
	}
	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	rec := a.session.Reconciler()
	changes, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	sessionDone := make(chan error, 1)
	go func() { sessionDone <- a.session.Run(ctx) }()

	program := tea.NewProgram(tui.NewModel(ctx, rec, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	cancel()
	if sessionErr := <-sessionDone; sessionErr != nil {
		a.logger.Error("Session ended with error", logger.Error(sessionErr))
	}
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *App) serve(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("serve: unexpected argument %q", args[0])
	}
	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	sessionDone := make(chan error, 1)
	go func() { sessionDone <- a.session.Run(ctx) }()

	srv := &http.Server{
		Addr:              a.featureCfg.Serve.Listen,
		Handler:           handler.NewAPIHandler(a.session.Reconciler(), a.logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP view listening", logger.Action("serve"), logger.Status("listening"), logger.URL(srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case serveErr = <-errChan:
		a.logger.Error("HTTP view failed", logger.Error(serveErr))
	case <-ctx.Done():
		a.logger.Info("Shutting down HTTP view", logger.Action("serve"), logger.Status("stopping"))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("could not gracefully shut down the HTTP view: %w", err)
		}
	}

	cancel()
	if err := <-sessionDone; err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (a *App) printBookings(bookings []models.Booking) {
	if len(bookings) == 0 {
		fmt.Fprintln(a.stdout, "No bookings")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "ROOM", "BOOKED BY", "DATE", "TIME", "PURPOSE")
	for _, b := range bookings {
		t.Row(b.ID.String(), b.RoomName, b.UserName, b.BookingDate, b.StartTime+"-"+b.EndTime, b.Purpose)
	}
	fmt.Fprintln(a.stdout, t.String())
}

func (a *App) printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(a.stderr, `roombook is a client for the room booking service.

Usage:
  roombook [flags] <command> [args]

Commands:
  list                      print current bookings
  book [booking flags]      submit a booking (--room --user --purpose --date --start --end)
  cancel <id>               cancel a booking
  watch                     live view of bookings
  serve                     live session with a local HTTP view

Environment:
  BOOKING_API_URL           booking service base URL (required)
  BOOKING_PUSH_URL          push channel URL (default: derived from BOOKING_API_URL)
  LOG_LEVEL                 debug, info, warn or error

Flags:
`)
	flagSet.PrintDefaults()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
