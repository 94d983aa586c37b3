// Command authctl drives a user-management backend from the terminal. The
// session is persisted by the configured token backend, so "login" in one
// run authenticates "whoami" in the next.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	client "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/internal/config"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const usage = `usage: authctl [--config path] <command> [flags]

commands:
  login           -username U [-password P]   (password also read from AUTHCTL_PASSWORD)
  logout
  whoami
  refresh
  register        -username U -email E -password P
  verify-email    -uid UID -token T
  reset-password  -email E | -uid UID -token T -password P
  users           [-search S] [-page N]
`

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := setupLogger(cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	code := run(ctx, cfg, log, flag.Args(), os.Stdout)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string, out io.Writer) int {
	builder, closeBackend, err := cfg.NewBuilder(log)
	if err != nil {
		log.Error("client_setup_failed", slog.String("err", err.Error()))
		return 1
	}
	defer func() {
		if err := closeBackend(); err != nil {
			log.Warn("backend_close_failed", slog.String("err", err.Error()))
		}
	}()

	c, err := builder.
		WithNavigator(navigatorLog{log: log}).
		WithEventSink(client.NewSlogSink(log, slog.LevelDebug)).
		Build()
	if err != nil {
		log.Error("client_build_failed", slog.String("err", err.Error()))
		return 1
	}
	defer c.Close()

	if _, err := c.Start(ctx); err != nil {
		log.Warn("session_restore_failed", slog.String("err", err.Error()))
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		err = cmdLogin(ctx, c, rest, out)
	case "logout":
		err = c.Logout(ctx)
		if err == nil {
			fmt.Fprintln(out, "logged out")
		}
	case "whoami":
		err = cmdWhoami(ctx, c, out)
	case "refresh":
		err = cmdRefresh(ctx, c, out)
	case "register":
		err = cmdRegister(ctx, c, rest, out)
	case "verify-email":
		err = cmdVerifyEmail(ctx, c, rest, out)
	case "reset-password":
		err = cmdResetPassword(ctx, c, rest, out)
	case "users":
		err = cmdUsers(ctx, c, rest, out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		printError(err)
		return 1
	}
	return 0
}

func cmdLogin(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", os.Getenv("AUTHCTL_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := c.Login(ctx, client.LoginRequest{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "logged in as %s (id %d)\n", user.FullName(), user.ID)
	return nil
}

func cmdWhoami(ctx context.Context, c *client.Client, out io.Writer) error {
	if !c.IsAuthenticated() {
		return client.ErrNotAuthenticated
	}
	user, err := c.LoadProfile(ctx)
	if err != nil {
		return err
	}
	cl, _ := c.Claims()
	return writeJSON(out, map[string]any{
		"user":   user,
		"claims": cl,
	})
}

func cmdRefresh(ctx context.Context, c *client.Client, out io.Writer) error {
	if _, err := c.Refresh(ctx); err != nil {
		return err
	}
	cl, ok := c.Claims()
	if !ok {
		return errors.New("refreshed token could not be decoded")
	}
	exp, ok := cl.Expiry()
	if !ok {
		return errors.New("refreshed token carries no expiry")
	}
	fmt.Fprintf(out, "access token valid until %s\n", exp.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func cmdRegister(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	req := client.RegisterRequest{}
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Password, "password", os.Getenv("AUTHCTL_PASSWORD"), "password")
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Password2 = req.Password

	user, err := c.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s (id %d); check %s to verify\n", user.Username, user.ID, user.Email)
	return nil
}

func cmdVerifyEmail(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify-email", flag.ContinueOnError)
	uid := fs.String("uid", "", "uid from the verification link")
	token := fs.String("token", "", "token from the verification link")
	resend := fs.String("resend", "", "email to resend the verification link to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		msg string
		err error
	)
	if *resend != "" {
		msg, err = c.ResendVerification(ctx, *resend)
	} else {
		msg, err = c.VerifyEmail(ctx, *uid, *token)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}

func cmdResetPassword(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "request a reset link for this email")
	req := client.PasswordResetConfirm{}
	fs.StringVar(&req.UID, "uid", "", "uid from the reset link")
	fs.StringVar(&req.Token, "token", "", "token from the reset link")
	fs.StringVar(&req.NewPassword, "password", os.Getenv("AUTHCTL_PASSWORD"), "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		msg string
		err error
	)
	if *email != "" {
		msg, err = c.RequestPasswordReset(ctx, *email)
	} else {
		req.ConfirmPassword = req.NewPassword
		msg, err = c.ConfirmPasswordReset(ctx, req)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}

func cmdUsers(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("users", flag.ContinueOnError)
	filters := client.UserListFilters{}
	fs.StringVar(&filters.Search, "search", "", "search term")
	fs.StringVar(&filters.Ordering, "ordering", "", "ordering field")
	fs.IntVar(&filters.Page, "page", 0, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := c.ListUsers(ctx, filters)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d users\n", page.Count)
	for _, u := range page.Results {
		fmt.Fprintf(out, "%6s  %-20s %-30s staff=%t active=%t\n",
			strconv.FormatInt(u.ID, 10), u.Username, u.Email, u.IsStaff, u.IsActive)
	}
	return nil
}

func printError(err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "error (%s): %s\n", apiErr.Kind, apiErr.Error())
		for field, msgs := range apiErr.Fields {
			for _, m := range msgs {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, m)
			}
		}
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// navigatorLog reports navigation targets, which a terminal cannot follow.
type navigatorLog struct {
	log *slog.Logger
}

func (n navigatorLog) Navigate(ctx context.Context, target string) {
	n.log.InfoContext(ctx, "navigate", slog.String("target", target))
}

// setupLogger writes to stderr so stdout stays reserved for command output.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
