// Command storefrontctl signs in to the storefront API from a terminal and
// sends authenticated requests with the stored session.
//
//	storefrontctl login -u USER -p PASS [-remember]
//	storefrontctl whoami
//	storefrontctl get /products
//	storefrontctl logout
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jrsteele09/storefront-console/apiclient"
	"github.com/jrsteele09/storefront-console/internal/config"
	errs "github.com/jrsteele09/storefront-console/internal/errors"
	"github.com/jrsteele09/storefront-console/session"
	"github.com/jrsteele09/storefront-console/session/credentials"
	"github.com/jrsteele09/storefront-console/session/renewal"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = "usage: storefrontctl [login|whoami|get|logout]"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli is one invocation of the command.
type cli struct {
	api     *apiclient.Client
	store   *credentials.FileStore
	session *session.Session
	stdout  io.Writer
	stderr  io.Writer
}

// stderrIndicator tells the user a sign-out is in progress.
type stderrIndicator struct {
	w io.Writer
}

func (i stderrIndicator) Show() { fmt.Fprintln(i.w, "signing out...") }
func (i stderrIndicator) Hide() {}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.New()
	setupLogging(stderr)

	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	c, err := newCLI(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "storefrontctl: %v\n", err)
		return 1
	}

	switch args[0] {
	case "login":
		err = c.login(ctx, args[1:])
	case "whoami":
		err = c.whoami(ctx)
	case "get":
		err = c.get(ctx, args[1:])
	case "logout":
		c.session.Logout(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s\n", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "storefrontctl %s: %v\n", args[0], describe(err))
		return 1
	}
	return 0
}

func newCLI(cfg config.Config, stdout, stderr io.Writer) (*cli, error) {
	store, err := credentials.NewFileStore(cfg.GetCredentialsFile(), credentials.Retention{RememberFor: cfg.GetRememberMeRetention()})
	if err != nil {
		return nil, fmt.Errorf("[storefrontctl] failed to open credentials: %w", err)
	}

	api := apiclient.New(cfg.GetAPIBaseURL(), apiclient.WithTimeout(cfg.GetAPITimeout()))
	sessions := session.NewManager(api,
		session.WithBaseTransport(api.Transport()),
		session.WithNotifyWait(cfg.GetLogoutNotifyWait()),
		session.WithCoordinator(renewal.New(api, renewal.WithFreshness(cfg.GetRenewalFreshness()))),
	)

	c := &cli{api: api, store: store, stdout: stdout, stderr: stderr}
	nav := session.NavigatorFunc(func(string) {
		fmt.Fprintln(stderr, "signed out")
	})
	c.session = sessions.Session(store, nav, session.WithIndicator(stderrIndicator{w: stderr}))
	return c, nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	username := fs.String("u", "", "username")
	password := fs.String("p", os.Getenv("STOREFRONT_PASSWORD"), "password (or STOREFRONT_PASSWORD)")
	remember := fs.Bool("remember", false, "stay signed in for 7 days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("-u and -p are required")
	}

	claims, err := c.session.Login(ctx, *username, *password, *remember)
	if err != nil {
		return err
	}

	name := claims.DisplayName
	if name == "" {
		name = *username
	}
	fmt.Fprintf(c.stdout, "signed in as %s (%s)\n", name, claims.Role)
	if !*remember {
		fmt.Fprintln(c.stderr, "session is not remembered and ends with this command; use -remember to stay signed in")
	}
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	if _, err := c.session.EnsureValidAccessToken(ctx); err != nil {
		return err
	}
	summary, ok := c.session.Summary()
	if !ok {
		return errs.ErrUnexpectedResponse
	}

	fmt.Fprintf(c.stdout, "role:     %s\n", summary.Role)
	if summary.DisplayName != "" {
		fmt.Fprintf(c.stdout, "name:     %s\n", summary.DisplayName)
	}
	if summary.LocationName != "" {
		fmt.Fprintf(c.stdout, "location: %s\n", summary.LocationName)
	}
	if summary.TrialDaysRemaining != nil {
		fmt.Fprintf(c.stdout, "trial:    %d days remaining\n", *summary.TrialDaysRemaining)
	}
	return nil
}

func (c *cli) get(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: storefrontctl get PATH")
	}
	path := "/" + strings.TrimPrefix(args[0], "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.api.BaseURL()+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(c.stdout, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &apiclient.StatusError{Path: path, StatusCode: resp.StatusCode}
	}
	return nil
}

// describe turns session errors into something a terminal user can act on.
func describe(err error) string {
	switch {
	case errs.Is(err, errs.ErrSessionMissing):
		return "not signed in, run storefrontctl login"
	case errs.Is(err, errs.ErrSessionInvalid):
		return "session expired, run storefrontctl login"
	case errs.Is(err, errs.ErrInvalidCredentials):
		return "invalid username or password"
	case errs.Is(err, errs.ErrRenewalTransport):
		return "cannot reach the storefront API, try again"
	}
	return err.Error()
}

func setupLogging(w io.Writer) {
	level, err := zerolog.ParseLevel(config.GetEnv("LOG_LEVEL", "warn"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}
