// Command reviewctl drives the review client core against a running review
// service: it lists and filters reviews, prints the rating histogram, likes,
// replies and files reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/fitvibe/internal/api"
	"github.com/utafrali/fitvibe/internal/config"
	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/notify"
	"github.com/utafrali/fitvibe/internal/session"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
	"github.com/utafrali/fitvibe/pkg/httpclient"
	"github.com/utafrali/fitvibe/pkg/logger"
	"github.com/utafrali/fitvibe/pkg/middleware"
)

const usage = `usage: reviewctl <command> [flags]

commands:
  list      list reviews of a product (-product, -star, -photos, -sort, -pages)
  summary   print the rating histogram of a product (-product, -remote)
  like      toggle a like on a review (-product, -review)
  reply     reply to a review (-product, -review, -comment)
  report    file a report (-kind, -target, -reason, -message, -severity)
  reasons   list the report reasons of a kind (-kind)
  reports   list submitted reports, admin only (-kind, -page, -per-page)
  token     mint a development session token (-user, -name, -role, -ttl)
  lang      show or change the interface language ([code])
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "reviewctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter("reviewctl", cfg.LogLevel, os.Stderr)

	c, err := newCLI(cfg, log, out)
	if err != nil {
		return err
	}
	return c.dispatch(ctx, args[0], args[1:])
}

// cli holds everything one invocation needs.
type cli struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	client  *api.Client
	breaker *httpclient.CircuitBreakerClient
	session *session.Session
	notes   *notify.Center
}

func newCLI(cfg *config.Config, log *slog.Logger, out io.Writer) (*cli, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.SessionToken != "" {
		u, err := url.Parse(cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("parse api url: %w", err)
		}
		jar.SetCookies(u, []*http.Cookie{{Name: middleware.SessionCookieName, Value: cfg.SessionToken, Path: "/"}})
	}

	hc := httpclient.New(httpclient.Config{
		Timeout:         cfg.Timeout,
		MaxRetries:      cfg.MaxRetries,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 4,
		Jar:             jar,
	})
	cbCfg := httpclient.DefaultCircuitBreakerConfig("review-api")
	cbCfg.FailureRatio = cfg.BreakerFailureRatio
	cbCfg.Timeout = cfg.BreakerTimeout
	doer := httpclient.NewCircuitBreakerClient(hc, cbCfg, log)

	sess := session.New(viewerFromToken(cfg.SessionToken), session.FileLanguageStore{Path: cfg.LanguageFile}, log)
	if err := sess.Restore(); err != nil {
		log.Warn("stored language not restored", slog.String("error", err.Error()))
	}

	notes := notify.NewCenter(0)
	notes.Subscribe(func(n notify.Notification) {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	})

	return &cli{
		cfg:     cfg,
		logger:  log,
		out:     out,
		client:  api.New(doer, cfg.APIURL, log),
		breaker: doer,
		session: sess,
		notes:   notes,
	}, nil
}

// viewerFromToken reads the viewer out of a session token without verifying
// it. The backend verifies; the client only needs it to decide affordances.
func viewerFromToken(token string) domain.Viewer {
	if token == "" {
		return domain.Viewer{}
	}
	var claims middleware.SessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return domain.Viewer{}
	}
	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	role := claims.Role
	if role == "" && id != "" {
		role = domain.RoleUser
	}
	return domain.Viewer{ID: id, Name: claims.Name, Avatar: claims.Avatar, Role: role}
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	err := c.command(ctx, cmd, args)
	if errors.Is(err, errHelp) {
		return nil
	}
	return c.explain(err)
}

// explain adds the breaker state to transport failures, so a run of
// rejected calls is not mistaken for a dead network.
func (c *cli) explain(err error) error {
	if err == nil || !errors.Is(err, apperrors.ErrNetwork) {
		return err
	}
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w (review api circuit open, calls paused for %s)", err, c.cfg.BreakerTimeout)
	}
	return err
}

func (c *cli) command(ctx context.Context, cmd string, args []string) error {
	switch strings.ToLower(cmd) {
	case "list":
		return c.list(ctx, args)
	case "summary":
		return c.summary(ctx, args)
	case "like":
		return c.like(ctx, args)
	case "reply":
		return c.reply(ctx, args)
	case "report":
		return c.report(ctx, args)
	case "reasons":
		return c.reasons(args)
	case "reports":
		return c.reports(ctx, args)
	case "token":
		return c.token(args)
	case "lang":
		return c.lang(args)
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
