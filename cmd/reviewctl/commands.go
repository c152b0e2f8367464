package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/internal/rating"
	"github.com/utafrali/fitvibe/internal/report"
	"github.com/utafrali/fitvibe/internal/reviewview"
	"github.com/utafrali/fitvibe/internal/store"
	"github.com/utafrali/fitvibe/pkg/middleware"
)

var (
	// errUsage is returned after a flag set already printed its usage.
	errUsage = errors.New("invalid arguments")
	// errHelp ends a command whose help was asked for. dispatch treats it as
	// success.
	errHelp = errors.New("help requested")
)

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return errUsage
	}
	return nil
}

type requiredFlag struct {
	name  string
	value string
}

// required reports the first empty flag, in the order given.
func required(flags ...requiredFlag) error {
	for _, f := range flags {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("-%s is required", f.name)
		}
	}
	return nil
}

// loadStore creates and loads the review store of a product.
func (c *cli) loadStore(ctx context.Context, productID string) (*store.ReviewStore, error) {
	s := store.NewReviewStore(productID, c.client, c.session, c.notes, c.logger)
	if err := s.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := c.flags("list")
	productID := fs.String("product", "", "product id")
	star := fs.Int("star", 0, "only reviews with this many stars (1-5, 0 for all)")
	photos := fs.Bool("photos", false, "only reviews with photos")
	sortBy := fs.String("sort", string(reviewview.SortRecent), "recent, highest or lowest")
	pages := fs.Int("pages", 1, "how many pages of reviews to show")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(requiredFlag{"product", *productID}); err != nil {
		return err
	}
	if *star < 0 || *star > domain.MaxRating {
		return fmt.Errorf("-star must be between 0 and %d", domain.MaxRating)
	}

	s, err := c.loadStore(ctx, *productID)
	if err != nil {
		return err
	}
	defer s.Close()

	view := s.View(reviewview.Filter{Star: *star, PhotosOnly: *photos, Sort: reviewview.ParseSort(*sortBy)})
	pager := reviewview.NewPager()
	for i := 1; i < *pages; i++ {
		pager.ShowMore()
	}
	window := pager.Window(view)

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRATING\tAUTHOR\tTITLE\tLIKES\tREPLIES\tPHOTOS\tACTIONS")
	for _, r := range window {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Rating, r.Author.Name, r.Title, s.LikesCount(r.ID), len(r.Replies), len(r.Images), c.actions(s, r.ID))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "showing %d of %d", len(window), len(view))
	if pager.HasMore(view) {
		fmt.Fprintf(c.out, " (use -pages %d for more)", *pages+1)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) actions(s *store.ReviewStore, reviewID string) string {
	a, err := s.Actions(reviewID)
	if err != nil {
		return "-"
	}
	var out []string
	if a.CanEdit {
		out = append(out, "edit")
	}
	if a.CanDelete {
		out = append(out, "delete")
	}
	if a.CanReport {
		if a.ReportDisabled {
			out = append(out, "reported")
		} else {
			out = append(out, "report")
		}
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}

func (c *cli) summary(ctx context.Context, args []string) error {
	fs := c.flags("summary")
	productID := fs.String("product", "", "product id")
	remote := fs.Bool("remote", false, "ask the service for its cached summary")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(requiredFlag{"product", *productID}); err != nil {
		return err
	}

	var sum domain.RatingSummary
	if *remote {
		resp, err := c.client.Summary(ctx, *productID)
		if err != nil {
			return err
		}
		sum = resp.Summary
	} else {
		s, err := c.loadStore(ctx, *productID)
		if err != nil {
			return err
		}
		defer s.Close()
		sum = s.Summary()
	}

	fmt.Fprintf(c.out, "%.1f out of 5 (%d reviews)\n", sum.Average, sum.Count)
	for star := domain.MaxRating; star >= domain.MinRating; star-- {
		pct := rating.Percent(sum, star)
		bar := strings.Repeat("#", int(pct/5))
		fmt.Fprintf(c.out, "%d star  %-20s %3.0f%% (%d)\n", star, bar, pct, sum.Buckets[star])
	}
	return nil
}

func (c *cli) like(ctx context.Context, args []string) error {
	fs := c.flags("like")
	productID := fs.String("product", "", "product id")
	reviewID := fs.String("review", "", "review id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(requiredFlag{"product", *productID}, requiredFlag{"review", *reviewID}); err != nil {
		return err
	}

	s, err := c.loadStore(ctx, *productID)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Like(ctx, *reviewID); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "review %s now has %d likes\n", *reviewID, s.LikesCount(*reviewID))
	return nil
}

func (c *cli) reply(ctx context.Context, args []string) error {
	fs := c.flags("reply")
	productID := fs.String("product", "", "product id")
	reviewID := fs.String("review", "", "review id")
	comment := fs.String("comment", "", "reply text")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(requiredFlag{"product", *productID}, requiredFlag{"review", *reviewID}); err != nil {
		return err
	}

	s, err := c.loadStore(ctx, *productID)
	if err != nil {
		return err
	}
	defer s.Close()

	rs, err := s.Replies(*reviewID)
	if err != nil {
		return err
	}
	if err := rs.Create(ctx, *comment); err != nil {
		return err
	}
	for _, rp := range rs.Replies() {
		fmt.Fprintf(c.out, "%s  %s: %s\n", rp.ID, rp.Author.Name, rp.Comment)
	}
	return nil
}

func (c *cli) report(ctx context.Context, args []string) error {
	fs := c.flags("report")
	kind := fs.String("kind", string(domain.ReportSystem), "system, product, review, reply or order")
	target := fs.String("target", "", "id of the reported item (not for system reports)")
	productID := fs.String("product", "", "product of a reported review or reply")
	reviewID := fs.String("review", "", "review of a reported reply")
	reason := fs.String("reason", "", "reason value, see `reviewctl reasons`")
	message := fs.String("message", "", "optional details")
	severity := fs.String("severity", string(domain.SeverityMedium), "low, medium, high or critical")
	if err := parse(fs, args); err != nil {
		return err
	}

	wf, closeStore, err := c.openReport(ctx, domain.ParseReportKind(*kind), *target, *productID, *reviewID)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := wf.SelectReason(*reason); err != nil {
		return err
	}
	if err := wf.Next(); err != nil {
		return err
	}
	if err := wf.SetMessage(*message); err != nil {
		return err
	}
	sev, err := domain.ParseSeverity(*severity)
	if err != nil {
		return err
	}
	if err := wf.SetSeverity(sev); err != nil {
		return err
	}
	return wf.Submit(ctx)
}

// openReport opens the wizard through the owning store when the reported
// review or reply is known, so a repeated report is refused locally.
func (c *cli) openReport(ctx context.Context, kind domain.ReportKind, target, productID, reviewID string) (*report.Workflow, func(), error) {
	nop := func() {}
	if productID == "" || (kind != domain.ReportReview && kind != domain.ReportReply) {
		wf := report.New(c.client, c.notes, c.logger)
		wf.Open(kind, target)
		return wf, nop, nil
	}

	s, err := c.loadStore(ctx, productID)
	if err != nil {
		return nil, nop, err
	}

	var wf *report.Workflow
	if kind == domain.ReportReview {
		wf, err = s.OpenReport(target)
	} else {
		if reviewID == "" {
			s.Close()
			return nil, nop, errors.New("-review is required to report a reply")
		}
		var rs *store.ReplyStore
		if rs, err = s.Replies(reviewID); err == nil {
			wf, err = rs.OpenReport(target)
		}
	}
	if err != nil {
		s.Close()
		return nil, nop, err
	}
	return wf, s.Close, nil
}

func (c *cli) reasons(args []string) error {
	fs := c.flags("reasons")
	kind := fs.String("kind", string(domain.ReportSystem), "report kind")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg := domain.ConfigFor(domain.ParseReportKind(*kind))
	fmt.Fprintf(c.out, "%s: %s\n", cfg.Title, cfg.Description)
	for _, r := range cfg.Reasons {
		fmt.Fprintf(c.out, "  %-20s %s\n", r.Value, r.Label)
	}
	return nil
}

func (c *cli) reports(ctx context.Context, args []string) error {
	fs := c.flags("reports")
	kind := fs.String("kind", "", "only reports of this kind")
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", 20, "reports per page")
	if err := parse(fs, args); err != nil {
		return err
	}

	resp, err := c.client.ListReports(ctx, *kind, *page, *perPage)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTARGET\tREASON\tSEVERITY\tREPORTER\tCREATED")
	for _, r := range resp.Reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Type, r.TargetID, r.Reason, r.Severity, r.ReporterID, r.CreatedAt.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "page %d of %d (%d reports)\n", resp.Page, resp.TotalPages, resp.TotalCount)
	return nil
}

func (c *cli) token(args []string) error {
	fs := c.flags("token")
	userID := fs.String("user", "", "user id")
	name := fs.String("name", "", "display name")
	avatar := fs.String("avatar", "", "avatar url")
	role := fs.String("role", domain.RoleUser, "user or admin")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(requiredFlag{"user", *userID}); err != nil {
		return err
	}
	if *role != domain.RoleUser && *role != domain.RoleAdmin {
		return fmt.Errorf("-role must be %s or %s", domain.RoleUser, domain.RoleAdmin)
	}
	if len(c.cfg.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be set to the service secret (at least 32 characters)")
	}

	codec := middleware.NewSessionCodec(c.cfg.JWTSecret, c.cfg.JWTIssuer)
	tok, err := codec.Sign(middleware.Viewer{UserID: *userID, Name: *name, Avatar: *avatar, Role: *role}, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, tok)
	return nil
}

func (c *cli) lang(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(c.out, c.session.Language())
		return nil
	}
	if err := c.session.ChangeLanguage(args[0]); err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.session.Language())
	return nil
}
