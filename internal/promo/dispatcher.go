package promo

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/danceschool-promos/internal/common"
	"github.com/example/danceschool-promos/internal/email"
	"github.com/example/danceschool-promos/internal/school"
)

// DefaultMarkerKey is the annotation-map key recording that a customer already
// received this promotion.
const DefaultMarkerKey = "lindy1PromoEmailSent"

// upcomingLevelNames is the allow-list of level names advertised as follow-on
// classes in the promotional email.
var upcomingLevelNames = []string{"Level 1", "Level 2", "All Levels", "Solo jazz - Level 1"}

type Catalog interface {
	LookupLevel(ctx context.Context, danceType, levelName string) (school.DanceTypeLevel, error)
	RecentQualifyingSeries(ctx context.Context, levelID int64, from, to time.Time) ([]school.Series, error)
	RegistrationCounts(ctx context.Context, levelID int64, recentSeriesIDs []int64) ([]school.RegistrationCount, error)
	SeriesInstructors(ctx context.Context, customerID, levelID int64) ([]school.Instructor, error)
	UpcomingSeries(ctx context.Context, now time.Time, levelNames []string) ([]school.Series, error)
	TemplateByID(ctx context.Context, id int64) (school.EmailTemplate, error)
	LoadPreferences(ctx context.Context) (school.Preferences, error)
}

type VoucherIssuer interface {
	CreateVoucher(ctx context.Context, draft school.VoucherDraft) (school.Voucher, error)
	RestrictVoucherToLevel(ctx context.Context, voucherID, levelID int64) error
}

type CustomerMarker interface {
	MarkPromotionSent(ctx context.Context, customerID int64, key string, at time.Time) (bool, error)
}

type Outbox interface {
	Publish(ctx context.Context, msg email.Message) error
}

// Dispatcher runs the post-beginner-class promotion: find customers who just
// completed the target level for the first time, issue them discount vouchers,
// and send each of them one templated email.
type Dispatcher struct {
	Catalog   Catalog
	Vouchers  VoucherIssuer
	Customers CustomerMarker
	Outbox    Outbox

	DanceType string
	LevelName string
	Window    time.Duration
	MarkerKey string

	Now    func() time.Time
	Rand   *rand.Rand
	Logger zerolog.Logger
}

type Summary struct {
	Candidates      int
	VouchersIssued  int
	EmailsPublished int
	SkippedSends    int
	FailedCustomers int
}

// Run executes one pass. There is no internal parallelism and no locking: the
// conditional marker write is the only guard against a concurrently scheduled
// duplicate run.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	tracer := otel.Tracer("promo-dispatcher")
	ctx, span := tracer.Start(ctx, "promotion_run")
	defer span.End()

	now := d.now()
	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()
	var sum Summary

	prefs, err := d.Catalog.LoadPreferences(ctx)
	if err != nil {
		runsCounter.WithLabelValues("aborted").Inc()
		return sum, fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.PromoEnabled {
		d.Logger.Info().Msg("promotion email is disabled, nothing to do")
		runsCounter.WithLabelValues("disabled").Inc()
		return sum, nil
	}

	d.Logger.Info().
		Str("dance_type", d.DanceType).
		Str("level", d.LevelName).
		Msg("starting promotional email run")

	level, err := d.Catalog.LookupLevel(ctx, d.DanceType, d.LevelName)
	if err != nil {
		d.Logger.Error().Err(err).Msg("target level not found, vouchers cannot be created")
		runsCounter.WithLabelValues("aborted").Inc()
		return sum, err
	}

	tpl, skipReason, err := d.resolveTemplate(ctx, prefs)
	if err != nil {
		runsCounter.WithLabelValues("aborted").Inc()
		return sum, err
	}

	recent, err := d.Catalog.RecentQualifyingSeries(ctx, level.ID, now.Add(-d.Window), now)
	if err != nil {
		runsCounter.WithLabelValues("aborted").Inc()
		return sum, fmt.Errorf("query recent series: %w", err)
	}
	if len(recent) == 0 {
		d.Logger.Info().Msg("no eligible recent series found, aborting")
		runsCounter.WithLabelValues("empty").Inc()
		return sum, nil
	}
	seriesIDs := make([]int64, len(recent))
	for i, s := range recent {
		seriesIDs[i] = s.ID
	}

	counts, err := d.Catalog.RegistrationCounts(ctx, level.ID, seriesIDs)
	if err != nil {
		runsCounter.WithLabelValues("aborted").Inc()
		return sum, fmt.Errorf("query registration counts: %w", err)
	}

	candidates := selectCandidates(counts, d.markerKey())
	sum.Candidates = len(candidates)
	candidatesCounter.Add(float64(len(candidates)))
	if len(candidates) == 0 {
		d.Logger.Info().Msg("no eligible customers found, aborting")
		runsCounter.WithLabelValues("empty").Inc()
		return sum, nil
	}

	upcoming, err := d.upcomingSeries(ctx, now)
	if err != nil {
		runsCounter.WithLabelValues("aborted").Inc()
		return sum, err
	}

	rng := d.rng()
	for _, customer := range candidates {
		custCtx, custSpan := tracer.Start(ctx, "process_customer")
		custSpan.SetAttributes(attribute.Int64("customer.id", customer.ID))
		if err := d.processCustomer(custCtx, customer, level, prefs.VoucherCategory, tpl, skipReason, upcoming, now, rng, &sum); err != nil {
			custSpan.RecordError(err)
			customersFailed.Inc()
			sum.FailedCustomers++
			custLogger := common.WithContext(custCtx, d.Logger)
			custLogger.Error().Err(err).Int64("customer_id", customer.ID).Msg("customer processing failed, skipping")
		}
		custSpan.End()
	}

	runsCounter.WithLabelValues("completed").Inc()
	d.Logger.Info().
		Int("candidates", sum.Candidates).
		Int("vouchers_issued", sum.VouchersIssued).
		Int("emails_published", sum.EmailsPublished).
		Int("sends_skipped", sum.SkippedSends).
		Int("failed", sum.FailedCustomers).
		Msg("promotional email run complete")
	return sum, nil
}

// resolveTemplate distinguishes three cases: an unset template id degrades the
// run to voucher issuance without sends, a configured id pointing at a missing
// row aborts the run, and a found template may still be unusable (blank from
// address or body), which also degrades rather than aborts. A non-empty skip
// reason means sends are skipped this run.
func (d *Dispatcher) resolveTemplate(ctx context.Context, prefs school.Preferences) (school.EmailTemplate, string, error) {
	if prefs.PromoTemplateID == 0 {
		return school.EmailTemplate{}, "promotion template id not configured", nil
	}
	tpl, err := d.Catalog.TemplateByID(ctx, prefs.PromoTemplateID)
	if err != nil {
		return school.EmailTemplate{}, "", fmt.Errorf("resolve template: %w", err)
	}
	return tpl, templateSkipReason(tpl), nil
}

func templateSkipReason(t school.EmailTemplate) string {
	if t.DefaultFromAddress == "" {
		return "template has no from address configured"
	}
	if t.Content == "" {
		return "template has no content configured"
	}
	return ""
}

func (d *Dispatcher) upcomingSeries(ctx context.Context, now time.Time) ([]email.UpcomingSeries, error) {
	series, err := d.Catalog.UpcomingSeries(ctx, now, upcomingLevelNames)
	if err != nil {
		return nil, fmt.Errorf("query upcoming series: %w", err)
	}
	out := make([]email.UpcomingSeries, len(series))
	for i, s := range series {
		out[i] = email.UpcomingSeries{Title: s.Title, LevelName: s.LevelName, StartTime: s.StartTime}
	}
	return out, nil
}

func (d *Dispatcher) processCustomer(
	ctx context.Context,
	customer school.Customer,
	level school.DanceTypeLevel,
	category string,
	tpl school.EmailTemplate,
	skipReason string,
	upcoming []email.UpcomingSeries,
	now time.Time,
	rng *rand.Rand,
	sum *Summary,
) error {
	logger := common.WithContext(ctx, d.Logger)
	logger.Debug().Int64("customer_id", customer.ID).Msg("preparing promotional email")

	grants, err := d.issueVouchers(ctx, customer, level, category, now)
	if err != nil {
		return err
	}
	sum.VouchersIssued += len(grants)

	instructors, err := d.Catalog.SeriesInstructors(ctx, customer.ID, level.ID)
	if err != nil {
		return fmt.Errorf("lookup instructors: %w", err)
	}
	// Shuffled per send to rotate credit among co-instructors.
	rng.Shuffle(len(instructors), func(i, j int) {
		instructors[i], instructors[j] = instructors[j], instructors[i]
	})
	names := make([]string, len(instructors))
	firstNames := make([]string, len(instructors))
	for i, in := range instructors {
		names[i] = strings.TrimSpace(in.FirstName + " " + in.LastName)
		firstNames[i] = in.FirstName
	}

	if skipReason != "" {
		// The customer is deliberately not marked: they stay eligible and the
		// send is retried on the next run once the template is fixed.
		sendsSkipped.Inc()
		sum.SkippedSends++
		logger.Warn().Str("reason", skipReason).Int64("customer_id", customer.ID).Msg("cannot send promotional email, template is not usable")
		return nil
	}

	msg := email.Message{
		MessageID:   uuid.NewString(),
		To:          customer.Email,
		CC:          tpl.DefaultCC,
		FromAddress: tpl.DefaultFromAddress,
		FromName:    tpl.DefaultFromName,
		Subject:     tpl.Subject,
		Body:        tpl.Content,
		HTMLBody:    tpl.HTMLContent,
		Context: email.TemplateContext{
			RecipientName:     customer.FullName(),
			Vouchers:          grants,
			Instructors:       names,
			TeacherFirstNames: strings.Join(firstNames, ", "),
			UpcomingSeries:    upcoming,
		},
		CreatedAt: now,
	}
	if err := d.Outbox.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	emailsPublished.Inc()
	sum.EmailsPublished++

	claimed, err := d.Customers.MarkPromotionSent(ctx, customer.ID, d.markerKey(), now)
	if err != nil {
		return fmt.Errorf("mark promotion sent: %w", err)
	}
	if !claimed {
		logger.Warn().Int64("customer_id", customer.ID).Msg("customer was already marked as sent")
	}
	logger.Info().Int64("customer_id", customer.ID).Msg("sent promotional email")
	return nil
}

func (d *Dispatcher) issueVouchers(ctx context.Context, customer school.Customer, level school.DanceTypeLevel, category string, now time.Time) (map[string]email.VoucherGrant, error) {
	grants := make(map[string]email.VoucherGrant, len(voucherSpecs))
	for _, spec := range voucherSpecs {
		draft := school.VoucherDraft{
			Prefix:    spec.Prefix,
			Name:      fmt.Sprintf("Student Retention %s Discount for %s", spec.Name, customer.FullName()),
			Category:  category,
			Amount:    spec.Amount,
			SingleUse: true,
			// This promotion targets returning students, never first-timers.
			ForFirstTimeOnly: false,
			ExpiresAt:        now.AddDate(0, spec.ExpiresAfterMonths, 0),
		}
		voucher, err := d.Vouchers.CreateVoucher(ctx, draft)
		if err != nil {
			return nil, fmt.Errorf("issue %s voucher: %w", spec.Key, err)
		}
		vouchersIssued.Inc()

		grant := email.VoucherGrant{
			Name:      spec.Name,
			Amount:    voucher.Amount,
			Code:      voucher.Code,
			Category:  voucher.Category,
			ExpiresAt: voucher.ExpiresAt,
		}
		if spec.RestrictToTargetLevel {
			if err := d.Vouchers.RestrictVoucherToLevel(ctx, voucher.ID, level.ID); err != nil {
				return nil, fmt.Errorf("restrict %s voucher: %w", spec.Key, err)
			}
			grant.LevelName = level.DanceType + " " + level.Name
		}
		grants[spec.Key] = grant
	}
	return grants, nil
}

func (d *Dispatcher) markerKey() string {
	if d.MarkerKey != "" {
		return d.MarkerKey
	}
	return DefaultMarkerKey
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) rng() *rand.Rand {
	if d.Rand != nil {
		return d.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
