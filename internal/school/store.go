package school

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	prefPromoEnabled    = "promotions.email_enabled"
	prefPromoTemplateID = "promotions.template_id"
	prefVoucherCategory = "vouchers.email_promo_category"
)

const selectLevel = `
SELECT dtl.id, dt.name, dtl.name
FROM dance_type_levels dtl
JOIN dance_types dt ON dt.id = dtl.dance_type_id
WHERE dt.name = $1 AND dtl.name = $2
`

const selectRecentSeries = `
SELECT s.id, cd.title, s.start_time, s.end_time, s.registration_open, s.status, cd.dance_type_level_id, dtl.name
FROM series s
JOIN class_descriptions cd ON cd.id = s.class_description_id
JOIN dance_type_levels dtl ON dtl.id = cd.dance_type_level_id
WHERE cd.dance_type_level_id = $1
  AND s.end_time >= $2
  AND s.end_time <= $3
`

const selectRegistrationCounts = `
SELECT c.id, c.first_name, c.last_name, c.email, c.data,
       COUNT(*) FILTER (WHERE s.id = ANY($2)) AS this_run,
       COUNT(*) AS lifetime
FROM customers c
JOIN event_registrations er ON er.customer_id = c.id
JOIN series s ON s.id = er.series_id
JOIN class_descriptions cd ON cd.id = s.class_description_id
WHERE cd.dance_type_level_id = $1
GROUP BY c.id, c.first_name, c.last_name, c.email, c.data
`

const selectSeriesInstructors = `
SELECT i.id, i.first_name, i.last_name
FROM instructors i
JOIN series_instructors si ON si.instructor_id = i.id
WHERE si.series_id = (
	SELECT s.id
	FROM series s
	JOIN class_descriptions cd ON cd.id = s.class_description_id
	JOIN event_registrations er ON er.series_id = s.id
	WHERE er.customer_id = $1 AND cd.dance_type_level_id = $2
	ORDER BY s.end_time ASC
	LIMIT 1
)
`

const selectUpcomingSeries = `
SELECT s.id, cd.title, s.start_time, s.end_time, s.registration_open, s.status, cd.dance_type_level_id, dtl.name
FROM series s
JOIN class_descriptions cd ON cd.id = s.class_description_id
JOIN dance_type_levels dtl ON dtl.id = cd.dance_type_level_id
WHERE s.start_time >= $1
  AND s.registration_open
  AND s.status = ANY($2)
  AND dtl.name = ANY($3)
ORDER BY s.start_time
`

const selectTemplate = `
SELECT id, subject, content, html_content, default_from_address, default_from_name, default_cc, hide_from_form
FROM email_templates
WHERE id = $1
`

const selectPreferences = `
SELECT key, value FROM preferences WHERE key = ANY($1)
`

// markPromotionSent merges the marker into the annotation map without touching
// unrelated keys. The guard clause makes the claim conditional, so a duplicate
// run cannot double-mark a customer. A falsy leftover value (null, false, "",
// 0) does not count as marked, matching the truthiness Customer.PromotionState
// applies on the read side.
const markPromotionSent = `
UPDATE customers
SET data = jsonb_set(COALESCE(data, '{}'::jsonb), ARRAY[$2], to_jsonb($3::text), true)
WHERE id = $1
  AND (data IS NULL
       OR NOT data ? $2
       OR data->$2 IN ('null'::jsonb, 'false'::jsonb, '""'::jsonb, '0'::jsonb))
`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LookupLevel(ctx context.Context, danceType, levelName string) (DanceTypeLevel, error) {
	var level DanceTypeLevel
	row := s.pool.QueryRow(ctx, selectLevel, danceType, levelName)
	if err := row.Scan(&level.ID, &level.DanceType, &level.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DanceTypeLevel{}, fmt.Errorf("%w: %s / %s", ErrLevelNotFound, danceType, levelName)
		}
		return DanceTypeLevel{}, fmt.Errorf("lookup level: %w", err)
	}
	return level, nil
}

func (s *Store) RecentQualifyingSeries(ctx context.Context, levelID int64, from, to time.Time) ([]Series, error) {
	rows, err := s.pool.Query(ctx, selectRecentSeries, levelID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query recent series: %w", err)
	}
	defer rows.Close()
	return scanSeries(rows)
}

func (s *Store) RegistrationCounts(ctx context.Context, levelID int64, recentSeriesIDs []int64) ([]RegistrationCount, error) {
	rows, err := s.pool.Query(ctx, selectRegistrationCounts, levelID, recentSeriesIDs)
	if err != nil {
		return nil, fmt.Errorf("query registration counts: %w", err)
	}
	defer rows.Close()

	var out []RegistrationCount
	for rows.Next() {
		var (
			rc   RegistrationCount
			data []byte
		)
		if err := rows.Scan(&rc.Customer.ID, &rc.Customer.FirstName, &rc.Customer.LastName, &rc.Customer.Email, &data, &rc.ThisRun, &rc.Lifetime); err != nil {
			return nil, fmt.Errorf("scan registration count: %w", err)
		}
		rc.Customer.Data = decodeAnnotations(data)
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *Store) SeriesInstructors(ctx context.Context, customerID, levelID int64) ([]Instructor, error) {
	rows, err := s.pool.Query(ctx, selectSeriesInstructors, customerID, levelID)
	if err != nil {
		return nil, fmt.Errorf("query series instructors: %w", err)
	}
	defer rows.Close()

	var out []Instructor
	for rows.Next() {
		var in Instructor
		if err := rows.Scan(&in.ID, &in.FirstName, &in.LastName); err != nil {
			return nil, fmt.Errorf("scan instructor: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) UpcomingSeries(ctx context.Context, now time.Time, levelNames []string) ([]Series, error) {
	statuses := []string{string(SeriesEnabled), string(SeriesHeldOpen)}
	rows, err := s.pool.Query(ctx, selectUpcomingSeries, now, statuses, levelNames)
	if err != nil {
		return nil, fmt.Errorf("query upcoming series: %w", err)
	}
	defer rows.Close()
	return scanSeries(rows)
}

func (s *Store) TemplateByID(ctx context.Context, id int64) (EmailTemplate, error) {
	var t EmailTemplate
	row := s.pool.QueryRow(ctx, selectTemplate, id)
	err := row.Scan(&t.ID, &t.Subject, &t.Content, &t.HTMLContent, &t.DefaultFromAddress, &t.DefaultFromName, &t.DefaultCC, &t.HideFromForm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EmailTemplate{}, fmt.Errorf("%w: id %d", ErrTemplateNotFound, id)
		}
		return EmailTemplate{}, fmt.Errorf("fetch template: %w", err)
	}
	return t, nil
}

func (s *Store) LoadPreferences(ctx context.Context) (Preferences, error) {
	keys := []string{prefPromoEnabled, prefPromoTemplateID, prefVoucherCategory}
	rows, err := s.pool.Query(ctx, selectPreferences, keys)
	if err != nil {
		return Preferences{}, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var prefs Preferences
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Preferences{}, fmt.Errorf("scan preference: %w", err)
		}
		switch key {
		case prefPromoEnabled:
			prefs.PromoEnabled = value == "true" || value == "1"
		case prefPromoTemplateID:
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Preferences{}, fmt.Errorf("preference %s: %w", key, err)
			}
			prefs.PromoTemplateID = id
		case prefVoucherCategory:
			prefs.VoucherCategory = value
		}
	}
	return prefs, rows.Err()
}

func (s *Store) MarkPromotionSent(ctx context.Context, customerID int64, key string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, markPromotionSent, customerID, key, at.UTC().Format(markerTimeFormat))
	if err != nil {
		return false, fmt.Errorf("mark promotion sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanSeries(rows pgx.Rows) ([]Series, error) {
	var out []Series
	for rows.Next() {
		var (
			sr     Series
			status string
		)
		if err := rows.Scan(&sr.ID, &sr.Title, &sr.StartTime, &sr.EndTime, &sr.RegistrationOpen, &status, &sr.LevelID, &sr.LevelName); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		sr.Status = SeriesStatus(status)
		out = append(out, sr)
	}
	return out, rows.Err()
}

// decodeAnnotations never fails: a null or malformed annotation column is
// treated as an empty map.
func decodeAnnotations(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	return data
}
