package school

import (
	"errors"
	"time"
)

var (
	ErrLevelNotFound    = errors.New("dance type level not found")
	ErrTemplateNotFound = errors.New("email template not found")
)

type DanceTypeLevel struct {
	ID        int64
	DanceType string
	Name      string
}

type SeriesStatus string

const (
	SeriesEnabled  SeriesStatus = "enabled"
	SeriesHeldOpen SeriesStatus = "held_open"
	SeriesDisabled SeriesStatus = "disabled"
	SeriesHidden   SeriesStatus = "hidden"
)

type Series struct {
	ID               int64
	Title            string
	StartTime        time.Time
	EndTime          time.Time
	RegistrationOpen bool
	Status           SeriesStatus
	LevelID          int64
	LevelName        string
}

type Instructor struct {
	ID        int64
	FirstName string
	LastName  string
}

// Customer carries the open-ended jsonb annotation map shared with other
// subsystems. Promotion code reads it only through PromotionState and writes it
// only through Store.MarkPromotionSent.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Data      map[string]any
}

func (c Customer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// PromotionState is the typed view of a single promotion's marker inside the
// customer annotation map.
type PromotionState struct {
	Sent   bool
	SentAt *time.Time
}

const markerTimeFormat = "2006-01-02 15:04:05"

// PromotionState tolerates a missing or malformed annotation map and any
// historical marker shape (timestamp string, bool, number).
func (c Customer) PromotionState(key string) PromotionState {
	if c.Data == nil {
		return PromotionState{}
	}
	switch v := c.Data[key].(type) {
	case nil:
		return PromotionState{}
	case bool:
		return PromotionState{Sent: v}
	case string:
		if v == "" {
			return PromotionState{}
		}
		st := PromotionState{Sent: true}
		if at, err := time.Parse(markerTimeFormat, v); err == nil {
			st.SentAt = &at
		}
		return st
	case float64:
		return PromotionState{Sent: v != 0}
	default:
		return PromotionState{Sent: true}
	}
}

// RegistrationCount aggregates one customer's registrations in the target
// level: how many fell inside the recent qualifying series set and how many
// exist across all series ever.
type RegistrationCount struct {
	Customer Customer
	ThisRun  int
	Lifetime int
}

type EmailTemplate struct {
	ID                 int64
	Subject            string
	Content            string
	HTMLContent        string
	DefaultFromAddress string
	DefaultFromName    string
	DefaultCC          string
	HideFromForm       bool
}

type Voucher struct {
	ID               int64
	Code             string
	Name             string
	Category         string
	Amount           int
	SingleUse        bool
	ForFirstTimeOnly bool
	ExpiresAt        time.Time
}

type VoucherDraft struct {
	Prefix           string
	Name             string
	Category         string
	Amount           int
	SingleUse        bool
	ForFirstTimeOnly bool
	ExpiresAt        time.Time
}

// Preferences is the run-scoped business configuration kept in the database
// and edited by operators.
type Preferences struct {
	PromoEnabled    bool
	PromoTemplateID int64
	VoucherCategory string
}
