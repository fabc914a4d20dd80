package email

import "time"

// Message is a fully composed outbound email. The dispatcher resolves the
// template and substitution context before publishing, so the worker only has
// to deliver.
type Message struct {
	MessageID   string          `json:"message_id"`
	To          string          `json:"to"`
	CC          string          `json:"cc,omitempty"`
	FromAddress string          `json:"from_address"`
	FromName    string          `json:"from_name,omitempty"`
	Subject     string          `json:"subject"`
	Body        string          `json:"body"`
	HTMLBody    string          `json:"html_body,omitempty"`
	Context     TemplateContext `json:"context"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TemplateContext carries the per-customer substitution values for the
// promotional template.
type TemplateContext struct {
	RecipientName     string                  `json:"recipient_name"`
	Vouchers          map[string]VoucherGrant `json:"vouchers"`
	Instructors       []string                `json:"instructors"`
	TeacherFirstNames string                  `json:"teacher_first_names"`
	UpcomingSeries    []UpcomingSeries        `json:"upcoming_series"`
}

type VoucherGrant struct {
	Name      string    `json:"name"`
	Amount    int       `json:"amount"`
	Code      string    `json:"code"`
	Category  string    `json:"category"`
	ExpiresAt time.Time `json:"expires_at"`
	LevelName string    `json:"level_name,omitempty"`
}

type UpcomingSeries struct {
	Title     string    `json:"title"`
	LevelName string    `json:"level_name"`
	StartTime time.Time `json:"start_time"`
}
