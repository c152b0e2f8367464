package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ReportKind is the target type of a report.
type ReportKind string

const (
	ReportSystem  ReportKind = "system"
	ReportProduct ReportKind = "product"
	ReportReview  ReportKind = "review"
	ReportReply   ReportKind = "reply"
	ReportOrder   ReportKind = "order"
)

// ReportKinds lists every kind in display order.
var ReportKinds = []ReportKind{ReportSystem, ReportProduct, ReportReview, ReportReply, ReportOrder}

// ParseReportKind maps a string to a kind. Unknown input falls back to
// ReportSystem.
func ParseReportKind(s string) ReportKind {
	k := ReportKind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(ReportKinds, k) {
		return k
	}
	return ReportSystem
}

// NeedsTarget reports whether reports of this kind carry a targetId.
func (k ReportKind) NeedsTarget() bool { return k != ReportSystem }

// Severity ranks how urgent a report is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most urgent.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// DefaultSeverity is preselected when a report is opened.
const DefaultSeverity = SeverityMedium

// ParseSeverity validates s.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Severities, sev) {
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// ReportReason is one selectable reason of a kind.
type ReportReason struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ReportConfig drives the presentation of the report dialog for one kind.
type ReportConfig struct {
	Kind        ReportKind     `json:"kind"`
	Icon        string         `json:"icon"`
	Accent      string         `json:"accent"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Reasons     []ReportReason `json:"reasons"`
}

// HasReason reports whether value is one of the kind's reasons.
func (c ReportConfig) HasReason(value string) bool {
	return slices.ContainsFunc(c.Reasons, func(r ReportReason) bool { return r.Value == value })
}

// ConfigFor returns the static dialog configuration of k. Unknown kinds get
// the system configuration.
func ConfigFor(k ReportKind) ReportConfig {
	switch k {
	case ReportProduct:
		return ReportConfig{
			Kind:        ReportProduct,
			Icon:        "package",
			Accent:      "#f97316",
			Title:       "Report product",
			Description: "Tell us what is wrong with this product listing.",
			Reasons: []ReportReason{
				{"wrong_description", "Description does not match the product"},
				{"counterfeit", "Counterfeit or replica"},
				{"wrong_price", "Misleading price"},
				{"prohibited_item", "Prohibited item"},
				{"offensive_content", "Offensive images or text"},
				{"other", "Other"},
			},
		}
	case ReportReview:
		return ReportConfig{
			Kind:        ReportReview,
			Icon:        "message-square",
			Accent:      "#ef4444",
			Title:       "Report review",
			Description: "Flag this review for our moderators.",
			Reasons: []ReportReason{
				{"spam", "Spam or advertising"},
				{"offensive", "Offensive or abusive language"},
				{"fake_review", "Fake or paid review"},
				{"irrelevant", "Not about this product"},
				{"personal_info", "Shares personal information"},
				{"other", "Other"},
			},
		}
	case ReportReply:
		return ReportConfig{
			Kind:        ReportReply,
			Icon:        "message-circle",
			Accent:      "#ec4899",
			Title:       "Report reply",
			Description: "Flag this reply for our moderators.",
			Reasons: []ReportReason{
				{"spam", "Spam or advertising"},
				{"offensive", "Offensive or abusive language"},
				{"harassment", "Harassment"},
				{"irrelevant", "Off topic"},
				{"other", "Other"},
			},
		}
	case ReportOrder:
		return ReportConfig{
			Kind:        ReportOrder,
			Icon:        "shopping-bag",
			Accent:      "#8b5cf6",
			Title:       "Report a problem with your order",
			Description: "Let us know what went wrong with this order.",
			Reasons: []ReportReason{
				{"not_received", "Order not received"},
				{"damaged", "Item arrived damaged"},
				{"wrong_item", "Wrong item delivered"},
				{"late_delivery", "Delivery is late"},
				{"refund_issue", "Refund problem"},
				{"other", "Other"},
			},
		}
	default:
		return ReportConfig{
			Kind:        ReportSystem,
			Icon:        "bug",
			Accent:      "#3b82f6",
			Title:       "Report a problem",
			Description: "Something is not working? Tell us about it.",
			Reasons: []ReportReason{
				{"bug", "Something is broken"},
				{"performance", "The site is slow"},
				{"display_issue", "Page looks wrong"},
				{"security", "Security concern"},
				{"other", "Other"},
			},
		}
	}
}

// Report is the payload sent when a report is submitted.
type Report struct {
	Type     ReportKind `json:"type" validate:"required,oneof=system product review reply order"`
	TargetID string     `json:"targetId,omitempty" validate:"required_unless=Type system"`
	Reason   string     `json:"reason" validate:"required,max=64"`
	Message  string     `json:"message" validate:"max=500"`
	Severity Severity   `json:"severity" validate:"required,oneof=low medium high critical"`
}

// StoredReport is a submitted report as moderators see it.
type StoredReport struct {
	ID string `json:"id"`
	Report
	ReporterID string    `json:"reporterId"`
	CreatedAt  time.Time `json:"createdAt"`
}
