package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	TypeAstrology = "astrology"
	TypeVastu     = "vastu"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DateLayout is the wire and storage format for consultation and slot dates.
	DateLayout = "2006-01-02"

	// TimestampLayout is used for human-facing exports.
	TimestampLayout = "2006-01-02 15:04:05"

	// DefaultCatalogCacheTTL is the stotra catalog cache lifetime in seconds.
	DefaultCatalogCacheTTL = 10 * 60

	// WorkerQueueSize bounds the sheets sync queue.
	WorkerQueueSize = 128

	// RateLimitRequests per RateLimitWindow seconds for the shared limiter.
	RateLimitRequests = 60
	RateLimitWindow   = 60
)

var statuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCancelled: true,
}

var consultationTypes = map[string]bool{
	TypeAstrology: true,
	TypeVastu:     true,
}

// IsValidStatus reports whether s is one of the known consultation statuses.
func IsValidStatus(s string) bool {
	return statuses[s]
}

// IsValidConsultationType reports whether t is one of the offered services.
func IsValidConsultationType(t string) bool {
	return consultationTypes[t]
}

// ConsultationTypeLabel returns the display name of a service kind.
func ConsultationTypeLabel(t string) string {
	if t == TypeAstrology {
		return "Vedic Astrology"
	}
	return "Vastu Nirnaya"
}

// StatusLabel returns the capitalised status used in notifications and exports.
func StatusLabel(s string) string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return s
	}
}
