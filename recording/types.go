package recording

import "time"

// CallType classifies a recording by the direction hints in its filename.
type CallType int

const (
	// CallTypeRecorded is the generic type for files whose name carries
	// no direction hint. Distinct from CallTypeUnknown, which is reserved
	// for names that could not be processed at all.
	CallTypeRecorded CallType = iota
	CallTypeIncoming
	CallTypeOutgoing
	CallTypeMissed
	CallTypeUnknown
)

func (t CallType) String() string {
	switch t {
	case CallTypeIncoming:
		return "Incoming"
	case CallTypeOutgoing:
		return "Outgoing"
	case CallTypeMissed:
		return "Missed"
	case CallTypeRecorded:
		return "Recorded Call"
	default:
		return "Unknown"
	}
}

// Meta is the best-effort result of parsing a recording filename.
// Fields the filename did not yield are zero, never errors.
type Meta struct {
	// RawPhoneNumber is the digits-only number parsed from the name,
	// empty when the name does not start with digits.
	RawPhoneNumber string

	// DisplayPhoneNumber is RawPhoneNumber formatted for humans.
	DisplayPhoneNumber string

	// CallType is the direction classification, CallTypeRecorded when
	// no hint is present.
	CallType CallType

	// CapturedAt is the local time decoded from the 14-digit run in the
	// name; zero when absent.
	CapturedAt time.Time

	// Timestamp is CapturedAt in "2006-01-02 15:04:05" form, empty when
	// CapturedAt is zero. Feeds the identity key and the upload payload.
	Timestamp string

	// DisplayDate and DisplayTime are the human forms shown in listings,
	// e.g. "15 Jan 2024" and "02:30:22 PM".
	DisplayDate string
	DisplayTime string
}

// File represents one audio artifact discovered in the recordings
// directory during a single scan pass.
type File struct {
	FileName string
	Path     string

	Meta

	SizeBytes      int64
	DurationMillis int64

	// IdentityKey is stable across rescans of the same unmodified file:
	// filename, byte size and canonical timestamp joined by underscores.
	IdentityKey string

	// Synced is derived from the sync-state store at scan time.
	Synced bool

	// MatchedCallLogID is set when the matcher links this recording to a
	// call-log record, empty otherwise.
	MatchedCallLogID string
}

// CallLogRecord is a remotely fetched call-log entry eligible to be
// linked to a local recording. Only the fields used for matching are
// decoded; the rest of the record stays on the server.
type CallLogRecord struct {
	ID           string
	PhoneNumber  string
	CustomerID   string
	StartTime    time.Time
	RecordingURL string
}

// UploadRequest carries one recording to the upload endpoint. The
// identity key doubles as an idempotency token for server-side dedupe,
// though the client never relies on it: the local store is authoritative.
type UploadRequest struct {
	PhoneNumber    string `json:"phone_number"`
	RawPhoneNumber string `json:"raw_phone_number"`
	Timestamp      string `json:"timestamp"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	CallType       string `json:"call_type"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`
	Duration       string `json:"duration"`
	DurationMillis int64  `json:"duration_millis"`
	FileData       string `json:"file_data"`
	FileIdentifier string `json:"file_identifier"`
	UserID         int    `json:"user_id"`
	CallLogID      string `json:"call_log_id,omitempty"`
}

// UploadResult is the server's reply to an upload.
type UploadResult struct {
	Success   bool
	Matched   bool
	CallLogID string
	FileURL   string
	Message   string
}

// Report aggregates the outcome of one orchestration run.
type Report struct {
	// Total is the number of files in the scanned inventory.
	Total int
	// Skipped is how many were already synced and not re-offered.
	Skipped int
	// Succeeded is how many uploads completed in this run.
	Succeeded int
	// Failed is how many uploads errored; they stay unsynced and are
	// eligible for retry on the next run.
	Failed int
	// Matched is how many uploads the server linked to a call log.
	Matched int
}
