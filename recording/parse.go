package recording

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// audioExtRe matches the known recorder output extensions. Names
	// without a recognized extension are still parsed in full; some
	// devices write recordings without one.
	audioExtRe = regexp.MustCompile(`(?i)\.(mp3|m4a|wav|amr|3gp|aac)$`)

	// delimitedPhoneRe matches the recorder convention <digits>~<rest>.
	delimitedPhoneRe = regexp.MustCompile(`^(\d+)~`)

	// leadingDigitsRe is the fallback when no ~ delimiter is present.
	leadingDigitsRe = regexp.MustCompile(`^(\d+)`)

	// timestampRe matches the _YYYYMMDDHHMMSS run recorders embed.
	timestampRe = regexp.MustCompile(`_(\d{14})`)
)

// IsAudioFile reports whether the name carries a known audio extension.
func IsAudioFile(name string) bool {
	return audioExtRe.MatchString(name)
}

// Parse extracts phone number, capture time and call type from a
// recording filename. It is total: any field the name does not yield is
// left at its zero value, because partial information is preferable to
// rejecting the file.
func Parse(fileName string) Meta {
	// Filesystems on some devices report decomposed Unicode; normalize
	// so parsing and identity keys are stable across copies.
	name := norm.NFC.String(fileName)
	base := audioExtRe.ReplaceAllString(name, "")

	meta := Meta{CallType: classifyCallType(name)}

	if m := delimitedPhoneRe.FindStringSubmatch(base); m != nil {
		meta.RawPhoneNumber = m[1]
	} else if m := leadingDigitsRe.FindStringSubmatch(base); m != nil {
		meta.RawPhoneNumber = m[1]
	}

	if meta.RawPhoneNumber != "" {
		meta.DisplayPhoneNumber = FormatPhoneNumber(meta.RawPhoneNumber)
	}

	if m := timestampRe.FindStringSubmatch(base); m != nil {
		meta.CapturedAt = decodeTimestamp(m[1])
		meta.Timestamp = meta.CapturedAt.Format("2006-01-02 15:04:05")
		meta.DisplayDate = meta.CapturedAt.Format("02 Jan 2006")
		meta.DisplayTime = meta.CapturedAt.Format("03:04:05 PM")
	}

	return meta
}

// decodeTimestamp turns a 14-digit YYYYMMDDHHMMSS run into a local
// date-time. Out-of-range components normalize the way the recorder
// apps themselves do (month 13 rolls into the next year).
func decodeTimestamp(ts string) time.Time {
	year, _ := strconv.Atoi(ts[0:4])
	month, _ := strconv.Atoi(ts[4:6])
	day, _ := strconv.Atoi(ts[6:8])
	hour, _ := strconv.Atoi(ts[8:10])
	minute, _ := strconv.Atoi(ts[10:12])
	second, _ := strconv.Atoi(ts[12:14])

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
}

// classifyCallType inspects the full filename for direction hints.
// Precedence: incoming, outgoing, missed; anything else is a generic
// recorded call.
func classifyCallType(name string) CallType {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "incoming") || strings.Contains(lower, "_in_"):
		return CallTypeIncoming
	case strings.Contains(lower, "outgoing") || strings.Contains(lower, "_out_"):
		return CallTypeOutgoing
	case strings.Contains(lower, "missed"):
		return CallTypeMissed
	default:
		return CallTypeRecorded
	}
}

// FormatPhoneNumber renders a digits-only number for humans. It
// recognizes the 0091 international prefix and the bare 91 country code
// on 12-digit numbers; plain 10-digit numbers get a single grouping
// space after the fifth digit; anything else passes through unchanged.
// Recording numbers and call-log numbers are both formatted with this
// function so displayed values stay comparable.
func FormatPhoneNumber(number string) string {
	switch {
	case strings.HasPrefix(number, "0091"):
		main := number[4:]
		if len(main) == 10 {
			return "+91 " + main[:5] + " " + main[5:]
		}

		return "+91 " + main

	case strings.HasPrefix(number, "91") && len(number) == 12:
		main := number[2:]

		return "+91 " + main[:5] + " " + main[5:]

	case len(number) == 10:
		return number[:5] + " " + number[5:]

	default:
		return number
	}
}

// IdentityKey derives the stable per-file identity used for sync
// dedupe: filename, byte size and canonical timestamp (empty when the
// name has none), underscore-joined. Content-derived on purpose: a copy
// of the same recording with fresh filesystem metadata still collides.
func IdentityKey(fileName string, sizeBytes int64, timestamp string) string {
	return fmt.Sprintf("%s_%d_%s", norm.NFC.String(fileName), sizeBytes, timestamp)
}
