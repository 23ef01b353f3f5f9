package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/straja-ai/docshield/internal/lexicon"
	"github.com/straja-ai/docshield/internal/safety"
)

const (
	maxDateLen = 40
	minYear    = 1900
	maxYear    = 2100
)

var (
	numericDateRe = regexp.MustCompile(`^(\d{1,2})([./-])(\d{1,2})([./-])(\d{2}|\d{4})$`)
	namedDateRe   = regexp.MustCompile(`^(\d{1,2})(?:\.|er|st|nd|rd|th)?\s+([^\d\s.,]+)\.?,?\s+(\d{2}|\d{4})$`)
)

// DateValidator accepts day-month-year dates in numeric or month-name form
// and checks the calendar, leap years included.
type DateValidator struct {
	policy Policy
}

func NewDateValidator(p Policy) *DateValidator { return &DateValidator{policy: p} }

func (v *DateValidator) Name() string                  { return "date" }
func (v *DateValidator) EntityType() safety.EntityType { return safety.TypeDate }
func (v *DateValidator) MaxLength() int                { return maxDateLen }

func (v *DateValidator) Validate(text string) Outcome {
	if out, ok := lengthGuard(v.policy, v, text); !ok {
		return out
	}
	s := strings.TrimSpace(text)

	var dayStr, monthStr, yearStr string
	var month int
	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return v.policy.Reject(TierFormatInvalid, "date mixes separators")
		}
		dayStr, monthStr, yearStr = m[1], m[3], m[5]
		month, _ = strconv.Atoi(monthStr)
	} else if m := namedDateRe.FindStringSubmatch(s); m != nil {
		n, ok := lexicon.MonthNumber(m[2])
		if !ok {
			return v.policy.Reject(TierFormatInvalid, fmt.Sprintf("unknown month name %q", m[2]))
		}
		dayStr, yearStr, month = m[1], m[3], n
	} else {
		return v.policy.Reject(TierFormatInvalid, "date does not match a supported format")
	}

	day, _ := strconv.Atoi(dayStr)
	year, _ := strconv.Atoi(yearStr)
	twoDigit := len(yearStr) == 2
	if twoDigit {
		year = expandTwoDigitYear(year)
	}

	if month < 1 || month > 12 {
		return v.policy.Reject(TierValidationFailed, "month out of range")
	}
	if year < minYear || year > maxYear {
		return v.policy.Reject(TierValidationFailed, fmt.Sprintf("year outside %d-%d", minYear, maxYear))
	}
	if day < 1 || day > daysIn(month, year) {
		return v.policy.Reject(TierValidationFailed, "day out of range for month")
	}
	if twoDigit {
		return v.policy.Accept(TierUncertain)
	}
	return v.policy.Accept(TierFormatVerified)
}

// expandTwoDigitYear maps 00-49 to 2000-2049 and 50-99 to 1950-1999.
func expandTwoDigitYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysIn(month, year int) int {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}
