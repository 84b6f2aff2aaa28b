package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"

	"github.com/GTDGit/gtd_stock/internal/utils"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// ClockIn returns a Clock reporting wall time in loc.
func ClockIn(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

// resolveID rejects identifiers that cannot exist in the store.
func resolveID(kind, id string) error {
	if uuid.Validate(id) != nil {
		return fmt.Errorf("%w: %s %q", utils.ErrNotFound, kind, id)
	}
	return nil
}

// normalizePhone returns raw in E.164 form when it parses as a valid number
// for region, or raw unchanged otherwise.
func normalizePhone(raw, region string) string {
	num, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

// optional trims s and returns nil when nothing is left.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Widths of the bounded text columns.
const (
	maxCodeLen  = 64
	maxNameLen  = 255
	maxPhoneLen = 32
)

type bounded struct {
	name  string
	value *string
	max   int
}

func codeField(name string, v *string) bounded  { return bounded{name, v, maxCodeLen} }
func textField(name string, v *string) bounded  { return bounded{name, v, maxNameLen} }
func phoneField(name string, v *string) bounded { return bounded{name, v, maxPhoneLen} }

// checkLengths rejects values wider than the column that stores them.
func checkLengths(fields ...bounded) error {
	for _, f := range fields {
		if f.value != nil && utf8.RuneCountInString(*f.value) > f.max {
			return fmt.Errorf("%w: %s longer than %d characters", utils.ErrValidation, f.name, f.max)
		}
	}
	return nil
}
