package validation

import (
	"strings"
	"unicode"

	"github.com/goliatone/go-entityform/pkg/model"
)

// Mobile number policy: exactly PhoneDigits digits, starting with PhonePrefix
// and followed by one of PhoneSecondDigits.
const (
	PhoneDigits       = 9
	PhonePrefix       = '7'
	PhoneSecondDigits = "1378"
)

// PhoneFailure identifies which ordered phone check rejected a value.
type PhoneFailure int

const (
	PhoneOK PhoneFailure = iota
	PhoneBadLength
	PhoneBadPrefix
	PhoneBadSecondDigit
)

// CheckPhone runs the phone checks in order (length, first digit, second
// digit) on the whitespace-stripped value and reports the first failure.
func CheckPhone(raw string) PhoneFailure {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if len(digits) != PhoneDigits || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return PhoneBadLength
	}
	if rune(digits[0]) != PhonePrefix {
		return PhoneBadPrefix
	}
	if !strings.ContainsRune(PhoneSecondDigits, rune(digits[1])) {
		return PhoneBadSecondDigit
	}
	return PhoneOK
}

// Phone validates mobile numbers with a distinct message per failed check.
func (b *Builder) Phone(label string) model.RuleSet {
	allowed := strings.Join(strings.Split(PhoneSecondDigits, ""), ", ")
	messages := map[PhoneFailure]string{
		PhoneBadLength: b.msg("validation.phone.length", "{label} must contain exactly {digits} digits",
			map[string]any{"label": label, "digits": PhoneDigits}),
		PhoneBadPrefix: b.msg("validation.phone.prefix", "{label} must start with {prefix}",
			map[string]any{"label": label, "prefix": string(PhonePrefix)}),
		PhoneBadSecondDigit: b.msg("validation.phone.secondDigit", "{label} must continue with one of {allowed}",
			map[string]any{"label": label, "allowed": allowed}),
	}

	return b.Check(func(value any, _ model.Values) string {
		s, ok := presentString(value)
		if !ok {
			return ""
		}
		return messages[CheckPhone(s)]
	})
}
