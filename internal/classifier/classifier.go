// Package classifier maps free-text transaction type names to settlement
// kinds. Type names are configured per correspondent in the back office and
// arrive with inconsistent casing, accents and punctuation, so matching runs
// over a normalized form against a fixed vocabulary.
package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/maobits/coban365-sub000/internal/domain"
)

// vocabulary maps canonical normalized phrases to settlement kinds. This is a
// business constant: anything outside it is Unknown and blocks the movement.
var vocabulary = map[string]domain.SettlementKind{
	"pago a tercero":       domain.KindDebtToThirdParty,
	"pago a terceros":      domain.KindDebtToThirdParty,
	"pago de tercero":      domain.KindChargeToThirdParty,
	"pago de terceros":     domain.KindChargeToThirdParty,
	"prestamo a tercero":   domain.KindLoanToThirdParty,
	"prestamo a terceros":  domain.KindLoanToThirdParty,
	"prestamo de tercero":  domain.KindLoanFromThirdParty,
	"prestamo de terceros": domain.KindLoanFromThirdParty,
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases the name, decomposes it and strips combining
// diacritics, drops non-word non-space runes and collapses whitespace. The
// fee table shares this so "Transferencia" and "transferencia " agree.
func Normalize(name string) string {
	s := strings.ToLower(name)

	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Classify resolves a transaction type name to its settlement kind. It is
// pure: the same name always yields the same kind. Unmatched names yield
// KindUnknown.
func Classify(name string) domain.SettlementKind {
	if kind, ok := vocabulary[Normalize(name)]; ok {
		return kind
	}
	return domain.KindUnknown
}
