// Package dealid derives human-readable deal identifiers of the form
// PREFIX-DDMMYY-NNN, e.g. ACME-051225-001.
//
// The sequence number counts rows already recorded on the same calendar
// day, so the result depends on the snapshot passed in. Two callers holding
// the same stale snapshot get the same id.
package dealid

import (
	"fmt"
	"strings"
	"time"

	"exchange-ledger/internal/models"
)

const (
	prefixLength   = 4
	prefixFiller   = "X"
	fallbackPrefix = "DEAL"
	dateLayout     = "2006-01-02"
)

// Generator produces deal ids. Clock supplies the default date when none is given.
type Generator struct {
	Clock func() time.Time
}

// NewGenerator creates a Generator using the local wall clock.
func NewGenerator() *Generator {
	return &Generator{Clock: time.Now}
}

// Generate returns PREFIX-DATECODE-COUNTER for the customer on txDate given
// the rows that already exist. An empty or unparsable txDate means today.
func (g *Generator) Generate(customer, txDate string, existing []models.Transaction) string {
	date := g.resolveDate(txDate)
	dateKey := date.Format(dateLayout)

	sameDay := 0
	for _, tx := range existing {
		if tx.DateKey() == dateKey {
			sameDay++
		}
	}

	return fmt.Sprintf("%s-%s-%03d", Prefix(customer), DateCode(date), sameDay+1)
}

func (g *Generator) resolveDate(txDate string) time.Time {
	if d, err := time.Parse(dateLayout, models.DateKey(strings.TrimSpace(txDate))); err == nil {
		return d
	}
	clock := g.Clock
	if clock == nil {
		clock = time.Now
	}
	return clock()
}

// Prefix uppercases the customer name, keeps only A-Z, and fits the result
// to four letters, padding with X. A name with no letters yields DEAL.
func Prefix(customer string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(customer) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}

	letters := b.String()
	switch {
	case letters == "":
		return fallbackPrefix
	case len(letters) >= prefixLength:
		return letters[:prefixLength]
	default:
		return letters + strings.Repeat(prefixFiller, prefixLength-len(letters))
	}
}

// DateCode reorders a date into DDMMYY.
func DateCode(date time.Time) string {
	return date.Format("020106")
}
