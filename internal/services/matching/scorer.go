package matching

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"ledger-matching-backend/internal/models"
)

// tier maps an upper bound (inclusive) to a component score.
type tier struct {
	max   decimal.Decimal
	score decimal.Decimal
}

var (
	amountWeight   = decimal.RequireFromString("0.55")
	dateWeight     = decimal.RequireFromString("0.35")
	referenceBonus = decimal.RequireFromString("0.20")
	maxConfidence  = decimal.RequireFromString("0.99")

	amountTiers = []tier{
		{decimal.RequireFromString("0.01"), decimal.RequireFromString("0.98")},
		{decimal.RequireFromString("0.10"), decimal.RequireFromString("0.90")},
		{decimal.RequireFromString("1.00"), decimal.RequireFromString("0.75")},
	}
	amountFallback = decimal.RequireFromString("0.40")

	dateTiers = []tier{
		{decimal.NewFromInt(2), decimal.RequireFromString("0.95")},
		{decimal.NewFromInt(7), decimal.RequireFromString("0.85")},
		{decimal.NewFromInt(14), decimal.RequireFromString("0.70")},
	}
	dateFallback = decimal.RequireFromString("0.40")
	dateUnknown  = decimal.RequireFromString("0.50")
)

// Evaluation is the scored comparison of one transaction and one ledger
// entry.
type Evaluation struct {
	Confidence     float64
	AmountScore    float64
	DateScore      float64
	ReferenceBonus float64
	AmountDiff     decimal.Decimal
	DayDiff        int // -1 when either date is unknown
	Reference      string
	Reasons        []string
}

// Score returns the blended confidence in [0, 0.99].
func Score(txn *models.Transaction, entry *models.LedgerEntry) float64 {
	return Evaluate(txn, entry).Confidence
}

// Evaluate scores txn against entry: amount proximity weighted 0.55, date
// proximity weighted 0.35, plus a flat bonus when both carry the same
// document reference. The result is rounded to two places and capped at
// 0.99.
func Evaluate(txn *models.Transaction, entry *models.LedgerEntry) Evaluation {
	var ev Evaluation

	ev.AmountDiff = txn.Amount.Abs().Sub(entry.GrossAmount.Abs()).Abs()
	amount := pickTier(ev.AmountDiff, amountTiers, amountFallback)

	date := dateUnknown
	ev.DayDiff = -1
	if days, ok := dayDiff(txn.PostedAt, entry.EntryDate); ok {
		ev.DayDiff = days
		date = pickTier(decimal.NewFromInt(int64(days)), dateTiers, dateFallback)
	}

	bonus := decimal.Zero
	txnRef := transactionReference(txn)
	entryRef := ExtractReference(entry.Description)
	if SameReference(txnRef, entryRef) {
		bonus = referenceBonus
		ev.Reference = entryRef
	}

	raw := amount.Mul(amountWeight).Add(date.Mul(dateWeight)).Add(bonus)
	final := decimal.Min(maxConfidence, raw.Round(2))
	if final.IsNegative() {
		final = decimal.Zero
	}

	ev.Confidence = final.InexactFloat64()
	ev.AmountScore = amount.InexactFloat64()
	ev.DateScore = date.InexactFloat64()
	ev.ReferenceBonus = bonus.InexactFloat64()
	ev.Reasons = reasons(ev)
	return ev
}

func pickTier(v decimal.Decimal, tiers []tier, fallback decimal.Decimal) decimal.Decimal {
	for _, t := range tiers {
		if v.LessThanOrEqual(t.max) {
			return t.score
		}
	}
	return fallback
}

// dayDiff is the absolute number of calendar days between the posting
// date (UTC) and the entry date.
func dayDiff(posted time.Time, entryDate string) (int, bool) {
	if posted.IsZero() {
		return 0, false
	}
	entry, ok := models.ParseEntryDate(entryDate)
	if !ok {
		return 0, false
	}
	days := civil.DateOf(posted.UTC()).DaysSince(entry)
	if days < 0 {
		days = -days
	}
	return days, true
}

func transactionReference(txn *models.Transaction) string {
	if ref := ExtractReference(txn.Description); ref != "" {
		return ref
	}
	return ExtractReference(txn.Counterparty)
}

func reasons(ev Evaluation) []string {
	out := []string{
		fmt.Sprintf("amount_diff=%s (score %.2f)", ev.AmountDiff.StringFixed(2), ev.AmountScore),
	}
	if ev.DayDiff >= 0 {
		out = append(out, fmt.Sprintf("date_diff_days=%d (score %.2f)", ev.DayDiff, ev.DateScore))
	} else {
		out = append(out, fmt.Sprintf("date_unknown (score %.2f)", ev.DateScore))
	}
	if ev.Reference != "" {
		out = append(out, "reference_match="+ev.Reference)
	}
	return out
}
