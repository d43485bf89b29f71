package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

// ResolvedRow is an import row that matched a therapy type and carries
// its final revenue. Revenue is the vendor-supplied amount when present,
// otherwise sessionCount times the price snapshot taken at import time.
type ResolvedRow struct {
	Row         core.ImportRow
	TherapyType core.TherapyType
	Revenue     core.Money
}

// Resolve matches rows against the reference snapshot by case-insensitive
// exact name. Unmatched rows produce exactly one warning each and are
// excluded; no fuzzy matching, no auto-created therapy types. The
// returned label list names every missing label once, sorted.
func Resolve(rows []core.ImportRow, refs []core.TherapyType) ([]ResolvedRow, []RowWarning, []string) {
	byName := make(map[string]core.TherapyType, len(refs))
	for _, ref := range refs {
		byName[strings.ToLower(strings.TrimSpace(ref.Name))] = ref
	}

	var (
		resolved []ResolvedRow
		warnings []RowWarning
		missing  = map[string]struct{}{}
	)
	for _, row := range rows {
		ref, ok := byName[strings.ToLower(strings.TrimSpace(row.TherapyLabel))]
		if !ok {
			missing[row.TherapyLabel] = struct{}{}
			warnings = append(warnings, RowWarning{
				Row:     row.Line,
				Message: fmt.Sprintf("no therapy type matches label %q", row.TherapyLabel),
				Data:    map[string]string{"label": row.TherapyLabel},
			})
			continue
		}

		computed := core.MultiplyCents(ref.PricePerSession, row.SessionCount)
		revenue := computed
		if row.Revenue != nil {
			// The vendor amount wins over the computed price. When the two
			// disagree by more than one cent per session the caller is told,
			// because the export may carry a stale price.
			revenue = *row.Revenue
			if diff := revenue.Cents - computed.Cents; diff > int64(row.SessionCount) || diff < -int64(row.SessionCount) {
				warnings = append(warnings, RowWarning{
					Row: row.Line,
					Message: fmt.Sprintf("supplied amount %s differs from %d x %s = %s, keeping supplied amount",
						revenue.Format(), row.SessionCount, ref.PricePerSession.Format(), computed.Format()),
					Data: map[string]string{"label": row.TherapyLabel},
				})
			}
		}

		resolved = append(resolved, ResolvedRow{Row: row, TherapyType: ref, Revenue: revenue})
	}

	labels := make([]string, 0, len(missing))
	for label := range missing {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return resolved, warnings, labels
}

// DedupeInvoices drops rows repeating an invoice number already seen in
// the same file. The first occurrence wins; later ones are warned about.
// Rows without an invoice number are never considered duplicates.
func DedupeInvoices(rows []core.ImportRow) ([]core.ImportRow, []RowWarning) {
	seen := make(map[string]int, len(rows))
	var (
		kept     []core.ImportRow
		warnings []RowWarning
	)
	for _, row := range rows {
		num := strings.TrimSpace(row.InvoiceNumber)
		if num == "" {
			kept = append(kept, row)
			continue
		}
		if first, dup := seen[num]; dup {
			warnings = append(warnings, RowWarning{
				Row:     row.Line,
				Message: fmt.Sprintf("duplicate invoice number %q, first seen in row %d", num, first),
				Data:    map[string]string{"invoice_number": num},
			})
			continue
		}
		seen[num] = row.Line
		kept = append(kept, row)
	}
	return kept, warnings
}
