// Package sheets defines ports for external invoice sources.
package sheets

import (
	"context"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
)

// InvoiceReader pulls invoice rows from an external document. Rows that
// could not be parsed are reported alongside the good ones; a non-nil
// error means the source itself was unreachable or malformed.
type InvoiceReader interface {
	Rows(ctx context.Context) ([]core.ImportRow, []importer.RowError, error)
}
