// Package templates renders the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/inventory/internal/importer"
	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissable error box.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		if code != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-code">Code: %s</p>`, templ.EscapeString(code)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}

// ImportSummary renders the result of a bulk import with one line per
// failed row.
func ImportSummary(s *importer.Summary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class := "import-summary"
		if s.FailedCount > 0 {
			class += " has-errors"
		}

		_, err := fmt.Fprintf(w, `<div class="%s"><p class="import-result">%s</p>`,
			class, templ.EscapeString(s.Text()))
		if err != nil {
			return err
		}

		if s.Cancelled {
			if _, err := io.WriteString(w, `<p class="import-cancelled">Import was cancelled before every row was processed.</p>`); err != nil {
				return err
			}
		}

		if len(s.RowErrors) > 0 {
			if _, err := io.WriteString(w, `<ul class="import-errors">`); err != nil {
				return err
			}
			for _, re := range s.RowErrors {
				_, err := fmt.Fprintf(w, `<li><span class="row">Row %d</span>: %s</li>`,
					re.Row, templ.EscapeString(re.Message))
				if err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul>`); err != nil {
				return err
			}
		}

		_, err = io.WriteString(w, `</div>`)
		return err
	})
}
