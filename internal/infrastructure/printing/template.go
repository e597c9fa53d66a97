package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	apptrade "github.com/pharmanet/backend/internal/application/trade"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

// NoteTemplate renders delivery notes to HTML, formatting amounts and names
// for one locale
type NoteTemplate struct {
	tmpl     *template.Template
	lang     language.Tag
	printer  *message.Printer
	caser    cases.Caser
	currency currency.Unit
}

type noteView struct {
	Note        *apptrade.DeliveryNote
	Lang        string
	ShortID     string
	StatusLabel string
}

// NewNoteTemplate parses the embedded template for locale and an ISO 4217
// currency code
func NewNoteTemplate(locale, currencyCode string) (*NoteTemplate, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}

	t := &NoteTemplate{
		lang:     tag,
		printer:  message.NewPrinter(tag),
		caser:    cases.Title(tag),
		currency: unit,
	}
	t.tmpl, err = template.New("delivery_note.html").Funcs(template.FuncMap{
		"money": t.money,
		"date":  t.date,
		"title": t.title,
		"inc":   func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/delivery_note.html")
	if err != nil {
		return nil, fmt.Errorf("parse delivery note template: %w", err)
	}
	return t, nil
}

// Render produces the complete HTML document for note
func (t *NoteTemplate) Render(note *apptrade.DeliveryNote) (string, error) {
	view := noteView{
		Note:        note,
		Lang:        t.lang.String(),
		ShortID:     strings.ToUpper(note.OrderID.String()[:8]),
		StatusLabel: t.title(strings.ReplaceAll(strings.ToLower(note.Status), "_", " ")),
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render delivery note template: %w", err)
	}
	return buf.String(), nil
}

func (t *NoteTemplate) money(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	symbol := t.printer.Sprint(currency.Symbol(t.currency))
	return symbol + " " + t.printer.Sprint(number.Decimal(f, number.Scale(2)))
}

func (t *NoteTemplate) date(ts time.Time) string {
	return ts.Format("02/01/2006 15:04")
}

func (t *NoteTemplate) title(s string) string {
	return t.caser.String(s)
}
