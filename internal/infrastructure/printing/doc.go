// Package printing renders delivery notes to PDF: an embedded html/template
// formats the note for a locale and headless Chrome prints it through the
// DevTools protocol.
package printing
