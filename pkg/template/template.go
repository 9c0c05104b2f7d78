// Package template renders notification messages against booking data.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/residentdesk/facilityflow/pkg/models"
)

// NeedsTemplating reports whether input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// BookingData builds the template data for a booking run.
func BookingData(booking *models.Booking, workflow *models.Workflow) map[string]any {
	data := map[string]any{
		"booking": map[string]any{
			"id":         booking.ID,
			"facility":   booking.Facility,
			"status":     string(booking.Status),
			"start_time": formatTime(booking.StartTime),
			"end_time":   formatTime(booking.EndTime),
			"user": map[string]any{
				"name":  booking.User.Name,
				"email": booking.User.Email,
				"phone": booking.User.Phone,
			},
		},
	}

	if workflow != nil {
		data["workflow"] = map[string]any{
			"id":   workflow.ID,
			"name": workflow.Name,
		}
	}

	return data
}

// RenderWithBooking renders a message template. Both dotted data access
// ({{.booking.facility}}) and the builder's shorthand placeholders
// ({{bookingId}}, {{facility}}, {{status}}, {{userName}}) are supported.
func RenderWithBooking(input string, booking *models.Booking, workflow *models.Workflow) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	return Render(input, BookingData(booking, workflow), shorthands(booking))
}

// Check parses a booking message template without rendering it. Unknown
// placeholders such as {{userEmail}} are reported here instead of when a
// notification is about to be sent.
func Check(input string) error {
	if !NeedsTemplating(input) {
		return nil
	}

	_, err := parse(input, shorthands(&models.Booking{}))

	return err
}

func shorthands(booking *models.Booking) template.FuncMap {
	return template.FuncMap{
		"bookingId": func() string { return booking.ID },
		"facility":  func() string { return booking.Facility },
		"status":    func() string { return string(booking.Status) },
		"userName":  func() string { return booking.User.Name },
	}
}

// Render executes templateStr against data with the built-in functions plus extra.
func Render(templateStr string, data any, extra template.FuncMap) (string, error) {
	tmpl, err := parse(templateStr, extra)
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

func parse(templateStr string, extra template.FuncMap) (*template.Template, error) {
	funcs := template.FuncMap{
		"now": func() string {
			return time.Now().UTC().Format(time.RFC3339)
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}

	for name, fn := range extra {
		funcs[name] = fn
	}

	tmpl, err := template.
		New("message").
		Option("missingkey=zero").
		Funcs(funcs).
		Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	return tmpl, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}
