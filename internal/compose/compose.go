// Package compose turns structured monitoring payloads into flat text
// messages. Payloads are a tagged union selected by the "type" field;
// unknown tags fail closed so nothing half-parsed reaches the queue.
package compose

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPayload is returned for payloads whose structure is not a
// known message format.
var ErrUnsupportedPayload = errors.New("unsupported payload structure")

// Message is the composed notification text.
type Message struct {
	Title string
	Body  string
	Link  string
}

type taggedPayload struct {
	Type string `json:"type"`

	// icinga fields
	State              string   `json:"state"`
	ServiceName        string   `json:"service_name"`
	ServiceDisplayName string   `json:"service_display_name"`
	ServiceHost        string   `json:"service_host"`
	ServiceOutput      string   `json:"service_output"`
	IcingawebURL       string   `json:"icingaweb_url"`
	Owners             []string `json:"owners"`
	OwnerGroups        []string `json:"owner-groups"`

	// generic fields
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Compose renders a structured payload into message text. Plain JSON strings
// pass through unchanged; objects dispatch on their "type" tag.
func Compose(raw json.RawMessage) (Message, error) {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		if strings.TrimSpace(plain) == "" {
			return Message{}, fmt.Errorf("%w: empty message string", ErrUnsupportedPayload)
		}
		return Message{Body: plain}, nil
	}

	var payload taggedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}

	switch payload.Type {
	case "icinga":
		return composeIcinga(payload), nil
	case "generic":
		return composeGeneric(payload)
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrUnsupportedPayload, payload.Type)
	}
}

// composeIcinga formats an Icinga service notification:
//
//	CRITICAL - disk (web01)
//	DISK CRITICAL - free space: / 498 MB (2%)
//	Direkt-Link: https://icinga.example.org/...
//	Notification to: alice, ops-group
func composeIcinga(p taggedPayload) Message {
	service := p.ServiceName
	if p.ServiceDisplayName != "" {
		service = p.ServiceDisplayName
	}

	lines := []string{
		fmt.Sprintf("%s - %s (%s)", p.State, service, p.ServiceHost),
		p.ServiceOutput,
		fmt.Sprintf("Direkt-Link: %s", p.IcingawebURL),
		notificationFooter(p.Owners, p.OwnerGroups),
	}

	return Message{
		Title: fmt.Sprintf("%s - %s", p.State, service),
		Body:  strings.Join(lines, "\n"),
		Link:  p.IcingawebURL,
	}
}

func notificationFooter(owners, groups []string) string {
	if len(owners) == 0 && len(groups) == 0 {
		return "Notification to: admins (default)"
	}

	parts := make([]string, 0, len(owners)+len(groups))
	parts = append(parts, owners...)
	for _, g := range groups {
		parts = append(parts, g+"-group")
	}
	return "Notification to: " + strings.Join(parts, ", ")
}

func composeGeneric(p taggedPayload) (Message, error) {
	if strings.TrimSpace(p.Message) == "" {
		return Message{}, fmt.Errorf("%w: generic payload without message", ErrUnsupportedPayload)
	}
	return Message{
		Title: p.Title,
		Body:  p.Message,
		Link:  p.Link,
	}, nil
}
