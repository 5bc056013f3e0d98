// Package formats recognizes well-known string formats such as dates,
// e-mail addresses, IP addresses and URIs.
package formats

import "regexp"

// Format is the name of a recognized string format.
type Format string

// Known formats, named after their JSON Schema counterparts.
const (
	DateTime            Format = "date-time"
	Time                Format = "time"
	Date                Format = "date"
	Duration            Format = "duration"
	Email               Format = "email"
	IDNEmail            Format = "idn-email"
	IPv4                Format = "ipv4"
	IPv6                Format = "ipv6"
	UUID                Format = "uuid"
	URI                 Format = "uri"
	URIReference        Format = "uri-reference"
	IRI                 Format = "iri"
	IRIReference        Format = "iri-reference"
	URITemplate         Format = "uri-template"
	JSONPointer         Format = "json-pointer"
	RelativeJSONPointer Format = "relative-json-pointer"
	Regex               Format = "regex"
)

// Patterns shared by more than one format.
var (
	dateTimeRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`)                                // 2006-01-02T15:04:05
	timeRegex     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)                                                  // 15:04:05
	dateRegex     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)                                                  // 2006-01-02
	durationRegex = regexp.MustCompile(`^P(\d+Y)?(\d+M(\d+D)?)?(T(\d+H)?(\d+M)?(\d+S)?)?$`)                    // P1Y2M3DT4H5M6S
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)                   // user@example.com
	ipv4Regex     = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)                                 // 192.168.0.1, octets unchecked
	ipv6Regex     = regexp.MustCompile(`^[0-9a-fA-F:]+$`)                                                      // fe80::1
	uuidRegex     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	uriRegex      = regexp.MustCompile(`^[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+$`)
	iriRegex      = regexp.MustCompile(`^[^\s\x00-\x1f\x7f]+$`)
	pointerRegex  = regexp.MustCompile(`^(/[^/]+)+$`)
	relPtrRegex   = regexp.MustCompile(`^[^/]+(/[^/]+)*$`)
	anyRegex      = regexp.MustCompile(`(?s)^.*$`)
)

type matcher struct {
	format Format
	regex  *regexp.Regexp
}

// table is evaluated top to bottom. Several patterns overlap (uuid strings are
// also valid uri strings, almost everything is a relative-json-pointer), so
// the order decides the result. Never reorder it.
var table = [...]matcher{
	{DateTime, dateTimeRegex},
	{Time, timeRegex},
	{Date, dateRegex},
	{Duration, durationRegex},
	{Email, emailRegex},
	{IDNEmail, emailRegex},
	{IPv4, ipv4Regex},
	{IPv6, ipv6Regex},
	{UUID, uuidRegex},
	{URI, uriRegex},
	{URIReference, uriRegex},
	{IRI, iriRegex},
	{IRIReference, iriRegex},
	{URITemplate, uriRegex},
	{JSONPointer, pointerRegex},
	{RelativeJSONPointer, relPtrRegex},
	{Regex, anyRegex},
}

// Classify returns the first format in priority order that matches the whole
// of s. Because regex matches anything, every non-empty string gets a format.
// The empty string is reported as unclassified.
func Classify(s string) (Format, bool) {
	if s == "" {
		return "", false
	}
	for _, m := range table {
		if m.regex.MatchString(s) {
			return m.format, true
		}
	}
	return "", false
}

// Formats returns every known format in priority order.
func Formats() []Format {
	out := make([]Format, len(table))
	for i, m := range table {
		out[i] = m.format
	}
	return out
}
