// Package paylink builds the outbound peer-payment links for a pledge.
package paylink

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDelimiter joins note segments.
const DefaultDelimiter = " — "

const (
	deepBase    = "venmo://paycharge"
	webBase     = "https://account.venmo.com/pay"
	profileBase = "https://venmo.com/u/"
)

// Composer builds payment links for a single recipient.
type Composer struct {
	Recipient  string
	NotePrefix string
	Delimiter  string
}

// New returns a Composer using the default delimiter.
func New(recipient, notePrefix string) *Composer {
	return &Composer{Recipient: recipient, NotePrefix: notePrefix, Delimiter: DefaultDelimiter}
}

// Draft is the in-progress selection a link is composed from.
type Draft struct {
	Amount decimal.Decimal
	Day    *int
	Name   string
}

// Links is the set of URIs for one payment attempt.
type Links struct {
	Note    string `json:"note"`
	Deep    string `json:"deep"`
	Web     string `json:"web"`
	Profile string `json:"profile"`
}

// Primary returns the link surfaced as the primary action for client.
func (l Links) Primary(c Client) string {
	if c == Mobile {
		return l.Deep
	}
	return l.Web
}

// Note joins the configured prefix, "Day n" for numbered cells and
// "from name" when a name was given.
func (c *Composer) Note(day *int, name string) string {
	delim := c.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	bits := []string{c.NotePrefix}
	if day != nil && *day > 0 {
		bits = append(bits, "Day "+strconv.Itoa(*day))
	}
	if name = strings.TrimSpace(name); name != "" {
		bits = append(bits, "from "+name)
	}
	return strings.Join(bits, delim)
}

// Compose builds the deep, web and profile links for d.
func (c *Composer) Compose(d Draft) Links {
	note := c.Note(d.Day, d.Name)
	enc := EncodeComponent(note)
	recipient := EncodeComponent(c.Recipient)
	amount := d.Amount.String()

	query := "recipients=" + recipient + "&amount=" + amount + "&note=" + enc
	return Links{
		Note:    note,
		Deep:    deepBase + "?txn=pay&" + query,
		Web:     webBase + "?" + query,
		Profile: profileBase + recipient,
	}
}

// EncodeComponent percent-encodes s once, leaving the characters
// encodeURIComponent leaves alone (A-Z a-z 0-9 - _ . ! ~ * ' ( )).
func EncodeComponent(s string) string {
	escaped := url.QueryEscape(s)
	// QueryEscape uses '+' for spaces and escapes a few marks that
	// encodeURIComponent keeps.
	r := strings.NewReplacer("+", "%20", "%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*", "%7E", "~")
	return r.Replace(escaped)
}

// FormatUSD renders amount as US dollars with up to two fraction digits and
// thousands separators: 2 → "$2", 37.5 → "$37.5", 1234.567 → "$1,234.57".
func FormatUSD(amount decimal.Decimal) string {
	s := amount.Round(2).String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := sign + "$" + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}
