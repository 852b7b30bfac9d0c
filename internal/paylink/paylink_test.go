package paylink

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayPtr(n int) *int { return &n }

func TestNote(t *testing.T) {
	c := New("alice", "Give")
	for _, tc := range []struct {
		name string
		day  *int
		who  string
		want string
	}{
		{"day and name", dayPtr(2), "Sam", "Give — Day 2 — from Sam"},
		{"any no name", nil, "", "Give"},
		{"any with name", nil, "Sam", "Give — from Sam"},
		{"day no name", dayPtr(14), "  ", "Give — Day 14"},
	} {
		assert.Equal(t, tc.want, c.Note(tc.day, tc.who), tc.name)
	}
}

func TestCompose_DayScenario(t *testing.T) {
	c := New("alice", "Give")
	links := c.Compose(Draft{Amount: decimal.NewFromInt(2), Day: dayPtr(2), Name: "Sam"})

	assert.Equal(t, "Give — Day 2 — from Sam", links.Note)
	assert.Equal(t, "https://venmo.com/u/alice", links.Profile)

	for _, raw := range []string{links.Deep, links.Web} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "alice", q.Get("recipients"))
		assert.Equal(t, "2", q.Get("amount"))
		assert.Equal(t, "Give — Day 2 — from Sam", q.Get("note"))
	}
	assert.Contains(t, links.Deep, "venmo://paycharge?txn=pay&")
	assert.Contains(t, links.Web, "https://account.venmo.com/pay?recipients=alice")
	assert.Contains(t, links.Web, "note=Give%20%E2%80%94%20Day%202%20%E2%80%94%20from%20Sam")
}

func TestCompose_AnyScenario(t *testing.T) {
	c := New("alice", "Give")
	links := c.Compose(Draft{Amount: decimal.RequireFromString("37.5")})

	assert.Equal(t, "Give", links.Note)
	assert.Contains(t, links.Web, "amount=37.5&note=Give")
	assert.NotContains(t, links.Web, "Day")
}

func TestCompose_EncodesOnce(t *testing.T) {
	c := New("bob smith", "Orchestra & Friends")
	links := c.Compose(Draft{Amount: decimal.NewFromInt(5), Name: "O'Neil (Jr)"})

	assert.Contains(t, links.Web, "recipients=bob%20smith")
	assert.Contains(t, links.Web, "note=Orchestra%20%26%20Friends%20%E2%80%94%20from%20O'Neil%20(Jr)")
	assert.NotContains(t, links.Web, "%25", "note must not be double-encoded")
}

func TestEncodeComponent(t *testing.T) {
	for in, want := range map[string]string{
		"a b":      "a%20b",
		"A-Z_.!~*": "A-Z_.!~*",
		"'()":      "'()",
		"a+b":      "a%2Bb",
		"50%":      "50%25",
		"é":        "%C3%A9",
	} {
		assert.Equal(t, want, EncodeComponent(in), in)
	}
}

func TestPrimary(t *testing.T) {
	l := Links{Deep: "deep", Web: "web"}
	assert.Equal(t, "deep", l.Primary(Mobile))
	assert.Equal(t, "web", l.Primary(Desktop))
}

func TestClassify(t *testing.T) {
	for ua, want := range map[string]Client{
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)":    Mobile,
		"Mozilla/5.0 (Linux; Android 14; Pixel 8)":                  Mobile,
		"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)":             Mobile,
		"mozilla/5.0 (ipod touch)":                                  Mobile,
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0":    Desktop,
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) Safari/605.1": Desktop,
		"": Desktop,
	} {
		assert.Equal(t, want, Classify(ua), ua)
	}
}

func TestFormatUSD(t *testing.T) {
	for in, want := range map[string]string{
		"2":        "$2",
		"37.5":     "$37.5",
		"1234.567": "$1,234.57",
		"1000000":  "$1,000,000",
		"0.1":      "$0.1",
	} {
		assert.Equal(t, want, FormatUSD(decimal.RequireFromString(in)), in)
	}
}
