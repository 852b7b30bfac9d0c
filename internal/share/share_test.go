package share

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheet struct {
	err  error
	seen []Payload
}

func (f *fakeSheet) Share(_ context.Context, p Payload) error {
	f.seen = append(f.seen, p)
	return f.err
}

type fakeClipboard struct {
	err  error
	text string
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

var payload = Payload{Title: "Giving Calendar", Text: "Pick a day", URL: "https://cal.example/"}

func TestShare_UsesSheet(t *testing.T) {
	sheet, cb := &fakeSheet{}, &fakeClipboard{}
	msg, err := Share(context.Background(), payload, sheet, cb)
	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Equal(t, []Payload{payload}, sheet.seen)
	assert.Empty(t, cb.text)
}

func TestShare_FallsBackToClipboard(t *testing.T) {
	for name, sheet := range map[string]Sheet{
		"NoSheet":     nil,
		"SheetFailed": &fakeSheet{err: errors.New("dismissed")},
	} {
		t.Run(name, func(t *testing.T) {
			cb := &fakeClipboard{}
			msg, err := Share(context.Background(), payload, sheet, cb)
			require.NoError(t, err)
			assert.Equal(t, SharedMessage, msg)
			assert.Equal(t, payload.URL, cb.text)
		})
	}
}

func TestShare_ClipboardFailure(t *testing.T) {
	_, err := Share(context.Background(), payload, nil, &fakeClipboard{err: errors.New("no display")})
	assert.ErrorContains(t, err, "no display")
}

func TestCopyLink(t *testing.T) {
	cb := &fakeClipboard{}
	msg, err := CopyLink("https://cal.example/", cb)
	require.NoError(t, err)
	assert.Equal(t, CopiedMessage, msg)
	assert.Equal(t, "https://cal.example/", cb.text)
}
