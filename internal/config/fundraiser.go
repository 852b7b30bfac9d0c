package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// PlaceholderStoreURL is the value shipped in the sample fundraiser file.
// Leaving it in place keeps the calendar in local-only mode.
const PlaceholderStoreURL = "YOUR_DATABASE_URL"

// Fundraiser describes one giving calendar.
type Fundraiser struct {
	Title         string       `toml:"title"`
	ShareText     string       `toml:"share_text"`
	VenmoUsername string       `toml:"venmo_username"`
	NotePrefix    string       `toml:"note_prefix"`
	Layout        model.Layout `toml:"layout"`
	Store         StoreConfig  `toml:"store"`
}

// StoreConfig holds the shared pledge store credentials.
type StoreConfig struct {
	URL string `toml:"url"`
}

// DefaultFundraiser is used when no fundraiser file exists: a 4x7 calendar
// of days 1..24 with an any-amount box closing each row.
func DefaultFundraiser() *Fundraiser {
	f := &Fundraiser{
		Title:      "Giving Calendar",
		ShareText:  "Pick a day and give that amount 💛",
		NotePrefix: "Give",
	}
	day := 1
	for range 4 {
		row := make([]model.Specifier, 0, 7)
		for range 6 {
			row = append(row, model.DaySpec(day))
			day++
		}
		row = append(row, model.AnySpec())
		f.Layout = append(f.Layout, row)
	}
	return f
}

// LoadFundraiser reads the fundraiser TOML file at path ("~" is expanded).
// A missing file yields DefaultFundraiser.
func LoadFundraiser(path string) (*Fundraiser, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", path, err)
	}
	var f Fundraiser
	md, err := toml.DecodeFile(expanded, &f)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultFundraiser(), nil
		}
		return nil, fmt.Errorf("reading fundraiser %s: %w", path, err)
	}

	def := DefaultFundraiser()
	if !md.IsDefined("layout") {
		f.Layout = def.Layout
	}
	if !md.IsDefined("note_prefix") {
		f.NotePrefix = def.NotePrefix
	}
	if f.Title == "" {
		f.Title = def.Title
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fundraiser %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks the fields the calendar cannot run without. Layout shape
// is not validated beyond being non-empty.
func (f *Fundraiser) Validate() error {
	if len(f.Layout) == 0 || f.Layout.Count() == 0 {
		return errors.New("layout is empty")
	}
	return nil
}

// StoreURL returns the effective store URL: override when set, otherwise the
// file's [store] url. A placeholder or empty value yields "".
func (f *Fundraiser) StoreURL(override string) string {
	u := strings.TrimSpace(override)
	if u == "" {
		u = strings.TrimSpace(f.Store.URL)
	}
	if u == PlaceholderStoreURL || strings.HasPrefix(u, "YOUR_") {
		return ""
	}
	return u
}
