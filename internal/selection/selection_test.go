package selection

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/givecal/internal/grid"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
)

// scenarioGrid is the layout [[1,2,"any"]].
func scenarioGrid() *grid.Grid {
	return grid.Build(model.Layout{{model.DaySpec(1), model.DaySpec(2), model.AnySpec()}})
}

func cell(t *testing.T, g *grid.Grid, id string) model.Cell {
	t.Helper()
	c, ok := g.Lookup(id)
	require.True(t, ok, "cell %s", id)
	return *c
}

func TestOpen_SeedsNominalAmount(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)

	for _, day := range []int{1, 2} {
		require.NoError(t, c.Open(cell(t, g, model.DayID(day))))
		assert.Equal(t, Selecting, c.State())
		assert.Equal(t, decimal.NewFromInt(int64(day)).String(), c.Amount())
	}

	require.NoError(t, c.Open(cell(t, g, "any-1")))
	assert.Empty(t, c.Amount(), "any cells start blank")
}

func TestOpen_ClearsNameAndReplacesSelection(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)

	require.NoError(t, c.Open(cell(t, g, "day-1")))
	c.SetName("Sam")
	require.NoError(t, c.Open(cell(t, g, "day-2")))

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, "day-2", active.ID)
	assert.Empty(t, c.Name())
}

func TestOpen_PledgedGuard(t *testing.T) {
	pledged := model.Cell{ID: "day-1", Kind: model.KindNumbered, Day: 1,
		Status: model.Pledged(decimal.NewFromInt(1), "")}

	synced := New(paylink.New("alice", "Give"), false)
	assert.ErrorIs(t, synced.Open(pledged), ErrCellTaken)
	assert.Equal(t, Idle, synced.State())

	local := New(paylink.New("alice", "Give"), true)
	assert.NoError(t, local.Open(pledged), "local-only mode permits re-pledging")
}

func TestConfirm_RejectsInvalidAmounts(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)
	require.NoError(t, c.Open(cell(t, g, "any-1")))

	for _, amt := range []string{"", "0", "-3", "abc", "NaN", "Infinity", "1/2", "$"} {
		c.SetAmount(amt)
		_, err := c.Confirm()
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amt)
		assert.Equal(t, Selecting, c.State(), "no transition on %q", amt)
		assert.Equal(t, amt, c.Amount(), "buffer kept for re-prompt")
	}
}

func TestConfirm_DayScenario(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)
	require.NoError(t, c.Open(cell(t, g, "day-2")))
	c.SetName("Sam")

	in, err := c.Confirm()
	require.NoError(t, err)
	assert.Equal(t, "day-2", in.Cell.ID)
	assert.True(t, in.Amount.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "Sam", in.Name)
	assert.Equal(t, "Give — Day 2 — from Sam", in.Links.Note)
	assert.Contains(t, in.Links.Web, "amount=2&")

	assert.Equal(t, Idle, c.State())
	assert.Empty(t, c.Amount())
	assert.Empty(t, c.Name())
}

func TestConfirm_AnyScenario(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)
	require.NoError(t, c.Open(cell(t, g, "any-1")))
	c.SetAmount("37.5")

	in, err := c.Confirm()
	require.NoError(t, err)
	assert.Equal(t, "Give", in.Links.Note)
	assert.Equal(t, "37.5", in.Amount.String())
}

func TestConfirm_Idle(t *testing.T) {
	c := New(paylink.New("alice", "Give"), false)
	_, err := c.Confirm()
	assert.ErrorIs(t, err, ErrNotSelecting)
}

func TestCancel(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)
	require.NoError(t, c.Open(cell(t, g, "day-1")))
	c.SetName("Sam")
	c.Cancel()

	assert.Equal(t, Idle, c.State())
	_, ok := c.Active()
	assert.False(t, ok)
	assert.Empty(t, c.Name())
	assert.Empty(t, c.Subtitle())
}

func TestDraft_LivePreview(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)
	require.NoError(t, c.Open(cell(t, g, "any-1")))

	c.SetAmount("12.5")
	assert.Contains(t, c.Links().Web, "amount=12.5&")
	c.SetAmount("oops")
	assert.Contains(t, c.Links().Web, "amount=0&", "unparseable amounts preview as zero")
}

func TestSubtitle(t *testing.T) {
	g := scenarioGrid()
	c := New(paylink.New("alice", "Give"), false)

	require.NoError(t, c.Open(cell(t, g, "day-2")))
	assert.Equal(t, "You picked day 2. That’s $2.", c.Subtitle())

	require.NoError(t, c.Open(cell(t, g, "any-1")))
	assert.Contains(t, c.Subtitle(), "Any amount")
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]string{
		"5":      "5",
		" 7.25 ": "7.25",
		"$10":    "10",
		"1e2":    "100",
	} {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
}
