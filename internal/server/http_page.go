package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alfredjeanlab/givecal/internal/board"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/selection"
	"github.com/alfredjeanlab/givecal/internal/share"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	// Payment links use the app's own scheme, which html/template would
	// otherwise replace. They are built from escaped components only.
	"link": func(s string) template.URL { return template.URL(s) },
}).ParseFS(templateFS, "templates/*.html"))

// pageCell is a cell as the calendar page renders it.
type pageCell struct {
	ID        string
	Label     string
	Amount    string
	Aria      string
	Any       bool
	Pledged   bool
	Pledger   string
	Clickable bool
}

type calendarView struct {
	Title   string
	Share   share.Payload
	Synced  bool
	Rows    [][]pageCell
	Pledged int
	Total   string
}

type dialogView struct {
	Title    string
	Cell     pageCell
	Subtitle string
	Amount   string
	Name     string
	Links    paylink.Links
	Error    string
}

type payView struct {
	Title      string
	Links      paylink.Links
	FallbackMS int64
}

func (s *CalendarServer) pageCell(c model.Cell) pageCell {
	return pageCell{
		ID:        c.ID,
		Label:     c.Label(),
		Amount:    c.AmountText(),
		Aria:      c.AriaLabel(),
		Any:       c.IsAny(),
		Pledged:   c.Status.IsPledged(),
		Pledger:   c.Status.Name,
		Clickable: !c.Status.IsPledged() || !s.Synced(),
	}
}

func (s *CalendarServer) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("rendering page", "template", name, "error", err)
	}
}

// handleCalendarPage handles GET /.
func (s *CalendarServer) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	rows := s.board.Rows()
	view := calendarView{
		Title:  s.fundraiser.Title,
		Share:  s.sharePayload(r),
		Synced: s.Synced(),
		Rows:   make([][]pageCell, len(rows)),
	}
	for i, row := range rows {
		for _, c := range row {
			view.Rows[i] = append(view.Rows[i], s.pageCell(c))
		}
	}
	n, total := s.board.Totals()
	view.Pledged, view.Total = n, paylink.FormatUSD(total)
	s.render(w, http.StatusOK, "calendar.html", view)
}

// openSelection starts a selection on the cell named in the URL. It writes
// the error response itself and returns nil when the cell cannot be opened.
func (s *CalendarServer) openSelection(w http.ResponseWriter, r *http.Request) (*selection.Controller, model.Cell) {
	cell, ok := s.board.Cell(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return nil, model.Cell{}
	}
	ctl := selection.New(s.composer, !s.Synced())
	if err := ctl.Open(cell); err != nil {
		s.render(w, http.StatusConflict, "dialog.html", dialogView{
			Title: s.fundraiser.Title,
			Cell:  s.pageCell(cell),
			Error: err.Error(),
		})
		return nil, cell
	}
	return ctl, cell
}

func (s *CalendarServer) dialog(ctl *selection.Controller, cell model.Cell, errMsg string) dialogView {
	return dialogView{
		Title:    s.fundraiser.Title,
		Cell:     s.pageCell(cell),
		Subtitle: ctl.Subtitle(),
		Amount:   ctl.Amount(),
		Name:     ctl.Name(),
		Links:    ctl.Links(),
		Error:    errMsg,
	}
}

// handleDialogPage handles GET /cells/{id}.
func (s *CalendarServer) handleDialogPage(w http.ResponseWriter, r *http.Request) {
	ctl, cell := s.openSelection(w, r)
	if ctl == nil {
		return
	}
	s.render(w, http.StatusOK, "dialog.html", s.dialog(ctl, cell, ""))
}

// handlePledgeForm handles POST /cells/{id}/pledge.
//
// A valid pledge is recorded on the board and the visitor is sent on to
// payment. A failed shared write is logged by the board and does not stop
// the payment: the cell simply stays open.
func (s *CalendarServer) handlePledgeForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctl, cell := s.openSelection(w, r)
	if ctl == nil {
		return
	}
	ctl.SetAmount(r.PostFormValue("amount"))
	ctl.SetName(r.PostFormValue("name"))

	intent, err := ctl.Confirm()
	if err != nil {
		s.render(w, http.StatusUnprocessableEntity, "dialog.html", s.dialog(ctl, cell, err.Error()))
		return
	}

	if _, err := s.board.Confirm(r.Context(), intent); err != nil && !errors.Is(err, board.ErrNotRecorded) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Link", "<"+intent.Links.Profile+">; rel=alternate")
	if paylink.Classify(r.UserAgent()) == paylink.Mobile {
		s.render(w, http.StatusOK, "pay.html", payView{
			Title:      s.fundraiser.Title,
			Links:      intent.Links,
			FallbackMS: s.fallbackDelay.Milliseconds(),
		})
		return
	}
	http.Redirect(w, r, intent.Links.Web, http.StatusSeeOther)
}
