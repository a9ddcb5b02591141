// Package fixturesite serves a local replica of the insurer's pages the DMS
// check walks through: a home page with the main menu, the DMS product page,
// and the application form it loads on demand. The form carries the same
// phone and date masks, date picker and email validation as the real one, so
// browser tests can run without network access.
package fixturesite

import (
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/kuitang/dms-e2e/internal/mask"
	"github.com/kuitang/dms-e2e/internal/obs"
)

// DefaultRegions are the options of the region select.
var DefaultRegions = []string{
	"Новая Москва",
	"Москва",
	"Московская область",
	"Санкт-Петербург",
	"Магаданская область",
	"Камчатский край",
}

// DefaultMonth is the month the date picker opens on.
var DefaultMonth = time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)

// Application is a form submission the server accepted.
type Application struct {
	LastName    string
	FirstName   string
	MiddleName  string
	Region      string
	Phone       string
	Email       string
	ContactDate string
	Comment     string
}

// Server is the fixture site. The zero value is not usable; call New.
type Server struct {
	Regions []string
	Month   time.Time

	render *renderer

	mu       sync.Mutex
	accepted []Application
	rejected int
}

// New returns a server with the default regions and calendar month.
func New() (*Server, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{Regions: DefaultRegions, Month: DefaultMonth, render: r}, nil
}

// Handler returns the site's routes wrapped in access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return obs.AccessLogMiddleware("fixturesite", mux)
}

// RegisterRoutes registers the site's routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /dms", s.handleDMS)
	mux.HandleFunc("GET /dms/application", s.handleApplicationForm)
	mux.HandleFunc("POST /dms/application", s.handleSubmit)
	mux.Handle("GET /static/", staticHandler())
}

// Accepted returns the submissions that passed server-side validation.
func (s *Server) Accepted() []Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Application(nil), s.accepted...)
}

// Rejected counts submissions refused by server-side validation.
func (s *Server) Rejected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

type formData struct {
	Title    string
	Regions  []string
	Calendar Calendar
}

const formTitle = "Заявка на добровольное медицинское страхование"

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "home.html", map[string]any{"Title": "Росгосстрах"})
}

func (s *Server) handleDMS(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "dms.html", map[string]any{"Title": "ДМС"})
}

func (s *Server) handleApplicationForm(w http.ResponseWriter, r *http.Request) {
	data := formData{Title: formTitle, Regions: s.Regions, Calendar: NewCalendar(s.Month)}
	if err := s.render.fragment(w, "application.html", data); err != nil {
		obs.From(r.Context()).Error("render_failed", "pkg", "fixturesite", "template", "application.html", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := s.render.page(w, name, data); err != nil {
		obs.From(r.Context()).Error("render_failed", "pkg", "fixturesite", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	app := Application{
		LastName:    r.PostForm.Get("LastName"),
		FirstName:   r.PostForm.Get("FirstName"),
		MiddleName:  r.PostForm.Get("MiddleName"),
		Region:      r.PostForm.Get("Region"),
		Phone:       r.PostForm.Get("Phone"),
		Email:       r.PostForm.Get("Email"),
		ContactDate: r.PostForm.Get("ContactDate"),
		Comment:     r.PostForm.Get("Comment"),
	}

	if problems := validate(app); len(problems) > 0 {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		obs.From(r.Context()).Info("application_rejected", "pkg", "fixturesite", "problems", problems)
		http.Error(w, strings.Join(problems, "; "), http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	s.accepted = append(s.accepted, app)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

// validate mirrors the checks the page runs before posting.
func validate(app Application) []string {
	var problems []string
	if _, err := mail.ParseAddress(app.Email); err != nil || !strings.Contains(app.Email, "@") {
		problems = append(problems, "Введите адрес электронной почты")
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, app.Phone)
	digits = strings.TrimPrefix(digits, "7")
	if _, err := mask.Phone(digits); err != nil {
		problems = append(problems, "Введите номер телефона")
	}
	if _, err := mask.DayToken(app.ContactDate); err != nil {
		problems = append(problems, "Введите дату")
	}
	return problems
}
