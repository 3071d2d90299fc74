// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package explorer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/radex-fr/radex/communes"
	"github.com/radex-fr/radex/geocoding"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionCookie = "radex_session"
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Session limits used when ServerOptions leaves them unset.
const (
	DefaultMaxSessions = 1000
	DefaultSessionTTL  = 30 * time.Minute
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	Addr           string
	DefaultDataset Dataset

	// MaxSessions bounds the sessions kept in memory; the least recently
	// seen one is dropped to make room.
	MaxSessions int

	// SessionTTL drops sessions idle for longer.
	SessionTTL time.Duration
}

// Server serves the explorer over HTTP. Each browser gets its own State,
// kept in memory and keyed by a session cookie.
type Server struct {
	app  *App
	opts ServerOptions
	tmpl *template.Template

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	state State
	seen  time.Time
}

// NewServer creates a server for app.
func NewServer(app *App, opts ServerOptions) (*Server, error) {
	if opts.DefaultDataset == "" {
		opts.DefaultDataset = Sample
	}

	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}

	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}

	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Server{
		app:      app,
		opts:     opts,
		tmpl:     tmpl,
		now:      time.Now,
		sessions: map[string]*session{},
	}, nil
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(s.tmpl)

	r.GET("/", s.index)
	r.POST("/dataset/toggle", s.event(func(*gin.Context) (Event, error) { return ToggleDataset{}, nil }))
	r.POST("/departments", s.event(func(ctx *gin.Context) (Event, error) {
		return SetDepartments{Codes: ctx.PostFormArray("department")}, nil
	}))
	r.POST("/show-all", s.event(func(*gin.Context) (Event, error) { return ShowAll{}, nil }))
	r.POST("/select", s.event(func(ctx *gin.Context) (Event, error) {
		row, err := strconv.Atoi(ctx.PostForm("row"))
		if err != nil {
			return nil, fmt.Errorf("invalid row %q", ctx.PostForm("row"))
		}

		return SelectRow{Index: row}, nil
	}))
	r.POST("/select/clear", s.event(func(*gin.Context) (Event, error) { return ClearSelection{}, nil }))

	r.GET("/api/view", s.apiView)
	r.GET("/api/geocode", s.apiGeocode)
	r.GET("/export.xlsx", s.exportXLSX)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// Run listens on the configured address.
func (s *Server) Run() error {
	log.Printf("🌐 Explorer listening on http://%s", s.opts.Addr)

	return s.Router().Run(s.opts.Addr)
}

// session returns the caller's session id and a copy of its state, starting
// a new session when the cookie is missing or unknown.
func (s *Server) session(ctx *gin.Context) (string, State) {
	id, err := ctx.Cookie(sessionCookie)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if err == nil {
		if sess, ok := s.sessions[id]; ok && now.Sub(sess.seen) < s.opts.SessionTTL {
			sess.seen = now

			return id, sess.state.Clone()
		}
	}

	if _, perr := uuid.Parse(id); err != nil || perr != nil {
		id = uuid.NewString()
	}

	state := NewState(s.opts.DefaultDataset)
	s.store(id, state, now)

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(sessionCookie, id, 0, "/", "", false, true)

	return id, state.Clone()
}

// save stores a session's state. Concurrent requests of one session race;
// the last one wins.
func (s *Server) save(id string, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store(id, state, s.now())
}

// store records a session, making room first when it is new. s.mu is held.
func (s *Server) store(id string, state State, now time.Time) {
	if sess, ok := s.sessions[id]; ok {
		sess.state, sess.seen = state, now

		return
	}

	for key, sess := range s.sessions {
		if now.Sub(sess.seen) >= s.opts.SessionTTL {
			delete(s.sessions, key)
		}
	}

	for len(s.sessions) >= s.opts.MaxSessions {
		var oldest string

		for key, sess := range s.sessions {
			if oldest == "" || sess.seen.Before(s.sessions[oldest].seen) {
				oldest = key
			}
		}

		delete(s.sessions, oldest)
	}

	s.sessions[id] = &session{state: state, seen: now}
}

func (s *Server) event(parse func(*gin.Context) (Event, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		e, err := parse(ctx)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}

		id, state := s.session(ctx)
		s.save(id, Apply(state, e))

		ctx.Redirect(http.StatusSeeOther, "/")
	}
}

func (s *Server) render(ctx *gin.Context) *View {
	id, state := s.session(ctx)
	view, state := s.app.Render(ctx.Request.Context(), state)
	s.save(id, state)

	return view
}

func (s *Server) index(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.html", s.render(ctx))
}

func (s *Server) apiView(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.render(ctx))
}

func (s *Server) apiGeocode(ctx *gin.Context) {
	name := ctx.Query("name")
	if name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})

		return
	}

	res, err := s.app.Geocode(ctx.Request.Context(), name, ctx.Query("region"))

	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, res)
	case geocoding.IsNotFound(err):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "type": geocoding.TypeOf(err).String()})
	}
}

func (s *Server) exportXLSX(ctx *gin.Context) {
	_, state := s.session(ctx)

	var buf bytes.Buffer
	if err := communes.WriteXLSX(&buf, s.app.Table(state)); err != nil {
		log.Printf("⚠️ Exporting table: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export table"})

		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="radex-%s.xlsx"`, state.Dataset))
	ctx.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}
