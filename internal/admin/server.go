package admin

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"nbodywatch/internal/view"
)

// Server exposes the monitor's instance summaries and control knobs over
// HTTP, for browsers and for scripting against a headless monitor.
type Server struct {
	Coord *view.Coordinator
	tpl   *template.Template
	mux   *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(coord *view.Coordinator) *Server {
	funcs := template.FuncMap{"pct": func(f float64) float64 { return f * 100 }}
	tpl := template.Must(template.New("index.html").Funcs(funcs).ParseFS(content, "templates/index.html"))
	s := &Server{Coord: coord, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/instances", s.handleInstances)
	s.mux.HandleFunc("/controls", s.handleControls)
	s.mux.HandleFunc("/set-rotation", s.handleSetRotation)
	s.mux.HandleFunc("/set-scale", s.handleSetScale)
	s.mux.HandleFunc("/set-playback", s.handleSetPlayback)
	s.mux.HandleFunc("/toggle-trails", s.handleToggleTrails)
	s.mux.HandleFunc("/toggle-pause", s.handleTogglePause)
}

// Handler returns the HTTP handler, for embedding in a custom server.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := struct {
		SessionID string
		Instances []view.InstanceSummary
		Controls  controlState
	}{
		SessionID: s.Coord.SessionID(),
		Instances: s.Coord.Summaries(),
		Controls:  currentControls(s.Coord.Controls()),
	}
	s.tpl.Execute(w, data)
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Coord.Summaries())
}

type controlState struct {
	RotationSpeed float64 `json:"rotation_speed"`
	ParticleScale float64 `json:"particle_scale"`
	PlaybackSpeed float64 `json:"playback_speed"`
	Trails        bool    `json:"trails"`
	Paused        bool    `json:"paused"`
}

func currentControls(c *view.Controls) controlState {
	return controlState{
		RotationSpeed: c.RotationSpeed(),
		ParticleScale: c.ParticleScale(),
		PlaybackSpeed: c.PlaybackSpeed(),
		Trails:        c.TrailsEnabled(),
		Paused:        c.Paused(),
	}
}

func (s *Server) handleControls(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(currentControls(s.Coord.Controls()))
}

// handleSetRotation sets the display rotation speed from ?value=.
func (s *Server) handleSetRotation(w http.ResponseWriter, r *http.Request) {
	s.setKnob(w, r, s.Coord.Controls().SetRotationSpeed)
}

func (s *Server) handleSetScale(w http.ResponseWriter, r *http.Request) {
	s.setKnob(w, r, s.Coord.Controls().SetParticleScale)
}

func (s *Server) handleSetPlayback(w http.ResponseWriter, r *http.Request) {
	s.setKnob(w, r, s.Coord.Controls().SetPlaybackSpeed)
}

func (s *Server) setKnob(w http.ResponseWriter, r *http.Request, set func(float64)) {
	v, err := strconv.ParseFloat(r.URL.Query().Get("value"), 64)
	if err != nil {
		http.Error(w, "invalid value", http.StatusBadRequest)
		return
	}
	set(v)
	s.handleControls(w, r)
}

func (s *Server) handleToggleTrails(w http.ResponseWriter, r *http.Request) {
	state := s.Coord.Controls().ToggleTrails()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"trails": state})
}

func (s *Server) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	state := s.Coord.Controls().TogglePause()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"paused": state})
}
