// Package api exposes the read-only results API consumed by the static front
// end: student lookup, what-if rank simulation, and the two topper
// leaderboards.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"examresults/internal/store"
)

// Store is the read surface the handlers need. *store.DB satisfies it; tests
// substitute a fake.
type Store interface {
	Student(ctx context.Context, regNo string) (*store.StudentResult, error)
	SimulateRank(ctx context.Context, collegeCode string, courseCode int, cgpa float64) (*store.SimulatedRank, error)
	CollegeToppers(ctx context.Context) ([]store.CollegeTopperRow, error)
	BranchToppers(ctx context.Context) ([]store.BranchTopperRow, error)
}

// Server holds the handler dependencies. The store is never mutated by
// requests, so a single Server serves concurrent requests without
// coordination.
type Server struct {
	Store      Store
	University string
	Logger     *log.Logger
}

// Routes builds the API router. staticDir, when non-empty, is served at the
// root for the bundled front end.
func (s *Server) Routes(staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(allowCORS)

	r.Get("/api/student/{reg_no}", s.handleStudent)
	r.Get("/api/simulate/rank", s.handleSimulateRank)
	r.Get("/api/toppers/college", s.handleCollegeToppers)
	r.Get("/api/toppers/branch", s.handleBranchToppers)

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}
	return r
}

func (s *Server) handleStudent(w http.ResponseWriter, r *http.Request) {
	regNo := strings.TrimSpace(chi.URLParam(r, "reg_no"))
	if regNo == "" {
		s.writeError(w, http.StatusBadRequest, "Registration number is required")
		return
	}

	res, err := s.Store.Student(r.Context(), regNo)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Student not found.")
		return
	}
	if err != nil {
		s.serverError(w, "student query", err)
		return
	}

	res.University = s.University
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSimulateRank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	collegeCode := strings.TrimSpace(q.Get("college_code"))
	courseCodeRaw := strings.TrimSpace(q.Get("course_code"))
	cgpaRaw := strings.TrimSpace(q.Get("sgpa"))

	if collegeCode == "" || courseCodeRaw == "" || cgpaRaw == "" {
		s.writeError(w, http.StatusBadRequest, "college_code, course_code, and sgpa are required parameters.")
		return
	}
	courseCode, err := strconv.Atoi(courseCodeRaw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "course_code must be an integer")
		return
	}
	cgpa, err := strconv.ParseFloat(cgpaRaw, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "sgpa must be numeric")
		return
	}

	res, err := s.Store.SimulateRank(r.Context(), collegeCode, courseCode, cgpa)
	if err != nil {
		s.serverError(w, "simulate rank query", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCollegeToppers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Store.CollegeToppers(r.Context())
	if err != nil {
		s.serverError(w, "college toppers query", err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleBranchToppers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Store.BranchToppers(r.Context())
	if err != nil {
		s.serverError(w, "branch toppers query", err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

// serverError logs the cause and returns an opaque 500; request errors never
// reach here.
func (s *Server) serverError(w http.ResponseWriter, what string, err error) {
	s.logf("%s: %v", what, err)
	s.writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) logf(format string, v ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

// allowCORS mirrors the permissive CORS the front end was built against; the
// API is public, read-only data.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
