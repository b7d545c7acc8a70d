package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackdojo/hackdojo/internal/api"
)

type loginBody struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerBody struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	Role        api.Role `json:"role" validate:"oneof=student parent"`
	DisplayName string   `json:"display_name"`
}

type childBody struct {
	Name string `json:"name" validate:"required"`
	Age  int    `json:"age" validate:"min=1"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !decodeBody(w, r, &body) {
		return
	}
	a, ok := s.dir.byLogin(body.Email)
	if !ok || len(a.hash) == 0 || bcrypt.CompareHashAndPassword(a.hash, []byte(body.Password)) != nil {
		s.metrics.RecordLogin(false)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.metrics.RecordLogin(true)
	s.writeAuth(w, http.StatusOK, a)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if body.Role == "" {
		body.Role = api.RoleStudent
	}
	if !decodeBody(w, r, &body) {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), s.hashCost)
	if err != nil {
		s.log.Error("hash password", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Could not create account")
		return
	}
	name := strings.TrimSpace(body.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(body.Email, "@")
	}
	a, err := s.dir.create(account{email: body.Email, name: name, role: body.Role, hash: hash})
	if errors.Is(err, errEmailTaken) {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create account")
		return
	}
	s.writeAuth(w, http.StatusCreated, a)
}

func (s *Server) writeAuth(w http.ResponseWriter, status int, a account) {
	token, err := s.tokens.issue(a)
	if err != nil {
		s.log.Error("sign token", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Could not sign in")
		return
	}
	writeJSON(w, status, map[string]any{"token": token, "user": toUserJSON(a)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	a, ok := s.dir.get(p.id)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserJSON(a)})
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	var body childBody
	if !decodeBody(w, r, &body) {
		return
	}
	p, _ := principalFrom(r.Context())
	child, err := s.dir.create(account{
		name:     strings.TrimSpace(body.Name),
		role:     api.RoleStudent,
		parentID: p.id,
		age:      body.Age,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not add child")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"child": toChildJSON(child)})
}
