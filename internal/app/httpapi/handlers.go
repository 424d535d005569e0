package httpapi

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/app/metrics"
	"github.com/soundstack/soundstack/internal/app/services/songs"
	"github.com/soundstack/soundstack/internal/app/services/users"
	"github.com/soundstack/soundstack/internal/httputil"
	"github.com/soundstack/soundstack/internal/middleware"
	"github.com/soundstack/soundstack/internal/upload"
)

// XSRFCookie carries the CSRF token to the browser client. It is readable by
// scripts so the client can echo it in a header.
const XSRFCookie = "XSRF-TOKEN"

type userResponse struct {
	User *user.Public `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func publicUser(u user.User) userResponse {
	p := u.ToPublic()
	return userResponse{User: &p}
}

// csrfRestore hands out a fresh token both as a cookie and in the body.
func (h *handler) csrfRestore(w http.ResponseWriter, r *http.Request) {
	token := middleware.CSRFToken(r)
	sec := h.deps.Config.Security
	http.SetCookie(w, &http.Cookie{
		Name:     XSRFCookie,
		Value:    token,
		Path:     "/",
		Secure:   sec.CookieSecure,
		SameSite: sec.CookieSameSite,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"XSRF-Token": token})
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.CurrentUser(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, userResponse{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, publicUser(u))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in users.LoginInput
	if err := httputil.DecodeBody(r, &in); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	u, err := h.deps.Users.Login(r.Context(), in)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	if _, err := h.deps.Sessions.SetCookie(w, u.ID); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, publicUser(u))
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	h.deps.Sessions.ClearCookie(w)
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "success"})
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var in users.SignupInput
	if err := httputil.DecodeBody(r, &in); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	u, err := h.deps.Users.Signup(r.Context(), in)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	if _, err := h.deps.Sessions.SetCookie(w, u.ID); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, publicUser(u))
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.deps.Users.Profile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *handler) listSongs(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Songs.List(r.Context())
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]song.Song{"songs": list})
}

func (h *handler) getSong(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Songs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *handler) createSong(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.CurrentUser(r.Context())

	up, err := h.deps.Receiver.Receive(w, r)
	if err != nil {
		if ue, ok := upload.AsError(err); ok {
			metrics.RecordUpload(ue.Code)
		}
		h.responder.Respond(w, r, err)
		return
	}
	defer up.Close()

	in := songs.CreateInput{
		Title:       up.Value("title"),
		Description: up.Value("description"),
		Genre:       up.Value("genre"),
		ImageURL:    up.Value("imageUrl"),
	}
	created, err := h.deps.Songs.Create(r.Context(), current.ID, in, up.File)
	if err != nil {
		metrics.RecordUpload("rejected")
		h.responder.Respond(w, r, err)
		return
	}
	metrics.RecordUpload("ok")
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) updateSong(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.CurrentUser(r.Context())

	var upd song.Update
	if err := httputil.DecodeBody(r, &upd); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	updated, err := h.deps.Songs.Update(r.Context(), current.ID, mux.Vars(r)["id"], upd)
	if err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteSong(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.CurrentUser(r.Context())

	if err := h.deps.Songs.Delete(r.Context(), current.ID, mux.Vars(r)["id"]); err != nil {
		h.responder.Respond(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "success"})
}

// media serves an uploaded file. Only plain files directly under MediaDir
// are reachable.
func (h *handler) media(w http.ResponseWriter, r *http.Request) {
	name := path.Base("/" + mux.Vars(r)["file"])
	full := filepath.Join(h.deps.MediaDir, name)
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		h.responder.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}
