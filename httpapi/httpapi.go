// Package httpapi exposes the hub over the JSON contract the browser client
// polls against. It is a thin translation layer: every handler validates
// input, calls one core operation, and writes the response envelope. Core
// packages never import it.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"lanhub/domain"
	"lanhub/domain/event"
	"lanhub/errors"
	"lanhub/eventbus"
	"lanhub/features/files"
	"lanhub/features/notes"
	"lanhub/features/polls"
	"lanhub/rooms"
)

// anonymousUser is the fallback display name when a request omits one.
const anonymousUser = "Anonymous"

var validate = validator.New()

type Router struct {
	manager rooms.IManager
	bus     eventbus.IEventBus
	notes   *notes.Feature
	polls   *polls.Feature
	files   *files.Feature
	log     *slog.Logger
}

func NewRouter(manager rooms.IManager, bus eventbus.IEventBus, n *notes.Feature, p *polls.Feature, f *files.Feature, log *slog.Logger) *Router {
	return &Router{manager: manager, bus: bus, notes: n, polls: p, files: f, log: log}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", r.createRoom)
	mux.HandleFunc("GET /api/rooms/{roomId}", r.getRoom)
	mux.HandleFunc("DELETE /api/rooms/{roomId}", r.deleteRoom)
	mux.HandleFunc("POST /api/rooms/{roomId}/join", r.joinRoom)

	mux.HandleFunc("GET /api/rooms/{roomId}/events", r.pollEvents)
	mux.HandleFunc("POST /api/rooms/{roomId}/events", r.emitEvent)

	mux.HandleFunc("GET /api/rooms/{roomId}/notes", r.getNotes)
	mux.HandleFunc("PUT /api/rooms/{roomId}/notes", r.updateNotes)
	mux.HandleFunc("DELETE /api/rooms/{roomId}/notes", r.clearNotes)

	mux.HandleFunc("GET /api/rooms/{roomId}/polls", r.listPolls)
	mux.HandleFunc("POST /api/rooms/{roomId}/polls", r.createPoll)
	mux.HandleFunc("POST /api/rooms/{roomId}/polls/{pollId}/vote", r.vote)
	mux.HandleFunc("POST /api/rooms/{roomId}/polls/{pollId}/close", r.closePoll)
	mux.HandleFunc("DELETE /api/rooms/{roomId}/polls/{pollId}", r.deletePoll)

	mux.HandleFunc("GET /api/rooms/{roomId}/files", r.listFiles)
	mux.HandleFunc("POST /api/rooms/{roomId}/files", r.uploadFile)
	mux.HandleFunc("GET /api/rooms/{roomId}/files/{fileId}", r.downloadFile)
	mux.HandleFunc("DELETE /api/rooms/{roomId}/files/{fileId}", r.deleteFile)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondOK(w, nil)
	})
}

type createRoomRequest struct {
	Role string `json:"role"`
}

func (r *Router) createRoom(w http.ResponseWriter, req *http.Request) {
	var body createRoomRequest
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.Role == "" {
		body.Role = string(domain.RoleTeacher)
	}

	roomID, err := r.manager.CreateRoom(domain.Role(body.Role))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"roomId": roomID})
}

type joinRoomRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (r *Router) joinRoom(w http.ResponseWriter, req *http.Request) {
	var body joinRoomRequest
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.Username == "" {
		body.Username = anonymousUser
	}
	if body.Role == "" {
		body.Role = string(domain.RoleStudent)
	}

	room, err := r.manager.JoinRoom(req.PathValue("roomId"), body.Username, domain.Role(body.Role))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"roomId": room.ID, "state": room})
}

func (r *Router) getRoom(w http.ResponseWriter, req *http.Request) {
	room, err := r.manager.GetRoomInfo(req.PathValue("roomId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"room": room})
}

func (r *Router) deleteRoom(w http.ResponseWriter, req *http.Request) {
	if err := r.manager.DeleteRoom(req.PathValue("roomId")); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

// pollEvents serves both the cursor poll (?after=N) and the full-log
// initial sync (no cursor).
func (r *Router) pollEvents(w http.ResponseWriter, req *http.Request) {
	roomID := req.PathValue("roomId")

	after := req.URL.Query().Get("after")
	if after == "" {
		events, err := r.bus.GetAllEvents(roomID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondOK(w, map[string]any{"events": events})
		return
	}

	afterID, err := strconv.ParseInt(after, 10, 64)
	if err != nil || afterID < 0 {
		respondError(w, fmt.Errorf("%w: after must be a non-negative integer", errors.ErrValidation))
		return
	}
	events, err := r.bus.Poll(roomID, afterID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"events": events})
}

type emitRequest struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

func (r *Router) emitEvent(w http.ResponseWriter, req *http.Request) {
	var body emitRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: invalid JSON body", errors.ErrValidation))
		return
	}
	if err := validate.Struct(body); err != nil {
		respondError(w, fmt.Errorf("%w: event type is required", errors.ErrValidation))
		return
	}

	var payload any = body.Data
	if len(body.Data) == 0 {
		payload = nil
	}
	ev, err := r.bus.Emit(req.PathValue("roomId"), event.Type(body.Type), payload)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"event": ev})
}

func (r *Router) getNotes(w http.ResponseWriter, req *http.Request) {
	n, err := r.notes.Get(req.PathValue("roomId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"content": n.Content, "updatedBy": n.UpdatedBy, "updatedAt": n.UpdatedAt})
}

type notesRequest struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

func (r *Router) updateNotes(w http.ResponseWriter, req *http.Request) {
	var body notesRequest
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.Username == "" {
		body.Username = anonymousUser
	}

	n, err := r.notes.Update(req.PathValue("roomId"), body.Content, body.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"content": n.Content})
}

func (r *Router) clearNotes(w http.ResponseWriter, req *http.Request) {
	var body notesRequest
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.Username == "" {
		body.Username = anonymousUser
	}

	if err := r.notes.Clear(req.PathValue("roomId"), body.Username); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

func (r *Router) listPolls(w http.ResponseWriter, req *http.Request) {
	list, err := r.polls.List(req.PathValue("roomId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"polls": list})
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Username string   `json:"username"`
}

func (r *Router) createPoll(w http.ResponseWriter, req *http.Request) {
	var body createPollRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: invalid JSON body", errors.ErrValidation))
		return
	}
	if body.Username == "" {
		body.Username = anonymousUser
	}

	poll, err := r.polls.Create(req.PathValue("roomId"), polls.CreateRequest{
		Question: body.Question,
		Options:  body.Options,
	}, body.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"poll": poll})
}

type voteRequest struct {
	OptionIndex int    `json:"optionIndex"`
	Username    string `json:"username"`
}

func (r *Router) vote(w http.ResponseWriter, req *http.Request) {
	var body voteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, fmt.Errorf("%w: invalid JSON body", errors.ErrValidation))
		return
	}
	if body.Username == "" {
		body.Username = anonymousUser
	}

	poll, err := r.polls.Vote(req.PathValue("roomId"), req.PathValue("pollId"), body.OptionIndex, body.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"poll": poll})
}

type pollActionRequest struct {
	Username string `json:"username"`
}

func (r *Router) closePoll(w http.ResponseWriter, req *http.Request) {
	var body pollActionRequest
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.Username == "" {
		body.Username = anonymousUser
	}

	poll, err := r.polls.Close(req.PathValue("roomId"), req.PathValue("pollId"), body.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"poll": poll})
}

func (r *Router) deletePoll(w http.ResponseWriter, req *http.Request) {
	var body pollActionRequest
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.Username == "" {
		body.Username = anonymousUser
	}

	if err := r.polls.Delete(req.PathValue("roomId"), req.PathValue("pollId"), body.Username); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}

func (r *Router) listFiles(w http.ResponseWriter, req *http.Request) {
	list, err := r.files.List(req.PathValue("roomId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"files": list})
}

func (r *Router) uploadFile(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		respondError(w, fmt.Errorf("%w: multipart form expected", errors.ErrValidation))
		return
	}
	username := req.FormValue("username")
	if username == "" {
		username = anonymousUser
	}

	src, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, fmt.Errorf("%w: no file uploaded", errors.ErrValidation))
		return
	}
	defer src.Close()

	record, err := r.files.Upload(req.PathValue("roomId"), username, header.Filename, src)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]any{"file": record})
}

func (r *Router) downloadFile(w http.ResponseWriter, req *http.Request) {
	record, blob, err := r.files.Open(req.PathValue("roomId"), req.PathValue("fileId"))
	if err != nil {
		respondError(w, err)
		return
	}
	defer blob.Close()

	contentType := record.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.OriginalName))
	w.Header().Set("Content-Length", strconv.FormatInt(record.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, blob); err != nil {
		r.log.Error("streaming file failed", "room", req.PathValue("roomId"), "file", record.ID, "error", err)
	}
}

func (r *Router) deleteFile(w http.ResponseWriter, req *http.Request) {
	var body pollActionRequest
	_ = json.NewDecoder(req.Body).Decode(&body)
	if body.Username == "" {
		body.Username = anonymousUser
	}

	if err := r.files.Delete(req.PathValue("roomId"), req.PathValue("fileId"), body.Username); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, nil)
}
