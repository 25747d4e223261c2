// cmd/server/handlers.go
package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gurkanbulca/taskflow/internal/models"
	"github.com/gurkanbulca/taskflow/internal/service"
)

// handler is a thin JSON adapter over the lifecycle engine. Authentication is
// upstream; the role and requester headers are trusted as already verified.
type handler struct {
	engine *service.LifecycleEngine
}

func newHandler(engine *service.LifecycleEngine) http.Handler {
	h := &handler{engine: engine}

	mux := http.NewServeMux()
	mux.HandleFunc("/tasks", h.tasks)
	mux.HandleFunc("/tasks/", h.task)
	return mux
}

type createTaskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Assignee    string    `json:"assignee"`
	Deadline    time.Time `json:"deadline"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *handler) tasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createTask(w, r)
	case http.MethodGet:
		h.listTasks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *handler) task(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/tasks/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "task id is required")
		return
	}

	switch {
	case r.Method == http.MethodPut && sub == "status":
		h.updateStatus(w, r, id)
	case r.Method == http.MethodDelete && sub == "":
		h.deleteTask(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.engine.CreateTask(r.Context(), req.Title, req.Description, req.Assignee, req.Deadline)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.engine.UpdateTaskStatus(r.Context(), id, models.Status(req.Status))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	role := models.Role(r.Header.Get("X-Role"))
	requester := r.Header.Get("X-Requester")

	tasks, err := h.engine.ListTasks(r.Context(), role, requester)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.engine.DeleteTask(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Task deleted successfully",
		"deletedTask": task,
	})
}

// writeEngineError maps the engine's error taxonomy to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var transitionErr *service.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusUnprocessableEntity, transitionErr.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "task was modified concurrently, retry the request")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "task id conflict")
	default:
		log.Printf("http: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
