package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/model"
	"github.com/BuzzLyutic/todo-list/internal/repo"
	"github.com/BuzzLyutic/todo-list/internal/service"
	"github.com/BuzzLyutic/todo-list/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

// Routes mounts the task collection resource on r.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	r.Get("/stats", h.Stats)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.Draft
	if err := respond.Decode(r, &req); err != nil {
		if errors.Is(err, respond.ErrEmptyBody) {
			respond.Error(w, r, http.StatusBadRequest, "empty request body")
			return
		}
		h.logger.Error("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	idempKey := r.Header.Get("Idempotency-Key")
	task, err := h.service.Create(r.Context(), req, idempKey)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", "/tasks/"+task.ID)
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.service.List(r.Context(), q.Get("status"), q.Get("priority"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

// Update replaces the whole record; the id in the path wins over the body.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.Task
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	req.ID = chi.URLParam(r, "id")

	task, err := h.service.Update(r.Context(), req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	// Клиент считает удаление успешным только при статусе 200
	respond.Empty(w, r, http.StatusOK)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, "validation error")
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
