package handlers

import (
	"net/http"

	"github.com/cybermouflons/CTFNote/middleware"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(ts *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: ts}
}

// CreateHandler обрабатывает POST /ctfs/{ctfID}/tasks
func (h *TaskHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	ctfID, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Files       string   `json:"files"`
		Tags        []string `json:"tags"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	task := &models.Task{
		CtfID:       ctfID,
		Title:       input.Title,
		Description: input.Description,
		Files:       input.Files,
		Tags:        input.Tags,
	}
	if err := h.taskService.CreateTask(r.Context(), task, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"task": task}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /ctfs/{ctfID}/tasks
func (h *TaskHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	ctfID, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tasks, err := h.taskService.ListTasksByCTF(r.Context(), ctfID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tasks": tasks}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /tasks/{taskID}
func (h *TaskHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	task, err := h.taskService.GetTaskByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"task": task}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PATCH /tasks/{taskID}
func (h *TaskHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var patch models.TaskPatch
	if err := readJSON(w, r, &patch); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), id, patch, actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"task": task}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitFlagHandler обрабатывает POST /tasks/{taskID}/flag
func (h *TaskHandler) SubmitFlagHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Flag string `json:"flag"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.taskService.SubmitFlag(r.Context(), id, input.Flag, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteHandler обрабатывает DELETE /tasks/{taskID}
func (h *TaskHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), id, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddTagsHandler обрабатывает POST /tasks/{taskID}/tags
func (h *TaskHandler) AddTagsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Tags []string `json:"tags"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.taskService.AddTags(r.Context(), id, input.Tags, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartWorkingHandler обрабатывает POST /tasks/{taskID}/work
func (h *TaskHandler) StartWorkingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	profileID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.taskService.StartWorking(r.Context(), id, profileID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StopWorkingHandler обрабатывает DELETE /tasks/{taskID}/work
func (h *TaskHandler) StopWorkingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	profileID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	cancelled := r.URL.Query().Get("cancelled") == "true"
	if err := h.taskService.StopWorking(r.Context(), id, profileID, cancelled); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListWorkersHandler обрабатывает GET /tasks/{taskID}/workers
func (h *TaskHandler) ListWorkersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "taskID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	workers, err := h.taskService.ListWorkers(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"workers": workers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ImportHandler обрабатывает POST /ctfs/{ctfID}/tasks/import
func (h *TaskHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	ctfID, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Format  string `json:"format"`
		Payload string `json:"payload"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	created, err := h.taskService.ImportTasks(r.Context(), ctfID, input.Format, input.Payload, actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"created": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
