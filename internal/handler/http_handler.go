package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/masdar-tech/be-ideas-workflow/internal/apperrors"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
	"github.com/masdar-tech/be-ideas-workflow/internal/service"
)

// actorHeader carries the authenticated user ID, injected by the API gateway.
const actorHeader = "X-User-ID"

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	workflow    *service.WorkflowService
	evaluations *service.EvaluationService
	requests    *repository.RequestRepository
	departments *repository.DepartmentRepository
	paths       *repository.WorkflowPathRepository
	log         zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	workflow *service.WorkflowService,
	evaluations *service.EvaluationService,
	requests *repository.RequestRepository,
	departments *repository.DepartmentRepository,
	paths *repository.WorkflowPathRepository,
	log zerolog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		workflow:    workflow,
		evaluations: evaluations,
		requests:    requests,
		departments: departments,
		paths:       paths,
		log:         log,
	}
}

// Register mounts all routes on the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/requests/create", h.CreateRequest)
	mux.HandleFunc("/api/v1/requests/get", h.GetRequest)
	mux.HandleFunc("/api/v1/requests/update", h.UpdateRequest)
	mux.HandleFunc("/api/v1/requests/delete", h.DeleteRequest)
	mux.HandleFunc("/api/v1/requests/submit", h.SubmitRequest)
	mux.HandleFunc("/api/v1/requests/history", h.RequestHistory)
	mux.HandleFunc("/api/v1/requests/list-by-owner", h.ListByOwner)
	mux.HandleFunc("/api/v1/requests/list-by-department", h.ListByDepartment)

	mux.HandleFunc("/api/v1/requests/assign-path", h.AssignWorkflowPath)
	mux.HandleFunc("/api/v1/requests/reject", h.RejectRequest)
	mux.HandleFunc("/api/v1/requests/request-details", h.RequestMoreDetails)
	mux.HandleFunc("/api/v1/requests/complete", h.CompleteRequest)
	mux.HandleFunc("/api/v1/requests/return-to-department", h.ReturnToPreviousDepartment)

	mux.HandleFunc("/api/v1/requests/assign-employee", h.AssignToEmployee)
	mux.HandleFunc("/api/v1/requests/return-to-intake", h.ReturnToIntake)
	mux.HandleFunc("/api/v1/requests/accept-later", h.AcceptLater)
	mux.HandleFunc("/api/v1/requests/reject-idea", h.RejectIdea)

	mux.HandleFunc("/api/v1/requests/employee-accept", h.EmployeeAccept)
	mux.HandleFunc("/api/v1/requests/mark-missing-requirement", h.MarkMissingRequirement)
	mux.HandleFunc("/api/v1/requests/resume-work", h.ResumeWork)
	mux.HandleFunc("/api/v1/requests/return-to-manager", h.ReturnToManager)

	mux.HandleFunc("/api/v1/departments/create", h.CreateDepartment)
	mux.HandleFunc("/api/v1/departments/list", h.ListDepartments)
	mux.HandleFunc("/api/v1/departments/set-intake", h.SetIntakeDepartment)
	mux.HandleFunc("/api/v1/departments/add-member", h.AddDepartmentMember)
	mux.HandleFunc("/api/v1/departments/remove-member", h.RemoveDepartmentMember)

	mux.HandleFunc("/api/v1/paths/create", h.CreateWorkflowPath)
	mux.HandleFunc("/api/v1/paths/get", h.GetWorkflowPath)
	mux.HandleFunc("/api/v1/paths/list", h.ListWorkflowPaths)

	mux.HandleFunc("/api/v1/evaluations/questions/create", h.CreateEvaluationQuestion)
	mux.HandleFunc("/api/v1/evaluations/questions/update", h.UpdateEvaluationQuestion)
	mux.HandleFunc("/api/v1/evaluations/submit", h.SubmitEvaluation)
	mux.HandleFunc("/api/v1/evaluations/total", h.EvaluationTotal)
	mux.HandleFunc("/api/v1/evaluations/path/questions/create", h.CreatePathQuestion)
	mux.HandleFunc("/api/v1/evaluations/path/questions/list", h.ListPathQuestions)
	mux.HandleFunc("/api/v1/evaluations/path/submit", h.SubmitPathEvaluation)
	mux.HandleFunc("/api/v1/evaluations/path/list", h.ListPathEvaluations)
}

// ── Request lifecycle ────────────────────────────────────────────────────────

type draftRequest struct {
	ID                      string   `json:"id"`
	Title                   string   `json:"title"`
	Description             string   `json:"description"`
	Benefits                *string  `json:"benefits"`
	IdeaTypes               []string `json:"idea_types"`
	OriginatingDepartmentID *string  `json:"originating_department_id"`
}

func (d *draftRequest) input() *service.DraftInput {
	return &service.DraftInput{
		Title:                   d.Title,
		Description:             d.Description,
		Benefits:                d.Benefits,
		IdeaTypes:               d.IdeaTypes,
		OriginatingDepartmentID: d.OriginatingDepartmentID,
	}
}

// CreateRequest handles draft creation HTTP requests
func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body draftRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.workflow.CreateDraft(r.Context(), h.actor(r), body.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, req)
}

// GetRequest handles get request HTTP requests
func (h *HTTPHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	req, err := h.workflow.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

// UpdateRequest handles draft update HTTP requests
func (h *HTTPHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body draftRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.workflow.UpdateDraft(r.Context(), body.ID, h.actor(r), body.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

// DeleteRequest handles draft deletion HTTP requests
func (h *HTTPHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	if err := h.workflow.DeleteDraft(r.Context(), id, h.actor(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestHistory handles transition history HTTP requests
func (h *HTTPHandler) RequestHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	transitions, err := h.workflow.History(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}

// ListByOwner handles owner request list HTTP requests
func (h *HTTPHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, offset := pagination(r)
	requests, err := h.requests.ListByOwner(r.Context(), h.actor(r), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// ListByDepartment handles department queue HTTP requests
func (h *HTTPHandler) ListByDepartment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	departmentID := r.URL.Query().Get("department_id")
	if departmentID == "" {
		http.Error(w, "Department ID is required", http.StatusBadRequest)
		return
	}

	var statusPtr *repository.Status
	if s := r.URL.Query().Get("status"); s != "" {
		status := repository.Status(s)
		if !status.Valid() {
			http.Error(w, "Unknown status", http.StatusBadRequest)
			return
		}
		statusPtr = &status
	}

	limit, offset := pagination(r)
	requests, err := h.requests.ListByDepartment(r.Context(), departmentID, statusPtr, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// ── Stage-change actions ─────────────────────────────────────────────────────

type actionRequest struct {
	ID         string `json:"id"`
	PathID     string `json:"path_id"`
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
	CommentAr  string `json:"comment_ar"`
	CommentEn  string `json:"comment_en"`
}

func (a *actionRequest) comments() service.Comments {
	return service.Comments{Ar: a.CommentAr, En: a.CommentEn}
}

// action decodes the shared action body and dispatches to one workflow
// operation. Every stage-change endpoint funnels through here.
func (h *HTTPHandler) action(w http.ResponseWriter, r *http.Request,
	op func(body *actionRequest, actorID string) (*repository.Request, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body actionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.ID == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	req, err := op(&body, h.actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

// SubmitRequest handles submission HTTP requests
func (h *HTTPHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.Submit(r.Context(), body.ID, actorID)
	})
}

// AssignWorkflowPath handles path assignment HTTP requests
func (h *HTTPHandler) AssignWorkflowPath(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.AssignWorkflowPath(r.Context(), body.ID, actorID, body.PathID, body.comments())
	})
}

// RejectRequest handles intake rejection HTTP requests
func (h *HTTPHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.IntakeReject(r.Context(), body.ID, actorID, body.Reason)
	})
}

// RequestMoreDetails handles request-details HTTP requests
func (h *HTTPHandler) RequestMoreDetails(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.IntakeRequestMoreDetails(r.Context(), body.ID, actorID, body.comments())
	})
}

// CompleteRequest handles final completion HTTP requests
func (h *HTTPHandler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.IntakeComplete(r.Context(), body.ID, actorID, body.comments())
	})
}

// ReturnToPreviousDepartment handles return-to-department HTTP requests
func (h *HTTPHandler) ReturnToPreviousDepartment(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.IntakeReturnToPreviousDepartment(r.Context(), body.ID, actorID, body.comments())
	})
}

// AssignToEmployee handles employee assignment HTTP requests
func (h *HTTPHandler) AssignToEmployee(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		if body.EmployeeID == "" {
			return nil, apperrors.InvalidInput("employee_id", "employee ID is required")
		}
		return h.workflow.AssignToEmployee(r.Context(), body.ID, actorID, body.EmployeeID, body.comments())
	})
}

// ReturnToIntake handles manager return-to-intake HTTP requests
func (h *HTTPHandler) ReturnToIntake(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.ManagerReturnToIntake(r.Context(), body.ID, actorID, body.comments())
	})
}

// AcceptLater handles accept-later HTTP requests
func (h *HTTPHandler) AcceptLater(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.ManagerAcceptLater(r.Context(), body.ID, actorID, body.comments())
	})
}

// RejectIdea handles manager idea rejection HTTP requests
func (h *HTTPHandler) RejectIdea(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.ManagerRejectIdea(r.Context(), body.ID, actorID, body.comments())
	})
}

// EmployeeAccept handles employee accept HTTP requests
func (h *HTTPHandler) EmployeeAccept(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.EmployeeAccept(r.Context(), body.ID, actorID)
	})
}

// MarkMissingRequirement handles missing-requirement HTTP requests
func (h *HTTPHandler) MarkMissingRequirement(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.EmployeeMarkMissingRequirement(r.Context(), body.ID, actorID, body.comments())
	})
}

// ResumeWork handles resume-work HTTP requests
func (h *HTTPHandler) ResumeWork(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.EmployeeResumeWork(r.Context(), body.ID, actorID, body.comments())
	})
}

// ReturnToManager handles employee return-to-manager HTTP requests
func (h *HTTPHandler) ReturnToManager(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(body *actionRequest, actorID string) (*repository.Request, error) {
		return h.workflow.EmployeeReturnToManager(r.Context(), body.ID, actorID, body.comments())
	})
}

// ── Department directory ─────────────────────────────────────────────────────

// CreateDepartment handles department creation HTTP requests
func (h *HTTPHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Name     string `json:"name"`
		Code     string `json:"code"`
		IsActive bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.Code == "" {
		http.Error(w, "Name and code are required", http.StatusBadRequest)
		return
	}

	dept := &repository.Department{Name: body.Name, Code: body.Code, IsActive: body.IsActive}
	if err := h.departments.Create(r.Context(), dept); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, dept)
}

// ListDepartments handles department list HTTP requests
func (h *HTTPHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	departments, err := h.departments.List(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"departments": departments})
}

// SetIntakeDepartment handles intake flag HTTP requests
func (h *HTTPHandler) SetIntakeDepartment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "Department ID is required", http.StatusBadRequest)
		return
	}

	if err := h.departments.SetIntake(r.Context(), body.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "intake department updated"})
}

// AddDepartmentMember handles membership add HTTP requests
func (h *HTTPHandler) AddDepartmentMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		DepartmentID string `json:"department_id"`
		UserID       string `json:"user_id"`
		Role         string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	role := repository.Role(body.Role)
	if role != repository.RoleManager && role != repository.RoleEmployee {
		http.Error(w, "Role must be manager or employee", http.StatusBadRequest)
		return
	}

	if err := h.departments.AddMember(r.Context(), body.DepartmentID, body.UserID, role); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "member added"})
}

// RemoveDepartmentMember handles membership removal HTTP requests
func (h *HTTPHandler) RemoveDepartmentMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	departmentID := r.URL.Query().Get("department_id")
	userID := r.URL.Query().Get("user_id")
	if departmentID == "" || userID == "" {
		http.Error(w, "Department ID and user ID are required", http.StatusBadRequest)
		return
	}

	if err := h.departments.RemoveMember(r.Context(), departmentID, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Workflow paths ───────────────────────────────────────────────────────────

// CreateWorkflowPath handles path creation HTTP requests
func (h *HTTPHandler) CreateWorkflowPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Name     string `json:"name"`
		Position int    `json:"position"`
		Steps    []struct {
			DepartmentID     string `json:"department_id"`
			RequiresApproval bool   `json:"requires_approval"`
		} `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	path := &repository.WorkflowPath{Name: body.Name, IsActive: true, Position: body.Position}
	for _, s := range body.Steps {
		path.Steps = append(path.Steps, &repository.WorkflowPathStep{
			DepartmentID:     s.DepartmentID,
			RequiresApproval: s.RequiresApproval,
		})
	}

	if err := h.paths.Create(r.Context(), path); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, path)
}

// GetWorkflowPath handles get path HTTP requests
func (h *HTTPHandler) GetWorkflowPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Path ID is required", http.StatusBadRequest)
		return
	}

	path, err := h.paths.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, path)
}

// ListWorkflowPaths handles path list HTTP requests
func (h *HTTPHandler) ListWorkflowPaths(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	paths, err := h.paths.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

// ── Evaluations ──────────────────────────────────────────────────────────────

// CreateEvaluationQuestion handles question creation HTTP requests
func (h *HTTPHandler) CreateEvaluationQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Text     string `json:"text"`
		Weight   int    `json:"weight"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	q := &repository.EvaluationQuestion{Text: body.Text, Weight: body.Weight, IsActive: true, Position: body.Position}
	if err := h.evaluations.CreateQuestion(r.Context(), h.actor(r), q); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, q)
}

// UpdateEvaluationQuestion handles question update HTTP requests
func (h *HTTPHandler) UpdateEvaluationQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		Weight   int    `json:"weight"`
		IsActive bool   `json:"is_active"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.ID == "" {
		http.Error(w, "Question ID is required", http.StatusBadRequest)
		return
	}

	q := &repository.EvaluationQuestion{ID: body.ID, Text: body.Text, Weight: body.Weight, IsActive: body.IsActive, Position: body.Position}
	if err := h.evaluations.UpdateQuestion(r.Context(), h.actor(r), q); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, q)
}

// SubmitEvaluation handles generic evaluation HTTP requests
func (h *HTTPHandler) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		RequestID string `json:"request_id"`
		Answers   []struct {
			QuestionID string `json:"question_id"`
			Value      int    `json:"value"`
		} `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	answers := make([]service.Answer, 0, len(body.Answers))
	for _, a := range body.Answers {
		answers = append(answers, service.Answer{QuestionID: a.QuestionID, Value: a.Value})
	}

	total, err := h.evaluations.SubmitGenericEvaluation(r.Context(), body.RequestID, h.actor(r), answers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"request_id": body.RequestID, "total": total})
}

// EvaluationTotal handles evaluation total HTTP requests
func (h *HTTPHandler) EvaluationTotal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	total, err := h.evaluations.TotalScore(r.Context(), requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"request_id": requestID, "total": total})
}

// CreatePathQuestion handles checklist question creation HTTP requests
func (h *HTTPHandler) CreatePathQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		PathID   string `json:"path_id"`
		Text     string `json:"text"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	q := &repository.PathEvaluationQuestion{PathID: body.PathID, Text: body.Text, Position: body.Position, IsActive: true}
	if err := h.evaluations.CreatePathQuestion(r.Context(), h.actor(r), q); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, q)
}

// ListPathQuestions handles checklist question list HTTP requests
func (h *HTTPHandler) ListPathQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pathID := r.URL.Query().Get("path_id")
	if pathID == "" {
		http.Error(w, "Path ID is required", http.StatusBadRequest)
		return
	}

	questions, err := h.evaluations.PathQuestions(r.Context(), pathID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// SubmitPathEvaluation handles checklist evaluation HTTP requests
func (h *HTTPHandler) SubmitPathEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		RequestID string `json:"request_id"`
		Answers   []struct {
			QuestionID string  `json:"question_id"`
			IsApplied  bool    `json:"is_applied"`
			Notes      *string `json:"notes"`
		} `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	answers := make([]service.ChecklistAnswer, 0, len(body.Answers))
	for _, a := range body.Answers {
		answers = append(answers, service.ChecklistAnswer{QuestionID: a.QuestionID, IsApplied: a.IsApplied, Notes: a.Notes})
	}

	if err := h.evaluations.SubmitPathEvaluation(r.Context(), body.RequestID, h.actor(r), answers); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "evaluation recorded"})
}

// ListPathEvaluations handles checklist read HTTP requests
func (h *HTTPHandler) ListPathEvaluations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	evals, err := h.evaluations.PathEvaluations(r.Context(), requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"evaluations": evals})
}

// ── Shared helpers ───────────────────────────────────────────────────────────

func (h *HTTPHandler) actor(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Precondition
// failures surface as 404 so callers cannot probe request state.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		status = http.StatusForbidden
	case apperrors.CodePrecondition:
		status = http.StatusNotFound
	case apperrors.CodeInvariant:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  string(apperrors.CodeOf(err)),
		"error": err.Error(),
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
