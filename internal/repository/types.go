package repository

import "time"

// ── Status and action enums ──────────────────────────────────────────────────

// Status is the closed set of request workflow statuses. The persisted
// representation is the string value; adding a status is a deliberate code
// change, never a silent new string.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusPending            Status = "pending"
	StatusInReview           Status = "in_review"
	StatusInProgress         Status = "in_progress"
	StatusMissingRequirement Status = "missing_requirement"
	StatusNeedMoreDetails    Status = "need_more_details"
	StatusCompleted          Status = "completed"
	StatusRejected           Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusDraft:              true,
	StatusPending:            true,
	StatusInReview:           true,
	StatusInProgress:         true,
	StatusMissingRequirement: true,
	StatusNeedMoreDetails:    true,
	StatusCompleted:          true,
	StatusRejected:           true,
}

// Valid reports whether s is a recognized status.
func (s Status) Valid() bool { return validStatuses[s] }

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusRejected }

// Action is the closed set of transition action kinds. Persisted on every
// transition row; must remain stable for history integrity.
type Action string

const (
	ActionSubmit             Action = "submit"
	ActionApprove            Action = "approve"
	ActionReject             Action = "reject"
	ActionRequestDetails     Action = "request_details"
	ActionProvideDetails     Action = "provide_details"
	ActionAssign             Action = "assign"
	ActionAssignPath         Action = "assign_path"
	ActionComplete           Action = "complete"
	ActionAcceptLater        Action = "accept_later"
	ActionRejectIdea         Action = "reject_idea"
	ActionActivate           Action = "activate"
	ActionEmployeeAccept     Action = "employee_accept"
	ActionEmployeeReject     Action = "employee_reject"
	ActionEmployeeComplete   Action = "employee_complete"
	ActionProgressUpdate     Action = "progress_update"
	ActionResubmit           Action = "resubmit"
	ActionReturnToDepartment Action = "return_to_department"
)

// Role is a department membership role.
type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ── Workflow subject ─────────────────────────────────────────────────────────

// Request is the workflow subject: an idea submitted for multi-department
// review. The status/department/assignee triple is the "stage"; every stage
// change resets CurrentStageStartedAt and produces exactly one Transition.
type Request struct {
	ID                      string     `json:"id"`
	OwnerUserID             string     `json:"owner_user_id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Benefits                *string    `json:"benefits,omitempty"`
	IdeaTypes               []string   `json:"idea_types,omitempty"`
	OriginatingDepartmentID *string    `json:"originating_department_id,omitempty"`
	Status                  Status     `json:"status"`
	CurrentDepartmentID     *string    `json:"current_department_id,omitempty"`
	CurrentUserID           *string    `json:"current_user_id,omitempty"`
	WorkflowPathID          *string    `json:"workflow_path_id,omitempty"`
	CurrentStageStartedAt   time.Time  `json:"current_stage_started_at"`
	SLAReminderSentAt       *time.Time `json:"sla_reminder_sent_at,omitempty"`
	RejectionReason         *string    `json:"rejection_reason,omitempty"`
	SubmittedAt             *time.Time `json:"submitted_at,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// Transition is one immutable record of a stage change.
type Transition struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"`
	FromDepartmentID *string   `json:"from_department_id,omitempty"`
	ToDepartmentID   *string   `json:"to_department_id,omitempty"`
	FromUserID       *string   `json:"from_user_id,omitempty"`
	ToUserID         *string   `json:"to_user_id,omitempty"`
	ActorUserID      string    `json:"actor_user_id"`
	Action           Action    `json:"action"`
	FromStatus       Status    `json:"from_status"`
	ToStatus         Status    `json:"to_status"`
	CommentAr        *string   `json:"comment_ar,omitempty"`
	CommentEn        *string   `json:"comment_en,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ── Directory and routing ────────────────────────────────────────────────────

// Department is an organizational unit. At most one department carries the
// intake flag; it receives all new submissions and performs final
// completion/rejection.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	IsIntake  bool      `json:"is_intake"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DepartmentMember ties a user to a department with a role.
type DepartmentMember struct {
	DepartmentID string    `json:"department_id"`
	UserID       string    `json:"user_id"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// WorkflowPath is an ordered template of departments a request is routed
// through after intake triage.
type WorkflowPath struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	IsActive  bool                `json:"is_active"`
	Position  int                 `json:"position"`
	Steps     []*WorkflowPathStep `json:"steps"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// WorkflowPathStep binds one department to a position in a path.
type WorkflowPathStep struct {
	ID               string    `json:"id"`
	PathID           string    `json:"path_id"`
	DepartmentID     string    `json:"department_id"`
	StepOrder        int       `json:"step_order"` // 1-based, unique per path
	RequiresApproval bool      `json:"requires_approval"`
	CreatedAt        time.Time `json:"created_at"`
}

// ── Evaluation ───────────────────────────────────────────────────────────────

// EvaluationQuestion is a weighted generic-evaluation question answered by the
// intake department. Active question weights never sum past 100.
type EvaluationQuestion struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Weight    int       `json:"weight"` // 0–100
	IsActive  bool      `json:"is_active"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestEvaluation is one scored answer: score = (answer/10) * weight.
type RequestEvaluation struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	QuestionID  string    `json:"question_id"`
	Answer      int       `json:"answer"` // 1–10
	Score       float64   `json:"score"`
	EvaluatorID string    `json:"evaluator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// PathEvaluationQuestion is an applied/not-applied checklist item bound to a
// workflow path, answered by the department manager.
type PathEvaluationQuestion struct {
	ID        string    `json:"id"`
	PathID    string    `json:"path_id"`
	Text      string    `json:"text"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PathEvaluation is one checklist answer, upserted per (request, question).
type PathEvaluation struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	QuestionID  string    `json:"question_id"`
	IsApplied   bool      `json:"is_applied"`
	Notes       *string   `json:"notes,omitempty"`
	EvaluatorID string    `json:"evaluator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
