package mq

import "time"

// Routing keys on the events exchange.
const (
	RoutingProjectCreated            = "project.created"
	RoutingProjectStatusChanged      = "project.status_changed"
	RoutingProjectProgressPinned     = "project.progress_pinned"
	RoutingProjectRecomputeRequested = "project.recompute.requested"
)

// ProjectCreatedPayload 工程创建
type ProjectCreatedPayload struct {
	ProjectID    int64     `json:"project_id"`
	ContractorID int       `json:"contractor_id"`
	OwnerID      int       `json:"owner_id"`
	Name         string    `json:"name"`
	FloorCount   int       `json:"floor_count"`
	CreatedAt    time.Time `json:"created_at"`
	TraceID      string    `json:"trace_id,omitempty"`
}

// ProjectStatusChangedPayload 状态迁移（包括自动完工）
type ProjectStatusChangedPayload struct {
	ProjectID int64     `json:"project_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Automatic bool      `json:"automatic"` // true when the timeline ran out
	Progress  int       `json:"progress"`
	ChangedAt time.Time `json:"changed_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// ProjectProgressPinnedPayload 手动覆盖或恢复自动
type ProjectProgressPinnedPayload struct {
	ProjectID int64     `json:"project_id"`
	Level     string    `json:"level"` // project / floor / task
	FloorID   string    `json:"floor_id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Value     int       `json:"value"`
	IsManual  bool      `json:"is_manual"`
	UserID    int       `json:"user_id"`
	PinnedAt  time.Time `json:"pinned_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// ProjectRecomputeRequestedPayload 请求 worker 重算并保存一个工程
type ProjectRecomputeRequestedPayload struct {
	ProjectID int64  `json:"project_id"`
	RequestID string `json:"request_id"`
	TraceID   string `json:"trace_id,omitempty"`
}
