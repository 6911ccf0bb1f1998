package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitetrack/internal/model"
	"sitetrack/internal/service/project"
	"sitetrack/pkg/rbac"
)

type ProjectHandler struct {
	svc    *project.Service
	logger *zap.Logger
}

func NewProjectHandler(svc *project.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

// Create handles POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req project.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, "Create", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "Get", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List handles GET /projects?role=contractor|owner. Without role the
// caller's own role decides which list is returned.
func (h *ProjectHandler) List(c *gin.Context) {
	actor := actorFrom(c)
	role := c.DefaultQuery("role", actor.Role)

	var (
		projects []*model.Project
		err      error
	)
	switch role {
	case rbac.RoleOwner:
		projects, err = h.svc.ListForOwner(c.Request.Context(), actor)
	case rbac.RoleContractor, rbac.RoleAdmin:
		projects, err = h.svc.ListForContractor(c.Request.Context(), actor)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be contractor or owner"})
		return
	}
	if err != nil {
		respondError(c, h.logger, "List", err)
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Update handles PATCH /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req project.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.reply(c, "Update", func() (*model.Project, error) {
		return h.svc.Update(c.Request.Context(), actorFrom(c), id, req)
	})
}

type progressRequest struct {
	Value    *int  `json:"value"`
	IsManual *bool `json:"is_manual"`
}

// bind reads the body. Omitting is_manual pins the value.
func (r *progressRequest) bind(c *gin.Context) bool {
	if err := c.ShouldBindJSON(r); err != nil || r.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return false
	}
	if r.IsManual == nil {
		manual := true
		r.IsManual = &manual
	}
	return true
}

// SetProjectProgress handles PUT /projects/:id/progress
func (h *ProjectHandler) SetProjectProgress(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req progressRequest
	if !req.bind(c) {
		return
	}
	h.reply(c, "SetProjectProgress", func() (*model.Project, error) {
		return h.svc.SetProjectProgress(c.Request.Context(), actorFrom(c), id, *req.Value, *req.IsManual)
	})
}

// ResetProjectProgress handles DELETE /projects/:id/progress
func (h *ProjectHandler) ResetProjectProgress(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	h.reply(c, "ResetProjectProgress", func() (*model.Project, error) {
		return h.svc.ResetProjectToAutomatic(c.Request.Context(), actorFrom(c), id)
	})
}

// SetFloorProgress handles PUT /projects/:id/floors/:floorId/progress
func (h *ProjectHandler) SetFloorProgress(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req progressRequest
	if !req.bind(c) {
		return
	}
	h.reply(c, "SetFloorProgress", func() (*model.Project, error) {
		return h.svc.SetFloorProgress(c.Request.Context(), actorFrom(c), id, c.Param("floorId"), *req.Value, *req.IsManual)
	})
}

// ResetFloorProgress handles DELETE /projects/:id/floors/:floorId/progress
func (h *ProjectHandler) ResetFloorProgress(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	h.reply(c, "ResetFloorProgress", func() (*model.Project, error) {
		return h.svc.ResetFloorToAutomatic(c.Request.Context(), actorFrom(c), id, c.Param("floorId"))
	})
}

// SetTaskProgress handles PUT /projects/:id/floors/:floorId/tasks/:taskId/progress
func (h *ProjectHandler) SetTaskProgress(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req progressRequest
	if !req.bind(c) {
		return
	}
	h.reply(c, "SetTaskProgress", func() (*model.Project, error) {
		return h.svc.SetTaskProgress(c.Request.Context(), actorFrom(c), id,
			c.Param("floorId"), c.Param("taskId"), *req.Value, *req.IsManual)
	})
}

// ResetTaskProgress handles DELETE /projects/:id/floors/:floorId/tasks/:taskId/progress
func (h *ProjectHandler) ResetTaskProgress(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	h.reply(c, "ResetTaskProgress", func() (*model.Project, error) {
		return h.svc.ResetTaskToAutomatic(c.Request.Context(), actorFrom(c), id, c.Param("floorId"), c.Param("taskId"))
	})
}

type lifecycleFunc func(c *gin.Context, actor project.Actor, id int64) (*model.Project, error)

// Lifecycle returns the handler for POST /projects/:id/<action>.
func (h *ProjectHandler) Lifecycle(action string) gin.HandlerFunc {
	var fn lifecycleFunc
	switch action {
	case "start":
		fn = func(c *gin.Context, a project.Actor, id int64) (*model.Project, error) {
			return h.svc.Start(c.Request.Context(), a, id)
		}
	case "postpone":
		fn = func(c *gin.Context, a project.Actor, id int64) (*model.Project, error) {
			return h.svc.Postpone(c.Request.Context(), a, id)
		}
	case "resume":
		fn = func(c *gin.Context, a project.Actor, id int64) (*model.Project, error) {
			return h.svc.Resume(c.Request.Context(), a, id)
		}
	case "end":
		fn = func(c *gin.Context, a project.Actor, id int64) (*model.Project, error) {
			return h.svc.End(c.Request.Context(), a, id)
		}
	default:
		panic("unknown lifecycle action " + action)
	}

	return func(c *gin.Context) {
		id, ok := projectID(c)
		if !ok {
			return
		}
		h.reply(c, action, func() (*model.Project, error) {
			return fn(c, actorFrom(c), id)
		})
	}
}

// SetStatus handles PUT /projects/:id/status
func (h *ProjectHandler) SetStatus(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req struct {
		Status model.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	h.reply(c, "SetStatus", func() (*model.Project, error) {
		return h.svc.SetStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	})
}

func (h *ProjectHandler) reply(c *gin.Context, op string, fn func() (*model.Project, error)) {
	p, err := fn()
	if err != nil {
		respondError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
