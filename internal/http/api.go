package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

// RealtimeHandler accepts websocket subscriptions.
type RealtimeHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users         service.UserService
	tasks         service.TaskService
	notifications service.NotificationService
	attachments   service.AttachmentService
	realtime      RealtimeHandler
	jwtSecret     string
	tokenTTL      time.Duration
	logger        *logrus.Logger
}

func NewHandler(
	users service.UserService,
	tasks service.TaskService,
	notifications service.NotificationService,
	attachments service.AttachmentService,
	realtime RealtimeHandler,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:         users,
		tasks:         tasks,
		notifications: notifications,
		attachments:   attachments,
		realtime:      realtime,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.GET("/ws", func(c *gin.Context) {
		h.realtime.ServeWS(c.Writer, c.Request)
	})

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
	}

	authed := api.Group("")
	authed.Use(h.authMiddleware())
	{
		authed.GET("/auth/me", h.me)
		authed.GET("/users", h.listUsers)

		authed.GET("/tasks", h.listTasks)
		authed.POST("/tasks", h.createTask)
		authed.GET("/tasks/overdue", h.listOverdueTasks)
		authed.GET("/tasks/search", h.searchTasks)
		authed.GET("/tasks/filter", h.filterTasks)
		authed.GET("/tasks/user/me", h.listMyTasks)
		authed.GET("/tasks/status/:status", h.listTasksByStatus)
		authed.GET("/tasks/:id", h.getTask)
		authed.PUT("/tasks/:id", h.updateTask)
		authed.DELETE("/tasks/:id", h.deleteTask)

		authed.POST("/tasks/:id/attachments", h.uploadAttachment)
		authed.GET("/tasks/:id/attachments", h.listAttachments)
		authed.GET("/attachments/:id/url", h.attachmentURL)
		authed.DELETE("/attachments/:id", h.deleteAttachment)

		authed.GET("/notifications", h.listNotifications)
		authed.PUT("/notifications/:id/read", h.markNotificationRead)
		authed.POST("/notifications/send", h.sendNotification)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ---- auth ----

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userToResponse(*user)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userToResponse(*user)})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

// ---- tasks ----

type createTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	AssigneeID  *int64  `json:"assigneeId"`
}

type updateTaskRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Status      *string       `json:"status"`
	Priority    *string       `json:"priority"`
	DueDate     optionalTime  `json:"dueDate"`
	AssigneeID  optionalInt64 `json:"assigneeId"`
}

// optionalInt64 distinguishes an absent field from an explicit null.
type optionalInt64 struct {
	Set   bool
	Value *int64
}

func (o *optionalInt64) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type optionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *optionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", raw, err)
	}
	o.Value = &t
	return nil
}

func (h *Handler) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
		Priority:    domain.TaskPriority(req.Priority),
		AssigneeID:  req.AssigneeID,
	}
	if req.DueDate != nil {
		t, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid due date: %v", err)})
			return
		}
		input.DueDate = &t
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(*task))
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) updateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		input.Status = &s
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		input.Priority = &p
	}
	if req.DueDate.Set {
		input.DueDate = &req.DueDate.Value
	}
	if req.AssigneeID.Set {
		input.AssigneeID = &req.AssigneeID.Value
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), currentUserID(c), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// Fetched first so stored attachment objects can be cleaned up after the
	// delete; authorization itself happens inside the service.
	task, err := h.tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.attachments.CleanupObjects(c.Request.Context(), task.Attachments)

	c.Status(http.StatusNoContent)
}

func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) listMyTasks(c *gin.Context) {
	kind := repository.UserTaskKind(c.DefaultQuery("type", "all"))
	tasks, err := h.tasks.ListByUser(c.Request.Context(), currentUserID(c), kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) listTasksByStatus(c *gin.Context) {
	status := domain.TaskStatus(c.Param("status"))
	tasks, err := h.tasks.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) listOverdueTasks(c *gin.Context) {
	tasks, err := h.tasks.ListOverdue(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) searchTasks(c *gin.Context) {
	tasks, err := h.tasks.SearchTasks(c.Request.Context(), c.Query("q"), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) filterTasks(c *gin.Context) {
	filter := repository.TaskFilter{
		Due: repository.DueBucket(c.Query("dueDate")),
	}
	if status := c.Query("status"); status != "" && status != "all" {
		filter.Status = domain.TaskStatus(status)
	}
	if priority := c.Query("priority"); priority != "" && priority != "all" {
		filter.Priority = domain.TaskPriority(priority)
	}
	if raw := c.Query("assigneeId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee id"})
			return
		}
		filter.AssigneeID = &id
	}

	tasks, err := h.tasks.FilterTasks(c.Request.Context(), filter, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

// ---- attachments ----

func (h *Handler) uploadAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	attachment, err := h.attachments.Upload(
		c.Request.Context(),
		currentUserID(c),
		id,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attachmentToResponse(*attachment))
}

func (h *Handler) listAttachments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	attachments, err := h.attachments.ListForTask(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]AttachmentResponse, len(attachments))
	for i := range attachments {
		resp[i] = attachmentToResponse(attachments[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) attachmentURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	url, err := h.attachments.DownloadURL(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) deleteAttachment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.attachments.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- notifications ----

type sendNotificationRequest struct {
	UserID  int64  `json:"userId" binding:"required"`
	TaskID  int64  `json:"taskId" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *Handler) listNotifications(c *gin.Context) {
	notifications, err := h.notifications.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]NotificationResponse, len(notifications))
	for i := range notifications {
		resp[i] = notificationToResponse(notifications[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.notifications.Notify(c.Request.Context(), req.UserID, req.TaskID, req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notificationToResponse(*notification))
}

// ---- helpers & responses ----

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Errorf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type TaskResponse struct {
	ID          int64                `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      domain.TaskStatus    `json:"status"`
	Priority    domain.TaskPriority  `json:"priority"`
	DueDate     *string              `json:"dueDate"`
	CreatorID   int64                `json:"creatorId"`
	AssigneeID  *int64               `json:"assigneeId"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
}

type NotificationResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	TaskID    int64  `json:"taskId"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

type AttachmentResponse struct {
	ID          int64  `json:"id"`
	TaskID      int64  `json:"taskId"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	CreatedAt   string `json:"createdAt"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func taskToResponse(task domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		CreatorID:   task.CreatorID,
		AssigneeID:  task.AssigneeID,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
	if task.DueDate != nil {
		v := task.DueDate.Format(time.RFC3339)
		resp.DueDate = &v
	}
	if len(task.Attachments) > 0 {
		resp.Attachments = make([]AttachmentResponse, len(task.Attachments))
		for i := range task.Attachments {
			resp.Attachments[i] = attachmentToResponse(task.Attachments[i])
		}
	}
	return resp
}

func tasksToResponse(tasks []domain.Task) []TaskResponse {
	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(tasks[i])
	}
	return resp
}

func notificationToResponse(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		TaskID:    n.TaskID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

func attachmentToResponse(a domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		TaskID:      a.TaskID,
		FileName:    a.FileName,
		Size:        a.Size,
		ContentType: a.ContentType,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}
