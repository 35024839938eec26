package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/board"
	"kanban/internal/models"
)

type createTaskRequest struct {
	ColumnID string `json:"columnId"`
	board.TaskFields
}

type moveRequest struct {
	SourceColumnID string `json:"sourceColumnId"`
	DestColumnID   string `json:"destColumnId"`
	DestIndex      int    `json:"destIndex"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type subtaskRequest struct {
	Title string `json:"title"`
}

// respondBoard writes the post-mutation board or the mutation error.
func (s *Server) respondBoard(c *gin.Context, b models.Board, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"board": b})
}

// handleCreateTask inserts a new task at the top of a column.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	res, err := s.svc.AddTask(c.Request.Context(), c.Param("id"), req.ColumnID, req.TaskFields)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, res)
}

// handleUpdateTask replaces the editable fields of a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var task models.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	task.ID = c.Param("taskId")

	b, err := s.svc.UpdateTask(c.Request.Context(), c.Param("id"), task)
	s.respondBoard(c, b, err)
}

// handleDeleteTask removes a task from its project.
func (s *Server) handleDeleteTask(c *gin.Context) {
	b, err := s.svc.DeleteTask(c.Request.Context(), c.Param("id"), c.Param("taskId"))
	s.respondBoard(c, b, err)
}

// handleMoveTask relocates a task within or across columns.
func (s *Server) handleMoveTask(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	b, err := s.svc.MoveTask(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.SourceColumnID, req.DestColumnID, req.DestIndex)
	s.respondBoard(c, b, err)
}

// handleAddComment appends a comment to the task's activity.
func (s *Server) handleAddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	b, err := s.svc.AddComment(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Text)
	s.respondBoard(c, b, err)
}

func (s *Server) handleAddSubtask(c *gin.Context) {
	var req subtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	b, err := s.svc.AddSubtask(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Title)
	s.respondBoard(c, b, err)
}

func (s *Server) handleUpdateSubtask(c *gin.Context) {
	var patch board.SubtaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	b, err := s.svc.UpdateSubtask(c.Request.Context(), c.Param("id"), c.Param("taskId"), c.Param("subtaskId"), patch)
	s.respondBoard(c, b, err)
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	b, err := s.svc.DeleteSubtask(c.Request.Context(), c.Param("id"), c.Param("taskId"), c.Param("subtaskId"))
	s.respondBoard(c, b, err)
}

// handleAddAttachment stores an inline (data URI) attachment on a task.
func (s *Server) handleAddAttachment(c *gin.Context) {
	var att models.Attachment
	if err := c.ShouldBindJSON(&att); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	b, err := s.svc.AddAttachment(c.Request.Context(), c.Param("id"), c.Param("taskId"), att)
	s.respondBoard(c, b, err)
}

func (s *Server) handleDeleteAttachment(c *gin.Context) {
	b, err := s.svc.DeleteAttachment(c.Request.Context(), c.Param("id"), c.Param("taskId"), c.Param("attachmentId"))
	s.respondBoard(c, b, err)
}
