package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/server/services"
)

type addNoteRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleAddNote(c *gin.Context) {
	user, _ := currentUser(c)

	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	note, err := s.notes.Create(c.Request.Context(), user.ID, req.Title, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, note, "Note created successfully")
}

type updateNoteRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPinned    *bool   `json:"isPinned"`
}

func (s *Server) handleUpdateNote(c *gin.Context) {
	user, _ := currentUser(c)

	var req updateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	note, err := s.notes.Update(c.Request.Context(), c.Param("noteId"), user.ID,
		req.Title, req.Description, req.IsPinned)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, note, "Note updated successfully")
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	user, _ := currentUser(c)

	if err := s.notes.Delete(c.Request.Context(), c.Param("noteId"), user.ID); err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "Note deleted successfully")
}

type updatePinnedRequest struct {
	IsPinned *bool `json:"isPinned"`
}

func (s *Server) handleUpdatePinned(c *gin.Context) {
	user, _ := currentUser(c)

	var req updatePinnedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsPinned == nil {
		s.fail(c, fmt.Errorf("%w: isPinned is required", common.ErrValidation))
		return
	}

	note, err := s.notes.SetPinned(c.Request.Context(), c.Param("noteId"), user.ID, *req.IsPinned)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, note, "Note pinned status updated successfully")
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

func (s *Server) handleGetNotes(c *gin.Context) {
	user, _ := currentUser(c)

	opts := services.ListOptions{
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 10),
		Query:    c.Query("query"),
		SortBy:   c.DefaultQuery("sortBy", "createdAt"),
		SortType: c.DefaultQuery("sortType", "desc"),
	}

	items, err := s.notes.List(c.Request.Context(), user.ID, opts)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, items, "Notes fetched successfully")
}

func (s *Server) handleSearchNotes(c *gin.Context) {
	user, _ := currentUser(c)

	items, err := s.notes.Search(c.Request.Context(), user.ID, c.Query("query"),
		intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, items, "Notes fetched successfully")
}

func (s *Server) handleGetNote(c *gin.Context) {
	user, _ := currentUser(c)

	note, err := s.notes.Get(c.Request.Context(), c.Param("noteId"), user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	respond(c, http.StatusOK, note, "Note fetched successfully")
}
