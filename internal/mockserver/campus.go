package mockserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ntkhang/classline/internal/dto"
)

func (s *Server) handleCourses(ctx *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx.JSON(http.StatusOK, s.courses)
}

func (s *Server) handleNotifications(ctx *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := make([]dto.NotificationDTO, 0, len(s.notifications))
	for _, n := range s.notifications {
		notes = append(notes, *n)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	ctx.JSON(http.StatusOK, notes)
}

func (s *Server) handleNotificationRead(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid notification ID"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notifications[uint(id)]
	if n == nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Notification not found"})
		return
	}
	n.Read = true
	ctx.Status(http.StatusNoContent)
}

// handleInterview returns a canned interviewer turn. Good enough for client
// development; the real backend delegates to an LLM.
func (s *Server) handleInterview(ctx *gin.Context) {
	var req dto.InterviewRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	reply := "Interesting. Can you walk me through a concrete example?"
	switch {
	case len(req.History) == 0:
		reply = "Let's begin. Tell me about a project you are proud of."
	case strings.Contains(strings.ToLower(req.Message), "don't know"):
		reply = "That's fine. How would you go about finding out?"
	}
	ctx.JSON(http.StatusOK, dto.InterviewResponseDTO{Reply: reply})
}
