package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/message"
	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
	"github.com/ZentaChain/zentalk-msgcore/pkg/storage"
)

// MessageView is the metadata of a stored message. Sealed fields, key
// material and plaintext are never part of it.
type MessageView struct {
	ID             string   `json:"id"`
	Version        int      `json:"version"`
	RelayNodeID    string   `json:"relayNodeId"`
	SrcNodeID      string   `json:"srcNodeId"`
	DstNodeID      string   `json:"dstNodeId"`
	Checksum       string   `json:"checksum"`
	SentNodes      []string `json:"sentNodes"`
	RelayCount     int      `json:"relayCount"`
	ForwardCycles  int      `json:"forwardCycles"`
	EncryptionMode string   `json:"encryptionMode"`
	Status         string   `json:"status"`
	StatusText     string   `json:"statusText"`
	Ignore         bool     `json:"ignore"`
	TimeCreated    int64    `json:"timeCreated"`
	TimeReceived   int64    `json:"timeReceived"`
}

func newMessageView(m *message.Message) MessageView {
	rec := m.Record()
	return MessageView{
		ID:             rec.ID,
		Version:        rec.Version,
		RelayNodeID:    rec.RelayNodeID,
		SrcNodeID:      rec.SrcNodeID,
		DstNodeID:      rec.DstNodeID,
		Checksum:       rec.Checksum,
		SentNodes:      rec.SentNodes,
		RelayCount:     rec.RelayCount,
		ForwardCycles:  rec.ForwardCycles,
		EncryptionMode: string(rec.EncryptionMode),
		Status:         string(rec.Status),
		StatusText:     rec.Status.Text(),
		Ignore:         rec.Ignore,
		TimeCreated:    rec.TimeCreated,
		TimeReceived:   rec.TimeReceived,
	}
}

// ListResponse is returned by GET /api/v1/messages
type ListResponse struct {
	Success  bool          `json:"success"`
	Count    int           `json:"count"`
	Messages []MessageView `json:"messages"`
}

// StatusRequest is the body of PUT /api/v1/messages/:id/status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// StatusChangeResponse reports the status after a transition request
type StatusChangeResponse struct {
	Success    bool   `json:"success"`
	ID         string `json:"id"`
	Status     string `json:"status"`
	StatusText string `json:"statusText"`
	Changed    bool   `json:"changed"`
}

// RelayRequest is the body of POST /api/v1/messages/:id/relay
type RelayRequest struct {
	NodeID string `json:"nodeId" binding:"required"`
}

// handleListMessages handles GET /api/v1/messages
func (s *Server) handleListMessages(c *gin.Context) {
	filter := storage.ListFilter{DstNodeID: c.Query("dst")}

	if raw := c.Query("status"); raw != "" {
		status, err := protocol.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid status",
				Message: err.Error(),
			})
			return
		}
		filter.Status = status
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid limit",
				Message: "Limit must be a non-negative number",
			})
			return
		}
		filter.Limit = limit
	}

	messages, err := s.store.ListMessages(filter)
	if err != nil {
		s.internalError(c, "list messages", err)
		return
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, newMessageView(m))
	}

	c.JSON(http.StatusOK, ListResponse{
		Success:  true,
		Count:    len(views),
		Messages: views,
	})
}

// handleGetMessage handles GET /api/v1/messages/:id
func (s *Server) handleGetMessage(c *gin.Context) {
	m, err := s.store.GetMessage(c.Param("id"))
	if err != nil {
		s.storeError(c, "get message", err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    newMessageView(m),
	})
}

// handleUpdateStatus handles PUT /api/v1/messages/:id/status
func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	status, err := protocol.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid status",
			Message: err.Error(),
		})
		return
	}

	id := c.Param("id")
	previous, result, err := s.store.UpdateStatus(id, status)
	if err != nil {
		s.storeError(c, "update status", err)
		return
	}

	c.JSON(http.StatusOK, StatusChangeResponse{
		Success:    true,
		ID:         id,
		Status:     string(result),
		StatusText: result.Text(),
		Changed:    result != previous,
	})
}

// handleRecordRelay handles POST /api/v1/messages/:id/relay
func (s *Server) handleRecordRelay(c *gin.Context) {
	var req RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	m, err := s.store.RecordRelay(c.Param("id"), req.NodeID)
	if err != nil {
		s.storeError(c, "record relay", err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    newMessageView(m),
	})
}

func (s *Server) storeError(c *gin.Context, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Message not found",
			Message: c.Param("id"),
		})
		return
	}
	s.internalError(c, op, err)
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "Internal server error",
	})
}
