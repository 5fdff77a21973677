package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ZentaChain/zentalk-msgcore/pkg/protocol"
)

// HealthResponse reports node liveness and store counters
type HealthResponse struct {
	Status   string         `json:"status"`
	NodeID   string         `json:"nodeId,omitempty"`
	Version  int            `json:"protocolVersion"`
	Uptime   string         `json:"uptime"`
	Messages map[string]int `json:"messages"`
}

// handleHealth handles GET /api/v1/health
func (s *Server) handleHealth(c *gin.Context) {
	stats, err := s.store.Stats()
	if err != nil {
		s.logger.Warn("health check could not read the store", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:  "degraded",
			NodeID:  s.nodeID,
			Version: protocol.Version,
			Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
		})
		return
	}

	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		key := string(status)
		if key == "" {
			key = "none"
		}
		counts[key] = n
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		NodeID:   s.nodeID,
		Version:  protocol.Version,
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		Messages: counts,
	})
}

// NodeKeyResponse carries the node public key
type NodeKeyResponse struct {
	NodeID    string `json:"nodeId"`
	PublicKey string `json:"publicKey"`
}

// handleNodeKey handles GET /api/v1/node/key
func (s *Server) handleNodeKey(c *gin.Context) {
	if len(s.config.PublicKey) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Node key not configured",
		})
		return
	}

	c.JSON(http.StatusOK, NodeKeyResponse{
		NodeID:    s.nodeID,
		PublicKey: string(s.config.PublicKey),
	})
}
