package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signal-core/internal/market"
	"signal-core/pkg/db"
)

func (s *Server) run(c *gin.Context) {
	var ts market.TradingState
	if err := c.ShouldBindJSON(&ts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trading state: " + err.Error()})
		return
	}

	res := s.deps.Engine.Run(c.Request.Context(), ts)
	s.logger.Debug("run served",
		zap.String("subject", CurrentSubject(c)),
		zap.Int64("timestamp", ts.Timestamp),
		zap.Int("products", len(res.Orders)),
	)
	c.JSON(http.StatusOK, res)
}

func (s *Server) getStrategy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":   s.deps.Engine.StrategyName(),
		"config": s.deps.Engine.Config(),
	})
}

func (s *Server) listDecisions(c *gin.Context) {
	if s.deps.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision journal disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	rows, err := s.deps.Journal.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list decisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load decisions"})
		return
	}
	if rows == nil {
		rows = []db.DecisionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"decisions": rows})
}

func (s *Server) getDecision(c *gin.Context) {
	if s.deps.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision journal disabled"})
		return
	}

	rec, err := s.deps.Journal.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision not found"})
		return
	}
	if err != nil {
		s.logger.Error("get decision", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load decision"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) getMetrics(c *gin.Context) {
	body := gin.H{}
	if s.deps.Metrics != nil {
		body["engine"] = s.deps.Metrics.GetSnapshot()
	}
	if s.deps.Journal != nil {
		body["journal"] = s.deps.Journal.Stats()
	}
	if s.deps.Bus != nil {
		body["bus_dropped"] = s.deps.Bus.Dropped()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listSignals(c *gin.Context) {
	if s.deps.Signals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal cache disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": s.deps.Signals.All()})
}
