package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"webcalc/internal/calculator"
	"webcalc/internal/leads"
)

type catalogResponse struct {
	*calculator.Catalog
	ProjectTypes []calculator.ProjectType `json:"projectTypes"`
	AddonOrder   []calculator.Addon       `json:"addonOrder"`
}

func (s *Server) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, catalogResponse{
		Catalog:      s.Engine.Catalog(),
		ProjectTypes: calculator.ProjectTypes,
		AddonOrder:   calculator.Addons,
	})
}

type estimateRequest struct {
	ProjectType calculator.ProjectType `json:"projectType"`
	Addons      []calculator.Addon     `json:"addons"`
}

// estimate prices a selection without storing anything.
func (s *Server) estimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := s.Engine.Calculate(req.ProjectType, req.Addons)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type submitResponse struct {
	OK          bool                    `json:"ok"`
	PriceResult *calculator.PriceResult `json:"priceResult,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Fields      calculator.FieldErrors  `json:"fields,omitempty"`
}

// submitLead is the lead endpoint the calculator posts to.
func (s *Server) submitLead(c *gin.Context) {
	var sub calculator.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, submitResponse{Error: leads.MsgInvalid})
		return
	}

	res, err := s.Leads.Submit(c.Request.Context(), sub, requestMeta(c))
	if err != nil {
		var rej *leads.RejectError
		if errors.As(err, &rej) {
			c.JSON(rej.Status, submitResponse{Error: rej.UserMessage(), Fields: rej.Fields})
			return
		}
		c.JSON(http.StatusInternalServerError, submitResponse{Error: leads.MsgUnavailable})
		return
	}
	c.JSON(http.StatusOK, submitResponse{OK: true, PriceResult: res})
}
