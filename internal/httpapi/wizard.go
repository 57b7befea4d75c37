package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webcalc/internal/analytics"
	"webcalc/internal/calculator"
	"webcalc/internal/leads"
	"webcalc/internal/wizard"
)

type wizardResponse struct {
	State      wizard.State      `json:"state"`
	CanProceed bool              `json:"canProceed"`
	Events     []analytics.Event `json:"events"`
	Error      string            `json:"error,omitempty"`
}

// wizardCall runs one wizard operation with a per request analytics
// recorder, so the browser can replay the events to gtag and fbq.
func (s *Server) wizardCall(c *gin.Context, op func(*gin.Context) (wizard.State, error)) {
	rec := &analytics.Recorder{}
	ctx := analytics.WithRecorder(c.Request.Context(), rec)
	ctx = leads.WithMeta(ctx, requestMeta(c))
	c.Request = c.Request.WithContext(ctx)

	state, err := op(c)
	resp := wizardResponse{State: state, Events: rec.Drain()}
	if resp.Events == nil {
		resp.Events = []analytics.Event{}
	}
	if state.SessionID != "" {
		resp.CanProceed = wizard.New(state, nil, nil).CanProceed()
	}

	if err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	status := wizardErrorStatus(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("Wizard operation failed", zap.String("session_id", c.Param("id")), zap.Error(err))
	}
	resp.Error = wizardErrorMessage(err, state)
	if state.SessionID == "" {
		c.JSON(status, gin.H{"error": resp.Error})
		return
	}
	c.JSON(status, resp)
}

func wizardErrorStatus(err error) int {
	var (
		verr *wizard.ValidationError
		rej  *leads.RejectError
	)
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rej):
		return rej.Status
	case errors.Is(err, calculator.ErrUnknownProjectType), errors.Is(err, calculator.ErrUnknownAddon):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrStepIncomplete),
		errors.Is(err, wizard.ErrSubmitRequired),
		errors.Is(err, wizard.ErrNotOnContactStep),
		errors.Is(err, wizard.ErrTerminal):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func wizardErrorMessage(err error, state wizard.State) string {
	if state.SubmitError != "" {
		return state.SubmitError
	}
	if errors.Is(err, wizard.ErrSessionNotFound) {
		return "Kalkulace vypršela. Začněte prosím znovu."
	}
	return err.Error()
}

func (s *Server) startWizard(c *gin.Context) {
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.Start(c.Request.Context())
	})
}

func (s *Server) getWizard(c *gin.Context) {
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.Get(c.Request.Context(), c.Param("id"))
	})
}

func (s *Server) discardWizard(c *gin.Context) {
	if err := s.Wizard.Discard(c.Request.Context(), c.Param("id")); err != nil {
		s.Logger.Error("Failed to discard wizard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to discard session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateWizard(c *gin.Context) {
	var patch wizard.DataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.Update(c.Request.Context(), c.Param("id"), patch)
	})
}

func (s *Server) selectProjectType(c *gin.Context) {
	var req struct {
		ProjectType calculator.ProjectType `json:"projectType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.SelectProjectType(c.Request.Context(), c.Param("id"), req.ProjectType)
	})
}

func (s *Server) toggleAddon(c *gin.Context) {
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.ToggleAddon(c.Request.Context(), c.Param("id"), calculator.Addon(c.Param("addon")))
	})
}

func (s *Server) nextStep(c *gin.Context) {
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.Next(c.Request.Context(), c.Param("id"))
	})
}

func (s *Server) previousStep(c *gin.Context) {
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.Back(c.Request.Context(), c.Param("id"))
	})
}

func (s *Server) submitWizard(c *gin.Context) {
	s.wizardCall(c, func(c *gin.Context) (wizard.State, error) {
		return s.Wizard.Submit(c.Request.Context(), c.Param("id"))
	})
}
