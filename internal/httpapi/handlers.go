package httpapi

// #region imports
import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/czhharrison/MerchantChat/internal/assistant"
	"github.com/czhharrison/MerchantChat/internal/conversation"
)

// #endregion

// #region requests

type attributesRequest struct {
	Text string `json:"text"`
}

type titleRequest struct {
	Description string   `json:"description"`
	Style       string   `json:"style"`
	Audience    string   `json:"audience"`
	SessionID   string   `json:"session_id"`
	Keywords    []string `json:"keywords"`
}

func (r titleRequest) input() assistant.TitleInput {
	return assistant.TitleInput{
		Description: r.Description,
		Style:       r.Style,
		Audience:    r.Audience,
		SessionID:   r.SessionID,
		Keywords:    r.Keywords,
	}
}

type scoreRequest struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Audience string   `json:"audience"`
}

type competitorRequest struct {
	Title       string   `json:"title" binding:"required"`
	OwnKeywords []string `json:"own_keywords"`
}

type turnPayload struct {
	Role string `json:"role" binding:"required"`
	Text string `json:"text"`
}

type preferencesRequest struct {
	Turns []turnPayload `json:"turns" binding:"required,dive"`
}

type strategyRequest struct {
	Category string `json:"category"`
	Audience string `json:"audience"`
	Budget   string `json:"budget"`
}

type solutionRequest struct {
	Description     string `json:"description"`
	Audience        string `json:"audience"`
	Budget          string `json:"budget"`
	CompetitorTitle string `json:"competitor_title"`
	SessionID       string `json:"session_id"`
}

// turnRequest without a role is a chat message answered by the assistant; with
// a role it is appended verbatim.
type turnRequest struct {
	Role string `json:"role"`
	Text string `json:"text" binding:"required"`
}

// #endregion requests

// #region stateless-handlers

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "merchantchat"})
}

func (s *server) extractAttributes(c *gin.Context) {
	var req attributesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, s.svc.ExtractAttributes(req.Text))
}

func (s *server) listAudiences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"audiences": s.svc.Audiences()})
}

func (s *server) resolveAudience(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.ResolveAudience(c.Param("tag")))
}

func (s *server) listStyles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"styles": s.svc.Styles()})
}

func (s *server) generateTitle(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	cand, err := s.svc.GenerateTitle(c.Request.Context(), req.input())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

func (s *server) scoreTitle(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, s.svc.ScoreTitle(req.Title, req.Keywords, req.Audience))
}

func (s *server) refineTitle(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	out, err := s.svc.RefineTitle(c.Request.Context(), req.input())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *server) analyzeCompetitor(c *gin.Context) {
	var req competitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, s.svc.AnalyzeCompetitor(req.Title, req.OwnKeywords))
}

func (s *server) extractPreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	turns := make([]conversation.Turn, 0, len(req.Turns))
	for i, t := range req.Turns {
		role := conversation.Role(t.Role)
		if !role.Valid() {
			s.badRequest(c, fmt.Errorf("turns[%d]: invalid role %q", i, t.Role))
			return
		}
		turns = append(turns, conversation.Turn{Role: role, Text: t.Text})
	}
	c.JSON(http.StatusOK, s.svc.ExtractPreferences(turns))
}

func (s *server) suggestStrategy(c *gin.Context) {
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy": s.svc.SuggestStrategy(req.Category, req.Audience, req.Budget)})
}

func (s *server) solve(c *gin.Context) {
	var req solutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	sol, err := s.svc.Solve(c.Request.Context(), assistant.SolveInput{
		Description:     req.Description,
		Audience:        req.Audience,
		Budget:          req.Budget,
		CompetitorTitle: req.CompetitorTitle,
		SessionID:       req.SessionID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sol)
}

// #endregion stateless-handlers

// #region session-handlers

func (s *server) newSession(c *gin.Context) {
	id, err := s.svc.NewSession()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (s *server) history(c *gin.Context) {
	turns, err := s.svc.History(c.Param("id"), 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

func (s *server) addTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	id := c.Param("id")

	if req.Role == "" {
		reply, err := s.svc.Respond(c.Request.Context(), id, req.Text)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, reply)
		return
	}

	role := conversation.Role(req.Role)
	if !role.Valid() {
		s.badRequest(c, fmt.Errorf("invalid role %q", req.Role))
		return
	}
	turn, err := s.svc.AddTurn(id, role, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, turn)
}

func (s *server) sessionPreferences(c *gin.Context) {
	snap, err := s.svc.SessionPreferences(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// #endregion session-handlers
