package scoring

import (
	"net/http"
	"strconv"

	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/DhavalSuthar-24/crease/internal/interpreter"
	"github.com/DhavalSuthar-24/crease/internal/match"
	"github.com/DhavalSuthar-24/crease/internal/middleware"
	responses "github.com/DhavalSuthar-24/crease/pkg/matchresponse"
	"github.com/gin-gonic/gin"
)

// ScoringController handles the scorer console and scoreboard HTTP requests.
type ScoringController struct {
	svc *Service
}

func NewScoringController(svc *Service) *ScoringController {
	return &ScoringController{svc: svc}
}

// --- DTOs for requests ---

type CreateMatchRequest struct {
	Title      string `json:"title" binding:"max=200"`
	Team1ID    uint   `json:"team1_id"`
	Team2ID    uint   `json:"team2_id" binding:"omitempty,nefield=Team1ID"`
	OversLimit int    `json:"overs_limit" binding:"min=0,max=50"`
}

type SetTeamsRequest struct {
	Team1ID    uint `json:"team1_id" binding:"required"`
	Team2ID    uint `json:"team2_id" binding:"required,nefield=Team1ID"`
	OversLimit int  `json:"overs_limit" binding:"min=0,max=50"`
}

type TossRequest struct {
	WinnerTeamID uint               `json:"winner_team_id" binding:"required"`
	Decision     match.TossDecision `json:"decision" binding:"required,oneof=bat bowl"`
}

type AbandonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type CommandRequest struct {
	Phrase string `json:"phrase" binding:"required,max=200"`
}

// --- Lifecycle ---

// @Summary      Create a match
// @Description  Opens a match in setup. Giving both teams moves it straight to the toss.
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        match  body  CreateMatchRequest  true  "Match details"
// @Success      201  {object}  match.Match
// @Failure      400  {object}  map[string]string "Validation error"
// @Failure      404  {object}  map[string]string "Team not found"
// @Router       /v1/matches [post]
func (sc *ScoringController) CreateMatch(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		responses.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	m, err := sc.svc.CreateMatch(c.Request.Context(), CreateMatchInput{
		Title:      req.Title,
		CreatedBy:  userID,
		Team1ID:    req.Team1ID,
		Team2ID:    req.Team2ID,
		OversLimit: req.OversLimit,
	})
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, m)
}

// @Summary      Set the teams
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  string           true  "Match ID"
// @Param        teams  body  SetTeamsRequest  true  "Both sides and the overs limit"
// @Success      200  {object}  match.Match
// @Failure      409  {object}  map[string]string "Match is past setup"
// @Router       /v1/matches/{id}/teams [post]
func (sc *ScoringController) SetTeams(c *gin.Context) {
	var req SetTeamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}
	m, err := sc.svc.SetTeams(c.Request.Context(), c.Param("id"), req.Team1ID, req.Team2ID, req.OversLimit)
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, m)
}

// @Summary      Record the toss
// @Description  Settles who bats first and opens the first innings.
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string       true  "Match ID"
// @Param        toss  body  TossRequest  true  "Toss winner and decision"
// @Success      200  {object}  match.Match
// @Failure      409  {object}  map[string]string "Toss already recorded"
// @Router       /v1/matches/{id}/toss [post]
func (sc *ScoringController) RecordToss(c *gin.Context) {
	var req TossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}
	m, err := sc.svc.RecordToss(c.Request.Context(), c.Param("id"), req.WinnerTeamID, req.Decision)
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, m)
}

// @Summary      Start the second innings
// @Tags         Scoring
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Match ID"
// @Success      200  {object}  match.Match
// @Failure      409  {object}  map[string]string "Not at the innings break"
// @Router       /v1/matches/{id}/second-innings [post]
func (sc *ScoringController) StartSecondInnings(c *gin.Context) {
	m, err := sc.svc.StartSecondInnings(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, m)
}

// @Summary      Abandon a match
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string          true   "Match ID"
// @Param        reason  body  AbandonRequest  false  "Why play stopped"
// @Success      200  {object}  match.Match
// @Router       /v1/matches/{id}/abandon [post]
func (sc *ScoringController) Abandon(c *gin.Context) {
	var req AbandonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.ValidationErrorResponse(c, err)
			return
		}
	}
	m, err := sc.svc.Abandon(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, m)
}

// @Summary      Get a match
// @Description  Full scoreboard: match, innings and every player's figures.
// @Tags         Scoring
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Match ID"
// @Success      200  {object}  Snapshot
// @Failure      404  {object}  map[string]string "Match not found"
// @Router       /v1/matches/{id} [get]
func (sc *ScoringController) GetMatch(c *gin.Context) {
	snap, err := sc.svc.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, snap)
}

// --- Deliveries ---

// @Summary      Submit a delivery
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string          true  "Match ID"
// @Param        ball  body  ball.Candidate  true  "The delivery"
// @Success      201  {object}  Delta
// @Failure      400  {object}  map[string]string "Malformed delivery"
// @Failure      422  {object}  map[string]string "Rejected by the laws of the game"
// @Router       /v1/matches/{id}/balls [post]
func (sc *ScoringController) SubmitBall(c *gin.Context) {
	var cand ball.Candidate
	if err := c.ShouldBindJSON(&cand); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}
	d, err := sc.svc.Apply(c.Request.Context(), c.Param("id"), cand)
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, d)
}

// @Summary      List deliveries of an innings
// @Tags         Scoring
// @Produce      json
// @Security     BearerAuth
// @Param        id         path   string  true   "Match ID"
// @Param        number     path   int     true   "Innings number (1 or 2)"
// @Param        page       query  int     false  "Page number"
// @Param        page_size  query  int     false  "Items per page"
// @Success      200  {array}  ball.Event
// @Router       /v1/matches/{id}/innings/{number}/balls [get]
func (sc *ScoringController) ListBalls(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 || number > 2 {
		responses.ErrorResponse(c, http.StatusBadRequest, "Innings number must be 1 or 2")
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "60"))
	if err != nil || pageSize < 1 || pageSize > 300 {
		pageSize = 60
	}

	events, err := sc.svc.Balls(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}

	// page is bounded before multiplying so a huge page cannot overflow
	start := len(events)
	if page-1 < len(events)/pageSize+1 {
		start = min((page-1)*pageSize, len(events))
	}
	end := min(start+pageSize, len(events))
	responses.PaginatedResponse(c, http.StatusOK, events[start:end], page, pageSize, int64(len(events)))
}

// @Summary      Undo the last delivery
// @Tags         Scoring
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Match ID"
// @Success      200  {object}  UndoResult
// @Failure      409  {object}  map[string]string "Nothing to undo or another operation is in flight"
// @Router       /v1/matches/{id}/undo [post]
func (sc *ScoringController) Undo(c *gin.Context) {
	res, err := sc.svc.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, res)
}

// --- Spoken commands ---

// @Summary      Score by phrase
// @Description  A phrase that resolves is applied at once (201). An ambiguous one is held for confirmation (202).
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string          true  "Match ID"
// @Param        command  body  CommandRequest  true  "What the scorer said"
// @Success      201  {object}  CommandResult
// @Success      202  {object}  CommandResult
// @Failure      422  {object}  map[string]string "Phrase not recognised"
// @Router       /v1/matches/{id}/commands [post]
func (sc *ScoringController) Command(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}
	res, err := sc.svc.Command(c.Request.Context(), c.Param("id"), req.Phrase)
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	status := http.StatusCreated
	if res.Outcome == interpreter.Ambiguous {
		status = http.StatusAccepted
	}
	responses.SuccessResponse(c, status, res)
}

// @Summary      Confirm a pending command
// @Tags         Scoring
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id            path  string                    true  "Match ID"
// @Param        command_id    path  string                    true  "Pending command ID"
// @Param        confirmation  body  interpreter.Confirmation  true  "Chosen option and missing details"
// @Success      201  {object}  Delta
// @Failure      422  {object}  map[string]string "Command is stale"
// @Router       /v1/matches/{id}/commands/{command_id}/confirm [post]
func (sc *ScoringController) ConfirmCommand(c *gin.Context) {
	var conf interpreter.Confirmation
	if err := c.ShouldBindJSON(&conf); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}
	d, err := sc.svc.Confirm(c.Request.Context(), c.Param("id"), c.Param("command_id"), conf)
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusCreated, d)
}

// @Summary      Cancel a pending command
// @Tags         Scoring
// @Security     BearerAuth
// @Param        id          path  string  true  "Match ID"
// @Param        command_id  path  string  true  "Pending command ID"
// @Success      200  {object}  map[string]string
// @Router       /v1/matches/{id}/commands/{command_id} [delete]
func (sc *ScoringController) CancelCommand(c *gin.Context) {
	if err := sc.svc.CancelCommand(c.Param("id"), c.Param("command_id")); err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, gin.H{"message": "Command cancelled"})
}

// --- Repair ---

// @Summary      Rebuild projections from the event log
// @Tags         Scoring
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Match ID"
// @Success      200  {object}  Snapshot
// @Router       /v1/matches/{id}/rebuild [post]
func (sc *ScoringController) Rebuild(c *gin.Context) {
	snap, err := sc.svc.Rebuild(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, snap)
}

// @Summary      Check projections against the event log
// @Tags         Scoring
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Match ID"
// @Success      200  {object}  VerifyReport
// @Router       /v1/matches/{id}/verify [get]
func (sc *ScoringController) Verify(c *gin.Context) {
	report, err := sc.svc.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.AppErrorResponse(c, err)
		return
	}
	responses.SuccessResponse(c, http.StatusOK, report)
}
