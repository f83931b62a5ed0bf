package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winova/contest-api/internal/middleware"
	"github.com/winova/contest-api/internal/service"
	appErrors "github.com/winova/contest-api/pkg/errors"
	"github.com/winova/contest-api/pkg/response"
)

// QuizHandler exposes quiz qualification endpoints.
type QuizHandler struct {
	quizzes *service.QuizService
}

// NewQuizHandler constructs QuizHandler.
func NewQuizHandler(quizzes *service.QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// Get godoc
// @Summary Get the public quiz for a contest
// @Tags Quizzes
// @Produce json
// @Param contestId path string true "Contest ID"
// @Success 200 {object} response.Envelope
// @Router /quizzes/contest/{contestId} [get]
func (h *QuizHandler) Get(c *gin.Context) {
	quiz, cacheHit, err := h.quizzes.PublicQuiz(c.Request.Context(), c.Param("contestId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, quiz, nil, middleware.ExtractMeta(c))
}

// Submit godoc
// @Summary Submit a quiz answer for grading
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param contestId path string true "Contest ID"
// @Param payload body service.SubmitAnswerRequest true "Submission payload"
// @Success 200 {object} response.Envelope
// @Router /quizzes/contest/{contestId}/submit [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	outcome, err := h.quizzes.Submit(c.Request.Context(), claims.UserID, c.Param("contestId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
