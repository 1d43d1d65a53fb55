package controller

import (
	"quiz_arena_backend/internal/service"
	"quiz_arena_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// QuizController 参赛端测验接口
type QuizController struct {
	AttemptService *service.AttemptService
}

func NewQuizController(attemptService *service.AttemptService) *QuizController {
	return &QuizController{AttemptService: attemptService}
}

type MarkAttemptedRequest struct {
	QuizID     string `json:"quizId"`
	QuestionID string `json:"questionId"`
}

type SubmitRequest struct {
	QuizID  string                `json:"_id"`
	Answers []service.AnswerInput `json:"answers"`
}

func (r SubmitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.QuizID, validation.Required.Error("quiz ID is required")),
		validation.Field(&r.Answers, validation.NotNil.Error("please provide your answers")),
	)
}

func teamID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return 0, false
	}
	return claims.SubjectID, true
}

// GetAvailable godoc
// @Summary 获取测验列表
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.QuizSummary}
// @Router /api/quiz/available [get]
func (c *QuizController) GetAvailable(ctx *gin.Context) {
	quizzes, err := c.AttemptService.ListAvailable(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// GetActive godoc
// @Summary 按队伍题目顺序获取进行中的测验
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ActiveQuiz}
// @Failure 404 {object} util.Response
// @Router /api/quiz/active [get]
func (c *QuizController) GetActive(ctx *gin.Context) {
	id, ok := teamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	quiz, err := c.AttemptService.ActiveQuizView(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// GetQuestion godoc
// @Summary 按顺序位置获取单道题目
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Param questionIndex query int true "zero-based index"
// @Success 200 {object} util.Response{data=service.QuestionEnvelope}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quiz/question [get]
func (c *QuizController) GetQuestion(ctx *gin.Context) {
	id, ok := teamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	quizID := ctx.Query("quizId")
	if quizID == "" {
		util.RespondError(ctx, util.ErrQuizIDRequired)
		return
	}
	index, err := strconv.Atoi(ctx.Query("questionIndex"))
	if err != nil {
		util.RespondError(ctx, util.ErrInvalidQuestionIndex)
		return
	}

	question, err := c.AttemptService.GetQuestionAt(ctx.Request.Context(), id, quizID, index)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// GetQuestions godoc
// @Summary 获取全部题目及答题进度
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Success 200 {object} util.Response{data=service.QuizProgress}
// @Failure 404 {object} util.Response
// @Router /api/quiz/questions [get]
func (c *QuizController) GetQuestions(ctx *gin.Context) {
	id, ok := teamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	progress, err := c.AttemptService.GetQuestions(ctx.Request.Context(), id, ctx.Query("quizId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// MarkAttempted godoc
// @Summary 记录已打开的题目
// @Tags quiz
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body MarkAttemptedRequest true "quiz and question"
// @Success 200 {object} util.Response
// @Router /api/quiz/question/attempt [post]
func (c *QuizController) MarkAttempted(ctx *gin.Context) {
	id, ok := teamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	var req MarkAttemptedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AttemptService.MarkAttempted(ctx.Request.Context(), id, req.QuizID, req.QuestionID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"quizId":     req.QuizID,
		"questionId": req.QuestionID,
		"attempted":  true,
	})
}

// Submit godoc
// @Summary 提交答案（仅一次）
// @Tags quiz
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SubmitRequest true "answers"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Success 201 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Router /api/quiz/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	id, ok := teamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	for _, a := range req.Answers {
		if len(a.QuestionID) > 64 {
			util.BadRequest(ctx, "invalid question ID")
			return
		}
	}

	result, err := c.AttemptService.Submit(ctx.Request.Context(), id, req.QuizID, req.Answers)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if result.AttemptCreated {
		util.Created(ctx, result)
		return
	}
	util.Success(ctx, result)
}

// GetResult godoc
// @Summary 获取本队评分结果
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param _id query string true "quiz id"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 404 {object} util.Response
// @Router /api/quiz/result [get]
func (c *QuizController) GetResult(ctx *gin.Context) {
	id, ok := teamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	result, err := c.AttemptService.GetResult(ctx.Request.Context(), id, ctx.Query("_id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
