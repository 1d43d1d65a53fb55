package controller

import (
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/service"
	"quiz_arena_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminDashboardController struct {
	QuizAdminService *service.QuizAdminService
	ReportService    *service.ReportService
	Hub              *service.ResultsHub
}

func NewAdminDashboardController(quizAdmin *service.QuizAdminService, reports *service.ReportService, hub *service.ResultsHub) *AdminDashboardController {
	return &AdminDashboardController{
		QuizAdminService: quizAdmin,
		ReportService:    reports,
		Hub:              hub,
	}
}

type UpdateDetailsRequest struct {
	QuizID string `json:"_id"`
	service.QuizDetailsInput
}

type ReplaceQuestionsRequest struct {
	QuizID    string                  `json:"quizId"`
	Questions []service.QuestionInput `json:"questions"`
}

type UpdateStatusRequest struct {
	QuizID string           `json:"quizId"`
	Status model.QuizStatus `json:"status"`
}

// GetTeams godoc
// @Summary 获取已注册队伍
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Team}
// @Router /api/admin/dashboard/teams [get]
func (c *AdminDashboardController) GetTeams(ctx *gin.Context) {
	teams, err := c.QuizAdminService.ListTeams(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, teams)
}

// GetQuizzes godoc
// @Summary 获取全部测验（按创建时间倒序）
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.QuizDetails}
// @Router /api/admin/dashboard/quizzes [get]
func (c *AdminDashboardController) GetQuizzes(ctx *gin.Context) {
	quizzes, err := c.QuizAdminService.ListQuizzes(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// CreateQuiz godoc
// @Summary 创建测验（可附带题库）
// @Tags admin-dashboard
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuizInput true "quiz"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Router /api/admin/dashboard/quiz [post]
func (c *AdminDashboardController) CreateQuiz(ctx *gin.Context) {
	var req service.CreateQuizInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizAdminService.CreateQuiz(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// GetQuiz godoc
// @Summary 获取完整测验（含正确答案）
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /api/admin/dashboard/quiz [get]
func (c *AdminDashboardController) GetQuiz(ctx *gin.Context) {
	quiz, err := c.QuizAdminService.GetQuiz(ctx.Request.Context(), ctx.Query("quizId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// GetQuizDetails godoc
// @Summary 获取测验基本信息（不含题目）
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Success 200 {object} util.Response{data=service.QuizDetails}
// @Router /api/admin/dashboard/quiz/details [get]
func (c *AdminDashboardController) GetQuizDetails(ctx *gin.Context) {
	details, err := c.QuizAdminService.GetDetails(ctx.Request.Context(), ctx.Query("quizId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, details)
}

// UpdateQuizDetails godoc
// @Summary 更新测验标题、描述、时限、难度或乱序设置
// @Tags admin-dashboard
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body UpdateDetailsRequest true "fields to change"
// @Success 200 {object} util.Response{data=service.QuizDetails}
// @Router /api/admin/dashboard/quiz/details [put]
func (c *AdminDashboardController) UpdateQuizDetails(ctx *gin.Context) {
	var req UpdateDetailsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	details, err := c.QuizAdminService.UpdateDetails(ctx.Request.Context(), req.QuizID, req.QuizDetailsInput)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, details)
}

// DeleteQuizDetails godoc
// @Summary 删除未被作答的测验，否则重置其基本信息
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Success 200 {object} util.Response{data=service.ResetOutcome}
// @Router /api/admin/dashboard/quiz/details [delete]
func (c *AdminDashboardController) DeleteQuizDetails(ctx *gin.Context) {
	outcome, err := c.QuizAdminService.ResetOrDelete(ctx.Request.Context(), ctx.Query("quizId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}

// ReplaceQuestions godoc
// @Summary 整体替换题库，保留已有题目ID
// @Tags admin-dashboard
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ReplaceQuestionsRequest true "questions"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Router /api/admin/dashboard/quiz/questions [put]
func (c *AdminDashboardController) ReplaceQuestions(ctx *gin.Context) {
	var req ReplaceQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizAdminService.ReplaceQuestions(ctx.Request.Context(), req.QuizID, req.Questions)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// AddQuestion godoc
// @Summary 追加题目
// @Tags admin-dashboard
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "quiz id"
// @Param body body service.QuestionInput true "question"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/admin/dashboard/quiz/{quizId}/question [post]
func (c *AdminDashboardController) AddQuestion(ctx *gin.Context) {
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.QuizAdminService.AddQuestion(ctx.Request.Context(), ctx.Param("quizId"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// UpdateQuestion godoc
// @Summary 修改题目
// @Tags admin-dashboard
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "quiz id"
// @Param questionId path string true "question id"
// @Param body body service.QuestionInput true "question"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/admin/dashboard/quiz/{quizId}/question/{questionId} [put]
func (c *AdminDashboardController) UpdateQuestion(ctx *gin.Context) {
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.QuizAdminService.UpdateQuestion(ctx.Request.Context(), ctx.Param("quizId"), ctx.Param("questionId"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "quiz id"
// @Param questionId path string true "question id"
// @Success 200 {object} util.Response
// @Router /api/admin/dashboard/quiz/{quizId}/question/{questionId} [delete]
func (c *AdminDashboardController) DeleteQuestion(ctx *gin.Context) {
	if err := c.QuizAdminService.DeleteQuestion(ctx.Request.Context(), ctx.Param("quizId"), ctx.Param("questionId")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "question deleted"})
}

// UpdateQuizStatus godoc
// @Summary 切换测验状态（未开始、进行中、已结束）
// @Tags admin-dashboard
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body UpdateStatusRequest true "status"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Router /api/admin/dashboard/quiz/status [patch]
func (c *AdminDashboardController) UpdateQuizStatus(ctx *gin.Context) {
	var req UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizAdminService.UpdateStatus(ctx.Request.Context(), req.QuizID, req.Status)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// GetResults godoc
// @Summary 获取答题记录及队伍信息（按成绩排序）
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Success 200 {object} util.Response{data=[]service.ResultRow}
// @Router /api/admin/dashboard/results/attempts [get]
func (c *AdminDashboardController) GetResults(ctx *gin.Context) {
	rows, err := c.ReportService.Results(ctx.Request.Context(), ctx.Query("quizId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetReport godoc
// @Summary 获取成绩汇总报告
// @Tags admin-dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Success 200 {object} util.Response{data=service.Report}
// @Router /api/admin/dashboard/results [get]
func (c *AdminDashboardController) GetReport(ctx *gin.Context) {
	report, err := c.ReportService.Report(ctx.Request.Context(), ctx.Query("quizId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// LiveResults godoc
// @Summary WebSocket 实时推送成绩报告
// @Tags admin-dashboard
// @Security ApiKeyAuth
// @Param quizId query string true "quiz id"
// @Param token query string false "JWT when headers cannot be set"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/admin/dashboard/results/live [get]
func (c *AdminDashboardController) LiveResults(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID := ctx.Query("quizId")
	report, err := c.ReportService.Report(ctx.Request.Context(), quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, quizID, claims.SubjectID, report)
}
