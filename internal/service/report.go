package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"quiz_arena_backend/pkg/logger"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var distributionRanges = []string{"0-50", "51-60", "61-70", "71-80", "81-90", "91-100"}

type DistributionBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type QuestionStat struct {
	QuestionID        string  `json:"questionId"`
	QuestionText      string  `json:"questionText"`
	TotalAnswers      int     `json:"totalAnswers"`
	CorrectAnswers    int     `json:"correctAnswers"`
	CorrectPercentage float64 `json:"correctPercentage"`
}

type TeamResult struct {
	Rank           int        `json:"rank"`
	TeamID         uint       `json:"teamId"`
	TeamName       string     `json:"teamName"`
	TeamLeaderName string     `json:"teamLeaderName"`
	Email          string     `json:"email"`
	Score          int        `json:"score"`
	FinalScore     string     `json:"finalScore"`
	TimeTaken      string     `json:"timeTaken"`
	SubmittedAt    *time.Time `json:"submittedAt"`

	elapsed time.Duration
}

type Report struct {
	QuizID             string               `json:"quizId"`
	QuizTitle          string               `json:"quizTitle"`
	Status             model.QuizStatus     `json:"status"`
	TotalPossibleScore int                  `json:"totalPossibleScore"`
	TotalAttempts      int                  `json:"totalAttempts"`
	SubmittedCount     int                  `json:"submittedCount"`
	HighestScore       int                  `json:"highestScore"`
	LowestScore        int                  `json:"lowestScore"`
	AverageScore       float64              `json:"averageScore"`
	ScoreDistribution  []DistributionBucket `json:"scoreDistribution"`
	QuestionStats      []QuestionStat       `json:"questionStats"`
	TeamResults        []TeamResult         `json:"teamResults"`
	GeneratedAt        time.Time            `json:"generatedAt"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// bucketOf 将百分比映射到对应分数段（上界闭区间）
func bucketOf(pct float64) int {
	switch {
	case pct <= 50:
		return 0
	case pct <= 60:
		return 1
	case pct <= 70:
		return 2
	case pct <= 80:
		return 3
	case pct <= 90:
		return 4
	default:
		return 5
	}
}

// FormatElapsed 将 submittedAt - startTime 格式化为 M:SS，任一时间缺失或为负时返回 N/A
func FormatElapsed(start, submitted *time.Time) (string, time.Duration) {
	if start == nil || submitted == nil {
		return "N/A", 0
	}
	d := submitted.Sub(*start)
	if d < 0 {
		return "N/A", 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60), d
}

// ComputeReport 汇总测验的已提交记录，不修改入参
func ComputeReport(quiz *model.Quiz, attempts []model.Attempt, teams map[uint]model.Team) *Report {
	total := quiz.TotalPoints()
	report := &Report{
		QuizID:             quiz.ID,
		QuizTitle:          quiz.Title,
		Status:             quiz.Status,
		TotalPossibleScore: total,
		TotalAttempts:      len(attempts),
		LowestScore:        total,
		ScoreDistribution:  make([]DistributionBucket, len(distributionRanges)),
		QuestionStats:      make([]QuestionStat, 0, len(quiz.Questions)),
		TeamResults:        []TeamResult{},
	}
	for i, r := range distributionRanges {
		report.ScoreDistribution[i].Range = r
	}

	statIndex := make(map[string]int, len(quiz.Questions))
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		statIndex[q.ID] = len(report.QuestionStats)
		report.QuestionStats = append(report.QuestionStats, QuestionStat{
			QuestionID:   q.ID,
			QuestionText: q.QuestionText,
		})
	}

	sum := 0
	for i := range attempts {
		a := &attempts[i]
		if !a.Submitted() {
			continue
		}
		report.SubmittedCount++
		sum += a.Score
		if a.Score > report.HighestScore {
			report.HighestScore = a.Score
		}
		if a.Score < report.LowestScore {
			report.LowestScore = a.Score
		}

		pct := percentage(a.Score, total)
		report.ScoreDistribution[bucketOf(pct)].Count++

		for _, ans := range a.Answers {
			idx, ok := statIndex[ans.QuestionID]
			if !ok {
				continue
			}
			report.QuestionStats[idx].TotalAnswers++
			if ans.IsCorrect {
				report.QuestionStats[idx].CorrectAnswers++
			}
		}

		team, ok := teams[a.TeamID]
		name := team.TeamName
		if !ok {
			name = "Unknown team"
		}
		timeTaken, elapsed := FormatElapsed(a.StartTime, a.SubmittedAt)
		report.TeamResults = append(report.TeamResults, TeamResult{
			TeamID:         a.TeamID,
			TeamName:       name,
			TeamLeaderName: team.TeamLeaderName,
			Email:          team.Email,
			Score:          a.Score,
			FinalScore:     fmt.Sprintf("%d%%", int(math.Round(pct))),
			TimeTaken:      timeTaken,
			SubmittedAt:    a.SubmittedAt,
			elapsed:        elapsed,
		})
	}

	if report.SubmittedCount > 0 {
		report.AverageScore = round2(float64(sum) / float64(report.SubmittedCount))
	}
	for i := range report.QuestionStats {
		st := &report.QuestionStats[i]
		st.CorrectPercentage = round2(percentage(st.CorrectAnswers, st.TotalAnswers))
	}

	// 分数高者优先，同分用时短者优先
	sort.SliceStable(report.TeamResults, func(i, j int) bool {
		a, b := report.TeamResults[i], report.TeamResults[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if (a.TimeTaken == "N/A") != (b.TimeTaken == "N/A") {
			return b.TimeTaken == "N/A"
		}
		return a.elapsed < b.elapsed
	})
	for i := range report.TeamResults {
		report.TeamResults[i].Rank = i + 1
	}
	return report
}

// ResultRow 管理端成绩列表中的一行
type ResultRow struct {
	model.Attempt
	Team *TeamInfo `json:"user"`
}

type TeamInfo struct {
	ID             uint   `json:"_id"`
	TeamName       string `json:"teamName"`
	TeamLeaderName string `json:"teamLeaderName"`
	Email          string `json:"email"`
}

// ReportService 生成成绩报告，并在缓存中保存每个测验的最新报告
type ReportService struct {
	Quizzes  QuizStore
	Attempts AttemptStore
	Teams    TeamStore
	Cache    ReportCache
	Hub      *ResultsHub

	mu  sync.RWMutex
	ttl time.Duration
	// gens 记录每个测验的失效次数，失效前生成的报告不会留在缓存中
	gens map[string]uint64
}

func NewReportService(quizzes QuizStore, attempts AttemptStore, teams TeamStore, cache ReportCache, hub *ResultsHub, cfg config.QuizConfig) *ReportService {
	return &ReportService{
		Quizzes:  quizzes,
		Attempts: attempts,
		Teams:    teams,
		Cache:    cache,
		Hub:      hub,
		ttl:      cfg.ReportCacheTTL(),
		gens:     make(map[string]uint64),
	}
}

func (s *ReportService) UpdateConfig(cfg config.QuizConfig) {
	s.mu.Lock()
	s.ttl = cfg.ReportCacheTTL()
	s.mu.Unlock()
}

func (s *ReportService) cacheTTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl
}

func (s *ReportService) generation(quizID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[quizID]
}

func (s *ReportService) bumpGeneration(quizID string) {
	s.mu.Lock()
	if s.gens == nil {
		s.gens = make(map[string]uint64)
	}
	s.gens[quizID]++
	s.mu.Unlock()
}

func (s *ReportService) teamsOf(ctx context.Context, attempts []model.Attempt) (map[uint]model.Team, error) {
	ids := make([]uint, 0, len(attempts))
	seen := make(map[uint]bool, len(attempts))
	for _, a := range attempts {
		if !seen[a.TeamID] {
			seen[a.TeamID] = true
			ids = append(ids, a.TeamID)
		}
	}
	return s.Teams.FindByIDs(ctx, ids)
}

// Build 绕过缓存直接计算报告
func (s *ReportService) Build(ctx context.Context, quizID string) (*Report, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.Attempts.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teamsOf(ctx, attempts)
	if err != nil {
		return nil, err
	}
	report := ComputeReport(quiz, attempts, teams)
	report.GeneratedAt = time.Now()
	return report, nil
}

// Report 优先返回缓存，缓存出错时只会多计算一次
func (s *ReportService) Report(ctx context.Context, quizID string) (*Report, error) {
	if s.Cache != nil && quizID != "" {
		data, err := s.Cache.Get(ctx, quizID)
		if err != nil {
			logger.Log.Warn("Report cache read failed", zap.String("quizId", quizID), zap.Error(err))
		} else if data != nil {
			var report Report
			if err := json.Unmarshal(data, &report); err == nil {
				return &report, nil
			}
		}
	}
	return s.Refresh(ctx, quizID)
}

// Refresh 重新生成报告并写入缓存；生成期间发生失效的报告只返回不缓存
func (s *ReportService) Refresh(ctx context.Context, quizID string) (*Report, error) {
	gen := s.generation(quizID)
	report, err := s.Build(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if s.Cache == nil || s.generation(quizID) != gen {
		return report, nil
	}

	data, err := json.Marshal(report)
	if err == nil {
		err = s.Cache.Set(ctx, quizID, data, s.cacheTTL())
	}
	if err != nil {
		logger.Log.Warn("Report cache write failed", zap.String("quizId", quizID), zap.Error(err))
		return report, nil
	}
	// 检查与写入之间可能发生了失效
	if s.generation(quizID) != gen {
		s.deleteCached(ctx, quizID)
	}
	return report, nil
}

// Invalidate 删除测验的缓存报告
func (s *ReportService) Invalidate(ctx context.Context, quizID string) {
	s.bumpGeneration(quizID)
	s.deleteCached(ctx, quizID)
}

func (s *ReportService) deleteCached(ctx context.Context, quizID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, quizID); err != nil {
		logger.Log.Warn("Report cache invalidation failed", zap.String("quizId", quizID), zap.Error(err))
	}
}

// HandleSubmission 注册到答题服务，使缓存失效并向实时订阅者推送新报告
func (s *ReportService) HandleSubmission(quizID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.Invalidate(ctx, quizID)
	if s.Hub == nil || !s.Hub.HasSubscribers(quizID) {
		return
	}
	report, err := s.Refresh(ctx, quizID)
	if err != nil {
		logger.Log.Error("Failed to build live report", zap.String("quizId", quizID), zap.Error(err))
		return
	}
	s.Hub.Publish(quizID, report)
}

// Results 列出测验的全部答题记录及队伍，按成绩排序
func (s *ReportService) Results(ctx context.Context, quizID string) ([]ResultRow, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	if _, err := s.Quizzes.FindByID(ctx, quizID); err != nil {
		return nil, err
	}
	attempts, err := s.Attempts.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teamsOf(ctx, attempts)
	if err != nil {
		return nil, err
	}

	rows := make([]ResultRow, 0, len(attempts))
	for _, a := range attempts {
		row := ResultRow{Attempt: a}
		if t, ok := teams[a.TeamID]; ok {
			row.Team = &TeamInfo{
				ID:             t.ID,
				TeamName:       t.TeamName,
				TeamLeaderName: t.TeamLeaderName,
				Email:          t.Email,
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows, nil
}

// WarmActive 刷新所有进行中测验的缓存报告
func (s *ReportService) WarmActive(ctx context.Context) (int, error) {
	ids, err := s.Quizzes.ListIDsByStatus(ctx, model.QuizActive)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, id := range ids {
		if _, err := s.Refresh(ctx, id); err != nil {
			logger.Log.Warn("Report warm-up failed", zap.String("quizId", id), zap.Error(err))
			continue
		}
		warmed++
	}
	return warmed, nil
}
