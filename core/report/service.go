// Package report derives score summaries and trends from attempts. Nothing is stored.
package report

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/score"
	"github.com/trezcool/mathinsight/core/user"
)

const trendSampleSize = 6

var (
	// errors
	ErrChildNotFound   = core.NewNotFoundError("Child not found.")
	ErrAttemptNotFound = core.NewNotFoundError("Quiz attempt not found.")
)

type Service struct {
	rosterSvc  *roster.Service
	quizSvc    *quiz.Service
	attemptSvc *attempt.Service
}

func NewService(rosterSvc *roster.Service, quizSvc *quiz.Service, attemptSvc *attempt.Service) *Service {
	return &Service{
		rosterSvc:  rosterSvc,
		quizSvc:    quizSvc,
		attemptSvc: attemptSvc,
	}
}

func studentIDs(students []roster.Student) []int64 {
	ids := make([]int64, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return ids
}

func byStudent(attempts []attempt.Attempt) map[int64][]attempt.Attempt {
	grouped := make(map[int64][]attempt.Attempt)
	for _, a := range attempts {
		grouped[a.StudentID] = append(grouped[a.StudentID], a)
	}
	return grouped
}

func completedSamples(attempts []attempt.Attempt) []score.Sample {
	samples := make([]score.Sample, 0, len(attempts))
	for _, a := range attempts {
		if a.IsCompleted {
			samples = append(samples, a.Sample())
		}
	}
	return samples
}

// TeacherStudents summarizes the attempts of every student of the teacher. Only that teacher may see it.
func (svc *Service) TeacherStudents(ctx context.Context, actor user.User, teacherID int64) ([]StudentScoreSummary, error) {
	students, err := svc.rosterSvc.ListByTeacherID(ctx, actor, teacherID)
	if err != nil {
		return nil, err
	}
	attempts, err := svc.attemptSvc.Attempts(ctx, studentIDs(students))
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	grouped := byStudent(attempts)

	summaries := make([]StudentScoreSummary, 0, len(students))
	for _, s := range students {
		mine := grouped[s.ID] // most recent first
		samples := completedSamples(mine)
		sum := StudentScoreSummary{
			ID:                     s.ID,
			Name:                   s.Name,
			ParentEmail:            s.ParentEmail,
			ClassName:              s.ClassName,
			TotalQuizzesAttempted:  len(mine),
			AverageScorePercentage: score.MeanPercentage(samples),
			CompletedAttempts:      len(samples),
			IncompleteAttempts:     len(mine) - len(samples),
		}
		if len(mine) > 0 {
			sum.LatestQuizDate = null.TimeFrom(mine[0].AttemptedAt)
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// TeacherStudentDetail lists every attempt of one student of the teacher.
func (svc *Service) TeacherStudentDetail(ctx context.Context, actor user.User, teacherID, studentID int64) (StudentDetailedScores, error) {
	if err := access.Authorize(actor, access.Teacher(teacherID)); err != nil {
		return StudentDetailedScores{}, err
	}
	s, err := svc.rosterSvc.Get(ctx, actor, studentID)
	if err != nil {
		return StudentDetailedScores{}, err
	}
	attempts, err := svc.attemptSvc.Attempts(ctx, []int64{s.ID})
	if err != nil {
		return StudentDetailedScores{}, errors.Wrap(err, "querying attempts")
	}

	attemptIDs := make([]int64, 0, len(attempts))
	quizIDs := make([]int64, 0, len(attempts))
	for _, a := range attempts {
		attemptIDs = append(attemptIDs, a.ID)
		quizIDs = append(quizIDs, a.QuizID)
	}
	answers, err := svc.attemptSvc.Answers(ctx, attemptIDs)
	if err != nil {
		return StudentDetailedScores{}, err
	}
	quizzes, err := svc.quizSvc.QueryByID(ctx, quizIDs)
	if err != nil {
		return StudentDetailedScores{}, err
	}

	details := make([]AttemptDetail, 0, len(attempts))
	for _, a := range attempts {
		var correct int
		for _, ans := range answers[a.ID] {
			if ans.IsCorrect {
				correct++
			}
		}
		q := quizzes[a.QuizID]
		details = append(details, AttemptDetail{
			ID:                 a.ID,
			QuizID:             a.QuizID,
			QuizTitle:          a.QuizTitle,
			QuizTotalMarks:     q.TotalMarks,
			QuizTotalQuestions: q.TotalQuestions,
			CorrectAnswers:     correct,
			TotalQuestions:     len(answers[a.ID]),
			QuizMarks:          a.Score,
			TotalMarks:         a.TotalMarks,
			Percentage:         a.Percentage(),
			AttemptedAt:        a.AttemptedAt,
			CompletedAt:        a.CompletedAt,
			IsCompleted:        a.IsCompleted,
		})
	}

	return StudentDetailedScores{
		StudentID:    s.ID,
		StudentName:  s.Name,
		StudentEmail: s.ParentEmail,
		ClassName:    s.ClassName,
		QuizAttempts: details,
	}, nil
}

// summarize aggregates the attempts of s, ordered most recent first.
func summarize(s roster.Student, attempts []attempt.Attempt) ChildSummary {
	sum := ChildSummary{
		StudentID:              s.ID,
		StudentName:            s.Name,
		ClassName:              s.ClassName,
		TeacherName:            s.TeacherName,
		RecentPerformanceTrend: score.TrendNoData,
		PerformanceLevel:       score.LevelNoData,
	}
	if len(attempts) == 0 {
		return sum
	}

	samples := completedSamples(attempts)
	sum.TotalQuizzesAttempted = len(attempts)
	sum.CompletedQuizzes = len(samples)
	sum.IncompleteQuizzes = len(attempts) - len(samples)
	sum.LastQuizDate = null.TimeFrom(attempts[0].AttemptedAt)

	for i, smp := range samples {
		pct := smp.Percentage()
		if i == 0 || pct > sum.HighestScorePercentage {
			sum.HighestScorePercentage = pct
		}
		if i == 0 || pct < sum.LowestScorePercentage {
			sum.LowestScorePercentage = pct
		}
		sum.TotalMarksEarned += smp.Score
		sum.TotalPossibleMarks += smp.TotalMarks
	}
	sum.AverageScorePercentage = score.MeanPercentage(samples)

	recent := samples
	if len(recent) > trendSampleSize {
		recent = recent[:trendSampleSize]
	}
	sum.RecentPerformanceTrend = score.TrendOf(recent)
	sum.PerformanceLevel = score.LevelOf(sum.AverageScorePercentage)
	return sum
}

// ParentOverview summarizes the children of parent that have attempts.
// A child's average is the ratio of marks earned to marks possible over its completed attempts.
func (svc *Service) ParentOverview(ctx context.Context, parent user.User) (ParentOverview, error) {
	children, err := svc.rosterSvc.Children(ctx, parent)
	if err != nil {
		return ParentOverview{}, errors.Wrap(err, "querying children")
	}
	attempts, err := svc.attemptSvc.Attempts(ctx, studentIDs(children))
	if err != nil {
		return ParentOverview{}, errors.Wrap(err, "querying attempts")
	}
	grouped := byStudent(attempts)

	overview := ParentOverview{
		ChildrenCount:       len(children),
		ChildrenPerformance: make([]ChildSummary, 0, len(children)),
	}
	stats := &overview.OverallStatistics
	stats.TotalChildren = len(children)
	for _, child := range children {
		if len(grouped[child.ID]) == 0 {
			continue
		}
		sum := summarize(child, grouped[child.ID])
		sum.AverageScorePercentage = score.Percentage(sum.TotalMarksEarned, sum.TotalPossibleMarks)
		sum.PerformanceLevel = score.LevelOf(sum.AverageScorePercentage)
		overview.ChildrenPerformance = append(overview.ChildrenPerformance, sum)
		stats.TotalQuizAttempts += sum.CompletedQuizzes
		stats.TotalMarksEarned += sum.TotalMarksEarned
		stats.TotalPossibleMarks += sum.TotalPossibleMarks
	}
	possible := stats.TotalPossibleMarks
	if possible < 1 {
		possible = 1
	}
	stats.OverallAveragePercentage = score.Round2(float64(stats.TotalMarksEarned) / float64(possible) * 100)
	return overview, nil
}

func (svc *Service) child(ctx context.Context, parent user.User, childID int64, notFound error) (roster.Student, error) {
	child, err := svc.rosterSvc.Get(ctx, parent, childID)
	if err != nil {
		if errors.Cause(err) == roster.ErrNotYourChild {
			return roster.Student{}, notFound
		}
		return roster.Student{}, err
	}
	return child, nil
}

// ChildDetail returns the summary, attempts and monthly/weekly trends of one child of parent.
func (svc *Service) ChildDetail(ctx context.Context, parent user.User, childID int64) (ChildDetail, error) {
	child, err := svc.child(ctx, parent, childID, ErrChildNotFound)
	if err != nil {
		return ChildDetail{}, err
	}
	attempts, err := svc.attemptSvc.Attempts(ctx, []int64{child.ID})
	if err != nil {
		return ChildDetail{}, errors.Wrap(err, "querying attempts")
	}

	perfs := make([]AttemptPerformance, 0, len(attempts))
	for _, a := range attempts {
		perfs = append(perfs, newAttemptPerformance(a))
	}
	samples := completedSamples(attempts)
	return ChildDetail{
		StudentID:          child.ID,
		StudentName:        child.Name,
		ClassName:          child.ClassName,
		TeacherName:        child.TeacherName,
		PerformanceSummary: summarize(child, attempts),
		QuizAttempts:       perfs,
		PerformanceTrends: Trends{
			Monthly: score.Monthly(samples),
			Weekly:  score.Weekly(samples),
		},
	}, nil
}

// ChildAttemptDetail breaks an attempt of one child of parent down by question, unanswered questions included.
func (svc *Service) ChildAttemptDetail(ctx context.Context, parent user.User, childID, attemptID int64) (AttemptBreakdown, error) {
	child, err := svc.child(ctx, parent, childID, ErrAttemptNotFound)
	if err != nil {
		return AttemptBreakdown{}, err
	}
	a, err := svc.attemptSvc.Get(ctx, attempt.GetFilter{ID: attemptID, StudentID: child.ID})
	if err != nil {
		if errors.Cause(err) == attempt.ErrNotFound {
			return AttemptBreakdown{}, ErrAttemptNotFound
		}
		return AttemptBreakdown{}, err
	}

	byAttempt, err := svc.attemptSvc.Answers(ctx, []int64{a.ID})
	if err != nil {
		return AttemptBreakdown{}, err
	}
	answers := byAttempt[a.ID]
	questions, err := svc.quizSvc.QuestionsOf(ctx, a.QuizID)
	if err != nil {
		return AttemptBreakdown{}, errors.Wrap(err, "querying questions")
	}

	answered := make(map[int64]attempt.Answer, len(answers))
	for _, ans := range answers {
		answered[ans.QuestionID] = ans
	}
	breakdown := AttemptBreakdown{
		AttemptDetails:    newAttemptPerformance(a),
		QuestionBreakdown: make([]QuestionOutcome, 0, len(questions)),
		Summary: BreakdownSummary{
			AnsweredQuestions:  len(answers),
			TotalMarksPossible: a.TotalMarks,
			MarksEarned:        a.Score,
			Percentage:         a.Percentage(),
		},
	}

	// answered questions first, then the unanswered ones
	var unanswered []QuestionOutcome
	for _, qn := range questions {
		out := QuestionOutcome{
			QuestionID:    qn.ID,
			QuestionText:  qn.QuestionText,
			OptionA:       qn.OptionA,
			OptionB:       qn.OptionB,
			OptionC:       qn.OptionC,
			OptionD:       qn.OptionD,
			CorrectOption: qn.CorrectOption,
			Marks:         qn.Marks,
		}
		ans, ok := answered[qn.ID]
		if !ok {
			unanswered = append(unanswered, out)
			continue
		}
		out.SelectedOption = null.StringFrom(string(ans.SelectedOption))
		out.IsCorrect = ans.IsCorrect
		if ans.IsCorrect {
			out.MarksEarned = qn.Marks
			breakdown.Summary.CorrectAnswers++
		} else {
			breakdown.Summary.IncorrectAnswers++
		}
		breakdown.QuestionBreakdown = append(breakdown.QuestionBreakdown, out)
	}
	breakdown.QuestionBreakdown = append(breakdown.QuestionBreakdown, unanswered...)
	breakdown.Summary.UnansweredQuestions = len(unanswered)
	breakdown.Summary.TotalQuestions = len(breakdown.QuestionBreakdown)
	return breakdown, nil
}
