package report

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/score"
)

// StudentScoreSummary is one row of a teacher's class report.
type StudentScoreSummary struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	ParentEmail            string    `json:"parent_email"`
	ClassName              string    `json:"class_name"`
	TotalQuizzesAttempted  int       `json:"total_quizzes_attempted"`
	AverageScorePercentage float64   `json:"average_score_percentage"`
	LatestQuizDate         null.Time `json:"latest_quiz_date"`
	CompletedAttempts      int       `json:"completed_attempts"`
	IncompleteAttempts     int       `json:"incomplete_attempts"`
}

// AttemptDetail is an attempt as shown to its student's teacher.
type AttemptDetail struct {
	ID                 int64     `json:"id"`
	QuizID             int64     `json:"quiz_id"`
	QuizTitle          string    `json:"quiz_title"`
	QuizTotalMarks     int       `json:"quiz_total_marks"`
	QuizTotalQuestions int       `json:"quiz_total_questions"`
	CorrectAnswers     int       `json:"correct_answers"`
	TotalQuestions     int       `json:"total_questions"` // answered
	QuizMarks          int       `json:"quiz_marks"`
	TotalMarks         int       `json:"total_marks"`
	Percentage         float64   `json:"percentage"`
	AttemptedAt        time.Time `json:"attempted_at"`
	CompletedAt        null.Time `json:"completed_at"`
	IsCompleted        bool      `json:"is_completed"`
}

type StudentDetailedScores struct {
	StudentID    int64           `json:"student_id"`
	StudentName  string          `json:"student_name"`
	StudentEmail string          `json:"student_email"`
	ClassName    string          `json:"class_name"`
	QuizAttempts []AttemptDetail `json:"quiz_attempts"`
}

// ChildSummary aggregates every attempt of one child.
type ChildSummary struct {
	StudentID              int64       `json:"student_id"`
	StudentName            string      `json:"student_name"`
	ClassName              string      `json:"class_name"`
	TeacherName            string      `json:"teacher_name"`
	TotalQuizzesAttempted  int         `json:"total_quizzes_attempted"`
	CompletedQuizzes       int         `json:"completed_quizzes"`
	IncompleteQuizzes      int         `json:"incomplete_quizzes"`
	AverageScorePercentage float64     `json:"average_score_percentage"`
	HighestScorePercentage float64     `json:"highest_score_percentage"`
	LowestScorePercentage  float64     `json:"lowest_score_percentage"`
	TotalMarksEarned       int         `json:"total_marks_earned"`
	TotalPossibleMarks     int         `json:"total_possible_marks"`
	RecentPerformanceTrend score.Trend `json:"recent_performance_trend"`
	LastQuizDate           null.Time   `json:"last_quiz_date"`
	PerformanceLevel       score.Level `json:"performance_level"`
}

type OverallStatistics struct {
	TotalChildren            int     `json:"total_children"`
	TotalQuizAttempts        int     `json:"total_quiz_attempts"`
	OverallAveragePercentage float64 `json:"overall_average_percentage"`
	TotalMarksEarned         int     `json:"total_marks_earned"`
	TotalPossibleMarks       int     `json:"total_possible_marks"`
}

type ParentOverview struct {
	ChildrenCount       int               `json:"children_count"`
	OverallStatistics   OverallStatistics `json:"overall_statistics"`
	ChildrenPerformance []ChildSummary    `json:"children_performance"`
}

// AttemptPerformance is an attempt as shown to its student's parent.
type AttemptPerformance struct {
	ID               int64       `json:"id"`
	QuizID           int64       `json:"quiz_id"`
	QuizTitle        string      `json:"quiz_title"`
	Score            int         `json:"score"`
	TotalMarks       int         `json:"total_marks"`
	Percentage       float64     `json:"percentage"`
	PerformanceLevel score.Level `json:"performance_level"`
	AttemptedAt      time.Time   `json:"attempted_at"`
	CompletedAt      null.Time   `json:"completed_at"`
	IsCompleted      bool        `json:"is_completed"`
}

func newAttemptPerformance(a attempt.Attempt) AttemptPerformance {
	return AttemptPerformance{
		ID:               a.ID,
		QuizID:           a.QuizID,
		QuizTitle:        a.QuizTitle,
		Score:            a.Score,
		TotalMarks:       a.TotalMarks,
		Percentage:       a.Percentage(),
		PerformanceLevel: score.LevelOf(a.Percentage()),
		AttemptedAt:      a.AttemptedAt,
		CompletedAt:      a.CompletedAt,
		IsCompleted:      a.IsCompleted,
	}
}

type Trends struct {
	Monthly []score.Bucket `json:"monthly"`
	Weekly  []score.Bucket `json:"weekly"`
}

type ChildDetail struct {
	StudentID          int64                `json:"student_id"`
	StudentName        string               `json:"student_name"`
	ClassName          string               `json:"class_name"`
	TeacherName        string               `json:"teacher_name"`
	PerformanceSummary ChildSummary         `json:"performance_summary"`
	QuizAttempts       []AttemptPerformance `json:"quiz_attempts"`
	PerformanceTrends  Trends               `json:"performance_trends"`
}

// QuestionOutcome is one question of an attempt; SelectedOption is null when unanswered.
type QuestionOutcome struct {
	QuestionID     int64       `json:"question_id"`
	QuestionText   string      `json:"question_text"`
	OptionA        string      `json:"option_a"`
	OptionB        string      `json:"option_b"`
	OptionC        string      `json:"option_c"`
	OptionD        string      `json:"option_d"`
	CorrectOption  quiz.Option `json:"correct_option"`
	SelectedOption null.String `json:"selected_option"`
	IsCorrect      bool        `json:"is_correct"`
	Marks          int         `json:"marks"`
	MarksEarned    int         `json:"marks_earned"`
}

type BreakdownSummary struct {
	TotalQuestions      int     `json:"total_questions"`
	AnsweredQuestions   int     `json:"answered_questions"`
	CorrectAnswers      int     `json:"correct_answers"`
	IncorrectAnswers    int     `json:"incorrect_answers"`
	UnansweredQuestions int     `json:"unanswered_questions"`
	TotalMarksPossible  int     `json:"total_marks_possible"`
	MarksEarned         int     `json:"marks_earned"`
	Percentage          float64 `json:"percentage"`
}

type AttemptBreakdown struct {
	AttemptDetails    AttemptPerformance `json:"attempt_details"`
	QuestionBreakdown []QuestionOutcome  `json:"question_breakdown"`
	Summary           BreakdownSummary   `json:"summary"`
}
