package attempt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound          = core.NewNotFoundError("Quiz attempt not found. Please start the quiz first.")
	ErrResultsNotFound   = core.NewNotFoundError("Quiz results not found.")
	ErrQuizInactive      = core.NewConflictError("This quiz is not currently active.")
	ErrQuizDeadlinePast  = core.NewConflictError("This quiz has passed its deadline.")
	ErrQuizNotAvailable  = core.NewConflictError("This quiz is not available for this student.")
	ErrAttemptExists     = core.NewConflictError("This student has already attempted this quiz.")
	ErrAlreadySubmitted  = core.NewConflictError("This quiz has already been submitted.")
	ErrStudentIDRequired = core.NewValidationError(errors.New("student_id is required."), core.FieldError{Field: "student_id", Error: "student_id is required."})
)

// QuestionNotInQuizError is returned when a submission references a question of another quiz.
type QuestionNotInQuizError struct {
	QuestionID int64
}

func (e QuestionNotInQuizError) Error() string {
	return fmt.Sprintf("Question %d not found in this quiz.", e.QuestionID)
}

type (
	Repository interface {
		// CreateAttempt returns ErrAttemptExists if the student already has an attempt at the quiz.
		CreateAttempt(ctx context.Context, a Attempt, exec ...core.DBExecutor) (Attempt, error)
		// GetAttempt applies AND operation on non-zero GetFilter fields.
		GetAttempt(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Attempt, error)
		// LockAttempt reads the attempt and holds a write lock on it until exec's transaction ends.
		LockAttempt(ctx context.Context, id int64, exec ...core.DBExecutor) (Attempt, error)
		// QueryAttempts returns attempts ordered by attempted_at, most recent first.
		QueryAttempts(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Attempt, error)
		UpdateAttempt(ctx context.Context, a Attempt, exec ...core.DBExecutor) (Attempt, error)
		// UpsertAnswer inserts the answer or overwrites the one stored for the same (attempt, question).
		UpsertAnswer(ctx context.Context, ans Answer, exec ...core.DBExecutor) (Answer, error)
		// QueryAnswers returns the answers of the attempts, with their question fields, ordered by attempt then question.
		QueryAnswers(ctx context.Context, attemptIDs []int64, exec ...core.DBExecutor) ([]Answer, error)
	}

	Service struct {
		tx        core.Transactor
		repo      Repository
		quizSvc   *quiz.Service
		rosterSvc *roster.Service
	}
)

func NewService(tx core.Transactor, repo Repository, quizSvc *quiz.Service, rosterSvc *roster.Service) *Service {
	return &Service{
		tx:        tx,
		repo:      repo,
		quizSvc:   quizSvc,
		rosterSvc: rosterSvc,
	}
}

// AvailableQuizzes returns the open quizzes of the teachers of parent's children.
func (svc *Service) AvailableQuizzes(ctx context.Context, parent user.User) ([]quiz.Quiz, error) {
	children, err := svc.rosterSvc.Children(ctx, parent)
	if err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	seen := make(map[int64]bool, len(children))
	teacherIDs := make([]int64, 0, len(children))
	for _, child := range children {
		if !seen[child.TeacherID] {
			seen[child.TeacherID] = true
			teacherIDs = append(teacherIDs, child.TeacherID)
		}
	}
	return svc.quizSvc.ListOpen(ctx, teacherIDs)
}

// Start opens the attempt of one of parent's children at a quiz.
// Nothing is written unless every check passes.
func (svc *Service) Start(ctx context.Context, parent user.User, quizID int64, sr StartRequest) (Attempt, error) {
	q, err := svc.quizSvc.Get(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if !q.IsActive {
		return Attempt{}, ErrQuizInactive
	}
	now := nowFunc().UTC()
	if !q.Deadline.After(now) {
		return Attempt{}, ErrQuizDeadlinePast
	}
	if sr.StudentID == 0 {
		return Attempt{}, ErrStudentIDRequired
	}
	student, err := svc.rosterSvc.Get(ctx, parent, sr.StudentID)
	if err != nil {
		return Attempt{}, err
	}
	if student.TeacherID != q.TeacherID {
		return Attempt{}, ErrQuizNotAvailable
	}

	_, err = svc.repo.GetAttempt(ctx, GetFilter{QuizID: q.ID, StudentID: student.ID})
	switch errors.Cause(err) {
	case nil:
		return Attempt{}, ErrAttemptExists
	case ErrNotFound: // pass
	default:
		return Attempt{}, errors.Wrap(err, "checking existing attempt")
	}

	a, err := svc.repo.CreateAttempt(ctx, Attempt{
		QuizID:      q.ID,
		StudentID:   student.ID,
		ParentID:    parent.ID,
		TotalMarks:  q.TotalMarks,
		AttemptedAt: now,
	})
	if err != nil {
		return Attempt{}, err
	}
	a.QuizTitle = q.Title
	a.StudentName = student.Name
	return a, nil
}

// Submit scores the answers of a started attempt and completes it, all in one transaction.
// Questions answered more than once in the batch keep the last answer.
func (svc *Service) Submit(ctx context.Context, parent user.User, quizID int64, sub Submission) (Result, error) {
	q, err := svc.quizSvc.Get(ctx, quizID)
	if err != nil {
		return Result{}, err
	}
	if sub.StudentID == 0 {
		return Result{}, ErrStudentIDRequired
	}
	student, err := svc.rosterSvc.Get(ctx, parent, sub.StudentID)
	if err != nil {
		return Result{}, err
	}
	a, err := svc.repo.GetAttempt(ctx, GetFilter{QuizID: q.ID, StudentID: student.ID, ParentID: parent.ID})
	if err != nil {
		return Result{}, err
	}
	if a.IsCompleted {
		return Result{}, ErrAlreadySubmitted
	}

	var answers []Answer
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		// concurrent submitters queue here; the loser sees the attempt completed
		locked, err := svc.repo.LockAttempt(ctx, a.ID, exec)
		if err != nil {
			return errors.Wrap(err, "locking attempt")
		}
		if locked.IsCompleted {
			return ErrAlreadySubmitted
		}

		questions, err := svc.quizSvc.QuestionsOf(ctx, q.ID, exec)
		if err != nil {
			return errors.Wrap(err, "querying questions")
		}
		byID := make(map[int64]quiz.Question, len(questions))
		for _, qn := range questions {
			byID[qn.ID] = qn
		}

		selected := make(map[int64]quiz.Option, len(sub.Answers))
		for _, in := range sub.Answers {
			if _, ok := byID[in.QuestionID]; !ok {
				return core.NewValidationError(QuestionNotInQuizError{QuestionID: in.QuestionID})
			}
			selected[in.QuestionID] = in.SelectedOption
		}

		var total int
		answers = make([]Answer, 0, len(selected))
		for qnID, opt := range selected {
			qn := byID[qnID]
			ans, err := svc.repo.UpsertAnswer(ctx, Answer{
				AttemptID:      locked.ID,
				QuestionID:     qn.ID,
				SelectedOption: opt,
				IsCorrect:      opt == qn.CorrectOption,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "saving answer")
			}
			ans.QuestionText = qn.QuestionText
			ans.CorrectOption = qn.CorrectOption
			ans.Marks = qn.Marks
			if ans.IsCorrect {
				total += qn.Marks
			}
			answers = append(answers, ans)
		}

		locked.Score = total
		locked.IsCompleted = true
		locked.CompletedAt = null.TimeFrom(nowFunc().UTC())
		if a, err = svc.repo.UpdateAttempt(ctx, locked, exec); err != nil {
			return errors.Wrap(err, "completing attempt")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	a.QuizTitle = q.Title
	a.StudentName = student.Name
	return NewResult(a, answers), nil
}

// TeacherResults returns every completed attempt at a quiz teacher owns.
func (svc *Service) TeacherResults(ctx context.Context, teacher user.User, quizID int64) ([]Result, error) {
	q, err := svc.quizSvc.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err = access.Authorize(teacher, q); err != nil {
		return nil, err
	}

	completed := true
	attempts, err := svc.repo.QueryAttempts(ctx, QueryFilter{QuizID: q.ID, Completed: &completed})
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	return svc.withAnswers(ctx, attempts)
}

// ParentResult returns the completed attempt of one of parent's children at a quiz.
func (svc *Service) ParentResult(ctx context.Context, parent user.User, quizID, studentID int64) (Result, error) {
	if studentID == 0 {
		return Result{}, ErrStudentIDRequired
	}
	student, err := svc.rosterSvc.Get(ctx, parent, studentID)
	if err != nil {
		return Result{}, err
	}
	a, err := svc.repo.GetAttempt(ctx, GetFilter{QuizID: quizID, StudentID: student.ID, ParentID: parent.ID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Result{}, ErrResultsNotFound
		}
		return Result{}, err
	}
	if !a.IsCompleted {
		return Result{}, ErrResultsNotFound
	}

	results, err := svc.withAnswers(ctx, []Attempt{a})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// Attempts returns the attempts of the given students, most recent first.
func (svc *Service) Attempts(ctx context.Context, studentIDs []int64) ([]Attempt, error) {
	if len(studentIDs) == 0 {
		return []Attempt{}, nil
	}
	return svc.repo.QueryAttempts(ctx, QueryFilter{StudentIDs: studentIDs})
}

// Get returns the attempt matching filter.
func (svc *Service) Get(ctx context.Context, filter GetFilter) (Attempt, error) {
	return svc.repo.GetAttempt(ctx, filter)
}

// Answers returns the answers of the attempts keyed by attempt id.
func (svc *Service) Answers(ctx context.Context, attemptIDs []int64) (map[int64][]Answer, error) {
	byAttempt := make(map[int64][]Answer, len(attemptIDs))
	if len(attemptIDs) == 0 {
		return byAttempt, nil
	}
	answers, err := svc.repo.QueryAnswers(ctx, attemptIDs)
	if err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	for _, ans := range answers {
		byAttempt[ans.AttemptID] = append(byAttempt[ans.AttemptID], ans)
	}
	return byAttempt, nil
}

func (svc *Service) withAnswers(ctx context.Context, attempts []Attempt) ([]Result, error) {
	ids := make([]int64, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.ID)
	}
	byAttempt, err := svc.Answers(ctx, ids)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(attempts))
	for _, a := range attempts {
		results = append(results, NewResult(a, byAttempt[a.ID]))
	}
	return results, nil
}
