package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
)

type (
	// DB is an in-memory store implementing every repository.
	// Writes outside a Transactor are committed at once; transactions are serialized by the Transactor.
	DB struct {
		sync.RWMutex
		txMu sync.Mutex
		tables
	}

	tables struct {
		seq       int64
		users     map[int64]user.User
		students  map[int64]roster.Student
		quizzes   map[int64]quiz.Quiz
		questions map[int64]quiz.Question
		attempts  map[int64]attempt.Attempt
		answers   map[int64]attempt.Answer
	}
)

func Open() (*DB, error) {
	return &DB{tables: newTables()}, nil
}

func newTables() tables {
	return tables{
		users:     make(map[int64]user.User),
		students:  make(map[int64]roster.Student),
		quizzes:   make(map[int64]quiz.Quiz),
		questions: make(map[int64]quiz.Question),
		attempts:  make(map[int64]attempt.Attempt),
		answers:   make(map[int64]attempt.Answer),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

// txExec is the executor handed to the units of work of a Transactor.
// Repositories record in it how to revert every row they change.
type txExec struct {
	core.DBExecutor
	undo []func()
}

// txOf returns the transaction exec belongs to, or nil for auto-committed calls.
func txOf(exec []core.DBExecutor) *txExec {
	if len(exec) == 0 {
		return nil
	}
	tx, _ := exec[0].(*txExec)
	return tx
}

// track records the current state of m[k] so that a failed tx can revert it.
// Must be called with the write lock held, before m[k] changes.
func track[V any](tx *txExec, m map[int64]V, k int64) {
	if tx == nil {
		return
	}
	prev, existed := m[k]
	tx.undo = append(tx.undo, func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// rollback reverts the rows tx changed, newest change first.
// Rows written by other callers meanwhile are left alone.
func (db *DB) rollback(tx *txExec) {
	db.Lock()
	defer db.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.tables = newTables()
}

// deleteUser removes the user and everything referencing it. Must be called with the write lock held.
func (db *DB) deleteUser(tx *txExec, id int64) bool {
	if _, ok := db.users[id]; !ok {
		return false
	}
	track(tx, db.users, id)
	delete(db.users, id)
	for sid, s := range db.students {
		if s.TeacherID == id || s.ParentID == id {
			db.deleteStudent(tx, sid)
		}
	}
	for qid, q := range db.quizzes {
		if q.TeacherID == id {
			db.deleteQuiz(tx, qid)
		}
	}
	for aid, a := range db.attempts {
		if a.ParentID == id {
			db.deleteAttempt(tx, aid)
		}
	}
	return true
}

func (db *DB) deleteStudent(tx *txExec, id int64) {
	track(tx, db.students, id)
	delete(db.students, id)
	for aid, a := range db.attempts {
		if a.StudentID == id {
			db.deleteAttempt(tx, aid)
		}
	}
}

func (db *DB) deleteQuiz(tx *txExec, id int64) {
	track(tx, db.quizzes, id)
	delete(db.quizzes, id)
	for qnID, qn := range db.questions {
		if qn.QuizID == id {
			track(tx, db.questions, qnID)
			delete(db.questions, qnID)
			for ansID, ans := range db.answers {
				if ans.QuestionID == qnID {
					track(tx, db.answers, ansID)
					delete(db.answers, ansID)
				}
			}
		}
	}
	for aid, a := range db.attempts {
		if a.QuizID == id {
			db.deleteAttempt(tx, aid)
		}
	}
}

func (db *DB) deleteAttempt(tx *txExec, id int64) {
	track(tx, db.attempts, id)
	delete(db.attempts, id)
	for ansID, ans := range db.answers {
		if ans.AttemptID == id {
			track(tx, db.answers, ansID)
			delete(db.answers, ansID)
		}
	}
}

// Transactor serializes units of work and reverts the writes of the ones that fail.
type Transactor struct {
	db *DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	tx := new(txExec)
	defer func() {
		if p := recover(); p != nil {
			t.db.rollback(tx)
			panic(p)
		}
		if err != nil {
			t.db.rollback(tx)
		}
	}()
	return fn(tx)
}
