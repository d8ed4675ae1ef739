package roster_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
	"github.com/trezcool/mathinsight/services/email"
	"github.com/trezcool/mathinsight/tests"
)

var tempPwdRe = regexp.MustCompile(`Temporary password: (\S+)`)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	teacher := env.CreateTeacher(t, "teacher@test.cd")

	s, err := env.RosterSvc.Create(ctx, teacher, roster.NewStudent{
		Name: "Kid", ClassName: "5A", ParentEmail: "parent@test.cd", ParentName: "Mama Kid",
	})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, s.TeacherID)
	assert.Equal(t, "Test Teacher", s.TeacherName)
	assert.Equal(t, "Mama Kid", s.ParentName)
	assert.Equal(t, "parent@test.cd", s.ParentEmail)
	assert.False(t, s.CreatedAt.IsZero())

	parent, err := env.UserSvc.GetByID(ctx, s.ParentID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleParent, parent.Role)
	assert.Equal(t, "parent@test.cd", parent.Email)

	t.Run("welcome email carries a working temporary password", func(t *testing.T) {
		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "parent@test.cd", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "Kid")

		m := tempPwdRe.FindStringSubmatch(msg.TextContent)
		require.Len(t, m, 2)
		usr, err := env.UserSvc.Authenticate(ctx, "parent@test.cd", m[1])
		require.NoError(t, err)
		assert.Equal(t, parent.ID, usr.ID)
	})

	t.Run("existing parent is reused and not mailed again", func(t *testing.T) {
		sibling, err := env.RosterSvc.Create(ctx, teacher, roster.NewStudent{
			Name: "Sibling", ClassName: "3B", ParentEmail: "PARENT@test.cd",
		})
		require.NoError(t, err)
		assert.Equal(t, parent.ID, sibling.ParentID)
		assert.Equal(t, parent.FullName(), sibling.ParentName)
		assert.Len(t, emailsvc.SentMessages, 1)
	})

	t.Run("email of a teacher", func(t *testing.T) {
		_, err := env.RosterSvc.Create(ctx, teacher, roster.NewStudent{
			Name: "Nope", ClassName: "1A", ParentEmail: "teacher@test.cd",
		})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []core.FieldError{{Field: "parent_email", Error: user.ErrNotAParent.Error()}}, verr.Fields)

		students, err := env.RosterSvc.List(ctx, teacher)
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})
}

func TestService_GetUpdate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	teacher := env.CreateTeacher(t, "teacher@test.cd")
	other := env.CreateTeacher(t, "other@test.cd")
	s, parent := env.CreateStudent(t, teacher, "Kid", "parent@test.cd")
	_, stranger := env.CreateStudent(t, other, "Stranger", "stranger@test.cd")

	tests := []struct {
		name    string
		actor   user.User
		wantErr error
	}{
		{name: "owner teacher", actor: teacher},
		{name: "parent", actor: parent},
		{name: "another teacher", actor: other, wantErr: roster.ErrNotFound},
		{name: "another parent", actor: stranger, wantErr: roster.ErrNotYourChild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.RosterSvc.Get(ctx, tt.actor, s.ID)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			if tt.wantErr == nil {
				assert.Equal(t, s.ID, got.ID)
			}
		})
	}

	strPtr := func(s string) *string { return &s }

	t.Run("update denormalized fields only", func(t *testing.T) {
		updated, err := env.RosterSvc.Update(ctx, teacher, s.ID, roster.UpdateStudent{
			Name:        strPtr("Kiddo"),
			ParentEmail: strPtr("new@test.cd"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Kiddo", updated.Name)
		assert.Equal(t, "5A", updated.ClassName)
		assert.Equal(t, "new@test.cd", updated.ParentEmail)
		assert.Equal(t, parent.ID, updated.ParentID)

		acct, err := env.UserSvc.GetByID(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, "parent@test.cd", acct.Email)
	})

	t.Run("update by another teacher", func(t *testing.T) {
		_, err := env.RosterSvc.Update(ctx, other, s.ID, roster.UpdateStudent{Name: strPtr("Hacked")})
		assert.Equal(t, roster.ErrNotFound, errors.Cause(err))
	})

	t.Run("list by teacher id", func(t *testing.T) {
		_, err := env.RosterSvc.ListByTeacherID(ctx, other, teacher.ID)
		assert.Equal(t, access.ErrPermissionDenied, errors.Cause(err))

		students, err := env.RosterSvc.ListByTeacherID(ctx, teacher, teacher.ID)
		require.NoError(t, err)
		assert.Len(t, students, 1)
	})
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	teacher := env.CreateTeacher(t, "teacher@test.cd")
	other := env.CreateTeacher(t, "other@test.cd")
	kid, parent := env.CreateStudent(t, teacher, "Kid", "parent@test.cd")
	sibling, _ := env.CreateStudent(t, teacher, "Sibling", "parent@test.cd")

	err := env.RosterSvc.Delete(ctx, other, kid.ID)
	assert.Equal(t, roster.ErrNotFound, errors.Cause(err))

	require.NoError(t, env.RosterSvc.Delete(ctx, teacher, kid.ID))
	_, err = env.UserSvc.GetByID(ctx, parent.ID)
	require.NoError(t, err, "parent still has a child")

	require.NoError(t, env.RosterSvc.Delete(ctx, teacher, sibling.ID))
	_, err = env.UserSvc.GetByID(ctx, parent.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err), "orphan parent is removed")

	_, err = env.RosterSvc.Get(ctx, teacher, kid.ID)
	assert.Equal(t, roster.ErrNotFound, errors.Cause(err))
}

func TestService_SweepOrphanParents(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	teacher := env.CreateTeacher(t, "teacher@test.cd")
	_, parent := env.CreateStudent(t, teacher, "Kid", "parent@test.cd")
	orphan1 := testutil.CreateUser(t, env.UserRepo, user.RoleParent, "orphan1@test.cd", "")
	orphan2 := testutil.CreateUser(t, env.UserRepo, user.RoleParent, "orphan2@test.cd", "")

	n, err := env.RosterSvc.SweepOrphanParents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []int64{orphan1.ID, orphan2.ID} {
		_, err = env.UserSvc.GetByID(ctx, id)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	}
	for _, id := range []int64{teacher.ID, parent.ID} {
		_, err = env.UserSvc.GetByID(ctx, id)
		assert.NoError(t, err)
	}

	n, err = env.RosterSvc.SweepOrphanParents(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
