package user_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/user"
	"github.com/trezcool/mathinsight/services/email"
	"github.com/trezcool/mathinsight/tests"
)

var resetLinkRe = regexp.MustCompile(`/password-reset/([^/\s]+)/(\S+)`)

func TestNewTeacher_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	validate, _ := testutil.NewValidator()
	user.LoadCommonPasswords(env.Logger)
	env.CreateTeacher(t, "taken@test.cd")

	tagOf := func(err error) string {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return verrs[0].Field() + ":" + verrs[0].Tag()
		}
		var verr *core.ValidationError
		if errors.As(err, &verr) && len(verr.Fields) > 0 {
			return verr.Fields[0].Field + ":" + verr.Fields[0].Error
		}
		return ""
	}

	tests := []struct {
		name    string
		nt      user.NewTeacher
		wantTag string
	}{
		{name: "valid", nt: user.NewTeacher{Email: " New@Test.cd ", Password: "Zebra!42", FirstName: "Ada"}},
		{name: "email required", nt: user.NewTeacher{Password: "Zebra!42"}, wantTag: "email:required"},
		{name: "bad email", nt: user.NewTeacher{Email: "nope", Password: "Zebra!42"}, wantTag: "email:email"},
		{name: "email taken", nt: user.NewTeacher{Email: "TAKEN@test.cd", Password: "Zebra!42"}, wantTag: "email:" + user.ErrEmailExists.Error()},
		{name: "password too short", nt: user.NewTeacher{Email: "a@test.cd", Password: "Ab1!"}, wantTag: "password:pwdminlen"},
		{name: "password with space", nt: user.NewTeacher{Email: "a@test.cd", Password: "Zebra 42"}, wantTag: "password:pwdnospace"},
		{name: "numeric password", nt: user.NewTeacher{Email: "a@test.cd", Password: "90817263"}, wantTag: "password:pwdnotallnum"},
		{name: "password like email", nt: user.NewTeacher{Email: "margaret@test.cd", Password: "margaret1"}, wantTag: "password:pwdtoosim"},
		{name: "common password", nt: user.NewTeacher{Email: "a@test.cd", Password: "password"}, wantTag: "password:pwdnocommon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nt := tt.nt
			assert.Equal(t, tt.wantTag, tagOf(nt.Validate(context.Background(), validate, env.UserSvc)))
		})
	}
}

func TestService_RegisterAuthenticate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	usr, err := env.UserSvc.RegisterTeacher(ctx, user.NewTeacher{
		Email: "ada@test.cd", Password: "Zebra!42", FirstName: "Ada", LastName: "Lovelace", SchoolName: "EP Gombe",
	})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.Equal(t, "ada@test.cd", usr.Username)
	assert.Equal(t, "EP Gombe", usr.SchoolName.String)
	assert.False(t, usr.PhoneNumber.Valid)
	assert.Equal(t, "Ada Lovelace", usr.FullName())

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "nobody@test.cd", pwd: "Zebra!42", wantErr: user.ErrAuthenticationFailed},
		{name: "wrong password", email: "ada@test.cd", pwd: "zebra!42", wantErr: user.ErrAuthenticationFailed},
		{name: "case insensitive email", email: " ADA@test.cd", pwd: "Zebra!42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.UserSvc.Authenticate(ctx, tt.email, tt.pwd)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			if tt.wantErr == nil {
				assert.Equal(t, usr.ID, got.ID)
				assert.True(t, got.LastLogin.Valid)
			}
		})
	}

	t.Run("deactivated", func(t *testing.T) {
		usr.IsActive = false
		_, err := env.UserRepo.UpdateUser(ctx, usr)
		require.NoError(t, err)

		_, err = env.UserSvc.Authenticate(ctx, "ada@test.cd", "Zebra!42")
		assert.Equal(t, user.ErrAccountDeactivated, errors.Cause(err))
	})
}

func TestService_GetOrCreateParent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	teacher := env.CreateTeacher(t, "teacher@test.cd")

	acct, err := env.UserSvc.GetOrCreateParent(ctx, " Mama@Test.cd ", "Mama")
	require.NoError(t, err)
	assert.True(t, acct.Created)
	assert.Len(t, acct.TempPassword, 8)
	assert.Equal(t, "mama@test.cd", acct.User.Email)
	assert.Equal(t, user.RoleParent, acct.User.Role)
	assert.NoError(t, acct.User.CheckPassword(acct.TempPassword))

	again, err := env.UserSvc.GetOrCreateParent(ctx, "mama@test.cd", "Other Name")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Empty(t, again.TempPassword)
	assert.Equal(t, acct.User.ID, again.User.ID)

	_, err = env.UserSvc.GetOrCreateParent(ctx, teacher.Email, "")
	assert.Equal(t, user.ErrNotAParent, errors.Cause(err))

	env.UserSvc.SendParentWelcome(again, "Kid")
	assert.Empty(t, emailsvc.SentMessages, "only new accounts are welcomed")
	env.UserSvc.SendParentWelcome(acct, "Kid")
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, acct.TempPassword)
}

func TestService_PasswordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	validate, _ := testutil.NewValidator()
	teacher := env.CreateTeacher(t, "teacher@test.cd")

	err := env.UserSvc.RequestPasswordReset(ctx, "nobody@test.cd")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	require.NoError(t, env.UserSvc.RequestPasswordReset(ctx, "TEACHER@test.cd"))
	require.Len(t, emailsvc.SentMessages, 1)
	m := resetLinkRe.FindStringSubmatch(emailsvc.SentMessages[0].TextContent)
	require.Len(t, m, 3)
	uid, token := m[1], m[2]
	assert.Equal(t, user.EncodeUID(teacher), uid)

	t.Run("bad token", func(t *testing.T) {
		rp := user.ResetUserPassword{Token: "nope", UID: uid, Password: "Zebra!42", PasswordConfirm: "Zebra!42"}
		require.NoError(t, rp.Validate(ctx, validate, env.UserSvc))
		_, err := env.UserSvc.ResetPassword(ctx, rp)
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("bad uid", func(t *testing.T) {
		rp := user.ResetUserPassword{Token: token, UID: "???", Password: "Zebra!42", PasswordConfirm: "Zebra!42"}
		var verr *core.ValidationError
		assert.True(t, errors.As(rp.Validate(ctx, validate, env.UserSvc), &verr))
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		rp := user.ResetUserPassword{Token: token, UID: uid, Password: "Zebra!42", PasswordConfirm: "Zebra!43"}
		var verrs validator.ValidationErrors
		require.True(t, errors.As(rp.Validate(ctx, validate, env.UserSvc), &verrs))
		assert.Equal(t, "eqfield", verrs[0].Tag())
	})

	t.Run("success", func(t *testing.T) {
		rp := user.ResetUserPassword{Token: token, UID: uid, Password: "Zebra!42", PasswordConfirm: "Zebra!42"}
		require.NoError(t, rp.Validate(ctx, validate, env.UserSvc))
		_, err := env.UserSvc.ResetPassword(ctx, rp)
		require.NoError(t, err)

		_, err = env.UserSvc.Authenticate(ctx, "teacher@test.cd", "Zebra!42")
		assert.NoError(t, err)

		// the token died with the old password
		rp = user.ResetUserPassword{Token: token, UID: uid, Password: "Other!42", PasswordConfirm: "Other!42"}
		require.NoError(t, rp.Validate(ctx, validate, env.UserSvc))
		_, err = env.UserSvc.ResetPassword(ctx, rp)
		assert.Error(t, err)
	})
}
