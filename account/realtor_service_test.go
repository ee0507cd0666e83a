package account

import (
	"context"
	"testing"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type realtorFixture struct {
	svc      *RealtorService
	store    *memRealtors
	mail     *captureMailer
	cascade  *fakeCascade
	tokens   *utils.TokenManager
	password string
}

func newRealtorFixture() *realtorFixture {
	logger, _ := test.NewNullLogger()
	f := &realtorFixture{
		store:    newMemRealtors(),
		mail:     &captureMailer{},
		cascade:  &fakeCascade{},
		tokens:   newTokens(),
		password: "Str0ng!Pass",
	}
	f.svc = NewRealtorService(f.store, f.cascade, f.tokens, f.mail, testTemplates, logger)
	return f
}

func (f *realtorFixture) registerInput() models.RegisterInput {
	return models.RegisterInput{
		FirstName:   "Ada",
		LastName:    "Obi",
		Email:       " Ada@Example.com ",
		Password:    f.password,
		PhoneNumber: "+2348012345678",
		AccountType: models.AccountRealtor,
	}
}

// verified registers and verifies a realtor, returning the stored account.
func (f *realtorFixture) verified(t *testing.T) *models.Realtor {
	t.Helper()
	r, err := f.svc.Register(context.Background(), f.registerInput())
	require.NoError(t, err)
	_, _, err = f.svc.VerifyEmail(context.Background(), r.VerificationToken)
	require.NoError(t, err)
	return f.store.byID[r.ID]
}

func TestRegister(t *testing.T) {
	f := newRealtorFixture()
	ctx := context.Background()

	r, err := f.svc.Register(ctx, f.registerInput())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", r.Email)
	assert.False(t, r.IsEmailVerified)
	assert.False(t, r.IsBanned)
	assert.NotEqual(t, f.password, r.Password)
	assert.True(t, utils.CheckPasswordHash(f.password, r.Password))
	assert.NotEmpty(t, r.VerificationToken)

	msg := f.mail.last()
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.PlainText, r.VerificationToken)

	t.Run("duplicate email", func(t *testing.T) {
		in := f.registerInput()
		in.PhoneNumber = "+2348099999999"
		_, err := f.svc.Register(ctx, in)
		require.True(t, apperror.Is(err, apperror.KindValidation))
		assert.Equal(t, []string{"email"}, apperror.FieldsOf(err))
	})

	t.Run("duplicate phone", func(t *testing.T) {
		in := f.registerInput()
		in.Email = "other@example.com"
		_, err := f.svc.Register(ctx, in)
		require.True(t, apperror.Is(err, apperror.KindValidation))
		assert.Equal(t, []string{"phone_number"}, apperror.FieldsOf(err))
	})

	t.Run("weak password and bad phone", func(t *testing.T) {
		in := f.registerInput()
		in.Email = "new@example.com"
		in.Password = "password"
		in.PhoneNumber = "12ab"
		_, err := f.svc.Register(ctx, in)
		require.True(t, apperror.Is(err, apperror.KindValidation))
		assert.ElementsMatch(t, []string{"password", "phone_number"}, apperror.FieldsOf(err))
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a session", func(t *testing.T) {
		f := newRealtorFixture()
		r, err := f.svc.Register(ctx, f.registerInput())
		require.NoError(t, err)

		session, verified, err := f.svc.VerifyEmail(ctx, r.VerificationToken)
		require.NoError(t, err)
		assert.True(t, verified.IsEmailVerified)

		stored := f.store.byID[r.ID]
		assert.True(t, stored.IsEmailVerified)
		assert.Empty(t, stored.VerificationToken)
		assert.Equal(t, session, stored.Auth.Token)

		claims, err := f.tokens.Validate(session, utils.PurposeSession)
		require.NoError(t, err)
		assert.Equal(t, r.ID.Hex(), claims.ID)
		assert.Equal(t, r.Email, claims.Email)

		_, _, err = f.svc.VerifyEmail(ctx, r.VerificationToken)
		assert.True(t, apperror.Is(err, apperror.KindValidation), "already verified")
	})

	t.Run("stale token", func(t *testing.T) {
		f := newRealtorFixture()
		r, err := f.svc.Register(ctx, f.registerInput())
		require.NoError(t, err)
		f.store.byID[r.ID].VerificationToken = "replaced"

		_, _, err = f.svc.VerifyEmail(ctx, r.VerificationToken)
		assert.True(t, apperror.Is(err, apperror.KindAuthentication))
	})

	t.Run("session token is not a verification token", func(t *testing.T) {
		f := newRealtorFixture()
		r, err := f.svc.Register(ctx, f.registerInput())
		require.NoError(t, err)
		session, err := f.tokens.Session(r.ID.Hex(), r.Email)
		require.NoError(t, err)

		_, _, err = f.svc.VerifyEmail(ctx, session)
		assert.True(t, apperror.Is(err, apperror.KindAuthentication))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("unverified realtor cannot log in", func(t *testing.T) {
		f := newRealtorFixture()
		_, err := f.svc.Register(ctx, f.registerInput())
		require.NoError(t, err)

		_, _, err = f.svc.Login(ctx, models.LoginInput{Email: "ada@example.com", Password: f.password})
		assert.True(t, apperror.Is(err, apperror.KindAuthentication))
	})

	t.Run("banned realtor can log in", func(t *testing.T) {
		f := newRealtorFixture()
		r := f.verified(t)
		r.IsBanned = true

		token, realtor, err := f.svc.Login(ctx, models.LoginInput{Email: "ADA@example.com", Password: f.password})
		require.NoError(t, err)
		assert.True(t, realtor.IsBanned)
		assert.Equal(t, token, f.store.byID[r.ID].Auth.Token)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		f := newRealtorFixture()
		f.verified(t)

		_, _, errWrong := f.svc.Login(ctx, models.LoginInput{Email: "ada@example.com", Password: "Wrong!Pass1"})
		_, _, errUnknown := f.svc.Login(ctx, models.LoginInput{Email: "nobody@example.com", Password: f.password})
		require.True(t, apperror.Is(errWrong, apperror.KindAuthentication))
		require.True(t, apperror.Is(errUnknown, apperror.KindAuthentication))
		assert.Equal(t, apperror.PublicMessage(errWrong), apperror.PublicMessage(errUnknown))
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newRealtorFixture()
		_, _, err := f.svc.Login(ctx, models.LoginInput{})
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})
}

func TestChangePassword(t *testing.T) {
	f := newRealtorFixture()
	ctx := context.Background()
	r := f.verified(t)

	err := f.svc.ChangePassword(ctx, r, models.ChangePasswordInput{OldPassword: "nope", NewPassword: "N3w!Passw0rd"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	require.NoError(t, f.svc.ChangePassword(ctx, r, models.ChangePasswordInput{OldPassword: f.password, NewPassword: "N3w!Passw0rd"}))
	assert.True(t, utils.CheckPasswordHash("N3w!Passw0rd", f.store.byID[r.ID].Password))
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email is masked", func(t *testing.T) {
		f := newRealtorFixture()
		require.NoError(t, f.svc.ForgotPassword(ctx, "ghost@example.com"))
		assert.Empty(t, f.mail.sent)
	})

	t.Run("reset with mailed token", func(t *testing.T) {
		f := newRealtorFixture()
		r := f.verified(t)

		require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))
		token := f.store.byID[r.ID].VerificationToken
		require.NotEmpty(t, token)
		assert.Contains(t, f.mail.last().PlainText, token)

		err := f.svc.ResetPassword(ctx, models.ResetPasswordInput{Token: token, Password: "R3set!Passw0rd"})
		require.NoError(t, err)
		stored := f.store.byID[r.ID]
		assert.True(t, utils.CheckPasswordHash("R3set!Passw0rd", stored.Password))
		assert.Empty(t, stored.Auth.Token, "reset ends the current session")

		err = f.svc.ResetPassword(ctx, models.ResetPasswordInput{Token: token, Password: "An0ther!Pass"})
		assert.True(t, apperror.Is(err, apperror.KindAuthentication), "a reset token works once")
	})

	t.Run("verification token cannot reset", func(t *testing.T) {
		f := newRealtorFixture()
		r, err := f.svc.Register(ctx, f.registerInput())
		require.NoError(t, err)

		err = f.svc.ResetPassword(ctx, models.ResetPasswordInput{Token: r.VerificationToken, Password: "R3set!Passw0rd"})
		assert.True(t, apperror.Is(err, apperror.KindAuthentication))
	})
}

func TestEditProfile(t *testing.T) {
	f := newRealtorFixture()
	ctx := context.Background()
	r := f.verified(t)

	_, err := f.svc.EditProfile(ctx, r, models.ProfileInput{Email: "new@example.com"})
	require.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, []string{"email"}, apperror.FieldsOf(err))

	_, err = f.svc.EditProfile(ctx, r, models.ProfileInput{AccountType: "individual", Password: "x"})
	require.True(t, apperror.Is(err, apperror.KindValidation))
	assert.ElementsMatch(t, []string{"password", "account_type"}, apperror.FieldsOf(err))

	name, state := " Adaeze ", "Lagos"
	updated, err := f.svc.EditProfile(ctx, r, models.ProfileInput{FirstName: &name, State: &state})
	require.NoError(t, err)
	assert.Equal(t, "Adaeze", updated.FirstName)
	assert.Equal(t, "Lagos", updated.State)
	assert.Equal(t, "Obi", updated.LastName)
}

func TestDeleteProfile_CascadesProperties(t *testing.T) {
	f := newRealtorFixture()
	r := f.verified(t)

	require.NoError(t, f.svc.DeleteProfile(context.Background(), r))
	assert.Equal(t, r.ID, f.cascade.owners[0])
	assert.NotContains(t, f.store.byID, r.ID)
}
