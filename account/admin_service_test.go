package account

import (
	"context"
	"strings"
	"testing"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type adminFixture struct {
	svc   *AdminService
	store *memAdmins
	mail  *captureMailer
	root  *models.Admin
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &adminFixture{store: newMemAdmins(), mail: &captureMailer{}}
	f.svc = NewAdminService(f.store, newTokens(), f.mail, testTemplates, logger)

	require.NoError(t, f.svc.EnsureSuperAdmin(context.Background(), "root@example.com", "R00t!Password"))
	root, err := f.store.FindByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	f.root = root
	return f
}

func TestEnsureSuperAdmin_Idempotent(t *testing.T) {
	f := newAdminFixture(t)
	require.NoError(t, f.svc.EnsureSuperAdmin(context.Background(), "root@example.com", "Other!Passw0rd"))
	assert.Len(t, f.store.byID, 1)
	assert.True(t, f.root.IsSuperAdmin())
	assert.True(t, utils.CheckPasswordHash("R00t!Password", f.store.byID[f.root.ID].Password))
}

func TestAdminAdd(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	in := models.AdminInput{FirstName: "Bola", LastName: "Ade", Email: "Bola@Example.com", Role: models.RoleSupport}

	admin, err := f.svc.Add(ctx, f.root, in)
	require.NoError(t, err)
	assert.Equal(t, "bola@example.com", admin.Email)
	assert.Equal(t, models.RoleSupport, admin.Role)

	msg := f.mail.last()
	require.Equal(t, "bola@example.com", msg.To)
	var password string
	for _, line := range strings.Split(msg.PlainText, "\n") {
		if strings.HasPrefix(line, "Password: ") {
			password = strings.TrimPrefix(line, "Password: ")
		}
	}
	require.Len(t, password, generatedPasswordLength)
	assert.True(t, utils.CheckPasswordHash(password, f.store.byID[admin.ID].Password))

	_, err = f.svc.Add(ctx, f.root, in)
	assert.True(t, apperror.Is(err, apperror.KindValidation), "duplicate email")

	_, err = f.svc.Add(ctx, admin, models.AdminInput{FirstName: "C", LastName: "D", Email: "c@example.com", Role: models.RoleAdmin})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.svc.Add(ctx, f.root, models.AdminInput{FirstName: "C", LastName: "D", Email: "c@example.com", Role: "owner"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAdminLogin(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	token, admin, err := f.svc.Login(ctx, models.LoginInput{Email: "root@example.com", Password: "R00t!Password"})
	require.NoError(t, err)
	assert.Equal(t, token, f.store.byID[admin.ID].Token)

	_, _, err = f.svc.Login(ctx, models.LoginInput{Email: "root@example.com", Password: "wrong"})
	assert.True(t, apperror.Is(err, apperror.KindAuthentication))
}

func TestAdminEdit(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	support, err := f.svc.Add(ctx, f.root, models.AdminInput{FirstName: "S", LastName: "P", Email: "s@example.com", Role: models.RoleSupport})
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, f.root, support.ID, models.AdminUpdate{Email: "changed@example.com"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	role := models.RoleAdmin
	updated, err := f.svc.Edit(ctx, f.root, support.ID, models.AdminUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, "s@example.com", updated.Email)

	_, err = f.svc.Edit(ctx, support, f.root.ID, models.AdminUpdate{Role: &role})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.svc.Edit(ctx, f.root, primitive.NewObjectID(), models.AdminUpdate{Role: &role})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAdminDelete(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	other, err := f.svc.Add(ctx, f.root, models.AdminInput{FirstName: "O", LastName: "T", Email: "o@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.True(t, apperror.Is(f.svc.Delete(ctx, other, f.root.ID), apperror.KindForbidden))
	assert.True(t, apperror.Is(f.svc.Delete(ctx, f.root, f.root.ID), apperror.KindValidation))

	require.NoError(t, f.svc.Delete(ctx, f.root, other.ID))
	_, err = f.svc.Get(ctx, other.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	admins, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}
