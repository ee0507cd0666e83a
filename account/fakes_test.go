package account

import (
	"context"
	"sync"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/mailer"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memRealtors struct {
	byID map[primitive.ObjectID]*models.Realtor
}

func newMemRealtors() *memRealtors {
	return &memRealtors{byID: map[primitive.ObjectID]*models.Realtor{}}
}

func (m *memRealtors) find(match func(*models.Realtor) bool) (*models.Realtor, error) {
	for _, r := range m.byID {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("Realtor not found")
}

func (m *memRealtors) get(id primitive.ObjectID) (*models.Realtor, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("Realtor not found")
	}
	return r, nil
}

func (m *memRealtors) Create(_ context.Context, r *models.Realtor) error {
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRealtors) FindByID(_ context.Context, id primitive.ObjectID) (*models.Realtor, error) {
	return m.find(func(r *models.Realtor) bool { return r.ID == id })
}

func (m *memRealtors) FindByEmail(_ context.Context, email string) (*models.Realtor, error) {
	return m.find(func(r *models.Realtor) bool { return r.Email == email })
}

func (m *memRealtors) FindByPhone(_ context.Context, phone string) (*models.Realtor, error) {
	return m.find(func(r *models.Realtor) bool { return r.PhoneNumber == phone })
}

func (m *memRealtors) SetSessionToken(_ context.Context, id primitive.ObjectID, token string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	r.Auth.Token = token
	return nil
}

func (m *memRealtors) SetVerificationToken(_ context.Context, id primitive.ObjectID, token string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	r.VerificationToken = token
	return nil
}

func (m *memRealtors) MarkVerified(_ context.Context, id primitive.ObjectID, session string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	r.IsEmailVerified = true
	r.VerificationToken = ""
	r.Auth.Token = session
	return nil
}

func (m *memRealtors) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	r.Password = hash
	r.VerificationToken = ""
	return nil
}

func (m *memRealtors) UpdateProfile(_ context.Context, id primitive.ObjectID, in models.ProfileInput) (*models.Realtor, error) {
	r, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		r.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		r.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		r.PhoneNumber = *in.PhoneNumber
	}
	if in.State != nil {
		r.State = *in.State
	}
	cp := *r
	return &cp, nil
}

func (m *memRealtors) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, err := m.get(id); err != nil {
		return err
	}
	delete(m.byID, id)
	return nil
}

type memAdmins struct {
	byID map[primitive.ObjectID]*models.Admin
}

func newMemAdmins() *memAdmins {
	return &memAdmins{byID: map[primitive.ObjectID]*models.Admin{}}
}

func (m *memAdmins) get(id primitive.ObjectID) (*models.Admin, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("Admin not found")
	}
	return a, nil
}

func (m *memAdmins) Create(_ context.Context, a *models.Admin) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAdmins) FindByID(_ context.Context, id primitive.ObjectID) (*models.Admin, error) {
	a, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

func (m *memAdmins) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("Admin not found")
}

func (m *memAdmins) SetSessionToken(_ context.Context, id primitive.ObjectID, token string) error {
	a, err := m.get(id)
	if err != nil {
		return err
	}
	a.Token = token
	return nil
}

func (m *memAdmins) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	a, err := m.get(id)
	if err != nil {
		return err
	}
	a.Password = hash
	return nil
}

func (m *memAdmins) Update(_ context.Context, id primitive.ObjectID, in models.AdminUpdate) (*models.Admin, error) {
	a, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		a.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.LastName = *in.LastName
	}
	if in.Role != nil {
		a.Role = *in.Role
	}
	cp := *a
	return &cp, nil
}

func (m *memAdmins) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, err := m.get(id); err != nil {
		return err
	}
	delete(m.byID, id)
	return nil
}

func (m *memAdmins) List(context.Context) ([]models.Admin, error) {
	out := []models.Admin{}
	for _, a := range m.byID {
		out = append(out, *a)
	}
	return out, nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (c *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureMailer) last() mailer.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return mailer.Message{}
	}
	return c.sent[len(c.sent)-1]
}

type fakeCascade struct {
	owners []primitive.ObjectID
}

func (f *fakeCascade) DeleteAllByOwner(_ context.Context, ownerID primitive.ObjectID) (int, error) {
	f.owners = append(f.owners, ownerID)
	return 1, nil
}

var testTemplates = mailer.Templates{ClientURL: "https://app.example.com"}

func newTokens() *utils.TokenManager {
	return utils.NewTokenManager("test-secret", "realtor_listing", time.Hour)
}
