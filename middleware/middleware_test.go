package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRealtors map[primitive.ObjectID]*models.Realtor

func (f fakeRealtors) FindByIdentity(_ context.Context, id primitive.ObjectID, email string) (*models.Realtor, error) {
	if r, ok := f[id]; ok && r.Email == email {
		return r, nil
	}
	return nil, apperror.NotFound("Realtor not found")
}

type fakeAdmins map[primitive.ObjectID]*models.Admin

func (f fakeAdmins) FindByIdentity(_ context.Context, id primitive.ObjectID, email string) (*models.Admin, error) {
	if a, ok := f[id]; ok && a.Email == email {
		return a, nil
	}
	return nil, apperror.NotFound("Admin not found")
}

func okHandler(t *testing.T, check func(r *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticator_Realtor(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tokens := utils.NewTokenManager("secret", "test", time.Hour)

	realtor := &models.Realtor{ID: primitive.NewObjectID(), Email: "ada@example.com"}
	session, err := tokens.Session(realtor.ID.Hex(), realtor.Email)
	require.NoError(t, err)
	realtor.Auth.Token = session

	auth := NewAuthenticator(tokens, fakeRealtors{realtor.ID: realtor}, fakeAdmins{}, logger)
	handler := auth.Realtor(okHandler(t, func(r *http.Request) {
		got, ok := RealtorFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, realtor.ID, got.ID)
	}))

	verify, err := tokens.Verification(realtor.ID.Hex(), realtor.Email)
	require.NoError(t, err)
	stranger, err := tokens.Session(primitive.NewObjectID().Hex(), "x@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		reason string
	}{
		{"current session", "Bearer " + session, http.StatusNoContent, ""},
		{"missing header", "", http.StatusUnauthorized, "missing_header"},
		{"wrong scheme", "Token " + session, http.StatusUnauthorized, "malformed_scheme"},
		{"garbage", "Bearer abc", http.StatusUnauthorized, "invalid_token"},
		{"verification token", "Bearer " + verify, http.StatusUnauthorized, "invalid_token"},
		{"unknown account", "Bearer " + stranger, http.StatusUnauthorized, "unknown_account"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hook.Reset()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/realtor/properties", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.reason != "" {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, tc.reason, hook.LastEntry().Data["reason"])
				assert.Contains(t, rec.Body.String(), "Not authorized")
			}
		})
	}

	t.Run("stale session", func(t *testing.T) {
		realtor.Auth.Token = "a-newer-login"
		defer func() { realtor.Auth.Token = session }()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+session)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "stale_session", hook.LastEntry().Data["reason"])
	})
}

func TestAuthenticator_AdminTokenDoesNotOpenRealtorRoutes(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tokens := utils.NewTokenManager("secret", "test", time.Hour)

	admin := &models.Admin{ID: primitive.NewObjectID(), Email: "root@example.com", Role: models.RoleSuperAdmin}
	session, err := tokens.Session(admin.ID.Hex(), admin.Email)
	require.NoError(t, err)
	admin.Token = session

	auth := NewAuthenticator(tokens, fakeRealtors{}, fakeAdmins{admin.ID: admin}, logger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session)

	rec := httptest.NewRecorder()
	auth.Admin(okHandler(t, func(r *http.Request) {
		got, ok := AdminFrom(r.Context())
		require.True(t, ok)
		assert.True(t, got.IsSuperAdmin())
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	auth.Realtor(okHandler(t, nil)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeCounter struct {
	hits map[string]int64
	err  error
}

func (c *fakeCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if c.err != nil {
		return 0, 0, c.err
	}
	c.hits[key]++
	return c.hits[key], window, nil
}

func TestRateLimiter(t *testing.T) {
	logger, _ := test.NewNullLogger()
	counter := &fakeCounter{hits: map[string]int64{}}
	handler := NewRateLimiter(counter, "login", DefaultLoginLimit, DefaultLoginWindow, logger).Limit(okHandler(t, nil))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < DefaultLoginLimit; i++ {
		require.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	}
	rec := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2").Code)

	counter.err = errors.New("redis down")
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
}

type fakeRedis struct {
	counts    map[string]int64
	ttls      map[string]time.Duration
	expireErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.expireErr != nil {
		return redis.NewBoolResult(false, f.expireErr)
	}
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

// TTL reports -1 for a key without expiry, as Redis does.
func (f *fakeRedis) TTL(_ context.Context, key string) *redis.DurationCmd {
	if ttl, ok := f.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func TestRedisCounter_RestoresMissingExpiry(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	counter := &RedisCounter{client: fake}
	const key = "ratelimit:login:10.0.0.1"

	fake.expireErr = errors.New("connection reset")
	_, _, err := counter.Hit(ctx, key, time.Minute)
	require.Error(t, err)
	_, hasTTL := fake.ttls[key]
	require.False(t, hasTTL, "the counter exists without an expiry")

	fake.expireErr = nil
	hits, ttl, err := counter.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, time.Minute, ttl)
	assert.Equal(t, time.Minute, fake.ttls[key], "the next hit puts the expiry back")

	fake.ttls[key] = 20 * time.Second
	hits, ttl, err = counter.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), hits)
	assert.Equal(t, 20*time.Second, ttl, "a running window is not extended")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4000"
	assert.Equal(t, "192.168.1.9", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestRequestIDAndLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var seen string
	handler := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties/x", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, 7, entry.Data["bytes"])

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestRecoverer(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := Recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Equal(t, "boom", hook.LastEntry().Data["panic"])
}
