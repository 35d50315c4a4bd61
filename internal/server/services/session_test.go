package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/cordoeats/backend/internal/common"
	"github.com/cordoeats/backend/internal/logging"
	"github.com/cordoeats/backend/internal/server/auth"
	"github.com/cordoeats/backend/internal/server/models"
	"github.com/cordoeats/backend/internal/server/tokenstore"
)

// --- fakes ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	findErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	f.byID[u.ID.Hex()] = u
	return u
}

func (f *fakeUsersRepo) FindByUsernameAndTenant(ctx context.Context, username, tenantSlug string, activeOnly bool) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username && u.TenantSlug == tenantSlug {
			if activeOnly && !u.IsActive {
				continue
			}
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeUsersRepo) Insert(ctx context.Context, user *models.User) (string, error) {
	return f.add(user).ID.Hex(), nil
}

func (f *fakeUsersRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeUsersRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || !u.IsActive {
		return false, nil
	}
	u.IsActive = false
	return true, nil
}

type fakeTenantsRepo struct {
	bySlug map[string]*models.Tenant
}

func newFakeTenantsRepo() *fakeTenantsRepo {
	return &fakeTenantsRepo{bySlug: make(map[string]*models.Tenant)}
}

func (f *fakeTenantsRepo) add(t *models.Tenant) *models.Tenant {
	if t.ID.IsZero() {
		t.ID = bson.NewObjectID()
	}
	f.bySlug[t.Slug] = t
	return t
}

func (f *fakeTenantsRepo) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	t, ok := f.bySlug[slug]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

// --- helpers ---

type testEnv struct {
	svc     *SessionService
	users   *fakeUsersRepo
	tenants *fakeTenantsRepo
	store   *tokenstore.MemoryStore
	hasher  *auth.Hasher
}

func newTestEnv(t *testing.T, accessTTL time.Duration) *testEnv {
	t.Helper()

	usersRepo := newFakeUsersRepo()
	tenantsRepo := newFakeTenantsRepo()
	store := tokenstore.NewMemoryStore(720 * time.Hour)
	hasher := auth.NewHasher(bcrypt.MinCost)
	codec := auth.NewTokenCodec([]byte("test-secret"), accessTTL)
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))

	return &testEnv{
		svc:     NewSessionService(usersRepo, tenantsRepo, store, hasher, codec, logger),
		users:   usersRepo,
		tenants: tenantsRepo,
		store:   store,
		hasher:  hasher,
	}
}

// provision seeds an active tenant "duo-previa" and an active admin user.
func (e *testEnv) provision(t *testing.T) (*models.User, *models.Tenant) {
	t.Helper()

	tenant := e.tenants.add(&models.Tenant{
		Name:     "DUO Previa",
		Slug:     "duo-previa",
		IsActive: true,
	})

	hash, err := e.hasher.Hash("admin123")
	require.NoError(t, err)

	user := e.users.add(&models.User{
		Username:     "admin",
		PasswordHash: hash,
		Role:         "admin",
		TenantID:     tenant.ID,
		TenantSlug:   tenant.Slug,
		IsActive:     true,
	})
	return user, tenant
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	resp, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, 1800, resp.ExpiresIn)
	assert.Equal(t, "admin", resp.User.Username)
	assert.Equal(t, "admin", resp.User.Role)
	assert.Equal(t, "duo-previa", resp.User.TenantSlug)
	assert.Equal(t, "DUO Previa", resp.User.TenantName)
	assert.Equal(t, user.ID.Hex(), resp.User.ID)

	// last-login side effect on the repository
	stored, err := env.users.FindByID(ctx, user.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)

	// the refresh token is live in the store
	rec, err := env.store.Verify(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), rec.UserID)
	assert.Equal(t, "duo-previa", rec.TenantSlug)
}

func TestLogin_EnumerationResistance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)
	ctx := context.Background()

	_, errWrongPassword := env.svc.Login(ctx, "admin", "wrong", "duo-previa")
	_, errUnknownUser := env.svc.Login(ctx, "ghost", "admin123", "duo-previa")

	assert.ErrorIs(t, errWrongPassword, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknownUser, common.ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword, errUnknownUser, "both causes must be indistinguishable")
}

func TestLogin_InactiveUserTreatedAsUnknown(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	user.IsActive = false
	ctx := context.Background()

	_, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin_TenantCheckedAfterCredentials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	_, tenant := env.provision(t)
	tenant.IsActive = false
	ctx := context.Background()

	// Valid credentials against an inactive tenant surface tenant-not-found,
	// not a credential failure.
	_, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	assert.ErrorIs(t, err, common.ErrTenantNotFound)

	// Wrong password against the same inactive tenant still reports the
	// credential failure first.
	_, err = env.svc.Login(ctx, "admin", "wrong", "duo-previa")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

// --- Refresh ---

func TestRefresh_TwiceWithSameToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	first, err := env.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	second, err := env.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, login.RefreshToken, first.RefreshToken, "refresh token must not rotate")
	assert.Equal(t, login.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken, "each refresh mints a new access token")
	assert.Equal(t, 1800, first.ExpiresIn)
	assert.Equal(t, "admin", second.User.Username)
}

func TestRefresh_NeverIssuedToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)

	_, err := env.svc.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefresh_UserDeactivated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	_, err = env.svc.DeactivateUser(ctx, user.ID.Hex())
	require.NoError(t, err)

	_, err = env.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestRefresh_TenantGone(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	delete(env.tenants.bySlug, "duo-previa")

	_, err = env.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, common.ErrTenantNotFound)
}

func TestRefresh_RevokedToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, login.RefreshToken))

	_, err = env.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

// --- VerifyAccessToken ---

func TestVerifyAccessToken_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	identity, err := env.svc.VerifyAccessToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), identity.UserID)
	assert.Equal(t, "admin", identity.Username)
	assert.Equal(t, "admin", identity.Role)
	assert.Equal(t, "duo-previa", identity.TenantSlug)
	assert.Equal(t, user.TenantID.Hex(), identity.TenantID)
}

func TestVerifyAccessToken_DeactivatedUserBeatsUnexpiredToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	changed, err := env.svc.DeactivateUser(ctx, user.ID.Hex())
	require.NoError(t, err)
	require.True(t, changed)

	_, err = env.svc.VerifyAccessToken(ctx, login.AccessToken)
	assert.ErrorIs(t, err, common.ErrInactiveUser)
}

func TestVerifyAccessToken_RoleChangeTakesEffectImmediately(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	user.Role = "viewer" // mutated in the repository, token still says "admin"

	identity, err := env.svc.VerifyAccessToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "viewer", identity.Role, "identity is re-derived from the current record")
}

func TestVerifyAccessToken_ExpiryBeatsDeactivation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, -1*time.Second) // tokens are born expired
	user, _ := env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	_, err = env.svc.DeactivateUser(ctx, user.ID.Hex())
	require.NoError(t, err)

	_, err = env.svc.VerifyAccessToken(ctx, login.AccessToken)
	assert.ErrorIs(t, err, common.ErrTokenExpired, "expiry is reported before the liveness check")
}

func TestVerifyAccessToken_UserDeleted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	delete(env.users.byID, user.ID.Hex())

	_, err = env.svc.VerifyAccessToken(ctx, login.AccessToken)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestVerifyAccessToken_Garbage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)

	_, err := env.svc.VerifyAccessToken(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

// --- CreateUser / ChangePassword / DeactivateUser ---

func TestCreateUser_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)
	ctx := context.Background()

	id, err := env.svc.CreateUser(ctx, "cook", "kitchen-pass", "duo-previa", "", "cook@duoprevia.com")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	created, err := env.users.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, created.Role)
	assert.Equal(t, "cook@duoprevia.com", created.Email)
	assert.True(t, created.IsActive)
	assert.NotEqual(t, "kitchen-pass", created.PasswordHash, "raw password must never be stored")
	assert.True(t, env.hasher.Verify("kitchen-pass", created.PasswordHash))

	// the new account can log in
	_, err = env.svc.Login(ctx, "cook", "kitchen-pass", "duo-previa")
	assert.NoError(t, err)
}

func TestCreateUser_TenantAbsent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)

	_, err := env.svc.CreateUser(context.Background(), "cook", "pw", "no-such-tenant", "", "")
	assert.ErrorIs(t, err, common.ErrTenantNotFound)
}

func TestCreateUser_Duplicate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)

	_, err := env.svc.CreateUser(context.Background(), "admin", "pw", "duo-previa", "", "")
	assert.ErrorIs(t, err, common.ErrUserAlreadyExists)
}

func TestChangePassword_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	require.NoError(t, env.svc.ChangePassword(ctx, user.ID.Hex(), "admin123", "new-secret"))

	_, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials, "old password must stop working")

	_, err = env.svc.Login(ctx, "admin", "new-secret", "duo-previa")
	assert.NoError(t, err)
}

func TestChangePassword_Mismatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)

	err := env.svc.ChangePassword(context.Background(), user.ID.Hex(), "wrong-old", "new-secret")
	assert.ErrorIs(t, err, common.ErrPasswordMismatch)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)

	err := env.svc.ChangePassword(context.Background(), bson.NewObjectID().Hex(), "a", "b")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestDeactivateUser_ReportsChange(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	user, _ := env.provision(t)
	ctx := context.Background()

	changed, err := env.svc.DeactivateUser(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.True(t, changed)

	// already inactive: nothing changes
	changed, err = env.svc.DeactivateUser(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.False(t, changed)

	// unknown user: not an error, nothing changed
	changed, err = env.svc.DeactivateUser(ctx, bson.NewObjectID().Hex())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCleanupExpiredTokens(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 30*time.Minute)
	env.provision(t)
	ctx := context.Background()

	_, err := env.svc.Login(ctx, "admin", "admin123", "duo-previa")
	require.NoError(t, err)

	removed, err := env.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "live tokens must survive the sweep")
}
