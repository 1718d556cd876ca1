package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
	"github.com/MikeLowry-021/sanctifai-core-v1/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn         func(ctx context.Context, id string) (*model.User, error)
	findByGoogleIDFn   func(ctx context.Context, googleID string) (*model.User, error)
	findByEmailFn      func(ctx context.Context, email string) (*model.User, error)
	createFn           func(ctx context.Context, user *model.User) error
	linkGoogleIDFn     func(ctx context.Context, userID, googleID string) error
	updateOnboardingFn func(ctx context.Context, userID, whatsappNumber, marketingConsent string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if m.findByGoogleIDFn != nil {
		return m.findByGoogleIDFn(ctx, googleID)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	if m.linkGoogleIDFn != nil {
		return m.linkGoogleIDFn(ctx, userID, googleID)
	}
	return nil
}

func (m *mockUserRepo) UpdateOnboarding(ctx context.Context, userID, whatsappNumber, marketingConsent string) error {
	if m.updateOnboardingFn != nil {
		return m.updateOnboardingFn(ctx, userID, whatsappNumber, marketingConsent)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*GoogleUserProfile, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*GoogleUserProfile, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	url := svc.GetLoginURL("test-state")

	expected := "https://accounts.google.com/o/oauth2/auth?state=test-state"
	if url != expected {
		t.Errorf("GetLoginURL() = %q, want %q", url, expected)
	}
}

func TestHandleCallback_ExistingGoogleID_LogsInWithoutCreate(t *testing.T) {
	ctx := context.Background()

	existingUserID := "existing-user-id-123"
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*GoogleUserProfile, error) {
			return &GoogleUserProfile{
				GoogleID: "google-user-123",
				Email:    "existing@example.com",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		findByGoogleIDFn: func(ctx context.Context, googleID string) (*model.User, error) {
			return &model.User{
				ID:       existingUserID,
				Email:    "existing@example.com",
				GoogleID: googleID,
			}, nil
		},
		// createFn, linkGoogleIDFnは未設定: 呼ばれないこと
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-123")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if session.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", session.UserID, existingUserID)
	}
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if createdSession.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}
}

func TestHandleCallback_EmailMatch_LinksGoogleID(t *testing.T) {
	ctx := context.Background()

	existingUserID := "email-user-id-456"
	var linkedUserID, linkedGoogleID string

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*GoogleUserProfile, error) {
			return &GoogleUserProfile{
				GoogleID: "google-user-456",
				Email:    "linked@example.com",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		findByGoogleIDFn: func(ctx context.Context, googleID string) (*model.User, error) {
			return nil, nil
		},
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: existingUserID, Email: email}, nil
		},
		linkGoogleIDFn: func(ctx context.Context, userID, googleID string) error {
			linkedUserID = userID
			linkedGoogleID = googleID
			return nil
		},
	}

	svc := NewService(provider, userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-456")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if session.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", session.UserID, existingUserID)
	}
	if linkedUserID != existingUserID {
		t.Errorf("linked userID = %q, want %q", linkedUserID, existingUserID)
	}
	if linkedGoogleID != "google-user-456" {
		t.Errorf("linked googleID = %q, want %q", linkedGoogleID, "google-user-456")
	}
}

func TestHandleCallback_NewUser_CreatesUserWithDefaults(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*GoogleUserProfile, error) {
			return &GoogleUserProfile{
				GoogleID:        "google-user-789",
				Email:           "new@example.com",
				FirstName:       "New",
				LastName:        "User",
				ProfileImageURL: "https://example.com/pic.jpg",
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.HandleCallback(ctx, "auth-code-789")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Email != "new@example.com" {
		t.Errorf("user email = %q, want %q", createdUser.Email, "new@example.com")
	}
	if createdUser.GoogleID != "google-user-789" {
		t.Errorf("user googleID = %q", createdUser.GoogleID)
	}
	if createdUser.FirstName != "New" || createdUser.LastName != "User" {
		t.Errorf("user name = %q %q", createdUser.FirstName, createdUser.LastName)
	}
	if createdUser.HasCompletedOnboarding != "false" {
		t.Errorf("HasCompletedOnboarding = %q, want %q", createdUser.HasCompletedOnboarding, "false")
	}
	if createdUser.MarketingConsent != "false" {
		t.Errorf("MarketingConsent = %q, want %q", createdUser.MarketingConsent, "false")
	}

	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if session.UserID != createdUser.ID {
		t.Errorf("session userID = %q, want %q", session.UserID, createdUser.ID)
	}
}

func TestHandleCallback_SessionExpiryIsAbsolute(t *testing.T) {
	ctx := context.Background()

	maxAge := 30 * 24 * 60 * 60 // 30日
	var createdSession *model.Session

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*GoogleUserProfile, error) {
			return &GoogleUserProfile{GoogleID: "g-1", Email: "a@example.com"}, nil
		},
	}

	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(provider, &mockUserRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: maxAge})

	before := time.Now()
	if _, err := svc.HandleCallback(ctx, "code"); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	after := time.Now()

	wantMin := before.Add(time.Duration(maxAge) * time.Second)
	wantMax := after.Add(time.Duration(maxAge) * time.Second)
	if createdSession.ExpiresAt.Before(wantMin) || createdSession.ExpiresAt.After(wantMax) {
		t.Errorf("ExpiresAt = %v, want between %v and %v", createdSession.ExpiresAt, wantMin, wantMax)
	}
}

func TestHandleCallback_OAuthError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*GoogleUserProfile, error) {
			return nil, errors.New("oauth exchange failed")
		},
	}

	svc := NewService(provider, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "bad-code")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestHandleCallback_MissingEmail_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*GoogleUserProfile, error) {
			return &GoogleUserProfile{GoogleID: "g-no-email"}, nil
		},
	}

	svc := NewService(provider, &mockUserRepo{}, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code")
	if err == nil {
		t.Fatal("expected error when provider returns no email")
	}
}

func TestHandleCallback_UserCreationError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*GoogleUserProfile, error) {
			return &GoogleUserProfile{GoogleID: "g-err", Email: "error@example.com"}, nil
		},
	}

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return errors.New("db error")
		},
	}

	svc := NewService(provider, userRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.HandleCallback(ctx, "auth-code-err")
	if err == nil {
		t.Fatal("expected error from HandleCallback")
	}
}

func TestCompleteOnboarding_UpdatesAndReturnsUser(t *testing.T) {
	ctx := context.Background()

	var gotWhatsapp, gotConsent string

	userRepo := &mockUserRepo{
		updateOnboardingFn: func(ctx context.Context, userID, whatsappNumber, marketingConsent string) error {
			gotWhatsapp = whatsappNumber
			gotConsent = marketingConsent
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:                     id,
				WhatsappNumber:         "+27821234567",
				MarketingConsent:       "true",
				HasCompletedOnboarding: "true",
			}, nil
		},
	}

	svc := NewService(nil, userRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.CompleteOnboarding(ctx, "user-1", "+27821234567", "true")
	if err != nil {
		t.Fatalf("CompleteOnboarding() error = %v", err)
	}

	if gotWhatsapp != "+27821234567" {
		t.Errorf("whatsapp = %q", gotWhatsapp)
	}
	if gotConsent != "true" {
		t.Errorf("consent = %q", gotConsent)
	}
	if user.HasCompletedOnboarding != "true" {
		t.Errorf("HasCompletedOnboarding = %q, want %q", user.HasCompletedOnboarding, "true")
	}
}

func TestCompleteOnboarding_UpdateError_ReturnsError(t *testing.T) {
	ctx := context.Background()

	userRepo := &mockUserRepo{
		updateOnboardingFn: func(ctx context.Context, userID, whatsappNumber, marketingConsent string) error {
			return errors.New("db error")
		},
	}

	svc := NewService(nil, userRepo, nil, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.CompleteOnboarding(ctx, "user-1", "", "false"); err == nil {
		t.Fatal("expected error from CompleteOnboarding")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	ctx := context.Background()

	var deletedSessionID string

	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}

	svc := NewService(nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(ctx, "session-to-delete"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	ctx := context.Background()

	userID := "user-id-123"

	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-valid",
				UserID:    userID,
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: userID, Email: "user@example.com"}, nil
		},
	}

	svc := NewService(nil, userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(ctx, "session-valid")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}

	if user == nil {
		t.Fatal("expected non-nil user")
	}
	if user.ID != userID {
		t.Errorf("user ID = %q, want %q", user.ID, userID)
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsNil(t *testing.T) {
	ctx := context.Background()

	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			// 期限切れセッション -> リポジトリはnilを返す
			return nil, nil
		},
	}

	svc := NewService(nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(ctx, "expired-session")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for expired session", user)
	}
}

func TestGetCurrentUser_EmptySessionID_ReturnsNil(t *testing.T) {
	svc := NewService(nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(context.Background(), "")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for empty session ID", user)
	}
}
