// internal/service/auth/auth.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldmapper-service/internal/domain/session"
	xerrors "fieldmapper-service/internal/pkg/errors"
	"fieldmapper-service/internal/pkg/jwt"
	sessionpkg "fieldmapper-service/internal/pkg/session"
	"fieldmapper-service/internal/store"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore is the slice of the account repository the service needs.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*session.Account, error)
	FindByUID(ctx context.Context, uid string) (*session.Account, error)
	FindByProviderSub(ctx context.Context, provider, sub string) (*session.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a *session.Account) error
	UpdateLastLogin(ctx context.Context, uid string) error
	UpdateProfile(ctx context.Context, uid string, displayName, photoURL *string) error
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
	LinkProvider(ctx context.Context, uid, provider, sub string) error
}

// LogoutNotifier pushes a session-ended event to any live connections.
type LogoutNotifier interface {
	ForceLogout(uid, jti, reason string)
}

type AuthService struct {
	accounts       AccountStore
	records        store.Store
	jwtManager     *jwt.Manager
	sessionManager *sessionpkg.Manager
	rateLimiter    *sessionpkg.RateLimiter
	google         *GoogleClient
	notifier       LogoutNotifier
	logger         *zap.Logger
}

func NewAuthService(
	accounts AccountStore,
	records store.Store,
	jwtManager *jwt.Manager,
	sessionManager *sessionpkg.Manager,
	rateLimiter *sessionpkg.RateLimiter,
	google *GoogleClient,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts:       accounts,
		records:        records,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		google:         google,
		logger:         logger,
	}
}

// SetLogoutNotifier wires the live-connection hub in after construction,
// since the hub is built with the verifier this service also owns.
func (s *AuthService) SetLogoutNotifier(n LogoutNotifier) {
	s.notifier = n
}

// ========== Registration ==========

// Register creates a local account and logs it straight in.
func (s *AuthService) Register(ctx context.Context, req *session.RegisterRequest) (*session.LoginResponse, error) {
	exists, err := s.accounts.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, xerrors.ErrDuplicateAccount
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &session.Account{
		UID:          ulid.Make().String(),
		Email:        req.Email,
		PasswordHash: sql.NullString{String: string(hashedPassword), Valid: true},
		Provider:     "local",
		DisplayName:  sql.NullString{String: req.Name, Valid: req.Name != ""},
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return s.loginWithAccount(ctx, account, req.Device, req.IPAddress, req.UserAgent)
}

// ========== Login ==========

// Login authenticates a local account with email/password.
func (s *AuthService) Login(ctx context.Context, req *session.LoginRequest) (*session.LoginResponse, error) {
	allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, req.Email)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: too many login attempts, please try again in 15 minutes", xerrors.ErrForbidden)
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !account.PasswordHash.Valid {
		// Provider-only account, no password to check against
		return nil, xerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash.String), []byte(req.Password)); err != nil {
		s.logger.Info("failed login attempt",
			zap.String("email", req.Email),
			zap.Int64("attempts_remaining", remaining))
		return nil, xerrors.ErrInvalidCredentials
	}

	s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email)

	return s.loginWithAccount(ctx, account, req.Device, req.IPAddress, req.UserAgent)
}

// ========== Google sign-in ==========

// GoogleSignIn signs a user in with the provider, creating the account on
// first contact. The extended profile fetch is best-effort: a failure there
// never fails the sign-in.
func (s *AuthService) GoogleSignIn(ctx context.Context, req *session.GoogleSignInRequest) (*session.LoginResponse, error) {
	accessToken := req.AccessToken
	if accessToken == "" {
		if req.Code == "" {
			return nil, fmt.Errorf("%w: either code or access_token is required", xerrors.ErrInvalidInput)
		}
		token, err := s.google.Exchange(ctx, req.Code, req.RedirectURI)
		if err != nil {
			return nil, err
		}
		accessToken = token.AccessToken
	}

	info, err := s.google.FetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	account, err := s.findOrCreateGoogleAccount(ctx, info)
	if err != nil {
		return nil, err
	}

	resp, err := s.loginWithAccount(ctx, account, req.Device, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.mirrorGoogleProfile(ctx, account.UID, info)

	return resp, nil
}

func (s *AuthService) findOrCreateGoogleAccount(ctx context.Context, info *GoogleUserInfo) (*session.Account, error) {
	account, err := s.accounts.FindByProviderSub(ctx, "google", info.Sub)
	if err == nil {
		// Keep display fields in step with what the provider reports now
		name := nilIfEmpty(info.Name)
		photo := nilIfEmpty(info.Picture)
		if name != nil || photo != nil {
			if err := s.accounts.UpdateProfile(ctx, account.UID, name, photo); err != nil {
				s.logger.Warn("failed to refresh provider profile", zap.Error(err))
			}
		}
		return account, nil
	}

	// A local account with the same email gets the provider linked onto it
	if existing, err := s.accounts.FindByEmail(ctx, info.Email); err == nil {
		if err := s.accounts.LinkProvider(ctx, existing.UID, "google", info.Sub); err != nil {
			s.logger.Warn("failed to link provider to account", zap.Error(err))
		} else {
			existing.Provider = "google"
			existing.ProviderSub = sql.NullString{String: info.Sub, Valid: true}
		}
		return existing, nil
	}

	account = &session.Account{
		UID:         ulid.Make().String(),
		Email:       info.Email,
		Provider:    "google",
		ProviderSub: sql.NullString{String: info.Sub, Valid: true},
		DisplayName: sql.NullString{String: info.Name, Valid: info.Name != ""},
		PhotoURL:    sql.NullString{String: info.Picture, Valid: info.Picture != ""},
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// mirrorGoogleProfile merge-writes the extended profile block under the user
// record. Errors are logged and swallowed.
func (s *AuthService) mirrorGoogleProfile(ctx context.Context, uid string, info *GoogleUserInfo) {
	profile := &session.GoogleProfile{
		Locale:        nilIfEmpty(info.Locale),
		Picture:       nilIfEmpty(info.Picture),
		GivenName:     nilIfEmpty(info.GivenName),
		FamilyName:    nilIfEmpty(info.FamilyName),
		VerifiedEmail: info.EmailVerified,
	}
	if !profile.HasData() {
		return
	}

	path := "users/" + uid + "/googleProfile"
	if err := s.records.Merge(ctx, path, profile); err != nil {
		s.logger.Warn("failed to store provider profile", zap.String("uid", uid), zap.Error(err))
	}
}

// ========== Shared login path ==========

// loginWithAccount issues the token, opens the session and mirrors the user
// record into the record store.
func (s *AuthService) loginWithAccount(ctx context.Context, account *session.Account, device, ipAddress, userAgent string) (*session.LoginResponse, error) {
	accessToken, jti, err := s.jwtManager.Generator.GenerateAccessToken(
		account.UID, account.Email, account.Provider, device)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	expiresAt := time.Now().Add(s.jwtManager.Generator.Ttl)

	sessionData := &sessionpkg.SessionData{
		JTI:            jti,
		UID:            account.UID,
		Email:          account.Email,
		Device:         device,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		Provider:       account.Provider,
		LoginAt:        time.Now(),
		LastActivityAt: time.Now(),
		ExpiresAt:      expiresAt,
	}

	if err := s.sessionManager.CreateSession(ctx, sessionData); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.UID); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	if err := s.mirrorUserRecord(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to write user record: %w", err)
	}

	return &session.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwtManager.Generator.Ttl.Seconds()),
		ExpiresAt:   expiresAt,
		User: session.SessionInfo{
			UID:         account.UID,
			Email:       account.Email,
			DisplayName: account.DisplayName.String,
			PhotoURL:    account.PhotoURL.String,
			Provider:    account.Provider,
		},
	}, nil
}

// mirrorUserRecord merge-writes the profile document at users/{uid}.
// createdAt is only stamped when the record does not exist yet, and fields
// outside the document, the saved polygons in particular, are left alone.
func (s *AuthService) mirrorUserRecord(ctx context.Context, account *session.Account) error {
	path := "users/" + account.UID

	record := &session.UserRecord{
		Name:        nullableString(account.DisplayName),
		Email:       &account.Email,
		PhotoURL:    nullableString(account.PhotoURL),
		PhoneNumber: nullableString(account.Phone),
		LastLogin:   time.Now().UTC().Format(time.RFC3339),
		Provider:    account.Provider,
		ProviderID:  providerID(account),
	}

	snap, err := s.records.ReadOnce(ctx, path)
	if err != nil {
		return err
	}
	if !snap.Exists() {
		record.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	return s.records.Merge(ctx, path, record)
}

// ========== Session lifecycle ==========

// ValidateToken checks signature, revocation and session liveness.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if blacklisted {
		return nil, xerrors.ErrSessionExpired
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.UID, claims.ID); err != nil {
		return nil, xerrors.ErrSessionExpired
	}

	return claims, nil
}

// Logout ends one session and revokes its token.
func (s *AuthService) Logout(ctx context.Context, uid, jti string) error {
	if err := s.sessionManager.InvalidateSession(ctx, uid, jti); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	if err := s.sessionManager.BlacklistToken(ctx, jti, s.jwtManager.Generator.Ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	if s.notifier != nil {
		s.notifier.ForceLogout(uid, jti, "User logged out")
	}

	return nil
}

// LogoutAllSessions ends every session a user holds.
func (s *AuthService) LogoutAllSessions(ctx context.Context, uid string) error {
	if err := s.sessionManager.InvalidateAllUserSessions(ctx, uid); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	if s.notifier != nil {
		s.notifier.ForceLogout(uid, "", "All sessions logged out")
	}

	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every session except the one making the change.
func (s *AuthService) ChangePassword(ctx context.Context, uid, currentJTI string, req *session.ChangePasswordRequest) error {
	account, err := s.accounts.FindByUID(ctx, uid)
	if errors.Is(err, xerrors.ErrNotFound) {
		return xerrors.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if !account.PasswordHash.Valid {
		return fmt.Errorf("%w: account has no password set", xerrors.ErrInvalidInput)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash.String), []byte(req.CurrentPassword)); err != nil {
		return xerrors.ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, uid, string(hashed)); err != nil {
		return err
	}

	sessions, err := s.sessionManager.GetUserActiveSessions(ctx, uid)
	if err != nil {
		s.logger.Warn("failed to list sessions after password change", zap.Error(err))
		return nil
	}
	for _, sess := range sessions {
		if sess.JTI == currentJTI {
			continue
		}
		if err := s.sessionManager.InvalidateSession(ctx, uid, sess.JTI); err != nil {
			s.logger.Warn("failed to revoke session after password change",
				zap.String("jti", sess.JTI), zap.Error(err))
			continue
		}
		if err := s.sessionManager.BlacklistToken(ctx, sess.JTI, s.jwtManager.Generator.Ttl); err != nil {
			s.logger.Warn("failed to blacklist token after password change",
				zap.String("jti", sess.JTI), zap.Error(err))
		}
		if s.notifier != nil {
			s.notifier.ForceLogout(uid, sess.JTI, "Password changed")
		}
	}

	return nil
}

// CurrentSession returns the signed-in user's view of themselves.
func (s *AuthService) CurrentSession(ctx context.Context, uid string) (*session.SessionInfo, error) {
	account, err := s.accounts.FindByUID(ctx, uid)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	return &session.SessionInfo{
		UID:         account.UID,
		Email:       account.Email,
		DisplayName: account.DisplayName.String,
		PhotoURL:    account.PhotoURL.String,
		Provider:    account.Provider,
	}, nil
}

// ========== Helpers ==========

func providerID(account *session.Account) string {
	if account.ProviderSub.Valid {
		return account.ProviderSub.String
	}
	return account.Provider
}

func nullableString(s sql.NullString) *string {
	if s.Valid {
		return &s.String
	}
	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
