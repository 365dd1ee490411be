// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/volunteerhub/internal/model"
	"github.com/hitoshi/volunteerhub/internal/repository"
)

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
// nilの場合は記録をスキップする。
type MetricsRecorder interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSessionVerified()
	RecordSessionDestroyed()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int           // セッション有効期間（秒）
	StoreTimeout  time.Duration // ストア呼び出し1回あたりのタイムアウト
	// FreshCurrentUser が真の場合、GetCurrentUserはスナップショットでなく
	// Credential Storeを毎回参照する（厳密一貫性が必要になった場合の切替）。
	FreshCurrentUser bool
}

// Service は認証に関するビジネスロジックを提供する。
// Credential Store（ユーザー）とSession Store（セッション）の2つの
// 外部ストアに対して操作し、ストア由来のエラーはすべて
// StoreUnavailableへ変換して呼び出し側へ返す。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 30 * time.Second
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		metrics:     metrics,
		config:      config,
	}
}

// RegisterResult は登録操作の結果。
// Sessionがnilの場合、ユーザーは作成されたがセッション確立に失敗している。
type RegisterResult struct {
	User    model.PublicUser
	Session *model.Session
}

// Register は新規ユーザーを作成しセッションを確立する。
// ユーザー名またはメールアドレスが既存レコードと完全一致する場合は
// DuplicateUserを返す。パスワードは保存前にハッシュ化する。
// セッション確立の失敗は登録自体を失敗させない（Session=nilで報告する）。
func (s *Service) Register(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	if username == "" || email == "" || password == "" {
		return nil, model.NewValidationError("Username, email and password are required")
	}

	existing, err := s.findUserByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewDuplicateUserError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	result := &RegisterResult{User: user.Public()}

	// セッション確立の失敗は登録を失敗させない。
	// ユーザーは作成済みとして報告し、失敗はログとSession=nilで区別する。
	session, err := s.createSession(ctx, user)
	if err != nil {
		slog.Error("session establishment failed after registration",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return result, nil
	}
	result.Session = session

	return result, nil
}

// Login はユーザー名とパスワードを検証しセッションを確立する。
// ユーザー不在とパスワード不一致はどちらもInvalidCredentialsを返し、
// レスポンス上は区別できない（ユーザー名の列挙防止）。
// 区別した情報はログにのみ残す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, model.PublicUser, error) {
	if username == "" || password == "" {
		return nil, model.PublicUser{}, model.NewValidationError("Username and password are required")
	}

	user, err := s.findUserByUsername(ctx, username)
	if err != nil {
		return nil, model.PublicUser{}, err
	}
	if user == nil {
		slog.Warn("login failed: user not found", slog.String("username", username))
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, model.PublicUser{}, model.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		slog.Warn("login failed: password mismatch", slog.String("username", username))
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, model.PublicUser{}, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, model.PublicUser{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)

	return session, user.Public(), nil
}

// Logout はセッションを破棄する。
// セッションが既に存在しない場合もエラーにしない（冪等）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.deleteSession(ctx, sessionID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordSessionDestroyed()
	}
	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを返す。
// 既定ではセッションのスナップショットをそのまま返し、
// Credential Storeへの参照を避ける（鮮度よりレイテンシ優先の明示的トレードオフ。
// スナップショットはユーザーレコードへの管理的変更に対して古くなりうる）。
// FreshCurrentUser設定時のみ毎回ストアを参照する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (model.PublicUser, error) {
	session, err := s.authenticatedSession(ctx, sessionID)
	if err != nil {
		return model.PublicUser{}, err
	}

	if !s.config.FreshCurrentUser {
		return session.Snapshot(), nil
	}

	user, err := s.verifyUserExists(ctx, session)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

// VerifySession はセッションの有効性を検証する。
// Credential Storeからユーザーを再読込して存在を確認し、
// 消えていた場合はセッションを破棄してNotAuthenticatedを返す
// （アカウント削除後の孤児セッションの自己修復）。
// 成功時はTTLを延長し、最新の公開フィールドを返す。
func (s *Service) VerifySession(ctx context.Context, sessionID string) (model.PublicUser, error) {
	session, err := s.authenticatedSession(ctx, sessionID)
	if err != nil {
		return model.PublicUser{}, err
	}

	user, err := s.verifyUserExists(ctx, session)
	if err != nil {
		return model.PublicUser{}, err
	}

	expiresAt := time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second)
	if err := s.touchSession(ctx, session.ID, expiresAt); err != nil {
		return model.PublicUser{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSessionVerified()
	}

	return user.Public(), nil
}

// authenticatedSession はセッションを取得し、認証済みであることを確認する。
// 不在・期限切れ・未認証フラグのいずれもNotAuthenticatedを返す。
func (s *Service) authenticatedSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, model.NewNotAuthenticatedError()
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	session, err := s.sessionRepo.FindByID(storeCtx, sessionID)
	if err != nil {
		slog.Error("session store lookup failed", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}
	if session == nil || !session.Authenticated {
		return nil, model.NewNotAuthenticatedError()
	}

	return session, nil
}

// verifyUserExists はセッションが参照するユーザーの存在を確認する。
// ユーザーが消えていた場合はセッションを破棄しNotAuthenticatedを返す。
func (s *Service) verifyUserExists(ctx context.Context, session *model.Session) (*model.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.userRepo.FindByID(storeCtx, session.UserID)
	if err != nil {
		slog.Error("user store lookup failed", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}
	if user == nil {
		slog.Warn("destroying orphaned session, user no longer exists",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID),
		)
		_ = s.deleteSession(ctx, session.ID)
		return nil, model.NewNotAuthenticatedError()
	}

	return user, nil
}

// createSession はユーザースナップショット付きのセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		slog.Error("failed to generate session ID", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}

	now := time.Now()
	session := &model.Session{
		ID:            sessionID,
		UserID:        user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Role:          user.Role,
		Authenticated: true,
		ExpiresAt:     now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:     now,
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.sessionRepo.Create(storeCtx, session); err != nil {
		slog.Error("failed to save session", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}

	return session, nil
}

func (s *Service) findUserByUsername(ctx context.Context, username string) (*model.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.userRepo.FindByUsername(storeCtx, username)
	if err != nil {
		slog.Error("user store lookup failed", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}
	return user, nil
}

func (s *Service) findUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	user, err := s.userRepo.FindByUsernameOrEmail(storeCtx, username, email)
	if err != nil {
		slog.Error("user store lookup failed", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}
	return user, nil
}

func (s *Service) createUser(ctx context.Context, user *model.User) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.userRepo.Create(storeCtx, user); err != nil {
		slog.Error("failed to create user", slog.String("error", err.Error()))
		return model.NewStoreUnavailableError()
	}
	return nil
}

func (s *Service) deleteSession(ctx context.Context, sessionID string) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.sessionRepo.DeleteByID(storeCtx, sessionID); err != nil {
		slog.Error("failed to delete session", slog.String("error", err.Error()))
		return model.NewStoreUnavailableError()
	}
	return nil
}

func (s *Service) touchSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.sessionRepo.Touch(storeCtx, sessionID, expiresAt); err != nil {
		slog.Error("failed to touch session", slog.String("error", err.Error()))
		return model.NewStoreUnavailableError()
	}
	return nil
}

// storeContext はストア呼び出し1回分のタイムアウト付きコンテキストを返す。
// タイムアウト時はリトライせずStoreUnavailableとして呼び出し側へ返す。
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
