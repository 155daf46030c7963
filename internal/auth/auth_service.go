package auth

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	autherrors "github.com/msdp-platform/msdp-flexstaff/internal/auth/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

//go:generate mockgen -source=auth_service.go -destination=mock/auth_service_mock.go -package=mock
type Service interface {
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, resp AuthResponse, err error)
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken, newRefreshToken string, resp AuthResponse, err error)
	GetMe(ctx context.Context, userID string) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &service{db: db, repo: repo, logger: l}
}

func (s *service) Login(ctx context.Context, email, password string) (string, string, AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("login password mismatch", zap.String("user_id", user.ID.String()))
		return "", "", AuthResponse{}, autherrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", "", AuthResponse{}, autherrors.ErrUserInactive
	}

	resp, err := s.resolveProfile(ctx, user)
	if err != nil {
		return "", "", AuthResponse{}, err
	}

	accessToken, refreshToken, err := s.issueTokens(resp)
	if err != nil {
		return "", "", AuthResponse{}, err
	}

	s.logger.Info("login success", zap.String("user_id", resp.ID), zap.String("role", resp.Role))
	return accessToken, refreshToken, resp, nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, string, AuthResponse, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, autherrors.ErrInvalidToken
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", "", AuthResponse{}, autherrors.ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", AuthResponse{}, autherrors.ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return "", "", AuthResponse{}, autherrors.ErrInvalidRefreshToken
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrInvalidUserID
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", "", AuthResponse{}, autherrors.ErrUserNotFound
	}
	if !user.IsActive {
		return "", "", AuthResponse{}, autherrors.ErrUserInactive
	}

	resp, err := s.resolveProfile(ctx, user)
	if err != nil {
		return "", "", AuthResponse{}, err
	}

	newAccess, newRefresh, err := s.issueTokens(resp)
	if err != nil {
		return "", "", AuthResponse{}, err
	}
	return newAccess, newRefresh, resp, nil
}

func (s *service) GetMe(ctx context.Context, userID string) (*AuthResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, autherrors.ErrInvalidUserID
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, autherrors.ErrUserNotFound
	}

	resp, err := s.resolveProfile(ctx, u)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates the user and its role profile in one transaction.
func (s *service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	s.logger.Debug("register requested", zap.String("email", req.Email), zap.String("role", req.Role))

	if req.Role == actor.RoleEmployer && strings.TrimSpace(req.CompanyName) == "" {
		return AuthResponse{}, autherrors.ErrCompanyNameRequired
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("register begin tx failed", zap.Error(err))
		return AuthResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	user := &User{
		ID:       uuid.New(),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Name:     strings.TrimSpace(req.Name),
		Password: string(hashed),
		Role:     req.Role,
		IsActive: true,
	}
	if err := qtx.CreateUser(ctx, user); err != nil {
		if isUniqueViolation(err) {
			s.logger.Warn("register email already registered", zap.String("email", user.Email))
			return AuthResponse{}, autherrors.ErrEmailAlreadyRegistered
		}
		s.logger.Error("register persist user failed", zap.Error(err))
		return AuthResponse{}, err
	}

	resp := AuthResponse{ID: user.ID.String(), Email: user.Email, Name: user.Name, Role: user.Role}
	switch req.Role {
	case actor.RoleEmployer:
		employer := &Employer{
			ID:           uuid.New(),
			UserID:       user.ID,
			CompanyName:  strings.TrimSpace(req.CompanyName),
			ContactPhone: req.Phone,
		}
		if err := qtx.CreateEmployer(ctx, employer); err != nil {
			s.logger.Error("register persist employer failed", zap.Error(err))
			return AuthResponse{}, err
		}
		resp.ProfileID = employer.ID.String()
		resp.CompanyName = employer.CompanyName
	default:
		worker := &Worker{
			ID:            uuid.New(),
			UserID:        user.ID,
			FullName:      user.Name,
			Phone:         req.Phone,
			MinHourlyRate: req.MinHourlyRate,
		}
		if err := qtx.CreateWorker(ctx, worker); err != nil {
			s.logger.Error("register persist worker failed", zap.Error(err))
			return AuthResponse{}, err
		}
		resp.ProfileID = worker.ID.String()
		resp.MinHourlyRate = worker.MinHourlyRate
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("register commit failed", zap.Error(err))
		return AuthResponse{}, err
	}

	s.logger.Info("register success", zap.String("user_id", resp.ID), zap.String("role", resp.Role))
	return resp, nil
}

// resolveProfile fills the profile id used as the actor id in every other
// module. Admins have no profile and act under their user id.
func (s *service) resolveProfile(ctx context.Context, user *User) (AuthResponse, error) {
	resp := AuthResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}

	switch user.Role {
	case actor.RoleEmployer:
		e, err := s.repo.GetEmployerByUserID(ctx, user.ID)
		if err != nil {
			return AuthResponse{}, mapProfileError(err)
		}
		resp.ProfileID = e.ID.String()
		resp.CompanyName = e.CompanyName
		resp.PayoutAccountID = e.PayoutAccountID
	case actor.RoleWorker:
		w, err := s.repo.GetWorkerByUserID(ctx, user.ID)
		if err != nil {
			return AuthResponse{}, mapProfileError(err)
		}
		resp.ProfileID = w.ID.String()
		resp.MinHourlyRate = w.MinHourlyRate
		resp.PayoutAccountID = w.PayoutAccountID
	default:
		resp.ProfileID = user.ID.String()
	}
	return resp, nil
}

func (s *service) issueTokens(resp AuthResponse) (string, string, error) {
	access, err := generateToken(resp.ID, resp.Role, resp.ProfileID, "access", AccessTokenTTL)
	if err != nil {
		return "", "", autherrors.ErrTokenGenerationFailed
	}
	refresh, err := generateToken(resp.ID, resp.Role, resp.ProfileID, "refresh", RefreshTokenTTL)
	if err != nil {
		return "", "", autherrors.ErrTokenGenerationFailed
	}
	return access, refresh, nil
}

func generateToken(userID, role, profileID, typ string, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    userID,
		"role":       role,
		"profile_id": profileID,
		"typ":        typ,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

func mapProfileError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return autherrors.ErrUserNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key value")
}
