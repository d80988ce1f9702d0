package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/config"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/repository"
)

// AuthService authenticates operators and issues JWTs.
type AuthService struct {
	users repository.UserRepository
	cfg   *config.Config
	audit *AuditService
}

func NewAuthService(users repository.UserRepository, cfg *config.Config, audit *AuditService) *AuthService {
	return &AuthService{users: users, cfg: cfg, audit: audit}
}

// Login verifies the password and returns a signed token. Wrong username and
// wrong password produce the same error on purpose.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.Unauthorized("invalid credentials")
	}
	if err != nil {
		log.Error().Err(err).Msg("user lookup failed")
		return nil, apierror.Internal("could not authenticate")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apierror.Unauthorized("invalid credentials")
	}

	resp, err := s.tokenPair(user)
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, &user.ID, "LOGIN", "user", user.ID.String(), "username="+user.Username)
	return resp, nil
}

// Refresh exchanges a still-valid refresh token for a fresh pair. The user is
// re-loaded so a deactivated account cannot keep renewing itself.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apierror.Unauthorized("invalid or expired refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid or expired refresh token")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, apierror.Unauthorized("invalid or expired refresh token")
	}
	uid, err := uuid.Parse(sub)
	if err != nil {
		return nil, apierror.Unauthorized("invalid or expired refresh token")
	}

	user, err := s.users.FindByID(ctx, uid)
	if err != nil || !user.Active {
		return nil, apierror.Unauthorized("invalid or expired refresh token")
	}

	return s.tokenPair(user)
}

func (s *AuthService) tokenPair(user *model.User) (*dto.LoginResponse, error) {
	access, err := s.generateToken(user, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		log.Error().Err(err).Msg("token signing failed")
		return nil, apierror.Internal("could not authenticate")
	}
	refresh, err := s.generateToken(user, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		log.Error().Err(err).Msg("token signing failed")
		return nil, apierror.Internal("could not authenticate")
	}
	return &dto.LoginResponse{
		Token:        access,
		RefreshToken: refresh,
		UserID:       user.ID.String(),
		Username:     user.Username,
		Role:         string(user.Role),
	}, nil
}

func (s *AuthService) generateToken(user *model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

// SeedAdmin creates the configured admin account when the user table is
// empty. Called once at startup; a populated table makes it a no-op.
func (s *AuthService) SeedAdmin(ctx context.Context) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &model.User{
		Username:     s.cfg.SeedAdminUser,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Active:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	log.Info().Str("username", admin.Username).Msg("seed admin created")
	return nil
}

// CreateUser registers an operator account. Role gating happens upstream.
func (s *AuthService) CreateUser(ctx context.Context, adminID uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	role := model.UserRole(req.Role)
	if role != model.RoleAdmin && role != model.RoleCashier {
		return nil, apierror.Validation("role must be admin or cashier")
	}
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, apierror.Validation("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("password hashing failed")
		return nil, apierror.Internal("could not create user")
	}
	user := &model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		log.Error().Err(err).Msg("user insert failed")
		return nil, apierror.Internal("could not create user")
	}

	s.audit.LogAction(ctx, &adminID, "USER_CREATE", "user", user.ID.String(), "username="+user.Username)

	return &dto.UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		FullName: user.FullName,
		Role:     string(user.Role),
		Active:   user.Active,
	}, nil
}
