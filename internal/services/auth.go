package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ValidationError lists every problem with a signup or login form.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// UserStore persists accounts and login tokens. Lookups return nil, nil on a
// miss. CreateUser reports duplicates as ErrEmailTaken or ErrUsernameTaken.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateToken(ctx context.Context, tokenHash string, userID uuid.UUID, expiresAt time.Time) error
	UserIDForToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, bool, error)
	DeleteToken(ctx context.Context, tokenHash string) error
}

type AuthConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService signs users up and in. Tokens are opaque random strings; only
// their digest is stored.
type AuthService struct {
	store  UserStore
	cfg    AuthConfig
	now    func() time.Time
	logger *zap.Logger
}

func NewAuthService(store UserStore, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{store: store, cfg: cfg, now: time.Now, logger: logger}
}

func (s *AuthService) TokenTTL() time.Duration { return s.cfg.TokenTTL }

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

func validateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) <= 255
}

// bcrypt only looks at the first 72 bytes.
func validatePassword(password string) bool {
	if len(password) < 8 || len(password) > 72 {
		return false
	}
	hasLetter, hasNumber := false, false
	for _, c := range password {
		if c <= unicode.MaxASCII && unicode.IsLetter(c) {
			hasLetter = true
		}
		if c >= '0' && c <= '9' {
			hasNumber = true
		}
	}
	return hasLetter && hasNumber
}

func validateUsername(username string) bool {
	return len(username) >= 3 && len(username) <= 30 && usernameRegex.MatchString(username)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, string, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	var problems []string
	if email == "" || username == "" || req.Password == "" {
		problems = append(problems, "All fields are required")
	} else {
		if !validateEmail(email) {
			problems = append(problems, "Invalid email format")
		}
		if !validatePassword(req.Password) {
			problems = append(problems, "Password must be 8-72 characters with at least one letter and one number")
		}
		if !validateUsername(username) {
			problems = append(problems, "Username must be 3-30 characters, alphanumeric and underscore only")
		}
	}
	if len(problems) > 0 {
		return nil, "", &ValidationError{Problems: problems}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// Login checks the password and issues a new token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, "", &ValidationError{Problems: []string{"Email and password are required"}}
	}
	if !validateEmail(email) {
		return nil, "", &ValidationError{Problems: []string{"Invalid email format"}}
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// Authenticate returns the user a live token belongs to.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	id, ok, err := s.store.UserIDForToken(ctx, tokenDigest(token), s.now())
	if err != nil {
		return nil, fmt.Errorf("look up token: %w", err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteToken(ctx, tokenDigest(token))
}

func (s *AuthService) issueToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := s.store.CreateToken(ctx, tokenDigest(token), userID, s.now().Add(s.cfg.TokenTTL)); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

func tokenDigest(token string) string {
	d, _ := DigestReader(strings.NewReader(token))
	return d
}
