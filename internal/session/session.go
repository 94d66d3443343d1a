// Package session issues and verifies session tokens. Login is a stub: any
// credentials are accepted and a profile is fabricated for the chosen role.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"geoponto/internal/model"
)

const (
	issuer           = "geoponto"
	defaultCompanyID = "company_123"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrInvalidRole  = errors.New("invalid role")
)

// Users is the profile storage the login stub needs.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	Create(ctx context.Context, user *model.UserProfile) error
}

type Claims struct {
	Email       string         `json:"email"`
	DisplayName string         `json:"name"`
	Role        model.UserRole `json:"role"`
	CompanyID   string         `json:"company_id"`
	Department  string         `json:"department,omitempty"`
	EmployeeID  string         `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	users  Users
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(users Users, secret string, ttl time.Duration) *Manager {
	return &Manager{users: users, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Login fabricates (or reloads) the profile for email and role and returns a
// signed token for it. The password is not checked.
func (m *Manager) Login(ctx context.Context, email, _ string, role model.UserRole) (string, *model.UserProfile, error) {
	if role != model.UserRoleAdmin && role != model.UserRoleEmployee {
		return "", nil, ErrInvalidRole
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "joao@empresa.com"
		if role == model.UserRoleAdmin {
			email = "admin@empresa.com"
		}
	}

	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		user = fabricate(email, role, m.now())
		if err := m.users.Create(ctx, user); err != nil {
			return "", nil, fmt.Errorf("create user: %w", err)
		}
	}

	token, err := m.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func fabricate(email string, role model.UserRole, now time.Time) *model.UserProfile {
	user := &model.UserProfile{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: "João Silva",
		Role:        role,
		CompanyID:   defaultCompanyID,
		Department:  "Vendas",
		CreatedAt:   now,
	}
	if role == model.UserRoleAdmin {
		user.DisplayName = "Administrador Senior"
		user.Department = "Diretoria"
	}
	return user
}

// Issue signs a token for user.
func (m *Manager) Issue(user *model.UserProfile) (string, error) {
	now := m.now()
	claims := Claims{
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		Department:  user.Department,
		EmployeeID:  user.EmployeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the profile it carries.
func (m *Manager) Parse(tokenStr string) (*model.UserProfile, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &model.UserProfile{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
		CompanyID:   claims.CompanyID,
		Department:  claims.Department,
		EmployeeID:  claims.EmployeeID,
	}, nil
}

type ctxKey struct{}

// WithUser returns a context carrying the session profile.
func WithUser(ctx context.Context, user *model.UserProfile) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the session profile, or nil outside a session.
func UserFromContext(ctx context.Context) *model.UserProfile {
	user, _ := ctx.Value(ctxKey{}).(*model.UserProfile)
	return user
}
