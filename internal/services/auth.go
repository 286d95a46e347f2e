package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"required,min=16"`
	Issuer    string        `koanf:"issuer"`
	Audience  string        `koanf:"audience"`
	Leeway    time.Duration `koanf:"leeway" validate:"gte=0"`
}

// AccessClaims is the bearer token payload: sub is the acting user and
// tenant_id scopes every request.
type AccessClaims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(rd *ctxutil.RequestData, ttl time.Duration) (string, error)
}

type authService struct {
	log    *logger.Logger
	cfg    AuthConfig
	parser *jwt.Parser
}

func NewAuthService(baseLog *logger.Logger, cfg AuthConfig) AuthService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &authService{
		log:    baseLog.With("service", "AuthService"),
		cfg:    cfg,
		parser: jwt.NewParser(opts...),
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, fmt.Errorf("missing bearer token")
	}
	claims := &AccessClaims{}
	tok, err := as.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(as.cfg.JWTSecret), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil || tenantID == uuid.Nil {
		return ctx, fmt.Errorf("invalid tenant_id claim")
	}
	actorID, err := uuid.Parse(claims.Subject)
	if err != nil || actorID == uuid.Nil {
		return ctx, fmt.Errorf("invalid sub claim")
	}
	rd := &ctxutil.RequestData{
		TenantID: tenantID,
		ActorID:  actorID,
		Roles:    claims.Roles,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) IssueToken(rd *ctxutil.RequestData, ttl time.Duration) (string, error) {
	if rd == nil || rd.TenantID == uuid.Nil || rd.ActorID == uuid.Nil {
		return "", fmt.Errorf("tenant and actor are required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := AccessClaims{
		TenantID: rd.TenantID.String(),
		Roles:    rd.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rd.ActorID.String(),
			Issuer:    as.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if as.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{as.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.cfg.JWTSecret))
}
