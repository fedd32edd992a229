package account

import (
	"context"
	"net/http"
	"time"

	"surveyrewards/pkg/config"
	"surveyrewards/pkg/db/option"
	"surveyrewards/pkg/errutil"
	"surveyrewards/pkg/middleware"
	"surveyrewards/pkg/repository"
	"surveyrewards/pkg/security"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	cfg  *config.Config

	accounts repository.Repository[Account]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		cfg:  p.Config,

		accounts: repository.ProvideStore[Account](p.DB),
	}
}

// Get loads one account; (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, userID string) (*Account, error) {
	return s.accounts.FindOne(ctx, &Account{ID: userID})
}

func (s *Service) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid registration payload", err))
		return
	}

	existing, err := s.accounts.FindOne(c.Request.Context(), &Account{Email: req.Email})
	if err != nil {
		c.Error(errutil.Internal("failed to check existing account", err))
		return
	}
	if existing != nil {
		c.Error(errutil.BadRequest("email already registered", nil))
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		c.Error(errutil.Internal("failed to hash password", err))
		return
	}

	acct := &Account{
		ID:           s.node.Generate().String(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(c.Request.Context(), acct); err != nil {
		zap.L().Error("failed to create account", zap.Error(err))
		c.Error(errutil.Internal("failed to create account", err))
		return
	}

	token, err := s.issueToken(acct.ID)
	if err != nil {
		c.Error(errutil.Internal("failed to issue token", err))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token, User: acct})
}

func (s *Service) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.ValidationFailed("invalid login payload", err))
		return
	}

	acct, err := s.accounts.FindOne(c.Request.Context(), &Account{Email: req.Email})
	if err != nil {
		c.Error(errutil.Internal("failed to query account", err))
		return
	}
	if acct == nil || !security.VerifyPassword(req.Password, acct.PasswordHash) {
		c.Error(errutil.Unauthorized("invalid email or password", nil))
		return
	}

	token, err := s.issueToken(acct.ID)
	if err != nil {
		c.Error(errutil.Internal("failed to issue token", err))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token, User: acct})
}

func (s *Service) Me(c *gin.Context) {
	acct, err := s.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(errutil.Internal("failed to query account", err))
		return
	}
	if acct == nil {
		c.Error(errutil.Unauthorized("user not found", nil))
		return
	}

	c.JSON(http.StatusOK, acct)
}

func (s *Service) Leaderboard(c *gin.Context) {
	accounts, err := s.accounts.Find(c.Request.Context(), &Account{},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "total_earned",
			OrderBy: "desc",
			Allow:   map[string]bool{"total_earned": true},
		}),
		option.WithLimit(20),
	)
	if err != nil {
		c.Error(errutil.Internal("failed to query leaderboard", err))
		return
	}

	entries := make([]LeaderboardEntry, 0, len(accounts))
	for i, acct := range accounts {
		entries = append(entries, LeaderboardEntry{
			Rank:             i + 1,
			UserID:           acct.ID,
			Name:             acct.Name,
			Picture:          acct.Picture,
			TotalEarned:      acct.TotalEarned,
			SurveysCompleted: acct.SurveysCompleted,
		})
	}

	c.JSON(http.StatusOK, entries)
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.JWTExpiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Auth.JWTSecret))
}
