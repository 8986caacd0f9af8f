package service

import (
	"context"
	"errors"

	"menuboard/apperr"
	"menuboard/models"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials 邮箱或密码错误
var ErrInvalidCredentials = errors.New("邮箱或密码错误")

// AdminStore 管理员账号查询
type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id uint) (*models.AdminUser, error)
}

// AuthService 管理员登录校验
type AuthService struct {
	admins AdminStore
}

func NewAuthService(admins AdminStore) *AuthService {
	return &AuthService{admins: admins}
}

// Authenticate 校验邮箱与密码；账号不存在与密码错误返回同一错误
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.AdminUser, error) {
	user, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// 仍做一次比较，避免通过耗时判断账号是否存在
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Session 按会话中的管理员 ID 读取账号
func (s *AuthService) Session(ctx context.Context, adminID uint) (*models.AdminUser, error) {
	return s.admins.FindByID(ctx, adminID)
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("menuboard-dummy-password"), bcrypt.MinCost)
