package utils

import (
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword 对明文密码做加盐哈希
// 同一明文每次得到的哈希都不同，调用方必须用 CheckPasswordHash 校验，
// 绝不能对哈希输出做相等比较
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Error hashing password", zap.Error(err))
		return "", err
	}
	return string(bytes), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
