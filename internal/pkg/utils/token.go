package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// 分享码字符集，去掉了 0/O、1/I 等易混淆字符，便于人工抄写输入
const shareCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateShareToken 生成加密安全的随机分享 token
// token 直接出现在公开 URL 中，它的不可猜测性就是直链分享的访问控制
func GenerateShareToken(numBytes int) (string, error) {
	if numBytes <= 0 {
		numBytes = 32
	}
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成分享token失败: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateShareCode 生成短分享码
// 短码密钥空间远小于 token，调用方必须查库确认唯一后才能采用（有界重试）
func GenerateShareCode(length int) (string, error) {
	if length <= 0 {
		length = 8
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成分享码失败: %w", err)
	}
	code := make([]byte, length)
	for i, b := range buf {
		code[i] = shareCodeAlphabet[int(b)%len(shareCodeAlphabet)]
	}
	return string(code), nil
}

// GenerateInviteToken 生成团队邀请 token
func GenerateInviteToken() (string, error) {
	return GenerateShareToken(32)
}
