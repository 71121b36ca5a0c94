// Package config 提供环境变量优先的配置读取工具。
// 优先级：环境变量 > 配置文件 > 默认值。
package config

import (
	"os"
	"strings"
)

// GetEnvOrDefault 获取环境变量，如果不存在则返回默认值
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// MustGetEnv 获取环境变量，如果不存在则 panic
// 用于必须配置的敏感信息（如数据库密码）
func MustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic("环境变量 " + key + " 未设置，但它是必需的")
	}
	return value
}

// GetDatabaseURL 构建数据库连接字符串
// 优先级：环境变量中的完整 URL > 配置文件中的 URL
func GetDatabaseURL(envKey, configValue string) string {
	if url := os.Getenv(envKey); url != "" {
		return url
	}
	return configValue
}

// SanitizeConfigForLog 清理配置中的敏感信息，用于日志输出
func SanitizeConfigForLog(config map[string]any) map[string]any {
	sanitized := make(map[string]any, len(config))
	for k, v := range config {
		if isSensitiveKey(k) {
			sanitized[k] = "***REDACTED***"
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}

// isSensitiveKey 判断是否是敏感配置项
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	sensitiveKeywords := []string{
		"password", "secret", "token", "key",
		"credential", "private", "api_key",
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
