package config

import (
	"os"
	"strconv"
	"strings"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt 未设置或解析失败时返回 def
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, e := strconv.Atoi(strings.TrimSpace(v)); e == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, e := strconv.ParseFloat(strings.TrimSpace(v), 64); e == nil {
			return n
		}
	}
	return def
}

// BuildPostgresDSN 由 PG_* 环境变量拼接连接串；PG_DSN 存在时直接使用
func BuildPostgresDSN() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	host := env("PG_HOST", "localhost")
	port := env("PG_PORT", "5432")
	user := env("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := env("PG_DB", "locator")
	ssl := env("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// redisAddr REDIS_ADDR 优先，其次 REDIS_HOST:REDIS_PORT；都未设置时返回空串表示禁用
func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return ""
	}
	return host + ":" + env("REDIS_PORT", "6379")
}

// ParseTierAdvantage 解析 "1:5,2:10" 形式的分级加成表；任一项非法则整体无效
func ParseTierAdvantage(s string) (map[int]float64, bool) {
	out := map[int]float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			return nil, false
		}
		tier, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, false
		}
		adv, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		out[tier] = adv
	}
	return out, len(out) > 0
}

// ParseTiers 解析 "1,2" 形式的分级列表
func ParseTiers(s string) ([]int, bool) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, len(out) > 0
}
