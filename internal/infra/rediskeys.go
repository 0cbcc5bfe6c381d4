package infra

import (
	"fmt"
	"time"
)

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "valerix"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanChaosConfig — рассылка конфигурации хаоса между инстансами сервиса.
	RedisChanChaosConfig = RedisNamespace + ":chaos:config-signal"
)

// HealthProbeKey генерирует одноразовый ключ для проверки записи/удаления в кэше.
func HealthProbeKey(now time.Time) string {
	return fmt.Sprintf("health:%d", now.UnixMilli())
}
