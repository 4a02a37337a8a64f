package domain

// RateLimitScope - по чему считаются запросы к шлюзу
type RateLimitScope string

const (
	RateLimitScopeUser RateLimitScope = "user"
	RateLimitScopeIP   RateLimitScope = "ip"
)

// RateLimitKey собирает ключ счетчика вида "user:u1"
func RateLimitKey(scope RateLimitScope, subject string) string {
	return string(scope) + ":" + subject
}
