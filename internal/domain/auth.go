package domain

import "github.com/golang-jwt/jwt/v5"

// Scopes, которые проверяет HTTP-поверхность.
const (
	ScopeGMUDWrite = "gmud.write" // создание, ожидание и смена статуса
	ScopeGMUDRead  = "gmud.read"
)

// CustomClaims — токен, выданный внешним IdP (подпись RS256).
type CustomClaims struct {
	Scopes map[string]bool `json:"scopes"` // "gmud.write": true
	jwt.RegisteredClaims
}

// Allows проверяет scope. Отдельный "admin" открывает все.
func (c *CustomClaims) Allows(scope string) bool {
	if c == nil {
		return false
	}
	return c.Scopes[scope] || c.Scopes["admin"]
}
