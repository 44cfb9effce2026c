package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cybermouflons/CTFNote/models"
)

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(profileContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errors.New("profile claims not found in context")
	}
	return claims, nil
}

func GetProfileIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}

	raw, ok := claims[jwtClaimProfileID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim in token", jwtClaimProfileID)
	}
	// encoding/json декодирует числовые claims как float64.
	value, ok := raw.(float64)
	if !ok || value != float64(int(value)) {
		return 0, fmt.Errorf("invalid %q claim: %v", jwtClaimProfileID, raw)
	}
	id := int(value)
	if id <= 0 {
		return 0, fmt.Errorf("invalid profile ID in %q claim: %d", jwtClaimProfileID, id)
	}
	return id, nil
}

func GetProfileRoleFromContext(ctx context.Context) (models.ProfileRole, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}

	raw, ok := claims[jwtClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing %q claim in token", jwtClaimRole)
	}
	role := models.ProfileRole(raw)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q in token", raw)
	}
	return role, nil
}
