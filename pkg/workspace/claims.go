package workspace

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quatton/photon/pkg/qerr"
)

// UserClaims is what the CLI shows about the logged-in identity.
type UserClaims struct {
	ID    string
	Login string
	Name  string
	Email string
	Iss   string
	Iat   int64
	Exp   int64
}

// ParseTokenClaims decodes a JWT without verifying it; the workspace
// verifies. Opaque tokens yield an error.
func ParseTokenClaims(tokenStr string) (jwt.MapClaims, error) {
	var claims jwt.MapClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func UserFromToken(tokenStr string) (*UserClaims, error) {
	mc, err := ParseTokenClaims(tokenStr)
	if err != nil {
		return nil, err
	}

	uc := &UserClaims{}
	if sub, ok := mc["sub"]; ok {
		switch v := sub.(type) {
		case string:
			uc.ID = v
		case float64:
			uc.ID = strconv.FormatInt(int64(v), 10)
		default:
			uc.ID = fmt.Sprintf("%v", v)
		}
	}
	uc.Login, _ = mc["login"].(string)
	uc.Name, _ = mc["name"].(string)
	uc.Email, _ = mc["email"].(string)
	uc.Iss, _ = mc["iss"].(string)
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		uc.Iat = iat.Unix()
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		uc.Exp = exp.Unix()
	}
	return uc, nil
}

// CheckToken fails with an expired-token error when a JWT's exp is past.
// Tokens that are not JWTs, or carry no exp, pass.
func CheckToken(tokenStr string, now time.Time) error {
	uc, err := UserFromToken(tokenStr)
	if err != nil || uc.Exp == 0 {
		return nil
	}
	if !now.Before(time.Unix(uc.Exp, 0)) {
		return qerr.Newf(qerr.CodeExpiredToken, "workspace token expired at %s, run `photon workspace login`", time.Unix(uc.Exp, 0).Format(time.RFC3339))
	}
	return nil
}
