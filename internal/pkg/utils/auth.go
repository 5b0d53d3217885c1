package utils

import (
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/golang-jwt/jwt"
	"github.com/spf13/viper"
)

type AuthTokenWrapper struct {
	UserID int64  `json:"user_id,omitempty"`
	Secret string `json:"secret,omitempty"`
	jwt.StandardClaims
}

func GenerateAuthToken(wrapper *AuthTokenWrapper) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wrapper)
	return token.SignedString([]byte(viper.GetString(constants.ViperSecretKey)))
}

func ParseAuthToken(tokenString string) (*AuthTokenWrapper, error) {
	wrapper := new(AuthTokenWrapper)
	token, err := jwt.ParseWithClaims(tokenString, wrapper, func(*jwt.Token) (interface{}, error) {
		return []byte(viper.GetString(constants.ViperSecretKey)), nil
	})
	if err != nil {
		return nil, constants.ErrUnauthorized
	}
	if !token.Valid {
		return nil, constants.ErrUnauthorized
	}

	return wrapper, nil
}
