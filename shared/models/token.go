package models

import "time"

// TokenPair is the result of a login or a rotation.
// Token values never leave the service in a JSON body, only as cookies.
type TokenPair struct {
	AccessToken  string        `json:"-"`
	RefreshToken string        `json:"-"`
	AccessTTL    time.Duration `json:"-"`
	RefreshTTL   time.Duration `json:"-"`
}
