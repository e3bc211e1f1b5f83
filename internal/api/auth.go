package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"
)

// Header names kvmd reads credentials from.
const (
	HeaderUser   = "X-KVMD-User"
	HeaderPasswd = "X-KVMD-Passwd"
)

// Credentials authenticate against kvmd. When TOTPSecret is set (the
// content of /etc/kvmd/totp.secret) the current one-time code is appended to
// the password.
type Credentials struct {
	Username   string
	Password   string
	TOTPSecret string

	now func() time.Time
}

// Passwd returns the value for X-KVMD-Passwd at the current time.
func (c Credentials) Passwd() (string, error) {
	if c.TOTPSecret == "" {
		return c.Password, nil
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	code, err := totp.GenerateCode(c.TOTPSecret, now())
	if err != nil {
		return "", fmt.Errorf("generate TOTP code: %w", err)
	}
	return c.Password + code, nil
}

// Header builds fresh authentication headers.
func (c Credentials) Header() (http.Header, error) {
	passwd, err := c.Passwd()
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set(HeaderUser, c.Username)
	h.Set(HeaderPasswd, passwd)
	return h, nil
}
