package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const userCookieName = "user_id"

// cookieSigner signs and verifies the user_id cookie value as an HS256 token
// whose subject is the user id.
type cookieSigner struct {
	secret []byte
	now    func() time.Time
}

func newCookieSigner(secret string) cookieSigner {
	return cookieSigner{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (s cookieSigner) Sign(userID uint) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  strconv.FormatUint(uint64(userID), 10),
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s cookieSigner) Verify(value string) (uint, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAuthResolution, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrAuthResolution, claims.Subject)
	}
	return uint(id), nil
}

type identityResolver struct {
	users  UserStore
	signer cookieSigner
	secure bool
}

func newIdentityResolver(users UserStore, secret string, secure bool) *identityResolver {
	return &identityResolver{
		users:  users,
		signer: newCookieSigner(secret),
		secure: secure,
	}
}

// Resolve returns the user named by the signed user_id cookie. A missing,
// untrusted or stale cookie is not an error: a new user is created and the
// cookie is rewritten on w.
func (i *identityResolver) Resolve(w http.ResponseWriter, r *http.Request) (User, error) {
	ctx := r.Context()
	if cookie, err := r.Cookie(userCookieName); err == nil && cookie.Value != "" {
		id, err := i.signer.Verify(cookie.Value)
		if err != nil {
			log.Printf("identity cookie rejected remote=%s error=%v", r.RemoteAddr, err)
		} else {
			user, found, err := i.users.FindUser(ctx, id)
			if err != nil {
				return User{}, err
			}
			if found {
				return user, nil
			}
		}
	}

	user, err := i.users.CreateUser(ctx)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	value, err := i.signer.Sign(user.ID)
	if err != nil {
		return User{}, fmt.Errorf("sign user cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Printf("user created user_id=%d", user.ID)
	return user, nil
}
