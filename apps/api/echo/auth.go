package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/auth"
	"github.com/trezcool/kinga/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextSessionKey = "session"
)

// Claims represents the authorization claims transmitted via a JWT. The
// session is stateless at this layer: each request rebuilds it from the
// token's snapshot.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
}

// GetSessionClaims builds the JWT claims for an established session.
func GetSessionClaims(sess *auth.Session, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   sess.Account.ID,
			Id:        sess.ID,
			Audience:  "Kinga",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         sess.Account.Name,
		Email:        sess.Account.Email,
		Role:         string(sess.Account.Role),
	}
}

// GenerateToken generates a signed JWT token string representing the session Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextSession rebuilds the session from the request's claims. The JWT
// middleware has already verified the signature and expiry.
func getContextSession(ctx echo.Context) (*auth.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*auth.Session); ok {
		return sess, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, err
	}

	active := true
	sess := &auth.Session{
		ID: claims.Id,
		Account: user.User{
			ID:       claims.Subject,
			Name:     claims.Name,
			Email:    claims.Email,
			Role:     user.Role(claims.Role),
			IsActive: &active,
		},
		CreatedAt: time.Unix(claims.IssuedAt, 0),
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}
	ctx.Set(contextSessionKey, sess)
	return sess, nil
}

type authApi struct {
	mgr *auth.Manager
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, mgr *auth.Manager) {
	api := authApi{mgr: mgr}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sess, err := api.mgr.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case auth.ErrInvalidCredentials:
			return errAuthenticationFailed
		case auth.ErrAccountInactive:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(GetSessionClaims(sess))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	// re-checks the account; a ban since login lands here
	if err = api.mgr.Refresh(ctx.Request().Context(), sess); err != nil {
		switch errors.Cause(err) {
		case auth.ErrAccountInactive:
			return errAccountDeactivated
		case auth.ErrInvalidSession:
			return errUnauthorized
		}
		return errors.Wrap(err, "refreshing session")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(GetSessionClaims(sess, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}
