package controllers

import (
	"context"
	"time"

	"minerfix-backend/middlewares"
	"minerfix-backend/models"
	"minerfix-backend/services"

	"github.com/gofiber/fiber/v2"
)

type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	Logout(ctx context.Context)
	Me(ctx context.Context, id string) (*services.Session, error)
}

type AuthController struct {
	svc           AuthService
	issuer        *middlewares.TokenIssuer
	secureCookies bool
}

func NewAuthController(svc AuthService, issuer *middlewares.TokenIssuer, secureCookies bool) *AuthController {
	return &AuthController{svc: svc, issuer: issuer, secureCookies: secureCookies}
}

func (h *AuthController) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	u, err := h.svc.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, u)
}

func (h *AuthController) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	session, err := h.svc.Login(c.UserContext(), in)
	if err != nil {
		return err
	}

	role := ""
	if session.User.Role != nil {
		role = session.User.Role.Name
	}
	token, expires, err := h.issuer.Issue(session.User.Id, session.User.Email, role, session.Permissions)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"token":       token,
		"expires_at":  expires,
		"user":        session.User,
		"permissions": session.Permissions,
	})
}

func (h *AuthController) Logout(c *fiber.Ctx) error {
	h.svc.Logout(c.UserContext())
	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthController) Me(c *fiber.Ctx) error {
	session, err := h.svc.Me(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(session)
}
