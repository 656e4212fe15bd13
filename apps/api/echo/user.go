package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kelasku/kelasku/core/user"
)

type userApi struct {
	svc        user.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, svc user.ServiceInterface, validate *validator.Validate, translator ut.Translator) {
	api := userApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	ug := g.Group("/users")
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)
	ug.GET("/admin/all", api.queryAll)
	ug.GET("/:userId", api.retrieve)
}

type (
	loginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	authResponse struct {
		Message  string `json:"message"`
		UserID   string `json:"userId"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
)

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	return ctx.JSON(http.StatusCreated, authResponse{
		Message:  "registration successful",
		UserID:   usr.ID,
		Username: usr.Username,
		Role:     usr.Role,
	})
}

func (api *userApi) login(ctx echo.Context) error {
	var data loginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to loginRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	return ctx.JSON(http.StatusOK, authResponse{
		Message:  "login successful",
		UserID:   usr.ID,
		Username: usr.Username,
		Role:     usr.Role,
	})
}

func (api *userApi) queryAll(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context(), ctx.QueryParam("adminId"))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	return ctx.JSON(http.StatusOK, usr)
}
