package users

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pugtube/pugtube/internal/user"
)

type (
	Store interface {
		CreateUser(username []byte, password []byte) (uuid.UUID, error)
		ListUsers() ([]*user.User, error)
		GetUserWithID(uuid.UUID) (*user.User, error)
		GetUserWithCredentials(username []byte, password []byte) (*user.User, error)
		GetUserProfile(uuid.UUID) (*user.Profile, error)
		GetUserAccount(uuid.UUID) (*user.Account, error)
	}

	CreateUserRequest struct {
		Username string `json:"username" validate:"required,alphanum,gte=2,lte=64"`
		Password string `json:"password" validate:"required,gte=8,lte=128"`
	}

	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	UserDto struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
	}

	UserDetailDto struct {
		UserDto
		Profile *ProfileDto `json:"profile"`
		Account *AccountDto `json:"account"`
	}

	ProfileDto struct {
		Bio            string  `json:"bio"`
		ProfilePicture *string `json:"profile_picture"`
		OnlineStatus   string  `json:"online_status"`
	}

	AccountDto struct {
		SubscriptionStatus bool   `json:"subscription_status"`
		SubscriptionType   string `json:"subscription_type"`
	}

	Controller struct {
		validate *validator.Validate
		store    Store
	}
)

func New(validate *validator.Validate, store Store) *Controller {
	return &Controller{validate: validate, store: store}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.POST("/", controller.create)
	eg.GET("/:id/", controller.get)
	eg.POST("/login/", controller.login)
}

func (controller *Controller) list(ec echo.Context) error {
	found, err := controller.store.ListUsers()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	dtos := make([]UserDto, len(found))
	for k, v := range found {
		dtos[k] = UserDto{ID: v.ID, Username: v.Username}
	}

	return ec.JSON(http.StatusOK, dtos)
}

// create provisions a new user. The store guarantees the users profile and
// account rows are created alongside the user itself.
func (controller *Controller) create(ec echo.Context) error {
	var request CreateUserRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id, err := controller.store.CreateUser([]byte(request.Username), []byte(request.Password))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return ec.JSON(http.StatusCreated, UserDto{ID: id, Username: request.Username})
}

// login verifies the provided credentials and records the login time on
// the matching user. No session or token is issued.
func (controller *Controller) login(ec echo.Context) error {
	var request LoginRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	found, err := controller.store.GetUserWithCredentials([]byte(request.Username), []byte(request.Password))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "username or password incorrect")
	}

	return ec.JSON(http.StatusOK, UserDto{ID: found.ID, Username: found.Username})
}

// get returns one user along with the profile and account rows which are
// provisioned at the moment the user is created.
func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user ID is not a valid UUID")
	}

	found, err := controller.store.GetUserWithID(id)
	if err != nil {
		return echo.ErrNotFound
	}

	detail := UserDetailDto{UserDto: UserDto{ID: found.ID, Username: found.Username}}
	if profile, err := controller.store.GetUserProfile(id); err == nil {
		detail.Profile = &ProfileDto{Bio: profile.Bio, ProfilePicture: profile.ProfilePicture, OnlineStatus: profile.OnlineStatus}
	}
	if account, err := controller.store.GetUserAccount(id); err == nil {
		detail.Account = &AccountDto{SubscriptionStatus: account.SubscriptionStatus, SubscriptionType: account.SubscriptionType}
	}

	return ec.JSON(http.StatusOK, detail)
}
