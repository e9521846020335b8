package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/database"
	"github.com/main4/cmms/pkg/jwtutil"
	"github.com/main4/cmms/pkg/logger"
	"github.com/main4/cmms/pkg/validate"
	"github.com/main4/cmms/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var jwtUtil *jwtutil.JWTUtil

// SetJWTUtil wires the shared JWT utility into the handler package
func SetJWTUtil(j *jwtutil.JWTUtil) {
	jwtUtil = j
}

// Register creates a new user account
func Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Name     string `json:"name" validate:"required,max=100"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if fields := validate.Struct(req); fields != nil {
		prometheus.RecordAuthError("incomplete_registration")
		return respondFieldErrors(c, fields)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashedPassword),
		Name:     req.Name,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(result.Error))
		prometheus.RecordAuthError("user_creation_failed")
		return respondError(c, fromDB(result.Error))
	}

	log.Info("User registered", zap.String("email", user.Email), zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// Login authenticates a user and issues a JWT, optionally bound to one of
// the user's tenants.
func Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		TenantID *uint  `json:"tenant_id,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ? AND active = ?", req.Email, true).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	var selectedTenantID *uint
	var tenantName, userRole string

	if req.TenantID != nil {
		var userTenant model.UserTenant
		result := database.GetDB().
			Where("user_id = ? AND tenant_id = ? AND active = ?", user.ID, *req.TenantID, true).
			First(&userTenant)
		if result.Error != nil {
			log.Warn("User does not have access to the requested tenant",
				zap.String("email", req.Email),
				zap.Uint("tenant_id", *req.TenantID))
			prometheus.RecordAuthError("tenant_access_denied")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied to the specified tenant"})
		}
		selectedTenantID = req.TenantID
		userRole = userTenant.Role
	} else if user.TenantID != nil {
		selectedTenantID = user.TenantID
		var userTenant model.UserTenant
		if result := database.GetDB().Select("role").
			Where("user_id = ? AND tenant_id = ?", user.ID, *user.TenantID).
			First(&userTenant); result.Error == nil {
			userRole = userTenant.Role
		}
	}

	if selectedTenantID != nil {
		var tenant model.Tenant
		if result := database.GetDB().Select("name").First(&tenant, *selectedTenantID); result.Error == nil {
			tenantName = tenant.Name
		}
	}

	token, err := jwtUtil.GenerateTokenWithTenant(user.Email, user.ID, selectedTenantID, tenantName, userRole)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID),
		zap.String("tenant_name", tenantName))

	response := echo.Map{
		"token": token,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	}
	if selectedTenantID != nil {
		response["tenant"] = map[string]interface{}{
			"id":   *selectedTenantID,
			"name": tenantName,
			"role": userRole,
		}
	}

	return c.JSON(http.StatusOK, response)
}

// Me returns the authenticated user's profile and tenant memberships
func Me(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var user model.User
	if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
		log.Error("Failed to load user profile", zap.Uint("user_id", claims.UserID), zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	var memberships []model.UserTenant
	if result := database.GetDB().Preload("Tenant").
		Where("user_id = ? AND active = ?", claims.UserID, true).
		Find(&memberships); result.Error != nil {
		log.Error("Failed to load tenant memberships", zap.Error(result.Error))
		return respondError(c, fromDB(result.Error))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":    user,
		"tenants": memberships,
	})
}

// MetricsHandler exposes the Prometheus scrape endpoint
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
