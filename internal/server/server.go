package server

import (
	"strings"
	"time"

	"github.com/cyphera/permissions-api/internal/client/delegation"
	"github.com/cyphera/permissions-api/internal/client/rpc"
	"github.com/cyphera/permissions-api/internal/constants"
	"github.com/cyphera/permissions-api/internal/handlers"
	"github.com/cyphera/permissions-api/internal/logger"
	"github.com/cyphera/permissions-api/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Stage               string `envconfig:"STAGE" default:"dev"`
	SessionPrivateKey   string `envconfig:"SESSION_PRIVATE_KEY" required:"true"`
	SepoliaRPCURL       string `envconfig:"SEPOLIA_RPC_URL"`
	DelegationServerURL string `envconfig:"DELEGATION_SERVER_URL" required:"true"`
	DelegationAPIKey    string `envconfig:"DELEGATION_API_KEY"`
	AllowedOrigins      string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Handler definitions
var (
	healthHandler         *handlers.HealthHandler
	sessionAccountHandler *handlers.SessionAccountHandler
	permissionHandler     *handlers.PermissionHandler
	redemptionHandler     *handlers.RedemptionHandler

	serverConfig Config
)

// InitializeHandlers reads the environment and wires services and handlers.
func InitializeHandlers() {
	if err := envconfig.Process("", &serverConfig); err != nil {
		logger.Fatal("Failed to read service configuration", zap.Error(err))
	}

	sessionService, err := services.NewSessionKeyService(serverConfig.SessionPrivateKey)
	if err != nil {
		logger.Fatal("Failed to initialize session key service", zap.Error(err))
	}

	endpoints, err := rpc.RankedEndpoints(serverConfig.SepoliaRPCURL, constants.DefaultSepoliaRPCEndpoints)
	if err != nil {
		logger.Fatal("Failed to build RPC endpoint list", zap.Error(err))
	}
	fundingService := services.NewFundingService(endpoints, services.DefaultFundingConfig())

	delegationClient, err := delegation.NewClient(delegation.ClientConfig{
		BaseURL: serverConfig.DelegationServerURL,
		APIKey:  serverConfig.DelegationAPIKey,
	})
	if err != nil {
		logger.Fatal("Failed to initialize delegation server client", zap.Error(err))
	}

	permissionService := services.NewPermissionService(delegationClient)
	redemptionService := services.NewRedemptionService(
		services.NewAccrualService(),
		fundingService,
		services.NewExecutionBuilder(),
		delegationClient,
		sessionService,
	)

	healthHandler = handlers.NewHealthHandler()
	sessionAccountHandler = handlers.NewSessionAccountHandler(sessionService, fundingService)
	permissionHandler = handlers.NewPermissionHandler(permissionService, sessionService)
	redemptionHandler = handlers.NewRedemptionHandler(redemptionService)

	logger.Info("Handlers initialized",
		zap.String("stage", serverConfig.Stage),
		zap.String("session_address", sessionService.Address().Hex()))
}

// InitializeRoutes registers all routes on the router.
func InitializeRoutes(r *gin.Engine) {
	corsConfig := cors.DefaultConfig()
	if serverConfig.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(serverConfig.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))
	r.Use(requestIDMiddleware())

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/session-account", sessionAccountHandler.GetSessionAccount)
		v1.POST("/permissions", permissionHandler.RequestPermission)
		v1.POST("/redeem", redemptionHandler.Redeem)
	}
}

// requestIDMiddleware tags every request with an id for log correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
