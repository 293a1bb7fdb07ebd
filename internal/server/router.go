package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/config"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/controllers"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/storage"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Blobs  storage.BlobStore
	OAuth  *auth.OAuthService
	// RateCounter enables the recipe creation limit when set
	RateCounter middleware.WindowCounter
}

// NewRouter wires services, controllers and middleware into a gin engine
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config

	userService := services.NewUserService(deps.DB)
	relationService := services.NewRelationService(deps.DB)
	recipeService := services.NewRecipeService(deps.DB, deps.Blobs)

	userController := controllers.NewUserController(userService, relationService, cfg.PageSize)
	authController := controllers.NewAuthController(userService, deps.OAuth)
	clientController := controllers.NewClientController(services.NewClientService(deps.DB))
	recipeController := controllers.NewRecipeController(recipeService, relationService,
		services.NewShoppingListService(deps.DB), cfg.PageSize)
	referenceController := controllers.NewReferenceController(
		services.NewTagService(deps.DB), services.NewIngredientService(deps.DB))

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSOrigins))
	router.RedirectTrailingSlash = true

	secret := []byte(cfg.JWTSecret)
	optionalAuth := middleware.OAuth2Auth(secret, deps.OAuth, true)
	requireAuth := middleware.OAuth2Auth(secret, deps.OAuth, false)
	requireAdmin := []gin.HandlerFunc{requireAuth, middleware.RequireRole(models.RoleAdmin)}

	createRecipe := []gin.HandlerFunc{requireAuth}
	if deps.RateCounter != nil {
		limiter := middleware.NewRecipeCreationRateLimiter(deps.RateCounter, cfg.RecipeCreateLimit)
		createRecipe = append(createRecipe, limiter.Middleware())
	}
	createRecipe = append(createRecipe, recipeController.CreateRecipe)

	router.GET("/health", healthCheckHandler)

	api := router.Group("/api")
	{
		authAPI := api.Group("/auth")
		{
			authAPI.POST("/token/login/", authController.Login)
			authAPI.POST("/token/logout/", requireAuth, authController.Logout)
			authAPI.POST("/oauth/token", deps.OAuth.HandleToken)
		}

		users := api.Group("/users")
		{
			users.GET("/", optionalAuth, userController.ListUsers)
			users.POST("/", userController.Register)
			users.GET("/me/", requireAuth, userController.Me)
			users.POST("/set_password/", requireAuth, userController.SetPassword)
			users.GET("/subscriptions/", requireAuth, userController.Subscriptions)
			users.GET("/me/clients/", requireAuth, clientController.ListClients)
			users.POST("/me/clients/", requireAuth, clientController.CreateClient)
			users.DELETE("/me/clients/:id/", requireAuth, clientController.DeleteClient)
			users.GET("/:id/", optionalAuth, userController.GetProfile)
			users.POST("/:id/subscribe/", requireAuth, userController.Subscribe)
			users.DELETE("/:id/subscribe/", requireAuth, userController.Unsubscribe)
		}

		recipes := api.Group("/recipes")
		{
			recipes.GET("/", optionalAuth, recipeController.ListRecipes)
			recipes.POST("/", createRecipe...)
			recipes.GET("/:id/", optionalAuth, recipeController.GetRecipe)
			recipes.PATCH("/:id/", requireAuth, recipeController.UpdateRecipe)
			recipes.PUT("/:id/", requireAuth, recipeController.UpdateRecipe)
			recipes.DELETE("/:id/", requireAuth, recipeController.DeleteRecipe)
			recipes.POST("/:id/favorite/", requireAuth, recipeController.AddFavorite)
			recipes.DELETE("/:id/favorite/", requireAuth, recipeController.RemoveFavorite)
			recipes.POST("/:id/shopping_cart/", requireAuth, recipeController.AddToShoppingCart)
			recipes.DELETE("/:id/shopping_cart/", requireAuth, recipeController.RemoveFromShoppingCart)
		}
		api.GET("/download_shopping_cart/", requireAuth, recipeController.DownloadShoppingCart)

		api.GET("/tags/", referenceController.ListTags)
		api.GET("/tags/:id/", referenceController.GetTag)
		api.POST("/tags/", append(requireAdmin, referenceController.CreateTag)...)
		api.GET("/ingredients/", referenceController.ListIngredients)
		api.GET("/ingredients/:id/", referenceController.GetIngredient)
		api.POST("/ingredients/", append(requireAdmin, referenceController.CreateIngredient)...)
	}

	if cfg.StorageDriver == "local" {
		router.Static(mediaPath(cfg.MediaURL), cfg.MediaRoot)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

// mediaPath is the route prefix of MEDIA_URL, which may be absolute
func mediaPath(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil || u.Path == "" {
		return "/media"
	}
	return u.Path
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "gin-foodgram-api",
	})
}
