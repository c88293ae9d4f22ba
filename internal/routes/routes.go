package routes

import (
	"time"

	"github.com/chachabrian/unipool-backend/internal/handlers"
	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps is everything the route table hands to handlers.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Sessions *services.SessionStore
	Accounts *services.AccountService
	Rides    *services.RideService
	Bookings *services.BookingService
	Reviews  *services.ReviewService
	Admin    *services.AdminService
	Hub      *services.Hub
	Auth     handlers.AuthConfig
	Location *time.Location
	// UploadDir is served under /uploads when images are stored locally.
	UploadDir string
}

func Register(r *gin.Engine, d Deps) {
	r.GET("/health", handlers.Health(d.DB, d.Redis))

	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	api := r.Group("/api")
	api.Use(middleware.SessionMiddleware(d.Sessions, d.Auth.Secret, d.Auth.CookieName))
	api.Use(middleware.CSRFProtect())
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(d.Accounts))
			auth.POST("/login", handlers.Login(d.Accounts, d.Sessions, d.Auth))
			auth.POST("/logout", handlers.Logout(d.Sessions, d.Auth))
		}

		// Public ride browsing
		api.GET("/rides", handlers.ListRides(d.Rides))
		api.GET("/rides/:id", handlers.GetRide(d.Rides))

		protected := api.Group("/")
		protected.Use(middleware.RequireAuth())
		{
			protected.GET("/ws", handlers.WebSocketHandler(d.Hub))

			rides := protected.Group("/rides")
			{
				rides.POST("", handlers.CreateRide(d.Rides, d.Location))
				rides.GET("/offered", handlers.GetOfferedRides(d.Rides))
				rides.GET("/:id/manage", handlers.ManageRide(d.Rides))
				rides.POST("/:id/join", handlers.JoinRide(d.Bookings))
				rides.POST("/:id/complete", handlers.CompleteRide(d.Rides))
				rides.DELETE("/:id", handlers.DeleteRide(d.Rides))
			}

			bookings := protected.Group("/bookings")
			{
				bookings.GET("", handlers.GetMyBookings(d.Bookings))
				bookings.DELETE("/:id", handlers.CancelBooking(d.Bookings))
			}

			reviews := protected.Group("/reviews")
			{
				reviews.POST("", handlers.SubmitReview(d.Reviews))
				reviews.GET("/driver", handlers.GetDriverReviews(d.Reviews))
			}

			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(d.Accounts))
				users.PUT("/profile", handlers.UpdateProfile(d.Accounts))
				users.POST("/profile/car-image", handlers.UploadCarImage(d.Accounts))
				users.DELETE("/profile/car-image", handlers.RemoveCarImage(d.Accounts))
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/dashboard", handlers.AdminDashboard(d.Admin))
				admin.DELETE("/users/:id", handlers.AdminDeleteUser(d.Admin, d.Sessions))
				admin.DELETE("/rides/:id", handlers.AdminDeleteRide(d.Admin))
			}
		}
	}
}
