package scoring

import (
	mw "github.com/DhavalSuthar-24/crease/internal/middleware"
	"github.com/DhavalSuthar-24/crease/pkg/rmiddleware"
	"github.com/gin-gonic/gin"
)

// ScoringRoutes sets up the match scoring routes. Any authenticated caller
// may read; changing a score needs the scorer or admin role.
func ScoringRoutes(router *gin.RouterGroup, svc *Service, jwtSecret string) {
	sc := NewScoringController(svc)

	readRoutes := router.Group("/matches")
	readRoutes.Use(mw.AuthMiddleware(jwtSecret))
	{
		readRoutes.GET("/:id", sc.GetMatch)
		readRoutes.GET("/:id/innings/:number/balls", sc.ListBalls)
		readRoutes.GET("/:id/verify", sc.Verify)
	}

	scorerRoutes := router.Group("/matches")
	scorerRoutes.Use(mw.AuthMiddleware(jwtSecret))
	scorerRoutes.Use(rmiddleware.ScorerMiddleware())
	{
		// Lifecycle
		scorerRoutes.POST("", sc.CreateMatch)
		scorerRoutes.POST("/:id/teams", sc.SetTeams)
		scorerRoutes.POST("/:id/toss", sc.RecordToss)
		scorerRoutes.POST("/:id/second-innings", sc.StartSecondInnings)
		scorerRoutes.POST("/:id/abandon", sc.Abandon)

		// Deliveries
		scorerRoutes.POST("/:id/balls", sc.SubmitBall)
		scorerRoutes.POST("/:id/undo", sc.Undo)

		// Spoken commands
		scorerRoutes.POST("/:id/commands", sc.Command)
		scorerRoutes.POST("/:id/commands/:command_id/confirm", sc.ConfirmCommand)
		scorerRoutes.DELETE("/:id/commands/:command_id", sc.CancelCommand)
	}

	adminRoutes := router.Group("/matches")
	adminRoutes.Use(mw.AuthMiddleware(jwtSecret))
	adminRoutes.Use(rmiddleware.AdminMiddleware())
	{
		adminRoutes.POST("/:id/rebuild", sc.Rebuild)
	}
}
