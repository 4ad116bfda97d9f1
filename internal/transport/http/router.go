package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/ErlanBelekov/blog-cms/internal/transport/http/handler"
	"github.com/ErlanBelekov/blog-cms/internal/transport/http/middleware"
)

// RPCPrefix is the single entry point; each procedure is a path below it.
const RPCPrefix = "/api/rpc"

func NewRouter(
	logger *slog.Logger,
	authHandler *handler.AuthHandler,
	postHandler *handler.PostHandler,
	uploadHandler *handler.UploadHandler,
	verifier middleware.TokenVerifier,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	rpc := r.Group(RPCPrefix)

	// Public procedures
	rpc.POST("/authLogin", authHandler.Login)
	rpc.POST("/authRegister", authHandler.Register)
	rpc.POST("/verifyToken", authHandler.VerifyToken)
	rpc.GET("/posts", postHandler.ListPublished)
	rpc.GET("/postBySlug", postHandler.GetBySlug)
	rpc.GET("/listCategories", postHandler.ListCategories)

	// Admin procedures
	admin := rpc.Group("", middleware.Auth(verifier))
	admin.GET("/listAdminPosts", postHandler.ListAdmin)
	admin.POST("/createPost", postHandler.Create)
	admin.POST("/updatePost", postHandler.Update)
	admin.POST("/updatePostStatus", postHandler.UpdateStatus)
	admin.POST("/uploadUrl", uploadHandler.UploadURL)

	return r
}
