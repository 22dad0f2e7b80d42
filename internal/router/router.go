package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/skieshare/skieshare/docs"
	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/handlers"
	"github.com/skieshare/skieshare/internal/middlewares"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers 汇总初始化路由需要的全部 handler
type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	File   *handlers.FileHandler
	Folder *handlers.FolderHandler
	Share  *handlers.ShareHandler
	Team   *handlers.TeamHandler
}

func InitRouter(h *Handlers, cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 分享访问入口：对匿名访客开放，登录用户附带身份
	shareGroup := router.Group("/share")
	shareGroup.Use(middlewares.OptionalAuthMiddleware(cfg))
	{
		shareGroup.GET("/code/:code", h.Share.AccessByCode)
		shareGroup.GET("/:share_token", h.Share.AccessShare)
		shareGroup.POST("/check-access", h.Share.CheckAccess)
		shareGroup.POST("/verify-password", h.Share.VerifyPassword)
	}

	v1 := router.Group("/api/v1")
	{
		// 认证相关路由 (无需认证)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由组
		authenticated := v1.Group("/")
		authenticated.Use(middlewares.AuthMiddleware(cfg))

		// 用户相关路由
		userGroup := authenticated.Group("/users")
		{
			userGroup.GET("/me", h.User.GetProfile)
			userGroup.GET("/me/usage", h.User.GetUsage)
			userGroup.PUT("/me/tier", h.User.ChangeTier)
		}

		// 文件相关路由
		fileGroup := authenticated.Group("/files")
		{
			fileGroup.GET("", h.File.List)
			fileGroup.POST("/upload", h.File.Upload)
			fileGroup.GET("/search", h.File.Search)
			fileGroup.GET("/:file_id/download", h.File.Download)
			fileGroup.PUT("/:file_id/rename", h.File.Rename)
			fileGroup.PUT("/:file_id/move", h.File.Move)
			fileGroup.DELETE("/:file_id", h.File.Delete)
			fileGroup.POST("/:file_id/restore", h.File.Restore)
			fileGroup.DELETE("/:file_id/permanent", h.File.PermanentDelete)
			fileGroup.PUT("/:file_id/lock", h.File.ToggleLock)
			fileGroup.PUT("/:file_id/public", h.File.TogglePublic)
			fileGroup.PUT("/:file_id/settings", h.File.UpdateSettings)
		}

		// 文件夹相关路由
		folderGroup := authenticated.Group("/folders")
		{
			folderGroup.POST("", h.Folder.Create)
			folderGroup.PUT("/:folder_id/rename", h.Folder.Rename)
			folderGroup.PUT("/:folder_id/move", h.Folder.Move)
			folderGroup.DELETE("/:folder_id", h.Folder.Delete)
		}

		// 分享管理路由
		sharesGroup := authenticated.Group("/shares")
		{
			sharesGroup.POST("/files", h.Share.CreateFileShare)
			sharesGroup.POST("/folders", h.Share.CreateFolderShare)
			sharesGroup.GET("", h.Share.ListMyShares)
			sharesGroup.PUT("/:link_id", h.Share.UpdateSettings)
			sharesGroup.DELETE("/:link_id", h.Share.Revoke)
			sharesGroup.GET("/files/:file_id/stats", h.Share.Stats)
		}

		// 团队相关路由
		teamGroup := authenticated.Group("/teams")
		{
			teamGroup.POST("", h.Team.CreateTeam)
			teamGroup.GET("", h.Team.ListMyTeams)
			teamGroup.GET("/:team_id/members", h.Team.ListMembers)
			teamGroup.PUT("/:team_id/members/:user_id", h.Team.UpdateMember)
			teamGroup.DELETE("/:team_id/members/:user_id", h.Team.RemoveMember)
			teamGroup.POST("/:team_id/invites", h.Team.SendInvite)
			teamGroup.GET("/:team_id/invites", h.Team.ListInvites)
			teamGroup.DELETE("/:team_id/invites/:invite_id", h.Team.RevokeInvite)
			teamGroup.POST("/:team_id/files", h.Team.ShareFile)
			teamGroup.GET("/:team_id/files", h.Team.ListFiles)
			teamGroup.DELETE("/:team_id/files/:file_id", h.Team.UnshareFile)
			teamGroup.POST("/:team_id/spaces", h.Team.CreateSpace)
			teamGroup.GET("/:team_id/spaces", h.Team.ListSpaces)
			teamGroup.GET("/:team_id/policy", h.Team.GetPolicy)
			teamGroup.PUT("/:team_id/policy", h.Team.UpdatePolicy)
			teamGroup.GET("/:team_id/audit-logs", h.Team.GetAuditLogs)
			teamGroup.POST("/:team_id/audit-logs", h.Team.LogAuditEvent)
		}

		// 邀请受理与空间操作按资源自身的ID寻址
		authenticated.POST("/invites/accept", h.Team.AcceptInvite)

		spaceGroup := authenticated.Group("/spaces")
		{
			spaceGroup.GET("/:space_id", h.Team.GetSpace)
			spaceGroup.PUT("/:space_id/rename", h.Team.RenameSpace)
			spaceGroup.POST("/:space_id/archive", h.Team.ArchiveSpace)
			spaceGroup.POST("/:space_id/unarchive", h.Team.UnarchiveSpace)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		xerr.Error(c, http.StatusNotFound, http.StatusNotFound, "Route not found")
	})

	return router
}
