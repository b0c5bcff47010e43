// @title           Crane Lift Planner API
// @version         1.0
// @description     Lift feasibility backend: boom geometry solver, crane catalog, load chart matrices, saved calculations and shareable reports.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	_ "liftplanner/docs"
	"liftplanner/handlers"
	"liftplanner/services"
	"liftplanner/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origin)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

var cronRunning int32

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	cronLogger *log.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				if cronLogger != nil {
					cronLogger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				}
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("%s failed: %v", name, err)
			if cronLogger != nil {
				cronLogger.Printf("%s failed: %v", name, err)
			}
		} else {
			log.Printf("%s completed successfully", name)
			if cronLogger != nil {
				cronLogger.Printf("%s completed successfully", name)
			}
		}
	}()
}

// reconcileCalculationStats recounts existing_calculations from the source of
// truth. Drift can only come from operator SQL or crashes between commit and
// notification, but the recount is cheap enough to run daily.
// total_calculations is lifetime and is never touched here.
func reconcileCalculationStats(db *sql.DB) error {
	_, err := db.Exec(`
		UPDATE user_stats us
		SET existing_calculations = COALESCE(cnt.n, 0), updated_at = NOW()
		FROM (SELECT u.id AS user_id, COUNT(c.id) AS n
		      FROM users u LEFT JOIN calculation c ON c.user_id = u.id
		      GROUP BY u.id) cnt
		WHERE us.user_id = cnt.user_id
		  AND us.existing_calculations <> COALESCE(cnt.n, 0)`)
	return err
}

func main() {
	db := storage.InitDB()
	_ = storage.InitGormDB()

	if err := storage.EnsureCoreTables(db); err != nil {
		log.Fatalf("Failed to ensure core tables: %v", err)
	}

	// Push notifications are optional; the server runs without credentials.
	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	pushService, err := services.NewPushService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize push service: %v. Push notifications will be disabled.", err)
		pushService = nil
	} else {
		log.Println("Push service initialized successfully")
	}
	handlers.SetPushService(pushService)

	emailService := services.NewEmailService()

	// Daily maintenance at 02:30: drop stale sessions and reconcile the
	// calculation counters.
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open cron error log file: %v", err)
	}
	cronLogger := log.New(cronLogFile, "CRON_ERROR: ", log.LstdFlags)

	_, err = c.AddFunc("30 2 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			if cronLogger != nil {
				cronLogger.Println("Previous cron still running. Skipping this run.")
			}
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting daily maintenance cron job")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var wg sync.WaitGroup

		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		}, cronLogger)

		safeGo(ctx, &wg, "ReconcileCalculationStats", func(ctx context.Context) error {
			return reconcileCalculationStats(db)
		}, cronLogger)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All cron jobs finished")
		case <-ctx.Done():
			log.Println("Cron timeout reached, jobs cancelled")
			if cronLogger != nil {
				cronLogger.Println("Cron timeout reached, jobs cancelled")
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily maintenance cron job: %v", err)
	}

	c.Start()

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(CORSConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 1. AUTH ====================
	r.POST("/api/register", handlers.RegisterUserHandler(db))
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh-token", handlers.RefreshTokenHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))
	r.POST("/api/forgot-password", handlers.ForgetPasswordHandler(db, emailService))
	r.POST("/api/reset-password/:token", handlers.ResetPasswordHandler(db))

	auth := r.Group("/api", handlers.AuthMiddleware(db))
	admin := r.Group("/api", handlers.AuthMiddleware(db), handlers.AdminOnly())
	shared := r.Group("/api", handlers.OptionalAuth(db))

	auth.GET("/session/:user_id", handlers.GetSessionHandler(db))
	auth.DELETE("/session/:user_id", handlers.DeleteSessionHandler(db))
	auth.GET("/active-devices", handlers.GetActiveDevicesHandler(db))
	auth.POST("/logout-device", handlers.LogoutDeviceHandler(db))

	// ==================== 2. USERS ====================
	auth.GET("/users/:id", handlers.GetUserHandler(db))
	auth.GET("/preferences", handlers.GetUserPreferencesHandler(db))
	auth.PUT("/preferences", handlers.UpdateUserPreferencesHandler(db))
	auth.GET("/stats", handlers.GetUserStatsHandler(db))
	auth.POST("/push-token", handlers.RegisterPushTokenHandler(db))
	auth.POST("/change-password", handlers.ChangePasswordHandler(db))
	auth.GET("/notifications", handlers.ListNotificationsHandler(db))
	auth.POST("/notifications/:id/read", handlers.MarkNotificationReadHandler(db))
	admin.PUT("/users/:id/role", handlers.SetUserRoleHandler(db))
	admin.PUT("/users/:id/suspend", handlers.SuspendUserHandler(db))

	// ==================== 3. SOLVER ====================
	r.POST("/api/solve", handlers.SolveLiftHandler)
	r.POST("/api/matrices", handlers.EvaluateMatrices)

	// ==================== 4. CRANE CATALOG ====================
	r.GET("/api/cranes", handlers.ListCranes)
	r.GET("/api/cranes/:crane_id", handlers.GetCrane)
	admin.POST("/cranes", handlers.CreateCrane)
	admin.PUT("/cranes/:crane_id", handlers.UpdateCrane)
	admin.DELETE("/cranes/:crane_id", handlers.DeleteCrane)

	// ==================== 5. LOAD CHARTS ====================
	r.GET("/api/cranes/:crane_id/load-chart", handlers.GetLoadChart)
	r.GET("/api/load-chart-template", handlers.DownloadLoadChartTemplate)
	r.GET("/api/cranes/:crane_id/load-chart/export", handlers.ExportLoadChartCSV)
	admin.PUT("/cranes/:crane_id/load-chart", handlers.ReplaceLoadChart)
	admin.POST("/cranes/:crane_id/load-chart/import", handlers.ImportLoadChartCSV)

	// ==================== 6. CALCULATIONS ====================
	auth.POST("/calculations", handlers.SaveCalculationHandler(db))
	auth.GET("/calculations", handlers.ListCalculationsHandler(db))
	auth.GET("/calculations/:id", handlers.GetCalculationHandler(db))
	auth.DELETE("/calculations/:id", handlers.DeleteCalculationHandler(db))
	auth.GET("/calculations/:id/matrices", handlers.CalculationMatricesHandler(db))
	auth.GET("/calculations/export", handlers.ExportCalculationsXLSX(db))

	// ==================== 7. REPORTS ====================
	shared.GET("/reports/:id", handlers.GetReportView(db))
	shared.GET("/reports/:id/pdf", handlers.GenerateReportPDF(db))
	shared.GET("/reports/:id/qr", handlers.GenerateReportQRCode(db))
	auth.POST("/reports/:id/share", handlers.ShareReportHandler(db, emailService))

	// ==================== 8. ATTACHMENTS ====================
	auth.POST("/uploads", handlers.UploadImageHandler())
	r.GET("/uploads/:file", handlers.ServeUploadHandler())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil || portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT environment variable: %s", port)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := c.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(20 * time.Second):
		log.Println("Warning: cron jobs did not finish before shutdown")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
