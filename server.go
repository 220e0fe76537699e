package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/foodlink/necessity_backend/config"
	"github.com/foodlink/necessity_backend/middlewares"
	"github.com/foodlink/necessity_backend/models"
	"github.com/foodlink/necessity_backend/models/reports"
	"github.com/foodlink/necessity_backend/utils"
	"github.com/foodlink/necessity_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

const (
	roleAdmin        = "administrador"
	roleNutritionist = string(models.RoleNutritionist)
	roleCoordination = string(models.RoleCoordination)
	roleLogistics    = string(models.RoleLogistics)
)

// writeBusinessError maps the typed outcomes onto HTTP statuses. Anything
// unrecognized is a 500 with the correlation id for log lookup.
func writeBusinessError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	var notFoundErr *utils.NotFoundError
	var conflictErr *utils.ConflictError
	var missingErr *models.MissingAveragesError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Message, "entity": notFoundErr.Entity})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":         conflictErr.Message,
			"existing_id":   conflictErr.ExistingId,
			"existing_code": conflictErr.ExistingCode,
		})
	case errors.As(err, &missingErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "generation aborted: headcount averages are missing",
			"faults": missingErr.Faults,
		})
	default:
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "internal error",
			"correlation_id": cid,
		})
	}
}

// workflowRole resolves the role acting on the adjustment workflow. Admins
// impersonate via an explicit role, everyone else acts as their token says.
func workflowRole(c *gin.Context, requested string) (models.Role, error) {
	tokenRole, ok := utils.GetUserRoleFromContext(c.Request.Context())
	if !ok {
		return "", utils.NewValidationError("missing role")
	}
	if tokenRole == roleAdmin {
		if requested == "" {
			return "", utils.NewValidationError("administrators must state the role they act as")
		}
		tokenRole = requested
	}
	switch models.Role(tokenRole) {
	case models.RoleNutritionist, models.RoleCoordination, models.RoleLogistics:
		return models.Role(tokenRole), nil
	}
	return "", utils.NewValidationError("role %s cannot operate the adjustment workflow", tokenRole)
}

func previewHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in workflow.GenerationInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := workflow.PreviewNecessity(c.Request.Context(), config.GetDB(), in)
		if err != nil {
			config.LogError(logger, "server.go", "previewHandler", "PreviewNecessity", in, err)
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type generateRequest struct {
	workflow.GenerationInput
	Overwrite bool `json:"overwrite"`
}

func generateHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		userName, _ := utils.GetUserNameFromContext(c.Request.Context())

		header, err := workflow.GenerateNecessity(c.Request.Context(), config.GetDB(), logger,
			req.GenerationInput, userId, userName, req.Overwrite)
		if err != nil {
			config.LogError(logger, "server.go", "generateHandler", "GenerateNecessity", req, err)
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusCreated, header)
	}
}

func recalculateHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid necessity id"})
			return
		}
		persist := !strings.EqualFold(c.Query("dry_run"), "true")
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		userName, _ := utils.GetUserNameFromContext(c.Request.Context())

		header, result, err := workflow.RecalculateNecessity(c.Request.Context(), config.GetDB(), logger,
			headerId, userId, userName, persist)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"header":        header,
			"total_items":   result.TotalItems,
			"kitchen_count": result.KitchenCount,
			"persisted":     persist,
		})
	}
}

func listHeadersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.NecessityHeaderFilter
		filter.BranchId, _ = strconv.Atoi(c.Query("branch_id"))
		filter.MonthRef, _ = strconv.Atoi(c.Query("month_ref"))
		filter.Year, _ = strconv.Atoi(c.Query("year"))
		filter.Status = c.Query("status")

		headers, err := models.ListNecessityHeaders(c.Request.Context(), filter)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusOK, headers)
	}
}

func listItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid necessity id"})
			return
		}
		items, err := models.ListNecessityItems(c.Request.Context(), headerId)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

type saveAdjustmentsRequest struct {
	Role    string                    `json:"role"`
	Scope   workflow.AdjustmentScope  `json:"scope"`
	Updates []workflow.ItemAdjustment `json:"updates"`
}

func saveAdjustmentsHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req saveAdjustmentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		role, err := workflowRole(c, req.Role)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		outcome, err := workflow.SaveAdjustments(c.Request.Context(), config.GetDB(), logger, role, req.Scope, req.Updates)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

type releaseRequest struct {
	Role  string                   `json:"role"`
	Scope workflow.AdjustmentScope `json:"scope"`
}

func releaseHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req releaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		role, err := workflowRole(c, req.Role)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		status, err := workflow.ReleaseStage(c.Request.Context(), config.GetDB(), logger, role, req.Scope)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

type extraProductRequest struct {
	Role string `json:"role"`
	workflow.ExtraProductInput
}

func extraProductHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req extraProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		role, err := workflowRole(c, req.Role)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		item, err := workflow.AddExtraProduct(c.Request.Context(), config.GetDB(), logger, role, req.ExtraProductInput)
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func deleteItemHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
			return
		}
		role, err := workflowRole(c, c.Query("role"))
		if err != nil {
			writeBusinessError(c, err)
			return
		}
		if err := workflow.DeleteItem(c.Request.Context(), config.GetDB(), logger, role, itemId); err != nil {
			writeBusinessError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func exportHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid necessity id"})
			return
		}
		header, err := models.GetNecessityHeader(config.GetDB(), c.Request.Context(), headerId)
		if err != nil {
			writeBusinessError(c, err)
			return
		}

		// Build the whole workbook before touching the response so a failed
		// query still comes back as an error status, not a truncated file.
		var buf bytes.Buffer
		if err := reports.ExportNecessityExcel(c.Request.Context(), &buf, headerId); err != nil {
			config.LogError(logger, "server.go", "exportHandler", "ExportNecessityExcel", headerId, err)
			writeBusinessError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", reports.ExportFileName(header)))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before the dependencies are up; app routes
	// answer 503 until DB and Redis are connected.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Writer.Header().Set("x-correlation-id", cid)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	necessidades := r.Group("/necessidades", middlewares.AuthMiddleware())
	{
		necessidades.GET("", listHeadersHandler())
		necessidades.GET("/:id/itens", listItemsHandler())
		necessidades.GET("/:id/exportar", exportHandler(logger))

		necessidades.POST("/previsualizar",
			middlewares.RequireRoles(roleNutritionist), previewHandler(logger))
		necessidades.POST("/gerar",
			middlewares.RequireRoles(roleNutritionist), generateHandler(logger))
		necessidades.POST("/:id/recalcular",
			middlewares.RequireRoles(roleNutritionist), recalculateHandler(logger))

		necessidades.POST("/ajustes",
			middlewares.RequireRoles(roleNutritionist, roleCoordination, roleLogistics),
			saveAdjustmentsHandler(logger))
		necessidades.POST("/liberar",
			middlewares.RequireRoles(roleNutritionist, roleCoordination, roleLogistics),
			releaseHandler(logger))
		necessidades.POST("/itens/extra",
			middlewares.RequireRoles(roleNutritionist, roleCoordination, roleLogistics),
			extraProductHandler(logger))
		necessidades.DELETE("/itens/:id",
			middlewares.RequireRoles(roleNutritionist, roleCoordination, roleLogistics),
			deleteItemHandler(logger))
	}

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
