package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go-receipt-scanner/internal/auth"
	"go-receipt-scanner/internal/config"
	apperrors "go-receipt-scanner/internal/errors"
	"go-receipt-scanner/internal/logger"
	"go-receipt-scanner/internal/observer"
	"go-receipt-scanner/internal/service"
	"go-receipt-scanner/internal/transaction"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// allowedExtensions lists the upload formats the OCR engine accepts.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
}

type ScanURLRequest struct {
	URL          string `json:"url" binding:"required"`
	ExpectedText string `json:"expected_text,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

type UserPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Deps bundles the collaborators the HTTP layer needs.
type Deps struct {
	Scans        service.ScanService
	Transactions *transaction.Store
	Users        *auth.UserStore
	Tokens       *auth.TokenIssuer
	Metrics      *observer.MetricsObserver
	Config       *config.Config
}

// NewHandler builds the gin router with all routes and middleware.
func NewHandler(deps Deps) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(deps.Config.MaxUploadBytes),
		errorHandler(),
	)

	r.GET("/health", healthCheck)

	api := r.Group("/api")
	api.POST("/auth/register", register(deps))
	api.POST("/auth/login", login(deps))

	protected := api.Group("", auth.Middleware(deps.Tokens, deps.Users))
	protected.POST("/ocr/process", processReceipt(deps))
	protected.POST("/ocr/scan-url", scanURL(deps))
	protected.GET("/metrics", scanMetrics(deps))

	protected.GET("/transactions", listTransactions(deps))
	protected.POST("/transactions", createTransaction(deps))
	protected.GET("/transactions/:id", getTransaction(deps))
	protected.PUT("/transactions/:id", updateTransaction(deps))
	protected.DELETE("/transactions/:id", deleteTransaction(deps))

	return r
}

func register(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid registration request", err)
			return
		}

		user, err := deps.Users.Create(req.Email, req.Password, req.Name)
		if err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				respondError(c, http.StatusConflict, "email already registered", err)
				return
			}
			respondError(c, http.StatusInternalServerError, "failed to create user", err)
			return
		}

		token, err := deps.Tokens.GenerateToken(user.ID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to issue token", err)
			return
		}

		c.JSON(http.StatusCreated, AuthResponse{
			Token: token,
			User:  UserPayload{ID: user.ID, Email: user.Email, Name: user.Name},
		})
	}
}

func login(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid login request", err)
			return
		}

		user, err := deps.Users.FindByEmail(req.Email)
		if err != nil || !user.CheckPassword(req.Password) {
			// Same response for unknown email and wrong password.
			respondError(c, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}

		token, err := deps.Tokens.GenerateToken(user.ID)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to issue token", err)
			return
		}

		c.JSON(http.StatusOK, AuthResponse{
			Token: token,
			User:  UserPayload{ID: user.ID, Email: user.Email, Name: user.Name},
		})
	}
}

func processReceipt(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), deps.Config.RequestTimeout)
		defer cancel()

		user, ok := auth.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "no authenticated user", nil)
			return
		}

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Info("Processing receipt upload")

		fileHeader, err := c.FormFile("receipt")
		if err != nil {
			respondError(c, http.StatusBadRequest, "receipt file is required", err)
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if !allowedExtensions[ext] {
			respondError(c, http.StatusBadRequest,
				fmt.Sprintf("unsupported file type %q, allowed: png, jpg, jpeg, gif, bmp", ext), nil)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read uploaded file", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, deps.Config.MaxUploadBytes))
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read uploaded file", err)
			return
		}

		expectedText := c.PostForm("expected_text")

		result, err := deps.Scans.ScanUpload(ctx, user.ID, fileHeader.Filename, data, expectedText, nil)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "receipt scan failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"file":               result.FileName,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"confidence":         result.Confidence,
			"category":           result.ExtractedData.Category,
		}).Info("Receipt scan completed successfully")

		c.JSON(http.StatusOK, result)
	}
}

func scanURL(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), deps.Config.RequestTimeout)
		defer cancel()

		user, ok := auth.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "no authenticated user", nil)
			return
		}

		var req ScanURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		result, err := deps.Scans.ScanURL(ctx, user.ID, req.URL, req.ExpectedText, nil)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "receipt scan failed", err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func scanMetrics(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Metrics.GetMetrics())
	}
}

func listTransactions(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "no authenticated user", nil)
			return
		}

		filter := transaction.Filter{
			Category:  c.Query("category"),
			Type:      transaction.Type(c.Query("type")),
			StartDate: c.Query("startDate"),
			EndDate:   c.Query("endDate"),
		}

		list, err := deps.Transactions.List(user.ID, filter)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to list transactions", err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func createTransaction(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "no authenticated user", nil)
			return
		}

		var tx transaction.Transaction
		if err := c.ShouldBindJSON(&tx); err != nil {
			respondError(c, http.StatusBadRequest, "invalid transaction", err)
			return
		}
		if err := validateTransaction(tx); err != nil {
			respondError(c, http.StatusBadRequest, "invalid transaction", err)
			return
		}

		created, err := deps.Transactions.Create(user.ID, tx)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to create transaction", err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func getTransaction(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "no authenticated user", nil)
			return
		}

		tx, err := deps.Transactions.Get(user.ID, c.Param("id"))
		if err != nil {
			if errors.Is(err, transaction.ErrNotFound) {
				respondError(c, http.StatusNotFound, "transaction not found", err)
				return
			}
			respondError(c, http.StatusInternalServerError, "failed to load transaction", err)
			return
		}
		c.JSON(http.StatusOK, tx)
	}
}

func updateTransaction(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "no authenticated user", nil)
			return
		}

		existing, err := deps.Transactions.Get(user.ID, c.Param("id"))
		if err != nil {
			if errors.Is(err, transaction.ErrNotFound) {
				respondError(c, http.StatusNotFound, "transaction not found", err)
				return
			}
			respondError(c, http.StatusInternalServerError, "failed to load transaction", err)
			return
		}

		// Bind over the stored record so omitted fields keep their values.
		updated := existing
		if err := c.ShouldBindJSON(&updated); err != nil {
			respondError(c, http.StatusBadRequest, "invalid transaction", err)
			return
		}
		updated.ID = existing.ID

		saved, err := deps.Transactions.Replace(user.ID, updated)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to update transaction", err)
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

func deleteTransaction(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "no authenticated user", nil)
			return
		}

		if err := deps.Transactions.Delete(user.ID, c.Param("id")); err != nil {
			if errors.Is(err, transaction.ErrNotFound) {
				respondError(c, http.StatusNotFound, "transaction not found", err)
				return
			}
			respondError(c, http.StatusInternalServerError, "failed to delete transaction", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func validateTransaction(tx transaction.Transaction) error {
	var missing []string
	if tx.Type == "" {
		missing = append(missing, "type")
	}
	if tx.Amount == 0 {
		missing = append(missing, "amount")
	}
	if tx.Description == "" {
		missing = append(missing, "description")
	}
	if tx.Category == "" {
		missing = append(missing, "category")
	}
	if tx.Date == "" {
		missing = append(missing, "date")
	}
	if tx.PaymentMethod == "" {
		missing = append(missing, "paymentMethod")
	}
	if tx.Account == "" {
		missing = append(missing, "account")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	switch tx.Type {
	case transaction.TypeIncome, transaction.TypeExpense, transaction.TypeTransfer:
	default:
		return fmt.Errorf("invalid transaction type %q", tx.Type)
	}
	return nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	response := ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
	}
	if err != nil {
		response.Message = fmt.Sprintf("%s: %v", message, err)
	}
	c.AbortWithStatusJSON(code, response)
}
