package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avolkov/tiergate/internal/logging"
	"github.com/avolkov/tiergate/internal/server/auth"
	"github.com/avolkov/tiergate/internal/server/services"
	"github.com/gin-gonic/gin"
)

type HTTPServer struct {
	address       string
	logger        logging.Logger
	authenticator *auth.Authenticator
	auth          *services.AuthService
	users         *services.UserService
}

func NewHTTPServer(a string, l logging.Logger, an *auth.Authenticator, as *services.AuthService, us *services.UserService) (*HTTPServer, error) {
	return &HTTPServer{
		address:       a,
		logger:        l.With("module", "http_server"),
		authenticator: an,
		auth:          as,
		users:         us,
	}, nil
}

func (s *HTTPServer) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.authenticate())

	v1 := r.Group("/v1")

	a := v1.Group("/auth")
	a.POST("/register", s.register)
	a.POST("/login", s.login)
	a.POST("/logout", s.logout)
	a.POST("/refresh", s.refresh)
	a.POST("/forgot-password", s.forgotPassword)
	a.POST("/reset-password", s.resetPassword)

	u := v1.Group("/users")
	u.GET("", requireTier(1), s.getUsers)
	u.GET("/:userId", requireTier(1), s.getUser)
	u.PATCH("/:userId", requireTier(2), s.updateUser)
	u.DELETE("/:userId", requireTier(3), s.deleteUser)

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "Error stopping HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
