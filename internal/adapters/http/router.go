package http

import (
	"context"
	"net/http"

	"github.com/dkeye/pinrelay/internal/adapters/rtc"
	"github.com/dkeye/pinrelay/internal/adapters/signal"
	"github.com/dkeye/pinrelay/internal/app/orch"
	"github.com/dkeye/pinrelay/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware keeps a stable per-browser token in the signed
// session cookie; it keys join rate limiting and log correlation.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("PinRelaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Status())
	})

	iceCfg := rtc.NewClientConfig(rtc.ConfigFrom(cfg.ICEServers))
	limiter := signal.NewJoinLimiter(cfg.JoinRate, cfg.JoinBurst)
	ctrl := signal.NewSignalWSController(o, limiter, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})

	log.Info().Str("module", "adapters.http").Int("join_burst", cfg.JoinBurst).Msg("router setup")

	ws := func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	}
	r.GET("/ws", ws)

	api := r.Group("/api")
	api.GET("/ws/signal", ws)
	api.GET("/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, iceCfg)
	})

	return r
}
