package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/calder-vision/imagenet-api/internal/classify"
	"github.com/calder-vision/imagenet-api/internal/config"
	"github.com/calder-vision/imagenet-api/internal/handlers"
	"github.com/calder-vision/imagenet-api/internal/model"
	"github.com/calder-vision/imagenet-api/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classification HTTP server",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("host", "", "Host address to bind to")
	flags.Int("port", 0, "Port to listen on")
	viper.BindPFlag("host", flags.Lookup("host"))
	viper.BindPFlag("port", flags.Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("loading model",
		zap.String("weights", cfg.WeightsPath),
		zap.String("meta", cfg.MetaPath),
	)
	m, err := model.Load(cfg.WeightsPath, cfg.MetaPath)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info("model loaded",
		zap.Int("classes", len(m.Labels())),
		zap.Bool("flip_vertical", m.Flip()),
	)

	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	handler := handlers.New(classify.New(m), m.Labels(), log)
	handler.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Info("server starting", zap.String("addr", addr))
	return router.Run(addr)
}
