package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aura-studio/offline/alb"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	if level, err := logrus.ParseLevel(os.Getenv("OFFLINE_LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	var opts []alb.ServeOption
	if path := os.Getenv("OFFLINE_CONFIG"); path != "" {
		opts = append(opts, alb.WithServeConfigFile(path))
	} else if path, err := alb.FindDefaultConfigFile(); err == nil {
		opts = append(opts, alb.WithServeConfigFile(path))
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logrus.Info("offline: shutting down")
		if err := alb.Close(); err != nil {
			logrus.Warnf("offline: shutdown: %v", err)
		}
	}()

	if err := alb.Serve(opts...); err != nil {
		logrus.Fatal(err)
	}
}
