// Package main is the entry point for the letterbox server. It reads
// configuration from the environment, builds a logger, and hands off to
// internal/server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/enfdev/letterbox/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/letterbox.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required; generate one with `openssl rand -hex 32`")
		os.Exit(1)
	}

	kakaoClientID := os.Getenv("KAKAO_CLIENT_ID")
	kakaoClientSecret := os.Getenv("KAKAO_CLIENT_SECRET")
	if kakaoClientID == "" || kakaoClientSecret == "" {
		logger.Error("KAKAO_CLIENT_ID and KAKAO_CLIENT_SECRET are required")
		os.Exit(1)
	}
	kakaoCallbackURL := os.Getenv("KAKAO_CALLBACK_URL")
	if kakaoCallbackURL == "" {
		kakaoCallbackURL = fmt.Sprintf("http://localhost:%d/auth/kakao/callback", port)
	}

	srv, err := server.New(server.Config{
		Port:              port,
		DBPath:            dbPath,
		JWTSecret:         jwtSecret,
		KakaoClientID:     kakaoClientID,
		KakaoClientSecret: kakaoClientSecret,
		KakaoCallbackURL:  kakaoCallbackURL,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
