package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports liveness of the API and both backing stores. The route is
// public and returns status words only, nothing about addresses or schema.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "up"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "down"
		}

		redisStatus := "up"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "down"
		}

		code := http.StatusOK
		if dbStatus != "up" || redisStatus != "up" {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"ok":    code == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		})
	}
}
