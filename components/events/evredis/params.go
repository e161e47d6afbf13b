package evredis

import (
	"time"

	"github.com/go-redis/redis/v8"
)

// ClientParams describes the redis connection.
type ClientParams struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewClient is an initialization of the redis client.
func NewClient(params ClientParams) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         params.Addr,
		Password:     params.Password,
		DB:           params.DB,
		DialTimeout:  time.Second * 5,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 5,
	})
}
