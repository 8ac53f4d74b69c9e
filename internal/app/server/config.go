package server

import (
	"time"

	"github.com/spf13/viper"

	"github.com/chess-vn/livechess/pkg/logging"
)

type Config struct {
	Port        string
	AllowOrigin string

	AuthSecret    string
	TokenDuration time.Duration

	TickInterval         time.Duration
	ClockUpdateInterval  time.Duration
	MatchmakingRatingGap int

	StockfishPath string
}

func NewConfig() Config {
	viper.SetDefault("Server.Port", "8080")
	viper.SetDefault("Server.AllowOrigin", "*")
	viper.SetDefault("Auth.Secret", "livechess-dev-secret")
	viper.SetDefault("Auth.TokenDuration", "24h")
	viper.SetDefault("Clock.TickInterval", "100ms")
	viper.SetDefault("Clock.UpdateInterval", "1s")
	viper.SetDefault("Matchmaking.RatingGap", 200)
	viper.SetDefault("Analysis.StockfishPath", "")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/server")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("LIVECHESS")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logging.Fatal("failed to read config file")
		}
	}

	return Config{
		Port:                 viper.GetString("Server.Port"),
		AllowOrigin:          viper.GetString("Server.AllowOrigin"),
		AuthSecret:           viper.GetString("Auth.Secret"),
		TokenDuration:        viper.GetDuration("Auth.TokenDuration"),
		TickInterval:         viper.GetDuration("Clock.TickInterval"),
		ClockUpdateInterval:  viper.GetDuration("Clock.UpdateInterval"),
		MatchmakingRatingGap: viper.GetInt("Matchmaking.RatingGap"),
		StockfishPath:        viper.GetString("Analysis.StockfishPath"),
	}
}
