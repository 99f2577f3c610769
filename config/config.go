package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Places struct {
		BaseURL    string `mapstructure:"baseURL"`
		GeocodeURL string `mapstructure:"geocodeURL"`
		APIKey     string `mapstructure:"apiKey"`
	} `mapstructure:"places"`
	Storage struct {
		Endpoint      string `mapstructure:"endpoint"`
		Bucket        string `mapstructure:"bucket"`
		PublicBaseURL string `mapstructure:"publicBaseURL"`
		UseSSL        bool   `mapstructure:"useSSL"`
		AccessKey     string `mapstructure:"accessKey"`
		SecretKey     string `mapstructure:"secretKey"`
	} `mapstructure:"storage"`
	LLM LLMConfig `mapstructure:"llm"`
	JWT JWTConfig `mapstructure:"jwt"`
}

// LLMConfig fixes the generation parameters: a low temperature and a token
// budget large enough for a 7-day itinerary.
type LLMConfig struct {
	Model           string  `mapstructure:"model"`
	FallbackModel   string  `mapstructure:"fallbackModel"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int32   `mapstructure:"maxOutputTokens"`
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secretKey"`
	Audience  string `mapstructure:"audience"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets come from the environment, everything else from the file
	v.SetEnvPrefix("TRIP")
	v.AutomaticEnv()
	_ = v.BindEnv("repositories.postgres.password", "TRIP_POSTGRES_PASSWORD")
	_ = v.BindEnv("jwt.secretKey", "TRIP_JWT_SECRET")
	_ = v.BindEnv("places.apiKey", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("storage.accessKey", "STORAGE_ACCESS_KEY")
	_ = v.BindEnv("storage.secretKey", "STORAGE_SECRET_KEY")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
