package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// App — конфигурация движка (кроме БД, см. DBConfig).
type App struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Hold Store (Redis).
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Время жизни hold'а, минут. Фиксированное окно, активностью не продлевается.
	HoldTTLMin int `envconfig:"HOLD_TTL_MIN" default:"10"`

	// Нотификации. Пустой URL — деградация до лог-диспетчера.
	RabbitURL      string `envconfig:"RABBIT_URL"`
	RabbitExchange string `envconfig:"RABBIT_EXCHANGE" default:"booking.events"`

	// Секрет подписи callback'а платёжного шлюза.
	PaymentSecret string `envconfig:"PAYMENT_WEBHOOK_SECRET" required:"true"`

	// Веса ранжирования — политика, не закон; дефолты задокументированы
	// в пакете ranking.
	RankWeightPrice     float64 `envconfig:"RANK_WEIGHT_PRICE" default:"0.4"`
	RankWeightRating    float64 `envconfig:"RANK_WEIGHT_RATING" default:"0.35"`
	RankWeightProximity float64 `envconfig:"RANK_WEIGHT_PROXIMITY" default:"0.25"`
}

func LoadApp() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}

func (c App) HoldTTL() time.Duration {
	return time.Duration(c.HoldTTLMin) * time.Minute
}
