package boot

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		assert := assert.New(t)

		config, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
		assert.Nil(err)
		assert.True(config.IsDevelopment())
		assert.Equal("8080", config.Server.Port)
		assert.Equal("https://chatapi.viber.com/pa", config.ViberAPIURL())
		assert.Equal(5*time.Second, config.RemoteTimeout())
		assert.Equal(time.Minute, config.RefreshInterval())
		assert.Equal(8, config.ProbeConcurrency())
		assert.Equal("bots.db", config.DatabaseFile())
		assert.Equal([]string{"*"}, config.AllowedOrigins())
	})

	t.Run("Overrides", func(t *testing.T) {
		assert := assert.New(t)

		config, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
			"ENV":             "prod",
			"JWT_SECRET":      "s3cret",
			"DATA_DIR":        "/var/lib/relay",
			"VIBER_TIMEOUT":   "2s",
			"ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com",
		}))
		assert.Nil(err)
		assert.True(config.IsProduction())
		assert.Equal(2*time.Second, config.RemoteTimeout())
		assert.Equal("/var/lib/relay/bots.db", config.DatabaseFile())
		assert.Equal([]string{"https://a.example.com", "https://b.example.com"}, config.AllowedOrigins())
		assert.Equal([]byte("s3cret"), config.Secret())
	})

	t.Run("Production requires secret", func(t *testing.T) {
		_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"ENV": "prod"}))
		assert.NotNil(t, err)
	})

	t.Run("Invalid timeout", func(t *testing.T) {
		_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"VIBER_TIMEOUT": "0s"}))
		assert.NotNil(t, err)
	})
}
