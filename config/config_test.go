package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fantasy12")
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.RateLimitBackend)
	assert.Equal(t, 168.0, cfg.JWTTTL.Hours())
	assert.True(t, cfg.StakePerGame().Equal(decimal.NewFromInt(1)))
	assert.False(t, cfg.ArchiveEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			JWTSecret:          "0123456789abcdef",
			JWTTTL:             1,
			RateLimitBackend:   "memory",
			BetStakePerGame:    "2.5",
			PointsPerHit:       10,
			RoundCloseInterval: 1,
			BodyLimitMB:        10,
		}
	}
	c := base()
	require.NoError(t, c.Validate())

	c = base()
	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = base()
	c.RateLimitBackend = "memcached"
	assert.Error(t, c.Validate())

	c = base()
	c.BetStakePerGame = "-1"
	assert.Error(t, c.Validate())

	c = base()
	c.ArchiveBucket = "logs"
	assert.Error(t, c.Validate())
	c.ArchiveAccountID = "acct"
	assert.NoError(t, c.Validate())
}

func TestOrigins(t *testing.T) {
	c := Config{AllowedOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Origins())
}
