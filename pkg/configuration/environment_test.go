package configuration

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDatabaseOptions_ConnectionString(t *testing.T) {
	opts := DatabaseOptions{
		Name:     "orghierarchy",
		Host:     "db.local",
		Port:     "5433",
		User:     "importer",
		Password: "secret",
	}
	require.Equal(t,
		"host=db.local port=5433 user=importer dbname=orghierarchy password=secret sslmode=disable",
		opts.ConnectionString(),
	)
}

func TestLogrusLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"silent": logrus.PanicLevel,
		"error":  logrus.ErrorLevel,
		"warn":   logrus.WarnLevel,
		"info":   logrus.InfoLevel,
		"debug":  logrus.DebugLevel,
		"bogus":  logrus.ErrorLevel,
		"":       logrus.ErrorLevel,
	}
	for input, want := range cases {
		c := &Configuration{LogLevel: input}
		require.Equal(t, want, c.LogrusLogLevel(), input)
	}
}

func TestLoadEnv_NoFiles(t *testing.T) {
	n, err := LoadEnv([]string{"does-not-exist.env"})
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
