package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PROFILED_JWT_KEY", "k")

	c, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, ":8443", c.GRPCAddr)
	require.Equal(t, ":8080", c.HTTPAddr)
	require.Equal(t, int32(10), c.MaxConns)
	require.Equal(t, 16, c.FanoutLimit)
	require.Empty(t, c.NATSURL)
	require.False(t, c.Dev)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	t.Setenv("PROFILED_JWT_KEY", "from-env")
	t.Setenv("PROFILED_NATS_URL", "nats://env:4222")
	t.Setenv("PROFILED_FANOUT_LIMIT", "4")
	t.Setenv("PROFILED_DEV", "true")

	c, err := Load([]string{"-nats-url", "nats://flag:4222", "-max-conns", "3"})
	require.NoError(t, err)
	require.Equal(t, "from-env", c.JWTKey)
	require.Equal(t, "nats://flag:4222", c.NATSURL)
	require.Equal(t, 4, c.FanoutLimit)
	require.Equal(t, int32(3), c.MaxConns)
	require.True(t, c.Dev)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("PROFILED_JWT_KEY", "")
	_, err := Load(nil)
	require.ErrorIs(t, err, ErrMissingJWTKey)

	t.Setenv("PROFILED_JWT_KEY", "k")
	_, err = Load([]string{"-fanout", "0"})
	require.Error(t, err)

	_, err = Load([]string{"-max-conns", "3000000000"})
	require.Error(t, err, "values beyond int32 must not wrap")

	t.Setenv("PROFILED_DB_MAX_CONNS", "many")
	_, err = Load(nil)
	require.Error(t, err)
}
