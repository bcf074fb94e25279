package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopBeforeInit(t *testing.T) {
	require.NotPanics(t, func() {
		Info("hello %s", "world")
		Warn("warn %d", 1)
		Debug("debug")
		Error("err %v", nil)
	})
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	_, err := Init(Config{Level: "verbose", Encoding: "json"})
	require.Error(t, err)
}

func TestSetServiceName(t *testing.T) {
	old := SetServiceName("volatility_bot")
	defer SetServiceName(old)

	require.Equal(t, "volatility_bot", serviceName)
}
