package service

import (
	"os"
	"testing"

	"coinforge/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
