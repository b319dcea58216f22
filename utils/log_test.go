package utils

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestZaplog(t *testing.T) {

	LogLevel = Log_info
	InitLog()

	if ce := CanLogDebug("test1"); ce != nil {
		t.Fatal("debug should be filtered at info level")
	}

	if ce := CanLogInfo("test2"); ce != nil {
		ce.Write(
			zap.Uint32("uid", 32),
			zap.Error(errors.New("asdfdsf")),
		)
	} else {
		t.Fatal("info should pass at info level")
	}
}
