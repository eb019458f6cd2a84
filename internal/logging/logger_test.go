package logging_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/logging"
)

func TestLoggerDoesNotBlockOnHotPath(t *testing.T) {
	l := logging.New("test", "debug", 64)
	for i := 0; i < 32; i++ {
		l.Info("tick", zap.Int("i", i))
	}
	time.Sleep(10 * time.Millisecond)
	l.Sync()
}
