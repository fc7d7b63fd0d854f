package emotion

import (
	"os"
	"testing"

	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logx.Init(logx.LoggerOpts{Environment: logx.Testing})
	os.Exit(m.Run())
}
