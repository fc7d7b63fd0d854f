package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/ai-friend/backend/internal/app"
	"github.com/zhouzirui/ai-friend/backend/internal/config"
	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/service/session"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logx.Warn().Err(err).Msg("无法加载 .env，改用系统环境变量")
	}

	user := flag.String("user", "", "用户名，留空则使用 Guest")
	message := flag.String("message", "", "发送的一句话")
	history := flag.Bool("history", false, "打印该用户的历史记录")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*message) == "" && !*history {
		flag.Usage()
		logx.Fatal().Msg("请通过 -message 发送一句话，或使用 -history 查看历史")
	}

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("配置加载失败")
	}
	logx.Init(logx.LoggerOpts{Environment: logx.ParseEnvironment(cfg.Env)})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	application, err := app.Build(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("初始化失败")
	}
	defer application.Close()

	if strings.TrimSpace(*message) != "" {
		exchange, err := application.Sessions.HandleTurn(ctx, *user, *message)
		var persErr *session.PersistenceError
		switch {
		case errors.As(err, &persErr):
			printExchange(exchange)
			logx.Error().Err(err).Msg("回复未写入历史")
		case err != nil:
			logx.Error().Err(err).Str("stage", session.Stage(err)).Msg("对话失败")
			return
		default:
			printExchange(exchange)
		}
	}

	if *history {
		exchanges, err := application.Sessions.History(ctx, *user)
		if err != nil {
			logx.Error().Err(err).Msg("读取历史失败")
			return
		}
		if len(exchanges) == 0 {
			fmt.Println("No history yet.")
		}
		for _, exchange := range exchanges {
			printExchange(exchange)
		}
	}
}

func printExchange(exchange chat.Exchange) {
	fmt.Fprintf(os.Stdout, "[%s] %s: %s\n", exchange.CreatedAt.Format(time.RFC3339), exchange.User, exchange.Message)
	fmt.Fprintf(os.Stdout, "  bot (%s): %s\n", exchange.Emotion, exchange.Response)
	fmt.Fprintf(os.Stdout, "  activity: %s\n", exchange.Activity)
}
