package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cupogo/andvari/utils/zlog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/liut/insightchat/htdocs"
	"github.com/liut/insightchat/pkg/chat"
	"github.com/liut/insightchat/pkg/history"
	"github.com/liut/insightchat/pkg/reltime"
	"github.com/liut/insightchat/pkg/render"
	"github.com/liut/insightchat/pkg/services/analysis"
	"github.com/liut/insightchat/pkg/services/stores"
	"github.com/liut/insightchat/pkg/settings"
	"github.com/liut/insightchat/pkg/web"
)

func main() {
	var zlogger *zap.Logger
	if settings.InDevelop() {
		zlogger, _ = zap.NewDevelopment()
	} else {
		zlogger, _ = zap.NewProduction()
	}
	defer func() { _ = zlogger.Sync() }()
	zap.ReplaceGlobals(zlogger)
	sugar := zlogger.Sugar()
	zlog.Set(sugar)

	app := &cli.App{
		Name:    settings.Name,
		Usage:   "chat with the data analysis service",
		Version: settings.Current.Version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the web client",
				Action: serve,
			},
			{
				Name:      "ask",
				Usage:     "ask one question, or start a conversation when none given",
				ArgsUsage: "[question]",
				Action:    ask,
			},
			{
				Name:  "history",
				Usage: "show recent queries",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: settings.Current.HistoryLimit},
				},
				Action: showHistory,
			},
			{
				Name:  "usage",
				Usage: "show environment settings",
				Action: func(*cli.Context) error {
					return settings.Usage()
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		sugar.Fatalw("run fail", "err", err)
	}
}

func newAnalysis() (*analysis.Client, error) {
	return analysis.New(settings.Current.AnalysisURL)
}

// webStore picks the snapshot store of the web client.
func webStore(ctx context.Context) (chat.SnapshotStore, func(), error) {
	switch settings.Current.SnapshotStore {
	case "memory":
		return stores.NewMemorySnapshots(), func() {}, nil
	case "bolt":
		st, err := stores.OpenBoltSnapshots(stores.BoltPath(settings.Current.BoltPath))
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		st, closeFn := stores.RedisOrMemory(ctx, settings.Current.RedisURI, settings.Current.SnapshotRetention)
		return st, closeFn, nil
	}
}

func serve(c *cli.Context) error {
	ac, err := newAnalysis()
	if err != nil {
		return err
	}
	st, closeStore, err := webStore(c.Context)
	if err != nil {
		return err
	}
	defer closeStore()
	preset, err := stores.LoadPreset(settings.Current.PresetFile)
	if err != nil {
		return err
	}

	srv, err := web.New(web.Config{
		Addr:       settings.Current.HTTPListen,
		Debug:      settings.InDevelop(),
		DocHandler: http.FileServer(http.FS(htdocs.FS())),
		Analyzer:   ac,
		History:    ac,
		Store:      st,
		Preset:     preset,
	})
	if err != nil {
		return err
	}

	idleClosed := make(chan struct{})
	ctx := context.Background()
	go func() {
		quit := make(chan os.Signal, 2)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		zap.S().Info("shuting down server...")
		if err := srv.Stop(ctx); err != nil {
			zap.S().Infow("server shutdown:", "err", err)
		}
		close(idleClosed)
	}()

	if err := srv.Serve(ctx); err != nil {
		zap.S().Infow("serve fail", "err", err)
		return err
	}

	<-idleClosed
	return nil
}

func ask(c *cli.Context) error {
	ac, err := newAnalysis()
	if err != nil {
		return err
	}
	st, err := stores.OpenBoltSnapshots(stores.BoltPath(settings.Current.BoltPath))
	if err != nil {
		return err
	}
	defer st.Close()

	out := c.App.Writer
	ctrl, err := chat.New(chat.Config{
		Analyzer:   ac,
		Store:      st,
		View:       render.NewMarkdownView(out),
		Key:        settings.Current.SnapshotKey,
		UserID:     settings.Current.UserID,
		SaveResult: settings.Current.SaveResult,
		Lifetime:   settings.Current.SnapshotLifetime,
		Timeout:    settings.Current.AnalyzeTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	if ctrl.RestoreOnLoad(ctx) {
		fmt.Fprintf(out, "(continuing a conversation of %d messages, /new to start over)\n\n", ctrl.Len())
	}

	if c.Args().Present() {
		return ctrl.Send(ctx, strings.Join(c.Args().Slice(), " "))
	}
	return repl(ctx, ctrl, c.App.Reader, out)
}

// repl reads one question per line until EOF or /quit.
func repl(ctx context.Context, ctrl *chat.Controller, in io.Reader, out io.Writer) error {
	if preset, err := stores.LoadPreset(settings.Current.PresetFile); err == nil {
		fmt.Fprintf(out, "%s\n\n", preset.Welcome)
		for _, ex := range preset.Examples {
			fmt.Fprintf(out, "  - %s: %s\n", ex.Title, ex.Question)
		}
		fmt.Fprintln(out)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "? ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			ctrl.StartNew(ctx)
			continue
		}
		err := ctrl.Send(ctx, line)
		if errors.Is(err, context.Canceled) {
			return nil
		}
	}
}

func showHistory(c *cli.Context) error {
	ac, err := newAnalysis()
	if err != nil {
		return err
	}
	page := history.NewViewer(ac).Refresh(c.Context, c.Int("limit"))
	tag := reltime.MatchString(settings.Current.Locale)
	loc := reltime.Zone(settings.Current.TimeZone)
	render.NewMarkdownView(c.App.Writer).ShowHistory(page, time.Now(), tag, loc)
	return page.Err
}
