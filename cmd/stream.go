package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smarkets/smkstream/pkg/client"
	"github.com/smarkets/smkstream/pkg/monitor"
	"github.com/smarkets/smkstream/pkg/outlog"
	"github.com/smarkets/smkstream/pkg/session"
	"github.com/smarkets/smkstream/pkg/smklog"
	"github.com/smarkets/smkstream/pkg/smkproto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type streamCMD struct {
	smklog.Log
}

func newStreamCMD() *streamCMD {
	return &streamCMD{}
}

func (s *streamCMD) CMD() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "log in and stream messages until interrupted",
		RunE:  s.run,
	}
	return cmd
}

func (s *streamCMD) run(cmd *cobra.Command, args []string) error {
	configureLog()
	defer smklog.Sync()
	s.Log = smklog.NewSmkLog("stream")

	settings, err := opts.SessionSettings()
	if err != nil {
		return err
	}

	mon := monitor.NewMonitor(opts.Monitor.On)
	sessOpts := []session.Option{session.WithMonitor(mon)}
	if opts.OutLog.On {
		ol, err := outlog.New(outlog.NewOptions(opts.OutLog.Dir))
		if err != nil {
			return err
		}
		defer ol.Close()
		sessOpts = append(sessOpts, session.WithOutboundLog(ol))
	}
	sess, err := session.New(settings, sessOpts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	cli := client.New(sess,
		client.WithAutoFlush(opts.AutoFlush),
		client.WithFlushInterval(opts.FlushInterval),
		client.WithMonitor(mon),
		client.WithNodeID(opts.NodeID),
	)
	_, err = cli.AddGlobalHandler(func(name string, msg *smkproto.Payload) error {
		s.Info("message", zap.String("type", name), zap.Uint64("seq", msg.Eto.Seq), zap.Bool("replay", msg.Eto.IsReplay))
		return nil
	})
	if err != nil {
		return err
	}

	if opts.Monitor.On {
		mux := http.NewServeMux()
		mux.Handle("/metrics", mon.Handler())
		srv := &http.Server{Addr: opts.Monitor.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = cli.Login(true); err != nil {
		return err
	}
	s.Info("logged in", zap.String("session", sess.SessionToken()), zap.Stringer("state", sess.State()))
	for _, m := range opts.Subscribe {
		market, err := smkproto.ParseUuid128(m)
		if err != nil {
			return err
		}
		if err = cli.Subscribe(market); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- cli.Run(runCtx)
	}()

	select {
	case <-ctx.Done():
		s.Info("logging out")
		if err := sess.BeginLogout(); err != nil {
			s.Warn("logout failed", zap.Error(err))
		}
		cancel()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
