// Package outlog keeps a disk backed record of every outbound message so an
// application can audit or re-drive what it sent after a restart.
package outlog

import (
	"context"
	"os"
	"time"

	"github.com/nsqio/go-diskqueue"
	"github.com/pkg/errors"
	"github.com/smarkets/smkstream/pkg/framing"
	"github.com/smarkets/smkstream/pkg/smklog"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("outlog: closed")

type Options struct {
	Name            string
	DataDir         string
	MaxBytesPerFile int64
	MaxMsgSize      int32
	SyncEvery       int64         // fsync after this many writes
	SyncTimeout     time.Duration // and at least this often
}

func NewOptions(dataDir string) *Options {
	return &Options{
		Name:            "smk_outbound",
		DataDir:         dataDir,
		MaxBytesPerFile: 100 * 1024 * 1024,
		MaxMsgSize:      16 * 1024 * 1024,
		SyncEvery:       1000,
		SyncTimeout:     2 * time.Second,
	}
}

// Record is one logged message: its outbound sequence number and serialized
// payload.
type Record struct {
	Seq     uint64
	Payload []byte
}

type Log struct {
	smklog.Log
	backend diskqueue.Interface
}

func New(opts *Options) (*Log, error) {
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create outlog dir")
	}
	l := &Log{Log: smklog.NewSmkLog("outlog")}
	l.backend = diskqueue.New(
		opts.Name,
		opts.DataDir,
		opts.MaxBytesPerFile,
		2,
		opts.MaxMsgSize,
		opts.SyncEvery,
		opts.SyncTimeout,
		func(lvl diskqueue.LogLevel, f string, args ...interface{}) {
			if lvl >= diskqueue.WARN {
				l.Warn("diskqueue", zap.String("lvl", lvl.String()), zap.String("f", f), zap.Any("args", args))
				return
			}
			l.Debug("diskqueue", zap.String("lvl", lvl.String()), zap.String("f", f), zap.Any("args", args))
		},
	)
	return l, nil
}

// Append stores payload under seq.
func (l *Log) Append(seq uint64, payload []byte) error {
	data := framing.AppendUvarint(make([]byte, 0, framing.UvarintLen(seq)+len(payload)), seq)
	data = append(data, payload...)
	if err := l.backend.Put(data); err != nil {
		return errors.Wrapf(err, "append seq %d", seq)
	}
	return nil
}

// Next blocks for the oldest unread record.
func (l *Log) Next(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return Record{}, ctx.Err()
	case data, ok := <-l.backend.ReadChan():
		if !ok {
			return Record{}, ErrClosed
		}
		return decodeRecord(data)
	}
}

func decodeRecord(data []byte) (Record, error) {
	seq, n, err := framing.DecodeVarint(data)
	if err != nil {
		return Record{}, errors.Wrap(err, "decode record")
	}
	return Record{Seq: seq, Payload: data[n:]}, nil
}

// Depth is the number of unread records.
func (l *Log) Depth() int64 {
	return l.backend.Depth()
}

func (l *Log) Close() error {
	return l.backend.Close()
}
