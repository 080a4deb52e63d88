package options

import (
	"crypto/tls"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/smarkets/smkstream/pkg/session"
	"github.com/smarkets/smkstream/pkg/transport"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Mode string

const (
	// DebugMode indicates mode is debug.
	DebugMode Mode = "debug"
	// ReleaseMode indicates mode is release.
	ReleaseMode Mode = "release"
)

type Options struct {
	vp      *viper.Viper
	Mode    Mode
	RootDir string // data and log files live here

	Username string
	Password string
	Host     string
	Port     int
	TLS      struct {
		On                 bool
		ServerName         string
		InsecureSkipVerify bool
		CAFile             string
		CertFile           string
		KeyFile            string
		MinVersion         string // "1.2" or "1.3"
	}
	SocketTimeout   time.Duration
	ReadChunkSize   int
	TCPNoDelay      bool
	ResumeToken     string
	AccountSequence uint64
	GapPolicy       string // replay or drop

	AutoFlush     bool
	FlushInterval time.Duration
	NodeID        int64 // snowflake node for generated order references

	Logger struct {
		Dir     string // 日志存储目录
		Level   zapcore.Level
		LineNum bool // 是否显示代码行数
		WireOn  bool // dump raw bytes
	}

	Monitor struct {
		On   bool
		Addr string // serves /metrics
	}

	OutLog struct {
		On  bool
		Dir string
	}

	Subscribe []string // market ids, hex, subscribed after login
}

func New() *Options {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	o := &Options{
		Mode:          DebugMode,
		RootDir:       path.Join(homeDir, "smkstream"),
		Host:          transport.DefaultHost,
		Port:          transport.DefaultPort,
		SocketTimeout: transport.DefaultTimeout,
		ReadChunkSize: transport.DefaultReadChunkSize,
		GapPolicy:     session.GapReplay.String(),
		AutoFlush:     true,
		FlushInterval: 100 * time.Millisecond,
		NodeID:        1,
	}
	o.TLS.On = true
	o.Logger.Level = zapcore.InfoLevel
	o.Monitor.Addr = "127.0.0.1:9090"
	return o
}

func (o *Options) ConfigureWithViper(vp *viper.Viper) {
	o.vp = vp

	o.RootDir = o.getString("rootDir", o.RootDir)
	modeStr := o.getString("mode", string(o.Mode))
	if strings.TrimSpace(modeStr) == "" {
		o.Mode = DebugMode
	} else {
		o.Mode = Mode(modeStr)
	}

	o.Username = o.getString("username", o.Username)
	o.Password = o.getString("password", o.Password)
	o.Host = o.getString("host", o.Host)
	o.Port = o.getInt("port", o.Port)

	o.TLS.On = o.getBool("tls.on", o.TLS.On)
	o.TLS.ServerName = o.getString("tls.serverName", o.TLS.ServerName)
	o.TLS.InsecureSkipVerify = o.getBool("tls.insecureSkipVerify", o.TLS.InsecureSkipVerify)
	o.TLS.CAFile = o.getString("tls.caFile", o.TLS.CAFile)
	o.TLS.CertFile = o.getString("tls.certFile", o.TLS.CertFile)
	o.TLS.KeyFile = o.getString("tls.keyFile", o.TLS.KeyFile)
	o.TLS.MinVersion = o.getString("tls.minVersion", o.TLS.MinVersion)

	o.SocketTimeout = o.getDuration("socketTimeout", o.SocketTimeout)
	o.ReadChunkSize = o.getInt("readChunkSize", o.ReadChunkSize)
	o.TCPNoDelay = o.getBool("tcpNoDelay", o.TCPNoDelay)
	o.ResumeToken = o.getString("resumeToken", o.ResumeToken)
	o.AccountSequence = o.getUint64("accountSequence", o.AccountSequence)
	o.GapPolicy = o.getString("gapPolicy", o.GapPolicy)

	o.AutoFlush = o.getBool("autoFlush", o.AutoFlush)
	o.FlushInterval = o.getDuration("flushInterval", o.FlushInterval)
	o.NodeID = int64(o.getInt("nodeID", int(o.NodeID)))

	o.Monitor.On = o.getBool("monitor.on", o.Monitor.On)
	o.Monitor.Addr = o.getString("monitor.addr", o.Monitor.Addr)

	o.OutLog.On = o.getBool("outlog.on", o.OutLog.On)
	o.OutLog.Dir = o.getString("outlog.dir", o.OutLog.Dir)
	if o.OutLog.Dir == "" {
		o.OutLog.Dir = path.Join(o.RootDir, "outlog")
	}

	if subs := o.getStringSlice("subscribe"); len(subs) > 0 {
		o.Subscribe = subs
	}

	o.configureLog(vp)
}

func (o *Options) configureLog(vp *viper.Viper) {
	logLevel := vp.GetInt("logger.level")
	// level 0 means unset; configured levels are zap levels shifted by 2 so
	// that 1 is debug
	if logLevel == 0 {
		if o.Mode == DebugMode {
			logLevel = int(zapcore.DebugLevel)
		} else {
			logLevel = int(zapcore.InfoLevel)
		}
	} else {
		logLevel = logLevel - 2
	}
	o.Logger.Level = zapcore.Level(logLevel)
	o.Logger.Dir = o.getString("logger.dir", o.Logger.Dir)
	if strings.TrimSpace(o.Logger.Dir) == "" {
		o.Logger.Dir = "logs"
	}
	if !strings.HasPrefix(strings.TrimSpace(o.Logger.Dir), "/") {
		o.Logger.Dir = path.Join(o.RootDir, o.Logger.Dir)
	}
	o.Logger.LineNum = o.getBool("logger.lineNum", o.Logger.LineNum)
	o.Logger.WireOn = o.getBool("logger.wireOn", o.Logger.WireOn)
}

// SessionSettings converts the loaded options into session settings and
// validates them.
func (o *Options) SessionSettings() (session.Settings, error) {
	s := session.NewSettings(o.Username, o.Password)
	s.Host = o.Host
	s.Port = o.Port
	s.UseTLS = o.TLS.On
	s.TLS = transport.TLSOptions{
		ServerName:         o.TLS.ServerName,
		InsecureSkipVerify: o.TLS.InsecureSkipVerify,
		CAFile:             o.TLS.CAFile,
		CertFile:           o.TLS.CertFile,
		KeyFile:            o.TLS.KeyFile,
	}
	switch o.TLS.MinVersion {
	case "":
	case "1.2":
		s.TLS.MinVersion = tls.VersionTLS12
	case "1.3":
		s.TLS.MinVersion = tls.VersionTLS13
	default:
		return s, errors.Wrapf(session.ErrInvalidSettings, "unsupported tls min version %q", o.TLS.MinVersion)
	}
	s.SocketTimeout = o.SocketTimeout
	s.ReadChunkSize = o.ReadChunkSize
	s.TCPNoDelay = o.TCPNoDelay
	s.ResumeToken = o.ResumeToken
	s.AccountSequence = o.AccountSequence

	gapPolicy, err := session.ParseGapPolicy(o.GapPolicy)
	if err != nil {
		return s, err
	}
	s.GapPolicy = gapPolicy
	return s, s.Validate()
}

func (o *Options) getString(key string, defaultValue string) string {
	v := o.vp.GetString(key)
	if v == "" {
		return defaultValue
	}
	return v
}

func (o *Options) getStringSlice(key string) []string {
	return o.vp.GetStringSlice(key)
}

func (o *Options) getInt(key string, defaultValue int) int {
	v := o.vp.GetInt(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

func (o *Options) getUint64(key string, defaultValue uint64) uint64 {
	v := o.vp.GetUint64(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

func (o *Options) getBool(key string, defaultValue bool) bool {
	objV := o.vp.Get(key)
	if objV == nil {
		return defaultValue
	}
	return cast.ToBool(objV)
}

func (o *Options) getDuration(key string, defaultValue time.Duration) time.Duration {
	v := o.vp.GetDuration(key)
	if v == 0 {
		return defaultValue
	}
	return v
}
