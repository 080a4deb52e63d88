// Package monitor exposes session and dispatch counters.
package monitor

import (
	"net/http"
	"time"
)

func NewMonitor(on bool) IMonitor {
	if !on {
		return &monitorEmpty{}
	}
	return NewPrometheus()
}

type IMonitor interface {
	Handler() http.Handler // /metrics

	ConnectedSet(connected bool)
	LoginInc()

	// ---------- upstream ----------
	UpstreamTrafficAdd(v int)
	UpstreamMessageInc(name string)
	OutboundBufferedSet(v int)

	// ---------- downstream ----------
	DownstreamTrafficAdd(v int)
	DownstreamMessageInc(name string)
	HeartbeatInc()
	GapInc()       // inbound seq ahead of expected
	DuplicateInc() // inbound seq behind expected

	SeqSet(inseq, outseq uint64)

	// ---------- dispatch ----------
	DispatchObserve(name string, v time.Duration)
	HandlerErrorInc(name string)
}

type monitorEmpty struct{}

func (m *monitorEmpty) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (m *monitorEmpty) ConnectedSet(connected bool)                  {}
func (m *monitorEmpty) LoginInc()                                    {}
func (m *monitorEmpty) UpstreamTrafficAdd(v int)                     {}
func (m *monitorEmpty) UpstreamMessageInc(name string)               {}
func (m *monitorEmpty) OutboundBufferedSet(v int)                    {}
func (m *monitorEmpty) DownstreamTrafficAdd(v int)                   {}
func (m *monitorEmpty) DownstreamMessageInc(name string)             {}
func (m *monitorEmpty) HeartbeatInc()                                {}
func (m *monitorEmpty) GapInc()                                      {}
func (m *monitorEmpty) DuplicateInc()                                {}
func (m *monitorEmpty) SeqSet(inseq, outseq uint64)                  {}
func (m *monitorEmpty) DispatchObserve(name string, v time.Duration) {}
func (m *monitorEmpty) HandlerErrorInc(name string)                  {}
