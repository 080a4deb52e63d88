package smkproto

import (
	"time"

	"github.com/pkg/errors"
)

// EventsRequestType selects which event listing the server returns.
type EventsRequestType int32

const (
	EventsPolitics           EventsRequestType = 1
	EventsCurrentAffairs     EventsRequestType = 2
	EventsTvAndEntertainment EventsRequestType = 3
	EventsSportByDate        EventsRequestType = 4
	EventsSportOther         EventsRequestType = 5
)

// SportByDateType is the sport of a by-date events request.
type SportByDateType int32

const (
	SportFootball         SportByDateType = 1
	SportHorseRacing      SportByDateType = 2
	SportTennis           SportByDateType = 3
	SportBasketball       SportByDateType = 4
	SportAmericanFootball SportByDateType = 5
	SportBaseball         SportByDateType = 6
	SportCricket          SportByDateType = 7
	SportHandball         SportByDateType = 8
	SportRugby            SportByDateType = 9
	SportRugbyLeague      SportByDateType = 10
	SportVolleyball       SportByDateType = 11
)

type ContentType int32

const ContentTypeProtobuf ContentType = 1

type Date struct {
	Year  uint32
	Month uint32
	Day   uint32
}

func (m *Date) marshal() []byte {
	b := appendVarintField(nil, 1, uint64(m.Year))
	b = appendVarintField(b, 2, uint64(m.Month))
	return appendVarintField(b, 3, uint64(m.Day))
}

func (m *Date) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Year = uint32(d.varint())
		case 2:
			m.Month = uint32(d.varint())
		case 3:
			m.Day = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "date")
}

type SportByDate struct {
	Type SportByDateType
	Date Date
}

func (m *SportByDate) marshal() []byte {
	b := appendVarintField(nil, 1, uint64(m.Type))
	return appendMessageField(b, 2, m.Date.marshal())
}

func (m *SportByDate) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Type = SportByDateType(d.int32())
		case 2:
			d.message(m.Date.unmarshal)
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "sport_by_date")
}

// EventsRequest asks for a structured listing of events. SportByDate is only
// set for EventsSportByDate.
type EventsRequest struct {
	Type        EventsRequestType
	ContentType ContentType
	SportByDate *SportByDate
}

// NewEventsRequest returns a request for one of the dateless listings.
func NewEventsRequest(t EventsRequestType) *EventsRequest {
	return &EventsRequest{Type: t, ContentType: ContentTypeProtobuf}
}

// NewSportByDate returns a request for the events of sport on the calendar
// day of date.
func NewSportByDate(sport SportByDateType, date time.Time) *EventsRequest {
	y, m, d := date.Date()
	return &EventsRequest{
		Type:        EventsSportByDate,
		ContentType: ContentTypeProtobuf,
		SportByDate: &SportByDate{
			Type: sport,
			Date: Date{Year: uint32(y), Month: uint32(m), Day: uint32(d)},
		},
	}
}

// CopyTo fills p with r as an events request message.
func (r *EventsRequest) CopyTo(p *Payload) {
	p.Type = SetoEventsRequest
	p.EventsRequest = r.clone()
}

func (r *EventsRequest) clone() *EventsRequest {
	c := *r
	c.SportByDate = clonePtr(r.SportByDate)
	return &c
}

func (r *EventsRequest) marshal() []byte {
	b := appendVarintField(nil, 1, uint64(r.Type))
	b = appendVarintField(b, 2, uint64(r.ContentType))
	if r.SportByDate != nil {
		b = appendMessageField(b, 3, r.SportByDate.marshal())
	}
	return b
}

func (r *EventsRequest) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			r.Type = EventsRequestType(d.int32())
		case 2:
			r.ContentType = ContentType(d.int32())
		case 3:
			r.SportByDate = &SportByDate{}
			d.message(r.SportByDate.unmarshal)
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "events_request")
}
