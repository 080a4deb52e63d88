package smkproto

import "fmt"

// SetoType is the outer payload discriminant.
type SetoType int32

const (
	SetoEto                     SetoType = 1
	SetoLogin                   SetoType = 2
	SetoOrderCreate             SetoType = 3
	SetoOrderAccepted           SetoType = 4
	SetoOrderRejected           SetoType = 5
	SetoOrderExecuted           SetoType = 6
	SetoOrderCancel             SetoType = 7
	SetoOrderCancelled          SetoType = 8
	SetoOrderCancelRejected     SetoType = 9
	SetoMarketSubscribe         SetoType = 10
	SetoMarketUnsubscribe       SetoType = 11
	SetoMarketQuotes            SetoType = 12
	SetoContractQuotes          SetoType = 13
	SetoAccountStateRequest     SetoType = 14
	SetoAccountState            SetoType = 15
	SetoOrdersForAccountRequest SetoType = 16
	SetoOrdersForAccount        SetoType = 17
	SetoOrdersForMarketRequest  SetoType = 18
	SetoOrdersForMarket         SetoType = 19
	SetoEventsRequest           SetoType = 20
	SetoHTTPFound               SetoType = 21
	SetoInvalidRequest          SetoType = 22
)

// EtoType is the discriminant of the session-level inner payload.
type EtoType int32

const (
	EtoNone          EtoType = 1
	EtoPing          EtoType = 2
	EtoPong          EtoType = 3
	EtoHeartbeat     EtoType = 4
	EtoReplay        EtoType = 5
	EtoGapfill       EtoType = 6
	EtoLogin         EtoType = 7
	EtoLoginResponse EtoType = 8
	EtoLogout        EtoType = 9
)

// TypeName pairs a wire discriminant with its handler name.
type TypeName struct {
	Tag  int32
	Name string
}

// SetoTypes lists every outer payload type. Names are prefixed "seto.".
var SetoTypes = []TypeName{
	{int32(SetoEto), "seto.eto"},
	{int32(SetoLogin), "seto.login"},
	{int32(SetoOrderCreate), "seto.order_create"},
	{int32(SetoOrderAccepted), "seto.order_accepted"},
	{int32(SetoOrderRejected), "seto.order_rejected"},
	{int32(SetoOrderExecuted), "seto.order_executed"},
	{int32(SetoOrderCancel), "seto.order_cancel"},
	{int32(SetoOrderCancelled), "seto.order_cancelled"},
	{int32(SetoOrderCancelRejected), "seto.order_cancel_rejected"},
	{int32(SetoMarketSubscribe), "seto.market_subscribe"},
	{int32(SetoMarketUnsubscribe), "seto.market_unsubscribe"},
	{int32(SetoMarketQuotes), "seto.market_quotes"},
	{int32(SetoContractQuotes), "seto.contract_quotes"},
	{int32(SetoAccountStateRequest), "seto.account_state_request"},
	{int32(SetoAccountState), "seto.account_state"},
	{int32(SetoOrdersForAccountRequest), "seto.orders_for_account_request"},
	{int32(SetoOrdersForAccount), "seto.orders_for_account"},
	{int32(SetoOrdersForMarketRequest), "seto.orders_for_market_request"},
	{int32(SetoOrdersForMarket), "seto.orders_for_market"},
	{int32(SetoEventsRequest), "seto.events_request"},
	{int32(SetoHTTPFound), "seto.http_found"},
	{int32(SetoInvalidRequest), "seto.invalid_request"},
}

// EtoTypes lists every inner payload type. Names are prefixed "eto.".
var EtoTypes = []TypeName{
	{int32(EtoNone), "eto.none"},
	{int32(EtoPing), "eto.ping"},
	{int32(EtoPong), "eto.pong"},
	{int32(EtoHeartbeat), "eto.heartbeat"},
	{int32(EtoReplay), "eto.replay"},
	{int32(EtoGapfill), "eto.gapfill"},
	{int32(EtoLogin), "eto.login"},
	{int32(EtoLoginResponse), "eto.login_response"},
	{int32(EtoLogout), "eto.logout"},
}

// NameEto is the outer type name that wraps a session-level message. Dispatch
// re-resolves it through the inner type.
const NameEto = "seto.eto"

var (
	setoNames = indexNames(SetoTypes)
	etoNames  = indexNames(EtoTypes)
)

func indexNames(types []TypeName) map[int32]string {
	m := make(map[int32]string, len(types))
	for _, t := range types {
		m[t.Tag] = t.Name
	}
	return m
}

// AllTypeNames returns every known handler name of both namespaces.
func AllTypeNames() []string {
	names := make([]string, 0, len(SetoTypes)+len(EtoTypes))
	for _, t := range SetoTypes {
		names = append(names, t.Name)
	}
	for _, t := range EtoTypes {
		names = append(names, t.Name)
	}
	return names
}

// Name returns the handler name of t, or "" if t is unknown.
func (t SetoType) Name() string {
	return setoNames[int32(t)]
}

func (t SetoType) String() string {
	if n, ok := setoNames[int32(t)]; ok {
		return n
	}
	return fmt.Sprintf("seto.unknown(%d)", int32(t))
}

// Name returns the handler name of t, or "" if t is unknown.
func (t EtoType) Name() string {
	return etoNames[int32(t)]
}

func (t EtoType) String() string {
	if n, ok := etoNames[int32(t)]; ok {
		return n
	}
	return fmt.Sprintf("eto.unknown(%d)", int32(t))
}

// LogoutReason is carried by eto logout messages.
type LogoutReason int32

const (
	LogoutNone              LogoutReason = 1
	LogoutHeartbeatTimeout  LogoutReason = 2
	LogoutLoginTimeout      LogoutReason = 3
	LogoutLoginNotFirstSeq  LogoutReason = 4
	LogoutUnknownSession    LogoutReason = 5
	LogoutUnauthorised      LogoutReason = 6
	LogoutServiceTemporary  LogoutReason = 7
	LogoutConfirmation      LogoutReason = 8
	LogoutReplayLimitExceed LogoutReason = 9
)

// Side of an order.
type Side int32

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return fmt.Sprintf("side(%d)", int32(s))
}

// TimeInForce of an order.
type TimeInForce int32

const (
	ImmediateOrCancel TimeInForce = 1
	GoodTilCancelled  TimeInForce = 2
)

// Valid reports whether t is a known time-in-force.
func (t TimeInForce) Valid() bool {
	return t == ImmediateOrCancel || t == GoodTilCancelled
}

type OrderCreateType int32

const OrderCreateLimit OrderCreateType = 1

type QuantityType int32

const QuantityPayoffCurrency QuantityType = 1

type PriceType int32

const PricePercentOdds PriceType = 1

// OrderRejectedReason is carried by order rejected messages.
type OrderRejectedReason int32

const (
	OrderRejectedInvalidPrice       OrderRejectedReason = 1
	OrderRejectedInsufficientFunds  OrderRejectedReason = 2
	OrderRejectedMarketNotOpen      OrderRejectedReason = 3
	OrderRejectedInvalidQuantity    OrderRejectedReason = 4
	OrderRejectedLimitExceeded      OrderRejectedReason = 5
	OrderRejectedMarketHalted       OrderRejectedReason = 6
	OrderRejectedMarketSettled      OrderRejectedReason = 7
	OrderRejectedInvalidOrderType   OrderRejectedReason = 8
	OrderRejectedInvalidTimeInForce OrderRejectedReason = 9
)

// OrderCancelledReason is carried by order cancelled messages.
type OrderCancelledReason int32

const (
	OrderCancelledMemberRequested OrderCancelledReason = 1
	OrderCancelledMarketHalted    OrderCancelledReason = 2
	OrderCancelledInsufficientLiq OrderCancelledReason = 3
	OrderCancelledMarketSettled   OrderCancelledReason = 4
	OrderCancelledSuspended       OrderCancelledReason = 5
)
