// Package feed parses FIX tag=value replay files into order-entry messages,
// top-of-book quotes and time-only heartbeats for the simulator.
package feed

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"exchange_sim/internal/domain"

	"github.com/shopspring/decimal"
)

// FIX tags understood by the parser. Everything else is ignored.
const (
	TagClOrdID      = 11
	TagMsgType      = 35
	TagOrderQty     = 38
	TagOrigClOrdID  = 41
	TagPrice        = 44
	TagSide         = 54
	TagSymbol       = 55
	TagTransactTime = 60
	TagBidPx        = 132
	TagOfferPx      = 133
	TagBidSize      = 134
	TagOfferSize    = 135
)

// UTCTimestamp layout for tag 60 when it is not plain nanoseconds.
const timestampLayout = "20060102-15:04:05.999999999"

// Kind tells which payload of a Record is set.
type Kind uint8

const (
	KindOrder Kind = iota + 1
	KindQuote
	KindHeartbeat // Time only
)

// Record is one parsed feed line.
type Record struct {
	Kind  Kind
	Order domain.Order // KindOrder
	Quote domain.Quote // KindQuote
	At    int64        // KindHeartbeat
}

// Time returns the record's timestamp in Unix nanoseconds.
func (r *Record) Time() int64 {
	switch r.Kind {
	case KindQuote:
		return r.Quote.Time
	case KindHeartbeat:
		return r.At
	default:
		return r.Order.TransactTime
	}
}

// Parser converts single records. Decimal prices are converted to integer
// ticks of TickSize; a price that is not a whole number of ticks is an error.
type Parser struct {
	delimiter byte
	tickSize  decimal.Decimal
}

// NewParser creates a parser splitting fields on delimiter.
func NewParser(delimiter byte, tickSize decimal.Decimal) *Parser {
	return &Parser{delimiter: delimiter, tickSize: tickSize}
}

// fields holds the raw values of the known tags of one record.
type fields map[int][]byte

func (f fields) require(tag int) ([]byte, error) {
	v, ok := f[tag]
	if !ok || len(v) == 0 {
		return nil, &domain.FeedError{Tag: strconv.Itoa(tag), Err: domain.ErrMissingTag}
	}
	return v, nil
}

func (p *Parser) split(line []byte) (fields, error) {
	f := make(fields, 12)
	for len(line) > 0 {
		var pair []byte
		if i := bytes.IndexByte(line, p.delimiter); i >= 0 {
			pair, line = line[:i], line[i+1:]
		} else {
			pair, line = line, nil
		}
		if len(pair) == 0 {
			continue
		}
		eq := bytes.IndexByte(pair, '=')
		if eq <= 0 {
			return nil, &domain.FeedError{Err: fmt.Errorf("malformed pair %q", pair)}
		}
		tag, err := strconv.Atoi(string(pair[:eq]))
		if err != nil {
			return nil, &domain.FeedError{Tag: string(pair[:eq]), Err: errors.New("tag is not numeric")}
		}
		f[tag] = pair[eq+1:]
	}
	return f, nil
}

// Parse converts one record. The returned error is a *domain.FeedError
// without a line number.
func (p *Parser) Parse(line []byte) (Record, error) {
	f, err := p.split(line)
	if err != nil {
		return Record{}, err
	}
	msgType, err := f.require(TagMsgType)
	if err != nil {
		return Record{}, err
	}

	switch string(msgType) {
	case "D":
		return p.order(f, domain.NewOrder)
	case "F":
		return p.order(f, domain.CancelRequest)
	case "G":
		return p.order(f, domain.ReplaceRequest)
	case "H":
		return p.order(f, domain.StatusRequest)
	case "S":
		return p.quote(f)
	case "0":
		at, err := f.timestamp()
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindHeartbeat, At: at}, nil
	default:
		return Record{}, &domain.FeedError{
			Tag: strconv.Itoa(TagMsgType),
			Err: fmt.Errorf("%w: %s", domain.ErrUnknownMsgType, msgType),
		}
	}
}

func (p *Parser) order(f fields, kind domain.MsgKind) (Record, error) {
	o := domain.Order{Kind: kind}
	var err error

	if o.ClOrdID, err = f.id(TagClOrdID); err != nil {
		return Record{}, err
	}
	if o.Symbol, err = f.symbol(); err != nil {
		return Record{}, err
	}
	if o.TransactTime, err = f.timestamp(); err != nil {
		return Record{}, err
	}
	if kind != domain.NewOrder {
		if o.OrigClOrdID, err = f.id(TagOrigClOrdID); err != nil {
			return Record{}, err
		}
	}
	if kind == domain.NewOrder || kind == domain.ReplaceRequest {
		if o.Side, err = f.side(); err != nil {
			return Record{}, err
		}
		if o.OrderQty, err = f.qty(TagOrderQty, true); err != nil {
			return Record{}, err
		}
		if o.Price, err = p.price(f, TagPrice, true); err != nil {
			return Record{}, err
		}
	} else if _, ok := f[TagSide]; ok {
		if o.Side, err = f.side(); err != nil {
			return Record{}, err
		}
	}
	return Record{Kind: KindOrder, Order: o}, nil
}

func (p *Parser) quote(f fields) (Record, error) {
	q := domain.Quote{}
	var err error

	if q.Symbol, err = f.symbol(); err != nil {
		return Record{}, err
	}
	if q.Time, err = f.timestamp(); err != nil {
		return Record{}, err
	}
	if q.Price[domain.Bid], q.Size[domain.Bid], err = p.leg(f, TagBidPx, TagBidSize); err != nil {
		return Record{}, err
	}
	if q.Price[domain.Ask], q.Size[domain.Ask], err = p.leg(f, TagOfferPx, TagOfferSize); err != nil {
		return Record{}, err
	}
	if q.Price[domain.Ask] == 0 {
		q.Price[domain.Ask] = domain.NoAsk
	}
	return Record{Kind: KindQuote, Quote: q}, nil
}

// leg parses one side of a quote. A side without a price is absent; a priced
// side needs a positive size.
func (p *Parser) leg(f fields, pxTag, sizeTag int) (domain.Price, domain.Qty, error) {
	if _, ok := f[pxTag]; !ok {
		return 0, 0, nil
	}
	price, err := p.price(f, pxTag, true)
	if err != nil {
		return 0, 0, err
	}
	size, err := f.qty(sizeTag, true)
	if err != nil {
		return 0, 0, err
	}
	if size == 0 {
		return 0, 0, &domain.FeedError{Tag: strconv.Itoa(sizeTag), Err: errors.New("size must be positive")}
	}
	return price, size, nil
}

func (f fields) id(tag int) (uint64, error) {
	v, err := f.require(tag)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(v), 10, 64)
	if err != nil {
		return 0, &domain.FeedError{Tag: strconv.Itoa(tag), Err: err}
	}
	return id, nil
}

func (f fields) symbol() (string, error) {
	v, err := f.require(TagSymbol)
	if err != nil {
		return "", err
	}
	if bytes.ContainsAny(v, " \t") {
		return "", &domain.FeedError{Tag: strconv.Itoa(TagSymbol), Err: domain.ErrInvalidSymbol}
	}
	return string(v), nil
}

func (f fields) side() (domain.Side, error) {
	v, err := f.require(TagSide)
	if err != nil {
		return 0, err
	}
	switch string(v) {
	case "1":
		return domain.Bid, nil
	case "2":
		return domain.Ask, nil
	}
	return 0, &domain.FeedError{Tag: strconv.Itoa(TagSide), Err: fmt.Errorf("unsupported side %q", v)}
}

// qty parses a whole-share quantity. Optional tags default to zero.
func (f fields) qty(tag int, required bool) (domain.Qty, error) {
	v, ok := f[tag]
	if !ok && !required {
		return 0, nil
	}
	if _, err := f.require(tag); err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(v), 10, 32)
	if err != nil {
		return 0, &domain.FeedError{Tag: strconv.Itoa(tag), Err: err}
	}
	return domain.Qty(n), nil
}

// timestamp accepts either Unix nanoseconds or a FIX UTCTimestamp.
func (f fields) timestamp() (int64, error) {
	v, err := f.require(TagTransactTime)
	if err != nil {
		return 0, err
	}
	if ns, err := strconv.ParseInt(string(v), 10, 64); err == nil {
		return ns, nil
	}
	ts, err := time.Parse(timestampLayout, string(v))
	if err != nil {
		return 0, &domain.FeedError{Tag: strconv.Itoa(TagTransactTime), Err: err}
	}
	return ts.UnixNano(), nil
}

// price converts a decimal price to ticks. Optional tags default to zero.
func (p *Parser) price(f fields, tag int, required bool) (domain.Price, error) {
	v, ok := f[tag]
	if !ok && !required {
		return 0, nil
	}
	if _, err := f.require(tag); err != nil {
		return 0, err
	}
	ticks, err := p.Ticks(string(v))
	if err != nil {
		return 0, &domain.FeedError{Tag: strconv.Itoa(tag), Err: err}
	}
	return ticks, nil
}

// Ticks converts a decimal price string to a whole number of ticks.
func (p *Parser) Ticks(s string) (domain.Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative price %s", s)
	}
	if !d.Mod(p.tickSize).IsZero() {
		return 0, fmt.Errorf("%w: %s (tick %s)", domain.ErrOffTick, s, p.tickSize)
	}
	ticks := d.Div(p.tickSize).IntPart()
	if ticks > math.MaxUint32 {
		return 0, fmt.Errorf("price %s overflows tick range", s)
	}
	return domain.Price(ticks), nil
}

// Decimal converts ticks back to a decimal price.
func (p *Parser) Decimal(ticks domain.Price) decimal.Decimal {
	return p.tickSize.Mul(decimal.NewFromInt(int64(ticks)))
}
