package broker

import (
	"context"
	"fmt"
	"sync"

	"golang-stock-trader/internal/entity"
)

// PaperBroker is an in-memory venue that fills every order immediately at the
// requested price. It backs local runs and tests; the real venue adapter
// satisfies the same interface.
type PaperBroker struct {
	mu       sync.Mutex
	balance  float64
	prices   map[string]float64
	holdings map[string]*entity.Holding
	nextID   int
	failures []*Error
}

func NewPaperBroker(initialBalance float64) *PaperBroker {
	return &PaperBroker{
		balance:  initialBalance,
		prices:   make(map[string]float64),
		holdings: make(map[string]*entity.Holding),
	}
}

// SetPrice sets the quoted price for a stock code.
func (p *PaperBroker) SetPrice(code string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[code] = price
}

// FailNext queues errors to be returned by upcoming submissions, in order.
func (p *PaperBroker) FailNext(errs ...*Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, errs...)
}

func (p *PaperBroker) GetCurrentPrice(ctx context.Context, code string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[code]
	if !ok {
		return 0, NewError(CodeInvalidStock, fmt.Sprintf("no quote for %s", code))
	}
	return price, nil
}

func (p *PaperBroker) GetBalance(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

func (p *PaperBroker) GetHoldings(ctx context.Context) ([]entity.Holding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.Holding, 0, len(p.holdings))
	for _, h := range p.holdings {
		out = append(out, *h)
	}
	return out, nil
}

func (p *PaperBroker) SubmitBuy(ctx context.Context, req entity.OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(); err != nil {
		return "", err
	}
	cost := req.Price * float64(req.Quantity)
	if cost > p.balance {
		return "", NewError(CodeInsufficientBalance, fmt.Sprintf("need %.0f, have %.0f", cost, p.balance))
	}
	p.balance -= cost
	h, ok := p.holdings[req.StockCode]
	if !ok {
		h = &entity.Holding{StockCode: req.StockCode, StockName: req.StockName}
		p.holdings[req.StockCode] = h
	}
	total := h.AvgPrice*float64(h.Quantity) + cost
	h.Quantity += req.Quantity
	h.AvgPrice = total / float64(h.Quantity)
	return p.orderID(), nil
}

func (p *PaperBroker) SubmitSell(ctx context.Context, req entity.OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.popFailure(); err != nil {
		return "", err
	}
	h, ok := p.holdings[req.StockCode]
	if !ok || h.Quantity < req.Quantity {
		return "", NewError(CodeInsufficientQuantity, fmt.Sprintf("cannot sell %d of %s", req.Quantity, req.StockCode))
	}
	h.Quantity -= req.Quantity
	if h.Quantity == 0 {
		delete(p.holdings, req.StockCode)
	}
	p.balance += req.Price * float64(req.Quantity)
	return p.orderID(), nil
}

func (p *PaperBroker) popFailure() *Error {
	if len(p.failures) == 0 {
		return nil
	}
	err := p.failures[0]
	p.failures = p.failures[1:]
	return err
}

func (p *PaperBroker) orderID() string {
	p.nextID++
	return fmt.Sprintf("PAPER-%06d", p.nextID)
}
