package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"optiscope/internal/domain"
	"optiscope/internal/selection"
)

// optionsAPI is the part of the relay client the picker needs.
type optionsAPI interface {
	Expirations(ctx context.Context, root string) ([]string, error)
	Strikes(ctx context.Context, root, exp string) ([]float64, error)
	OptionPrice(ctx context.Context, req domain.EODRequest) (domain.OptionPrice, error)
}

// picker drives the stepped contract selection for one symbol.
type picker struct {
	api    optionsAPI
	symbol string
	out    io.Writer
	log    *slog.Logger
	now    func() time.Time

	state selection.State
	guard selection.Guard

	price domain.OptionPrice
	page  int
}

func newPicker(api optionsAPI, symbol string, out io.Writer, log *slog.Logger) *picker {
	return &picker{api: api, symbol: symbol, out: out, log: log, now: time.Now}
}

// run walks the user from expiration down to a priced contract, then loops
// on follow-up actions until the user quits.
func (p *picker) run(ctx context.Context) error {
	for {
		var err error
		switch p.state.Stage() {
		case selection.StageNone:
			err = p.chooseExpiration(ctx)
		case selection.StageExpiration:
			err = p.chooseStrike(ctx)
		case selection.StageStrike:
			err = p.chooseRight()
		case selection.StageRight:
			err = p.chooseDates()
		case selection.StageDates:
			var quit bool
			quit, err = p.act(ctx)
			if quit {
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
}

func (p *picker) chooseExpiration(ctx context.Context) error {
	exps, err := p.api.Expirations(ctx, p.symbol)
	if err != nil {
		return fmt.Errorf("load expirations: %w", err)
	}
	exp, err := PromptForExpiration(exps)
	if err != nil {
		return err
	}
	return p.apply(selection.FieldExpiration, exp)
}

func (p *picker) chooseStrike(ctx context.Context) error {
	strikes, err := p.api.Strikes(ctx, p.symbol, p.state.Expiration)
	if err != nil {
		return fmt.Errorf("load strikes: %w", err)
	}
	strike, err := PromptForStrike(strikes)
	if err != nil {
		return err
	}
	return p.apply(selection.FieldStrike, strike)
}

func (p *picker) chooseRight() error {
	right, err := PromptForRight()
	if err != nil {
		return err
	}
	return p.apply(selection.FieldRight, right)
}

func (p *picker) chooseDates() error {
	defStart, defEnd := selection.DefaultDates(p.now())
	start, end, err := PromptForDates(defStart, defEnd)
	if err != nil {
		return err
	}
	next, err := selection.SelectDates(p.state, start, end, p.now())
	if err != nil {
		return err
	}
	p.setState(next)
	return nil
}

func (p *picker) apply(field selection.Field, value string) error {
	next, err := selection.Select(p.state, field, value)
	if err != nil {
		return err
	}
	p.setState(next)
	return nil
}

func (p *picker) setState(s selection.State) {
	p.state = s
	p.guard.Advance(s)
	p.price = domain.OptionPrice{}
	p.page = 0
}

// act prices the contract if needed, shows it and handles one follow-up
// action. It reports true when the user quits.
func (p *picker) act(ctx context.Context) (bool, error) {
	if p.price.History == nil {
		if err := p.loadPrice(ctx); err != nil {
			fmt.Fprintln(p.out, ErrorBanner(err))
		}
	}
	p.show()

	_, _, pages := Paginate(p.price.History, p.page, HistoryPageSize)
	action, err := PromptForAction(p.page, pages)
	if err != nil {
		return false, err
	}

	switch action {
	case actionNextPage:
		p.page++
	case actionPrevPage:
		p.page--
	case actionDates:
		return false, p.apply(selection.FieldStartDate, "")
	case actionRight:
		return false, p.apply(selection.FieldRight, "")
	case actionStrike:
		return false, p.apply(selection.FieldStrike, "")
	case actionExpiration:
		return false, p.apply(selection.FieldExpiration, "")
	case actionQuit:
		return true, nil
	}
	return false, nil
}

// errStale reports a price that resolved after the selection changed.
var errStale = errors.New("selection changed while loading")

// loadPrice fetches the selected contract's price. A response for an older
// selection is dropped.
func (p *picker) loadPrice(ctx context.Context) error {
	req, err := p.state.Request(p.symbol)
	if err != nil {
		return err
	}
	ticket := p.guard.Begin(p.state)
	price, err := p.api.OptionPrice(ctx, req)
	if !p.guard.Accept(ticket) {
		p.log.Debug("dropping stale option price", "symbol", p.symbol, "strike", req.Strike)
		return errStale
	}
	if err != nil {
		return fmt.Errorf("load option price: %w", err)
	}
	if price.History == nil {
		price.History = []domain.OptionPricePoint{}
	}
	p.price = price
	p.page = 0
	return nil
}

func (p *picker) show() {
	s := p.state
	fmt.Fprintln(p.out, Title(fmt.Sprintf("%s %s %g %s  %s .. %s",
		p.symbol, s.Expiration, s.Strike, s.Right, s.StartDate, s.EndDate)))
	fmt.Fprintln(p.out, RenderPriceCards(p.price))
	fmt.Fprintln(p.out, RenderHistoryPage(p.price.History, p.page))
}
