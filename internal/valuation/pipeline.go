package valuation

import (
	"context"

	"ValuationBands/internal/collector"
	"ValuationBands/internal/model"
)

// Pipeline fetches data for a symbol and evaluates it.
type Pipeline struct {
	Collector *collector.Collector
	Engine    *Engine
	Kinds     []model.RatioKind
}

// Run collects and evaluates one symbol.
func (p *Pipeline) Run(ctx context.Context, symbol string) (*model.ValuationReport, error) {
	ds, err := p.Collector.Collect(ctx, symbol, p.Kinds)
	if err != nil {
		return nil, err
	}
	return p.Engine.Evaluate(ds.Symbol, ds.Prices, ds.Records, p.Kinds)
}
