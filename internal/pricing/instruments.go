package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Instrument describes how a symbol is quoted. Instruments quoted in fixed
// contract units (metals, indices) carry a contract size greater than 1 that
// scales the notional used for margin.
type Instrument struct {
	Symbol       string `yaml:"symbol"`
	ContractSize string `yaml:"contract_size"`
	Precision    int    `yaml:"precision"`
}

type Catalog struct {
	instruments map[string]Instrument
}

type catalogFile struct {
	Instruments []Instrument `yaml:"instruments"`
}

// DefaultCatalog covers the symbols the platform trades out of the box.
// A YAML file extends or overrides it.
func DefaultCatalog() *Catalog {
	c := &Catalog{instruments: make(map[string]Instrument)}
	for _, in := range []Instrument{
		{Symbol: "EURUSD", ContractSize: "1", Precision: 5},
		{Symbol: "GBPUSD", ContractSize: "1", Precision: 5},
		{Symbol: "USDJPY", ContractSize: "1", Precision: 3},
		{Symbol: "XAUUSD", ContractSize: "100", Precision: 2},
		{Symbol: "BTCUSD", ContractSize: "1", Precision: 2},
		{Symbol: "US30", ContractSize: "10", Precision: 1},
	} {
		c.instruments[in.Symbol] = in
	}
	return c
}

func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instrument catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse instrument catalog: %w", err)
	}
	for _, in := range file.Instruments {
		sym := strings.ToUpper(strings.TrimSpace(in.Symbol))
		if sym == "" {
			continue
		}
		in.Symbol = sym
		c.instruments[sym] = in
	}
	return c, nil
}

// ContractSize returns the instrument's contract size, defaulting to 1 for
// unknown symbols or unparseable config values.
func (c *Catalog) ContractSize(symbol string) decimal.Decimal {
	in, ok := c.instruments[strings.ToUpper(symbol)]
	if !ok {
		return decimal.NewFromInt(1)
	}
	size, err := decimal.NewFromString(in.ContractSize)
	if err != nil || !size.GreaterThan(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return size
}

func (c *Catalog) Precision(symbol string) int {
	in, ok := c.instruments[strings.ToUpper(symbol)]
	if !ok || in.Precision <= 0 {
		return 5
	}
	return in.Precision
}

// RequiredMargin is the capital reserved to hold size units of symbol at
// price under the given leverage: size * contractSize * price / leverage.
func (c *Catalog) RequiredMargin(symbol string, size, price, leverage decimal.Decimal) decimal.Decimal {
	if size.LessThanOrEqual(decimal.Zero) || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if leverage.LessThanOrEqual(decimal.Zero) {
		leverage = decimal.NewFromInt(1)
	}
	notional := size.Mul(c.ContractSize(symbol)).Mul(price)
	return notional.Div(leverage)
}
