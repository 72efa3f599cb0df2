// Package feed loads the externally collected snapshots the decision cycle
// consumes. Collectors drop JSON files into the feed directory; this
// provider reads the latest ones at the start of each cycle.
package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/domain"
)

const (
	marketFile    = "market.json"
	portfolioFile = "portfolio.json"
	advisoryFile  = "advisory.json"
)

// FileProvider reads cycle inputs from a directory of JSON snapshots.
type FileProvider struct {
	dir string
	log zerolog.Logger
}

func NewFileProvider(dir string, log zerolog.Logger) *FileProvider {
	return &FileProvider{
		dir: dir,
		log: log.With().Str("component", "feed").Logger(),
	}
}

// Market loads the market snapshot. The cycle cannot run without one.
func (p *FileProvider) Market() (domain.MarketSnapshot, error) {
	var snap domain.MarketSnapshot
	if err := p.read(marketFile, &snap); err != nil {
		return domain.MarketSnapshot{}, err
	}
	return snap, nil
}

// Portfolio loads the portfolio snapshot. The cycle cannot run without one.
func (p *FileProvider) Portfolio() (domain.PortfolioSnapshot, error) {
	var snap domain.PortfolioSnapshot
	if err := p.read(portfolioFile, &snap); err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	return snap, nil
}

// Advisory loads the external advisory. A missing file is not an error;
// the engine must decide without one.
func (p *FileProvider) Advisory() (*domain.Advisory, error) {
	path := filepath.Join(p.dir, advisoryFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		p.log.Debug().Msg("no advisory present, running rule-based")
		return nil, nil
	}

	var advisory domain.Advisory
	if err := p.read(advisoryFile, &advisory); err != nil {
		return nil, err
	}
	return &advisory, nil
}

func (p *FileProvider) read(name string, v interface{}) error {
	path := filepath.Join(p.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read feed file %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse feed file %s: %w", name, err)
	}
	return nil
}
