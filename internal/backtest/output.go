package backtest

import (
	"os"
	"path/filepath"

	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

// OutputDirName is the subdirectory of the working directory that
// receives charts and tables.
const OutputDirName = "output"

// Table names one result table and the base name of its output files.
type Table struct {
	Name string // chart title
	File string // base file name, no extension
}

var (
	PortfolioTable = Table{Name: "portfolio_nv_his", File: "portfolio_nv"}
	HedgeTable     = Table{Name: "hedge_nv_his", File: "hedge_nv"}

	Tables = []Table{PortfolioTable, HedgeTable}
)

func OutputDir(path string) string { return filepath.Join(path, OutputDirName) }

func (t Table) CSVPath(path string) string { return filepath.Join(OutputDir(path), t.File+".csv") }
func (t Table) PNGPath(path string) string { return filepath.Join(OutputDir(path), t.File+".png") }

// TableByFile looks a table up by its file base name.
func TableByFile(file string) (Table, bool) {
	for _, t := range Tables {
		if t.File == file {
			return t, true
		}
	}
	return Table{}, false
}

func (c *Context) frame(t Table) *model.Frame {
	if t == HedgeTable {
		return c.HedgeNV
	}
	return c.PortfolioNV
}

func (c *Context) ensureOutputDir() error {
	return os.MkdirAll(OutputDir(c.Path), 0o755)
}

// Save writes both result tables as csv under the output directory,
// replacing earlier files. The date index is the leading, unlabelled
// column; missing cells are empty.
func (c *Context) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return ErrNotLoaded
	}
	if err := c.ensureOutputDir(); err != nil {
		return err
	}
	for _, t := range Tables {
		p := t.CSVPath(c.Path)
		if err := data.WriteFrameCSV(p, c.frame(t), ""); err != nil {
			return err
		}
		c.logger().WithField("file", p).Info("table saved")
	}
	return nil
}
