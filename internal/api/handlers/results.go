package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"factor-backtest/internal/api/models"
	"factor-backtest/internal/backtest"
	"factor-backtest/internal/data"
	"factor-backtest/internal/model"
)

// ResultsHandler serves the tables a run saved under <path>/output.
type ResultsHandler struct {
	path  string
	cache *data.FrameCache
	log   *logrus.Entry
}

// NewResultsHandler creates a handler over the working directory path.
func NewResultsHandler(path string, cache *data.FrameCache) *ResultsHandler {
	return &ResultsHandler{
		path:  path,
		cache: cache,
		log:   logrus.WithField("component", "api"),
	}
}

// ListResults handles GET /api/v1/results
func (h *ResultsHandler) ListResults(c *gin.Context) {
	results := []models.ResultInfo{}
	for _, t := range backtest.Tables {
		f, err := h.cache.Get(t.CSVPath(h.path))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			h.readError(c, t, err)
			return
		}
		rows, cols := f.Shape()
		info := models.ResultInfo{
			Table:  t.File,
			Name:   t.Name,
			Rows:   rows,
			Groups: cols,
			Filled: filledGroups(f),
			CSVURL: "/output/" + t.File + ".csv",
		}
		if rows > 0 {
			index := f.Index()
			info.FirstDate = model.FormatDate(index[0])
			info.LastDate = model.FormatDate(index[rows-1])
		}
		if _, err := os.Stat(t.PNGPath(h.path)); err == nil {
			info.PNGURL = "/output/" + t.File + ".png"
		}
		results = append(results, info)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetTable handles GET /api/v1/results/:table
func (h *ResultsHandler) GetTable(c *gin.Context) {
	t, f, ok := h.load(c)
	if !ok {
		return
	}

	var q models.TableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	from, err := queryDate(q.From)
	if err != nil {
		badRequest(c, "INVALID_DATE", fmt.Sprintf("from: %v", err))
		return
	}
	to, err := queryDate(q.To)
	if err != nil {
		badRequest(c, "INVALID_DATE", fmt.Sprintf("to: %v", err))
		return
	}

	columns := f.Columns()
	resp := models.TableResponse{Table: t.File, Name: t.Name, Columns: columns, Rows: []models.TableRow{}}
	for r, d := range f.Index() {
		if (!from.IsZero() && d.Before(from)) || (!to.IsZero() && d.After(to)) {
			continue
		}
		row := models.TableRow{Date: model.FormatDate(d), Values: make(map[string]*float64, len(columns))}
		for col, name := range columns {
			row.Values[name] = cell(f.At(r, col))
		}
		resp.Rows = append(resp.Rows, row)
	}
	c.JSON(http.StatusOK, resp)
}

// GetLast handles GET /api/v1/results/:table/last
func (h *ResultsHandler) GetLast(c *gin.Context) {
	t, f, ok := h.load(c)
	if !ok {
		return
	}
	last := make([]models.LastValue, 0, len(f.Columns()))
	for _, name := range f.Columns() {
		v := models.LastValue{Group: name}
		if p, ok := f.Last(name); ok {
			v.Date = model.FormatDate(p.Date)
			v.Value = cell(p.Value)
		}
		last = append(last, v)
	}
	c.JSON(http.StatusOK, gin.H{"table": t.File, "last": last})
}

// ClearCache handles DELETE /api/v1/cache. Tables are reread on the next
// request.
func (h *ResultsHandler) ClearCache(c *gin.Context) {
	n := h.cache.Len()
	h.cache.Clear()
	h.log.WithField("tables", n).Info("cache cleared")
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

// CachedTables is the number of tables held in memory.
func (h *ResultsHandler) CachedTables() int { return h.cache.Len() }

func (h *ResultsHandler) load(c *gin.Context) (backtest.Table, *model.Frame, bool) {
	name := c.Param("table")
	t, ok := backtest.TableByFile(name)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "UNKNOWN_TABLE",
				Message: fmt.Sprintf("unknown result table %q", name),
				Details: map[string]interface{}{"tables": tableFiles()},
			},
		})
		return t, nil, false
	}
	f, err := h.cache.Get(t.CSVPath(h.path))
	if errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NOT_SAVED",
				Message: fmt.Sprintf("%s has not been saved yet", t.File),
			},
		})
		return t, nil, false
	}
	if err != nil {
		h.readError(c, t, err)
		return t, nil, false
	}
	return t, f, true
}

func (h *ResultsHandler) readError(c *gin.Context, t backtest.Table, err error) {
	h.log.WithError(err).WithField("table", t.File).Error("read result table")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read %s: %v", t.File, err),
		},
	})
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{Code: code, Message: msg},
	})
}

func queryDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(s)
}

// cell maps missing and infinite values to JSON null.
func cell(v float64) *float64 {
	if model.IsMissing(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func filledGroups(f *model.Frame) []int {
	out := []int{}
	for _, name := range f.Columns() {
		n, err := strconv.Atoi(name)
		if err == nil && f.ColumnFilled(name) {
			out = append(out, n)
		}
	}
	return out
}

func tableFiles() []string {
	return lo.Map(backtest.Tables, func(t backtest.Table, _ int) string { return t.File })
}
