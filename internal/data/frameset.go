package data

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"factor-backtest/internal/model"
)

var log = logrus.WithField("component", "data")

// FrameSet is a directory of wide tables, one csv per field
// (data/bar/close.csv, data/ttm/roe.csv, ...).
type FrameSet struct {
	Dir    string
	Frames map[string]*model.Frame
}

func newFrameSet(dir string) FrameSet {
	return FrameSet{Dir: dir, Frames: map[string]*model.Frame{}}
}

// Load reads every *.csv in Dir. Each name in required must be present.
func (s *FrameSet) Load(required ...string) error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return err
	}

	frames := make(map[string]*model.Frame, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		f, err := ReadFrameCSV(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			return err
		}
		rows, cols := f.Shape()
		log.WithFields(logrus.Fields{"dir": s.Dir, "field": name, "rows": rows, "cols": cols}).Debug("loaded field")
		frames[name] = f
	}

	for _, r := range required {
		if _, ok := frames[r]; !ok {
			return fmt.Errorf("%s: %w", filepath.Join(s.Dir, r+".csv"), fs.ErrNotExist)
		}
	}
	s.Frames = frames
	return nil
}

// Field returns the table for one field.
func (s *FrameSet) Field(name string) (*model.Frame, bool) {
	f, ok := s.Frames[name]
	return f, ok
}

// Fields lists loaded field names, sorted.
func (s *FrameSet) Fields() []string {
	names := lo.Keys(s.Frames)
	sort.Strings(names)
	return names
}
