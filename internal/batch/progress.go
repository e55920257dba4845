package batch

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"menumatch/internal/logging"
)

// Progress receives one call per finished image.
type Progress interface {
	Done(fileName string, failed bool)
	Close()
}

// NewProgress returns a terminal progress bar when w is a TTY and a sampled
// log reporter otherwise.
func NewProgress(total int, w io.Writer, logger *slog.Logger) Progress {
	if f, ok := w.(*os.File); ok && isTerminal(f.Fd()) {
		return newBarProgress(total, w)
	}
	return newLogProgress(total, logger)
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type barProgress struct {
	bar *progressbar.ProgressBar
}

func newBarProgress(total int, w io.Writer) *barProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("matching"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &barProgress{bar: bar}
}

func (p *barProgress) Done(string, bool) {
	_ = p.bar.Add(1)
}

func (p *barProgress) Close() {
	_ = p.bar.Finish()
}

type logProgress struct {
	mu      sync.Mutex
	total   int
	done    int
	failed  int
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func newLogProgress(total int, logger *slog.Logger) *logProgress {
	return &logProgress{
		total:   total,
		sampler: logging.NewProgressSampler(10),
		logger:  logging.NewComponentLogger(logger, "progress"),
	}
}

func (p *logProgress) Done(fileName string, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if failed {
		p.failed++
	}
	if !p.sampler.ShouldLog(p.done, p.total) {
		return
	}
	p.logger.Info("batch progress",
		logging.Int("done", p.done),
		logging.Int("total", p.total),
		logging.Int("failed", p.failed),
		logging.String("last_image", fileName),
	)
}

func (p *logProgress) Close() {}

type nopProgress struct{}

func (nopProgress) Done(string, bool) {}
func (nopProgress) Close()            {}
